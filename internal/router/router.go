// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iradmi/vidstream-backend/internal/config"
	"github.com/iradmi/vidstream-backend/internal/handler"
	"github.com/iradmi/vidstream-backend/internal/middleware"
)

// Register sets up all routes. Credential endpoints (register, login,
// refresh) sit behind the Redis token bucket; everything under /v1/users
// requires a valid access token.
func Register(e *echo.Echo, a *handler.AuthHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limited := middleware.NewTokenBucket(rlCfg, rdb)

	pub := e.Group("/v1/auth")
	pub.POST("/register", a.Register, limited)
	pub.POST("/login", a.Login, limited)
	pub.POST("/refresh", a.Refresh, limited)

	protected := e.Group("/v1")
	protected.Use(middleware.RequireAccessToken(a.Auth.Codec()))
	protected.POST("/auth/logout", a.Logout)
	protected.GET("/users/me", a.Me)
	protected.PATCH("/users/me", a.UpdateProfile)
	protected.PATCH("/users/password", a.ChangePassword)
	protected.PATCH("/users/avatar", a.UpdateAvatar)
	protected.PATCH("/users/cover", a.UpdateCover)
}
