package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iradmi/vidstream-backend/internal/middleware"
	"github.com/iradmi/vidstream-backend/internal/model"
	"github.com/iradmi/vidstream-backend/internal/queue"
)

// ----- DTOs -----

type changePasswordReq struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type updateProfileReq struct {
	FullName string `json:"fullname"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Me returns the authenticated user's sanitized record.
func (h *AuthHandler) Me(c echo.Context) error {
	uid := middleware.UserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Auth.CurrentUser(ctx, uid)
	if err != nil {
		return mapAuthError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// ChangePassword swaps the stored hash after verifying the old password.
// The current session is kept; only the credential changes.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid := middleware.UserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.OldPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "all password fields are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, uid, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		return mapAuthError(c, err)
	}

	h.publish(queue.AuthActivityEvent{Type: queue.ActivityPasswordChanged, UserID: uid, RemoteIP: c.RealIP()})
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// UpdateProfile rewrites fullname/username/email for the authenticated
// user. The password hash and session are never touched here.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	uid := middleware.UserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	fullName := strings.TrimSpace(req.FullName)
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if fullName == "" || username == "" || email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "fullname, username and email are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Auth.UpdateProfile(ctx, uid, fullName, username, email)
	if err != nil {
		return mapAuthError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// UpdateAvatar uploads a replacement avatar image and persists its URL.
func (h *AuthHandler) UpdateAvatar(c echo.Context) error {
	return h.updateImage(c, "avatar", "avatars", h.Auth.SetAvatar)
}

// UpdateCover uploads a replacement cover image and persists its URL.
func (h *AuthHandler) UpdateCover(c echo.Context) error {
	return h.updateImage(c, "coverImage", "covers", h.Auth.SetCover)
}

func (h *AuthHandler) updateImage(c echo.Context, field, folder string,
	persist func(context.Context, uint64, string) (model.User, error)) error {
	uid := middleware.UserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	fh, err := c.FormFile(field)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": field + " file is missing"})
	}
	url, err := h.uploadFile(ctx, fh, folder)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	u, err := persist(ctx, uid, url)
	if err != nil {
		return mapAuthError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}
