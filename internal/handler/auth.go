package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iradmi/vidstream-backend/internal/auth"
	"github.com/iradmi/vidstream-backend/internal/media"
	"github.com/iradmi/vidstream-backend/internal/middleware"
	"github.com/iradmi/vidstream-backend/internal/model"
	"github.com/iradmi/vidstream-backend/internal/queue"
	queue_publisher "github.com/iradmi/vidstream-backend/internal/service"
)

const dbTimeout = 5 * time.Second

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Auth   *auth.Service
	Media  media.Uploader
	Events *queue_publisher.Publisher
}

func NewAuthHandler(svc *auth.Service, up media.Uploader, ev *queue_publisher.Publisher) *AuthHandler {
	return &AuthHandler{Auth: svc, Media: up, Events: ev}
}

// ----- DTOs -----

type loginReq struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type userPart struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"fullname"`
	AvatarURL string `json:"avatar_url"`
	CoverURL  string `json:"cover_url,omitempty"`
}

type loginResp struct {
	User         userPart `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
}

type refreshResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		CoverURL:  u.CoverURL,
	}
}

// mapAuthError translates sentinel errors from the auth core into HTTP
// responses. Mapping is by error kind only, never by message text, and
// internal faults stay opaque.
func mapAuthError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, auth.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already exists"})
	case errors.Is(err, auth.ErrPasswordMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password confirmation does not match"})
	case errors.Is(err, auth.ErrMissingToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing refresh token"})
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrWrongOldPassword),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenReuse):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// Register creates an account from a multipart form. The avatar image is
// required, the cover image optional; both are uploaded to object storage
// before the user row is created, mirroring how the record stores only
// the resulting URLs.
func (h *AuthHandler) Register(c echo.Context) error {
	fullName := strings.TrimSpace(c.FormValue("fullname"))
	username := strings.TrimSpace(c.FormValue("username"))
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	if fullName == "" || username == "" || email == "" || password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "all fields are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	avatarFile, err := c.FormFile("avatar")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "avatar file is required"})
	}
	avatarURL, err := h.uploadFile(ctx, avatarFile, "avatars")
	if err != nil {
		// Storage outage is our fault, not the client's.
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	coverURL := "" // cover image is optional
	if coverFile, ferr := c.FormFile("coverImage"); ferr == nil {
		coverURL, err = h.uploadFile(ctx, coverFile, "covers")
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
	}

	u, err := h.Auth.Register(ctx, auth.RegisterInput{
		FullName:  fullName,
		Username:  username,
		Email:     email,
		Password:  password,
		AvatarURL: avatarURL,
		CoverURL:  coverURL,
	})
	if err != nil {
		return mapAuthError(c, err)
	}

	h.publish(queue.AuthActivityEvent{
		Type: queue.ActivityRegistered, UserID: u.ID, Username: u.Username,
		Email: u.Email, RemoteIP: c.RealIP(),
	})
	return c.JSON(http.StatusCreated, echo.Map{"user": toUserPart(u)})
}

// Login verifies credentials for a username-or-email identifier and
// returns a fresh token pair, both in the JSON body and as httpOnly
// cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier and password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, pair, err := h.Auth.Login(ctx, identifier, req.Password)
	if err != nil {
		return mapAuthError(c, err)
	}

	h.setTokenCookies(c, pair)
	h.publish(queue.AuthActivityEvent{
		Type: queue.ActivityLoggedIn, UserID: u.ID, Username: u.Username,
		Email: u.Email, RemoteIP: c.RealIP(),
	})
	return c.JSON(http.StatusOK, loginResp{
		User:         toUserPart(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh rotates the session: it validates the presented refresh token
// (cookie or body), issues a new pair, and re-sets the cookies. An old,
// already-rotated token fails even though its signature is still valid.
func (h *AuthHandler) Refresh(c echo.Context) error {
	presented := ""
	if ck, err := c.Cookie("refreshToken"); err == nil {
		presented = ck.Value
	}
	if presented == "" {
		var req refreshReq
		_ = c.Bind(&req)
		presented = strings.TrimSpace(req.RefreshToken)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, presented)
	if err != nil {
		if errors.Is(err, auth.ErrTokenReuse) {
			h.publish(queue.AuthActivityEvent{Type: queue.ActivityTokenReuse, RemoteIP: c.RealIP()})
		}
		return mapAuthError(c, err)
	}

	h.setTokenCookies(c, pair)
	return c.JSON(http.StatusOK, refreshResp{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout clears the stored refresh token for the authenticated user and
// expires both cookies. Calling it twice is harmless.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid := middleware.UserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, uid); err != nil {
		return mapAuthError(c, err)
	}

	h.clearTokenCookies(c)
	h.publish(queue.AuthActivityEvent{Type: queue.ActivityLoggedOut, UserID: uid, RemoteIP: c.RealIP()})
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// ----- helpers -----

// uploadFile streams a multipart file to object storage and returns the
// public URL. Callers resolve the form field themselves so a missing file
// (client error) is never conflated with an upload fault (ours).
func (h *AuthHandler) uploadFile(ctx context.Context, fh *multipart.FileHeader, folder string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	key := fmt.Sprintf("%s/%d%s", folder, time.Now().UnixNano(), path.Ext(fh.Filename))
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return h.Media.Upload(ctx, key, ct, src)
}

func (h *AuthHandler) setTokenCookies(c echo.Context, pair auth.TokenPair) {
	codec := h.Auth.Codec()
	c.SetCookie(&http.Cookie{
		Name: "accessToken", Value: pair.AccessToken, Path: "/",
		Expires: time.Now().Add(codec.AccessTTL()), HttpOnly: true, Secure: true,
	})
	c.SetCookie(&http.Cookie{
		Name: "refreshToken", Value: pair.RefreshToken, Path: "/",
		Expires: time.Now().Add(codec.RefreshTTL()), HttpOnly: true, Secure: true,
	})
}

func (h *AuthHandler) clearTokenCookies(c echo.Context) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		c.SetCookie(&http.Cookie{
			Name: name, Value: "", Path: "/",
			Expires: time.Unix(0, 0), MaxAge: -1, HttpOnly: true, Secure: true,
		})
	}
}

// publish sends an activity event without blocking the response; broker
// failures are swallowed by the publisher.
func (h *AuthHandler) publish(ev queue.AuthActivityEvent) {
	if h.Events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Events.Publish(ctx, ev)
	}()
}
