// Package handler exposes the session service over HTTP (login, refresh, logout).
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scrimbase/backend/internal/identity/service"
	"scrimbase/backend/internal/security"
)

// AuthHandler serves the auth endpoints. Rejections carry a stable error code
// in {"error": ...} so clients can distinguish re-login from retry.
type AuthHandler struct {
	sessions *service.SessionService
}

// NewAuthHandler returns an AuthHandler using the given session service.
func NewAuthHandler(sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(r *gin.RouterGroup) {
	r.POST("/auth/login", h.login)
	r.POST("/auth/refresh", h.refresh)
	r.POST("/auth/logout", h.logout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	pair, _, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, code := mapAuthError(err)
		c.JSON(status, gin.H{"error": code})
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		status, code := mapAuthError(err)
		c.JSON(status, gin.H{"error": code})
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// logout revokes the refresh token from the body (when present) and the bearer
// access token from the Authorization header. Both revocations tolerate
// undecodable tokens, so logout never fails on garbage input.
func (h *AuthHandler) logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	ctx := c.Request.Context()
	if req.RefreshToken != "" {
		if err := h.sessions.RevokeToken(ctx, req.RefreshToken); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
	}
	if bearer := extractBearer(c.GetHeader("Authorization")); bearer != "" {
		if err := h.sessions.RevokeToken(ctx, bearer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// mapAuthError maps session service errors to an HTTP status and a stable code.
func mapAuthError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, security.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired"
	case errors.Is(err, service.ErrTokenRevoked):
		return http.StatusUnauthorized, "token_revoked"
	case errors.Is(err, security.ErrTokenInvalid):
		return http.StatusUnauthorized, "token_invalid"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusUnauthorized, "user_not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

const bearerPrefix = "bearer "

// extractBearer returns the Bearer token from the header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
