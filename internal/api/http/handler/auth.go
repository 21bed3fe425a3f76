package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
	"github.com/renthus/renthus-admin/internal/auth"
	"github.com/renthus/renthus-admin/internal/workspace"
)

type AuthHandler struct {
	auth         *auth.Service
	jwtSecret    string
	cookieMaxAge int
	cookieSecure bool
}

func NewAuthHandler(service *auth.Service, jwtSecret string, cookieMaxAge int, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		auth:         service,
		jwtSecret:    jwtSecret,
		cookieMaxAge: cookieMaxAge,
		cookieSecure: cookieSecure,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		slog.Error("Failed to create user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterResponse{ID: user.ID, Email: user.Email})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		slog.Error("Login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	workspace.SetSessionCookie(c, token, h.cookieMaxAge, h.cookieSecure)
	c.JSON(http.StatusOK, dto.LoginResponse{Token: token})
}

// SyncSession writes the browser session cookie from a token the frontend
// already holds. Both token fields must be present and the access token must
// validate.
func (h *AuthHandler) SyncSession(c *gin.Context) {
	var req dto.SyncSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing tokens"})
		return
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing tokens"})
		return
	}

	if _, err := auth.ValidateToken(h.jwtSecret, req.AccessToken); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session"})
		return
	}

	workspace.SetSessionCookie(c, req.AccessToken, h.cookieMaxAge, h.cookieSecure)
	c.JSON(http.StatusOK, dto.OkResponse{Ok: true})
}

// Signout clears both cookies. Best-effort: it never fails the response.
func (h *AuthHandler) Signout(c *gin.Context) {
	workspace.ClearSessionCookie(c, h.cookieSecure)
	workspace.ClearCompanyCookie(c, h.cookieSecure)
	c.JSON(http.StatusOK, dto.OkResponse{Ok: true})
}
