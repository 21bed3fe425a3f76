package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
	"github.com/renthus/renthus-admin/internal/auth"
)

func TestRegister(t *testing.T, router *gin.Engine, jwtSecret string) {
	t.Run("success", func(t *testing.T) {
		body := dto.RegisterRequest{Email: "owner@renthus.test", Password: "password123"}
		rr := doJSON(router, "POST", "/api/auth/register", body)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.RegisterResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "owner@renthus.test", resp.Email)
		assert.NotEmpty(t, resp.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := dto.RegisterRequest{Email: "dup@renthus.test", Password: "password123"}
		rr := doJSON(router, "POST", "/api/auth/register", body)
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = doJSON(router, "POST", "/api/auth/register", body)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("missing email", func(t *testing.T) {
		body := dto.RegisterRequest{Password: "password123"}
		rr := doJSON(router, "POST", "/api/auth/register", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("password too short", func(t *testing.T) {
		body := dto.RegisterRequest{Email: "shortpw@renthus.test", Password: "short"}
		rr := doJSON(router, "POST", "/api/auth/register", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLogin(t *testing.T, router *gin.Engine, jwtSecret string) {
	// Create a user to login with
	regBody := dto.RegisterRequest{Email: "login@renthus.test", Password: "password123"}
	rr := doJSON(router, "POST", "/api/auth/register", regBody)
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("success", func(t *testing.T) {
		body := dto.LoginRequest{Email: "login@renthus.test", Password: "password123"}
		rr := doJSON(router, "POST", "/api/auth/login", body)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.LoginResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)

		claims, err := auth.ValidateToken(jwtSecret, resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "login@renthus.test", claims.Email)
		assert.NotEmpty(t, claims.UserID)

		// Login also establishes the session cookie so browser clients
		// can talk to the API without the bearer header.
		var session *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == "renthus_session" {
				session = c
			}
		}
		require.NotNil(t, session)
		assert.Equal(t, resp.Token, session.Value)
		assert.True(t, session.HttpOnly)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := dto.LoginRequest{Email: "login@renthus.test", Password: "wrongpassword"}
		rr := doJSON(router, "POST", "/api/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("nonexistent user", func(t *testing.T) {
		body := dto.LoginRequest{Email: "nobody@renthus.test", Password: "password123"}
		rr := doJSON(router, "POST", "/api/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
