package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
)

// signup registers a user, logs in and returns an authenticated client.
func signup(t *testing.T, router *gin.Engine, email string) *Client {
	t.Helper()

	rr := doJSON(router, "POST", "/api/auth/register", dto.RegisterRequest{Email: email, Password: "password123"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(router, "POST", "/api/auth/login", dto.LoginRequest{Email: email, Password: "password123"})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return &Client{Engine: router, Token: resp.Token}
}

// createCompany provisions a company for the client's user and returns its id.
// The endpoint also selects the new company as the active workspace.
func createCompany(t *testing.T, client *Client, name string) string {
	t.Helper()

	rr := client.Do("POST", "/api/companies/create", dto.CreateCompanyRequest{Name: name})
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		CompanyID string `json:"company_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.CompanyID)
	return resp.CompanyID
}

func TestWorkspaceFlow(t *testing.T, router *gin.Engine) {
	client := signup(t, router, "workspace@renthus.test")

	t.Run("no workspace selected initially", func(t *testing.T) {
		rr := client.Do("GET", "/api/workspace/current", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"company_id": null}`, rr.Body.String())
	})

	t.Run("orders require a workspace", func(t *testing.T) {
		rr := client.Do("GET", "/api/orders/list", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "No workspace selected")
	})

	companyID := createCompany(t, client, "Workspace Test Co")

	t.Run("create selects the new company", func(t *testing.T) {
		rr := client.Do("GET", "/api/workspace/current", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.CurrentWorkspaceResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotNil(t, resp.CompanyID)
		assert.Equal(t, companyID, *resp.CompanyID)
	})

	t.Run("list shows owner membership", func(t *testing.T) {
		rr := client.Do("GET", "/api/workspace/list", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.WorkspaceListResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Companies, 1)
		assert.Equal(t, companyID, resp.Companies[0].ID)
		assert.Equal(t, "owner", resp.Companies[0].Role)
	})

	t.Run("orders list is empty for a fresh company", func(t *testing.T) {
		rr := client.Do("GET", "/api/orders/list", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"orders": []}`, rr.Body.String())
	})

	t.Run("cannot select someone else's company", func(t *testing.T) {
		other := signup(t, router, "intruder@renthus.test")
		rr := other.Do("POST", "/api/workspace/select", dto.SelectWorkspaceRequest{CompanyID: companyID})
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Contains(t, rr.Body.String(), "Forbidden")
	})

	t.Run("clear drops the workspace", func(t *testing.T) {
		rr := client.Do("POST", "/api/workspace/clear", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = client.Do("GET", "/api/workspace/current", nil)
		assert.JSONEq(t, `{"company_id": null}`, rr.Body.String())
	})

	t.Run("select restores it", func(t *testing.T) {
		rr := client.Do("POST", "/api/workspace/select", dto.SelectWorkspaceRequest{CompanyID: companyID})
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.SelectWorkspaceResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Ok)
		assert.Equal(t, companyID, resp.CompanyID)
	})
}
