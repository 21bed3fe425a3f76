package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
	"github.com/renthus/renthus-admin/internal/billing"
	"github.com/renthus/renthus-admin/internal/companies"
	"github.com/renthus/renthus-admin/internal/workspace"
)

func setupWorkspaceRouter(mock pgxmock.PgxPoolIface) *gin.Engine {
	gate := workspace.NewGate(mock, testSecret)
	h := NewWorkspaceHandler(gate, companies.NewService(mock), false)
	b := NewBillingHandler(gate, billing.NewService(mock))

	r := gin.New()
	r.POST("/api/workspace/select", h.Select)
	r.POST("/api/workspace/clear", h.Clear)
	r.GET("/api/workspace/current", h.Current)
	r.GET("/api/billing/status", b.Status)
	return r
}

func TestWorkspaceSelectSetsCookie(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM company_users").
		WithArgs(testCompanyID, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "is_active"}).AddRow("owner", true))

	r := setupWorkspaceRouter(mock)
	body, _ := json.Marshal(dto.SelectWorkspaceRequest{CompanyID: testCompanyID})
	req, _ := http.NewRequest("POST", "/api/workspace/select", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == workspace.CompanyCookie {
			found = true
			assert.Equal(t, testCompanyID, c.Value)
			assert.True(t, c.HttpOnly)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
			assert.Positive(t, c.MaxAge)
		}
	}
	assert.True(t, found)
}

func TestWorkspaceSelectMissingID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := setupWorkspaceRouter(mock)
	req, _ := http.NewRequest("POST", "/api/workspace/select", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkspaceSelectNonMember(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM company_users").
		WithArgs(testCompanyID, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "is_active"}))

	r := setupWorkspaceRouter(mock)
	body, _ := json.Marshal(dto.SelectWorkspaceRequest{CompanyID: testCompanyID})
	req, _ := http.NewRequest("POST", "/api/workspace/select", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWorkspaceClearZeroesCookie(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := setupWorkspaceRouter(mock)
	req, _ := http.NewRequest("POST", "/api/workspace/clear", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == workspace.CompanyCookie {
			cleared = true
			assert.Empty(t, c.Value)
			assert.Negative(t, c.MaxAge)
		}
	}
	assert.True(t, cleared)
}

func TestWorkspaceCurrentUnset(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := setupWorkspaceRouter(mock)
	req, _ := http.NewRequest("GET", "/api/workspace/current", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"company_id":null}`, w.Body.String())
}

func TestBillingStatusStaffForbidden(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectMembership(mock, "staff")

	r := setupWorkspaceRouter(mock)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, adminRequest(t, "GET", "/api/billing/status", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient role")
}
