package workspace

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renthus/renthus-admin/internal/auth"
)

const (
	testSecret    = "gate-test-secret"
	testCompanyID = "7b0c9f6e-3d2a-4f1b-9c8d-1a2b3c4d5e6f"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func gateRouter(gate *Gate, roles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/guarded", func(c *gin.Context) {
		access, accessErr := gate.Require(c, roles...)
		if accessErr != nil {
			c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
			return
		}
		c.JSON(http.StatusOK, gin.H{"company_id": access.CompanyID, "user_id": access.UserID, "role": access.Role})
	})
	return r
}

func sessionToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.Config{Secret: testSecret}, "user-1", "owner@renthus.test")
	require.NoError(t, err)
	return token
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestGateNoWorkspaceCookie(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := gateRouter(NewGate(mock, testSecret))
	req, _ := http.NewRequest("GET", "/guarded", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No workspace selected", errorBody(t, w))
}

func TestGateMalformedWorkspaceCookie(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := gateRouter(NewGate(mock, testSecret))
	req, _ := http.NewRequest("GET", "/guarded", nil)
	req.AddCookie(&http.Cookie{Name: CompanyCookie, Value: "not-a-uuid"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No workspace selected", errorBody(t, w))
}

func TestGateNoSession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := gateRouter(NewGate(mock, testSecret))
	req, _ := http.NewRequest("GET", "/guarded", nil)
	req.AddCookie(&http.Cookie{Name: CompanyCookie, Value: testCompanyID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", errorBody(t, w))
}

func TestGateInvalidSessionToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := gateRouter(NewGate(mock, testSecret))
	req, _ := http.NewRequest("GET", "/guarded", nil)
	req.AddCookie(&http.Cookie{Name: CompanyCookie, Value: testCompanyID})
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGateMissingMembership(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM company_users").
		WithArgs(testCompanyID, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "is_active"}))

	r := gateRouter(NewGate(mock, testSecret))
	req, _ := http.NewRequest("GET", "/guarded", nil)
	req.AddCookie(&http.Cookie{Name: CompanyCookie, Value: testCompanyID})
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", errorBody(t, w))
}

func TestGateInactiveMembership(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM company_users").
		WithArgs(testCompanyID, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "is_active"}).AddRow("owner", false))

	r := gateRouter(NewGate(mock, testSecret))
	req, _ := http.NewRequest("GET", "/guarded", nil)
	req.AddCookie(&http.Cookie{Name: CompanyCookie, Value: testCompanyID})
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", errorBody(t, w))
}

func TestGateInsufficientRole(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM company_users").
		WithArgs(testCompanyID, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "is_active"}).AddRow("staff", true))

	r := gateRouter(NewGate(mock, testSecret), "owner", "admin")
	req, _ := http.NewRequest("GET", "/guarded", nil)
	req.AddCookie(&http.Cookie{Name: CompanyCookie, Value: testCompanyID})
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient role", errorBody(t, w))
}

func TestGateRoleComparisonIsCaseInsensitive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM company_users").
		WithArgs(testCompanyID, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "is_active"}).AddRow("OWNER", true))

	r := gateRouter(NewGate(mock, testSecret), "owner")
	req, _ := http.NewRequest("GET", "/guarded", nil)
	req.AddCookie(&http.Cookie{Name: CompanyCookie, Value: testCompanyID})
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "owner", body["role"])
	assert.Equal(t, testCompanyID, body["company_id"])
	assert.Equal(t, "user-1", body["user_id"])
}

func TestGateSessionFromCookie(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM company_users").
		WithArgs(testCompanyID, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "is_active"}).AddRow("staff", true))

	r := gateRouter(NewGate(mock, testSecret))
	req, _ := http.NewRequest("GET", "/guarded", nil)
	req.AddCookie(&http.Cookie{Name: CompanyCookie, Value: testCompanyID})
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionToken(t)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
