package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
	"github.com/renthus/renthus-admin/internal/auth"
	"github.com/renthus/renthus-admin/internal/printing"
	"github.com/renthus/renthus-admin/internal/workspace"
)

const (
	testSecret    = "handler-test-secret"
	testCompanyID = "7b0c9f6e-3d2a-4f1b-9c8d-1a2b3c4d5e6f"
	testAgentID   = "0f9e8d7c-6b5a-4d3c-8e2f-1a0b9c8d7e6f"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAESKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func sessionToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.Config{Secret: testSecret}, "user-1", "owner@renthus.test")
	require.NoError(t, err)
	return token
}

// expectMembership satisfies the gate's membership query.
func expectMembership(mock pgxmock.PgxPoolIface, role string) {
	mock.ExpectQuery("FROM company_users").
		WithArgs(testCompanyID, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "is_active"}).AddRow(role, true))
}

func adminRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	req.AddCookie(&http.Cookie{Name: workspace.CompanyCookie, Value: testCompanyID})
	return req
}

// agentDistDir lays out prebuilt binaries for the given platforms.
func agentDistDir(t *testing.T, platforms ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, platform := range platforms {
		name := "renthus-agent"
		if platform == "windows" {
			name = "renthus-agent.exe"
		}
		require.NoError(t, os.MkdirAll(filepath.Join(dir, platform), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, platform, name), []byte("binary"), 0o755))
	}
	return dir
}

func setupAgentsRouter(mock pgxmock.PgxPoolIface, cfg printing.Config) *gin.Engine {
	gate := workspace.NewGate(mock, testSecret)
	agents := printing.NewAgentStore(mock)
	escrow, _ := printing.NewEscrow(testAESKey())
	tokens := printing.NewTokenStore(mock, escrow)
	h := NewAgentsHandler(gate, agents, tokens, printing.NewBundler(cfg.DistDir), cfg)

	r := gin.New()
	r.POST("/api/print/agents", h.Create)
	r.POST("/api/print/agents/:id/generate-download-token", h.GenerateDownloadToken)
	r.GET("/api/print/agents/:id/download", h.Download)
	return r
}

func TestCreateAgentReturnsPlaintextKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectMembership(mock, "owner")
	mock.ExpectQuery("INSERT INTO print_agents").
		WithArgs(testCompanyID, "Front desk", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "company_id", "name", "is_active", "last_seen", "created_at"}).
			AddRow(testAgentID, testCompanyID, "Front desk", true, (*time.Time)(nil), time.Now()))

	r := setupAgentsRouter(mock, printing.Config{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, adminRequest(t, "POST", "/api/print/agents", dto.CreateAgentRequest{Name: "Front desk"}))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.CreateAgentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testAgentID, resp.Agent.ID)
	assert.Regexp(t, "^[0-9a-f]{48}$", resp.APIKey)
}

func TestCreateAgentRequiresName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectMembership(mock, "owner")

	r := setupAgentsRouter(mock, printing.Config{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, adminRequest(t, "POST", "/api/print/agents", dto.CreateAgentRequest{Name: "  "}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAgentNoWorkspaceSelected(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := setupAgentsRouter(mock, printing.Config{})

	body, _ := json.Marshal(dto.CreateAgentRequest{Name: "Front desk"})
	req, _ := http.NewRequest("POST", "/api/print/agents", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No workspace selected")
}

func TestCreateAgentStaffForbidden(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectMembership(mock, "staff")

	r := setupAgentsRouter(mock, printing.Config{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, adminRequest(t, "POST", "/api/print/agents", dto.CreateAgentRequest{Name: "Front desk"}))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient role")
}

func TestGenerateDownloadTokenURLShape(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectMembership(mock, "admin")
	mock.ExpectQuery("FROM print_agents WHERE id").
		WithArgs(testAgentID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "company_id", "name", "is_active", "last_seen", "created_at"}).
			AddRow(testAgentID, testCompanyID, "Front desk", true, (*time.Time)(nil), time.Now()))
	mock.ExpectExec("UPDATE print_agents SET api_key_hash").
		WithArgs(testAgentID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO agent_download_tokens").
		WithArgs(testAgentID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	cfg := printing.Config{BaseURL: "https://admin.renthus.test", EncryptionKey: testAESKey()}
	r := setupAgentsRouter(mock, cfg)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, adminRequest(t, "POST", "/api/print/agents/"+testAgentID+"/generate-download-token",
		dto.GenerateDownloadTokenRequest{Platform: "linux"}))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.DownloadTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t,
		"^https://admin\\.renthus\\.test/api/print/agents/"+testAgentID+"/download\\?token=[0-9a-f]{36}&platform=linux$",
		resp.DownloadURL)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestGenerateDownloadTokenForeignCompany(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectMembership(mock, "owner")
	mock.ExpectQuery("FROM print_agents WHERE id").
		WithArgs(testAgentID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "company_id", "name", "is_active", "last_seen", "created_at"}).
			AddRow(testAgentID, "other-company", "Front desk", true, (*time.Time)(nil), time.Now()))

	r := setupAgentsRouter(mock, printing.Config{EncryptionKey: testAESKey()})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, adminRequest(t, "POST", "/api/print/agents/"+testAgentID+"/generate-download-token", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDownloadMissingToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := setupAgentsRouter(mock, printing.Config{EncryptionKey: testAESKey()})
	req, _ := http.NewRequest("GET", "/api/print/agents/"+testAgentID+"/download", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing_token")
}

func TestDownloadInvalidToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM agent_download_tokens").
		WithArgs(testAgentID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "token_hash", "encrypted_api_key"}))

	cfg := printing.Config{EncryptionKey: testAESKey(), DistDir: agentDistDir(t, "windows")}
	r := setupAgentsRouter(mock, cfg)
	req, _ := http.NewRequest("GET",
		"/api/print/agents/"+testAgentID+"/download?token=00112233445566778899aabbccddeeff00112233", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_or_expired_token")
}

func TestDownloadMissingBinaryPreservesToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// No linux binary staged. The handler must refuse before touching the
	// token, so no database traffic is expected at all.
	cfg := printing.Config{EncryptionKey: testAESKey(), DistDir: agentDistDir(t, "windows")}
	r := setupAgentsRouter(mock, cfg)
	req, _ := http.NewRequest("GET",
		"/api/print/agents/"+testAgentID+"/download?token=00112233445566778899aabbccddeeff00112233&platform=linux", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "bundle unavailable")
	require.NoError(t, mock.ExpectationsWereMet())
}
