package tests

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
)

var apiKeyPattern = regexp.MustCompile(`^[0-9a-f]{48}$`)

func TestPrintFleetFlow(t *testing.T, router *gin.Engine, pool *pgxpool.Pool) {
	ctx := context.Background()

	owner := signup(t, router, "fleet@renthus.test")
	companyID := createCompany(t, owner, "Fleet Test Co")

	var agentID, apiKey string
	t.Run("create agent issues a key", func(t *testing.T) {
		rr := owner.Do("POST", "/api/print/agents", dto.CreateAgentRequest{Name: "Counter PC"})
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.CreateAgentResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Regexp(t, apiKeyPattern, resp.APIKey)
		assert.Equal(t, companyID, resp.Agent.CompanyID)
		agentID = resp.Agent.ID
		apiKey = resp.APIKey
	})

	agent := &Client{Engine: router, Token: apiKey}

	t.Run("poll with bad key is rejected", func(t *testing.T) {
		bad := &Client{Engine: router, Token: "000000000000000000000000000000000000000000000000"}
		rr := bad.Do("GET", "/api/print/jobs/poll", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("poll on empty queue", func(t *testing.T) {
		rr := agent.Do("GET", "/api/print/jobs/poll", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"jobs": []}`, rr.Body.String())
	})

	t.Run("poll reserves a pending job exactly once", func(t *testing.T) {
		_, err := pool.Exec(ctx,
			`INSERT INTO print_jobs (company_id, payload) VALUES ($1, $2)`,
			companyID, []byte(`{"copies": 2}`))
		require.NoError(t, err)

		rr := agent.Do("GET", "/api/print/jobs/poll", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.PollJobsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Jobs, 1)
		assert.Equal(t, "reserved", resp.Jobs[0].Status)
		assert.Equal(t, float64(2), resp.Jobs[0].Payload["copies"])
		jobID := resp.Jobs[0].ID

		// The job is now reserved, so a second poll comes back empty.
		rr = agent.Do("GET", "/api/print/jobs/poll", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"jobs": []}`, rr.Body.String())

		rr = agent.Do("POST", "/api/print/jobs/"+jobID+"/status", dto.JobStatusRequest{Status: "done"})
		assert.Equal(t, http.StatusOK, rr.Code)

		var status string
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT status FROM print_jobs WHERE id = $1`, jobID).Scan(&status))
		assert.Equal(t, "done", status)
	})

	t.Run("download token is single use", func(t *testing.T) {
		rr := owner.Do("POST", "/api/print/agents/"+agentID+"/generate-download-token",
			dto.GenerateDownloadTokenRequest{Platform: "linux"})
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.DownloadTokenResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

		u, err := url.Parse(resp.DownloadURL)
		require.NoError(t, err)
		path := u.Path + "?" + u.RawQuery

		dl := doJSON(router, "GET", path, nil)
		require.Equal(t, http.StatusOK, dl.Code)
		assert.Equal(t, "application/zip", dl.Header().Get("Content-Type"))

		zr, err := zip.NewReader(bytes.NewReader(dl.Body.Bytes()), int64(dl.Body.Len()))
		require.NoError(t, err)
		names := make([]string, 0, len(zr.File))
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		assert.Contains(t, names, "renthus-agent")
		assert.Contains(t, names, "config.json")

		// The bundled config carries the rotated key, not the original one.
		var cfg struct {
			AgentKey string `json:"agent_key"`
		}
		for _, f := range zr.File {
			if f.Name != "config.json" {
				continue
			}
			rc, err := f.Open()
			require.NoError(t, err)
			require.NoError(t, json.NewDecoder(rc).Decode(&cfg))
			_ = rc.Close()
		}
		assert.Regexp(t, apiKeyPattern, cfg.AgentKey)
		assert.NotEqual(t, apiKey, cfg.AgentKey)

		replay := doJSON(router, "GET", path, nil)
		assert.Equal(t, http.StatusForbidden, replay.Code)
		assert.Contains(t, replay.Body.String(), "invalid_or_expired_token")

		// Rotation revoked the old credential.
		rr = agent.Do("GET", "/api/print/jobs/poll", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		fresh := &Client{Engine: router, Token: cfg.AgentKey}
		rr = fresh.Do("GET", "/api/print/jobs/poll", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("staff cannot manage agents", func(t *testing.T) {
		staff := signup(t, router, "fleet-staff@renthus.test")
		var staffID string
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT id::text FROM users WHERE email = $1`, "fleet-staff@renthus.test").Scan(&staffID))
		_, err := pool.Exec(ctx,
			`INSERT INTO company_users (company_id, user_id, role) VALUES ($1, $2, 'staff')`,
			companyID, staffID)
		require.NoError(t, err)

		rr := staff.Do("POST", "/api/workspace/select", dto.SelectWorkspaceRequest{CompanyID: companyID})
		require.Equal(t, http.StatusOK, rr.Code)

		rr = staff.Do("POST", "/api/print/agents", dto.CreateAgentRequest{Name: "Rogue"})
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Contains(t, rr.Body.String(), "Insufficient role")
	})
}
