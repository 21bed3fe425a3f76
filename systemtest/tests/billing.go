package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillingFlow(t *testing.T, router *gin.Engine, pool *pgxpool.Pool) {
	ctx := context.Background()

	owner := signup(t, router, "billing@renthus.test")
	companyID := createCompany(t, owner, "Billing Test Co")

	t.Run("no subscription", func(t *testing.T) {
		rr := owner.Do("GET", "/api/billing/status", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Subscription *json.RawMessage `json:"subscription"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Nil(t, resp.Subscription)

		over := owner.Do("POST", "/api/billing/allow-overage", nil)
		assert.Equal(t, http.StatusBadRequest, over.Code)
		assert.Contains(t, over.Body.String(), "No active subscription")
	})

	// Seed a basic plan with the whatsapp feature and a monthly cap.
	var planID string
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO plans (key, name) VALUES ('basic', 'Basic') RETURNING id::text`).Scan(&planID))
	_, err := pool.Exec(ctx,
		`INSERT INTO plan_features (plan_id, feature_key) VALUES ($1, 'whatsapp_messages')`, planID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO feature_limits (plan_id, feature_key, limit_per_month) VALUES ($1, 'whatsapp_messages', 100)`, planID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO subscriptions (company_id, plan_id) VALUES ($1, $2)`, companyID, planID)
	require.NoError(t, err)

	t.Run("status reports plan and usage", func(t *testing.T) {
		rr := owner.Do("GET", "/api/billing/status", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Subscription struct {
				PlanKey      string `json:"plan_key"`
				AllowOverage bool   `json:"allow_overage"`
			} `json:"subscription"`
			Features []string `json:"features"`
			Usage    struct {
				LimitPerMonth *int `json:"limit_per_month"`
				Used          int  `json:"used"`
			} `json:"usage"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "basic", resp.Subscription.PlanKey)
		assert.False(t, resp.Subscription.AllowOverage)
		assert.Contains(t, resp.Features, "whatsapp_messages")
		require.NotNil(t, resp.Usage.LimitPerMonth)
		assert.Equal(t, 100, *resp.Usage.LimitPerMonth)
		assert.Equal(t, 0, resp.Usage.Used)
	})

	t.Run("allow overage is idempotent", func(t *testing.T) {
		rr := owner.Do("POST", "/api/billing/allow-overage", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Ok             bool   `json:"ok"`
			SubscriptionID string `json:"subscription_id"`
			AlreadyEnabled bool   `json:"already_enabled"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Ok)
		assert.NotEmpty(t, resp.SubscriptionID)
		assert.False(t, resp.AlreadyEnabled)

		rr = owner.Do("POST", "/api/billing/allow-overage", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.AlreadyEnabled)
	})
}
