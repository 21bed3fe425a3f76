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

	"github.com/renthus/renthus-admin/internal/api/http/dto"
)

func TestWhatsappFlow(t *testing.T, router *gin.Engine, pool *pgxpool.Pool) {
	ctx := context.Background()

	owner := signup(t, router, "inbox@renthus.test")
	companyID := createCompany(t, owner, "Inbox Test Co")

	t.Run("empty inbox", func(t *testing.T) {
		rr := owner.Do("GET", "/api/whatsapp/threads", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"threads": []}`, rr.Body.String())
	})

	// Seed an inbound conversation the way the webhook ingester would.
	var threadID string
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO whatsapp_threads (company_id, phone_e164, profile_name, last_message_at, last_message_preview)
		 VALUES ($1, '+5491122334455', 'Ana', now(), 'Hola') RETURNING id::text`, companyID).Scan(&threadID))
	_, err := pool.Exec(ctx,
		`INSERT INTO whatsapp_messages (thread_id, company_id, direction, from_addr, body)
		 VALUES ($1, $2, 'inbound', '+5491122334455', 'Hola')`, threadID, companyID)
	require.NoError(t, err)

	t.Run("threads list the conversation", func(t *testing.T) {
		rr := owner.Do("GET", "/api/whatsapp/threads", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Threads []struct {
				ID        string `json:"id"`
				PhoneE164 string `json:"phone_e164"`
			} `json:"threads"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Threads, 1)
		assert.Equal(t, threadID, resp.Threads[0].ID)
		assert.Equal(t, "+5491122334455", resp.Threads[0].PhoneE164)
	})

	t.Run("send replies on the thread", func(t *testing.T) {
		rr := owner.Do("POST", "/api/whatsapp/send",
			dto.SendMessageRequest{ThreadID: threadID, Body: "Buenas, ya sale el pedido"})
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp struct {
			Message struct {
				ID        string  `json:"id"`
				Direction string  `json:"direction"`
				Body      *string `json:"body"`
			} `json:"message"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "outbound", resp.Message.Direction)
		require.NotNil(t, resp.Message.Body)
		assert.Equal(t, "Buenas, ya sale el pedido", *resp.Message.Body)

		msgs := owner.Do("GET", "/api/whatsapp/threads/"+threadID+"/messages", nil)
		require.Equal(t, http.StatusOK, msgs.Code)
		var list struct {
			Messages []json.RawMessage `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(msgs.Body.Bytes(), &list))
		assert.Len(t, list.Messages, 2)
	})

	t.Run("mark read", func(t *testing.T) {
		rr := owner.Do("POST", "/api/whatsapp/threads/"+threadID+"/read", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"ok": true}`, rr.Body.String())
	})

	t.Run("foreign thread is not found", func(t *testing.T) {
		outsider := signup(t, router, "other-inbox@renthus.test")
		createCompany(t, outsider, "Other Inbox Co")

		rr := outsider.Do("GET", "/api/whatsapp/threads/"+threadID+"/messages", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "Thread not found")
	})
}
