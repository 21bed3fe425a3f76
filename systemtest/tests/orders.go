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

func TestOrdersFlow(t *testing.T, router *gin.Engine, pool *pgxpool.Pool) {
	ctx := context.Background()

	owner := signup(t, router, "orders@renthus.test")
	companyID := createCompany(t, owner, "Orders Test Co")

	var customerID, orderID string
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO customers (company_id, name, phone) VALUES ($1, 'Carlos', '+549112200') RETURNING id::text`,
		companyID).Scan(&customerID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO orders (company_id, customer_id, status, total_amount) VALUES ($1, $2, 'new', 3500) RETURNING id::text`,
		companyID, customerID).Scan(&orderID))
	_, err := pool.Exec(ctx,
		`INSERT INTO order_items (order_id, product_name, quantity, unit_price, line_total)
		 VALUES ($1, 'Bidon 20L', 2, 1750, 3500)`, orderID)
	require.NoError(t, err)

	t.Run("list includes the order with its customer", func(t *testing.T) {
		rr := owner.Do("GET", "/api/orders/list", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Orders []struct {
				ID          string  `json:"id"`
				Status      string  `json:"status"`
				TotalAmount float64 `json:"total_amount"`
				Customer    *struct {
					Name string `json:"name"`
				} `json:"customer"`
			} `json:"orders"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Orders, 1)
		assert.Equal(t, orderID, resp.Orders[0].ID)
		assert.Equal(t, 3500.0, resp.Orders[0].TotalAmount)
		require.NotNil(t, resp.Orders[0].Customer)
		assert.Equal(t, "Carlos", resp.Orders[0].Customer.Name)
	})

	t.Run("detail returns the line items", func(t *testing.T) {
		rr := owner.Do("GET", "/api/orders/"+orderID, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Order struct {
				ID string `json:"id"`
			} `json:"order"`
			Items []struct {
				ProductName string `json:"product_name"`
				Quantity    int    `json:"quantity"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, orderID, resp.Order.ID)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "Bidon 20L", resp.Items[0].ProductName)
		assert.Equal(t, 2, resp.Items[0].Quantity)
	})

	t.Run("stats aggregate the day", func(t *testing.T) {
		rr := owner.Do("GET", "/api/orders/stats", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Counts       map[string]int `json:"counts"`
			TotalRevenue float64        `json:"totalRevenue"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Counts["new"])
		assert.Equal(t, 3500.0, resp.TotalRevenue)
	})

	t.Run("detail is scoped to the workspace", func(t *testing.T) {
		outsider := signup(t, router, "other-orders@renthus.test")
		createCompany(t, outsider, "Other Orders Co")

		rr := outsider.Do("GET", "/api/orders/"+orderID, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
