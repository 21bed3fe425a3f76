package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
	"github.com/renthus/renthus-admin/internal/orders"
	"github.com/renthus/renthus-admin/internal/printing"
	"github.com/renthus/renthus-admin/internal/workspace"
)

type OrdersHandler struct {
	gate   *workspace.Gate
	orders *orders.Service
	agents *printing.AgentStore
}

func NewOrdersHandler(gate *workspace.Gate, ordersSvc *orders.Service, agents *printing.AgentStore) *OrdersHandler {
	return &OrdersHandler{
		gate:   gate,
		orders: ordersSvc,
		agents: agents,
	}
}

func (h *OrdersHandler) List(c *gin.Context) {
	access, accessErr := h.gate.Require(c, "owner", "admin", "staff")
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.orders.List(c.Request.Context(), access.CompanyID, c.Query("status"), limit)
	if err != nil {
		slog.Error("Failed to list orders", "error", err, "company_id", access.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// Get serves both the admin UI and print agents: an agent bearer key is tried
// first, otherwise the request goes through the company-access gate.
func (h *OrdersHandler) Get(c *gin.Context) {
	orderID := c.Param("id")

	var companyID string
	if agent := h.bearerAgent(c); agent != nil {
		companyID = agent.CompanyID
	} else {
		access, accessErr := h.gate.Require(c)
		if accessErr != nil {
			c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
			return
		}
		companyID = access.CompanyID
	}

	order, items, err := h.orders.Get(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("Failed to get order", "error", err, "order_id", orderID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if order.CompanyID != companyID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

func (h *OrdersHandler) Status(c *gin.Context) {
	access, accessErr := h.gate.Require(c)
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	summary, err := h.orders.StatusSummary(c.Request.Context(), access.CompanyID)
	if err != nil {
		slog.Error("Failed to summarize orders", "error", err, "company_id", access.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": summary})
}

func (h *OrdersHandler) Stats(c *gin.Context) {
	access, accessErr := h.gate.Require(c)
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	stats, daily, err := h.orders.Stats(c.Request.Context(), access.CompanyID, time.Now())
	if err != nil {
		slog.Error("Failed to compute stats", "error", err, "company_id", access.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"counts":       stats.Counts,
		"totalRevenue": stats.TotalRevenue,
		"daily":        daily,
	})
}

// ReportSummary aggregates orders and messages over a window, defaulting to
// the last 30 days.
func (h *OrdersHandler) ReportSummary(c *gin.Context) {
	access, accessErr := h.gate.Require(c, "owner", "admin")
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	// An absent or empty body falls back to the default window.
	var req dto.ReportSummaryRequest
	_ = c.ShouldBindJSON(&req)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	var err error
	if req.Start != "" {
		if start, err = time.Parse(time.RFC3339, req.Start); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
			return
		}
	}
	if req.End != "" {
		if end, err = time.Parse(time.RFC3339, req.End); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
			return
		}
	}

	summary, err := h.orders.ReportSummary(c.Request.Context(), access.CompanyID, start, end)
	if err != nil {
		slog.Error("Failed to build report", "error", err, "company_id", access.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// bearerAgent returns the agent when the Authorization header carries a valid
// agent API key, nil otherwise.
func (h *OrdersHandler) bearerAgent(c *gin.Context) *printing.Agent {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	agent, err := h.agents.VerifyAPIKey(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil
	}
	return agent
}
