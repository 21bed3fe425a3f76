package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/renthus/renthus-admin/internal/billing"
	"github.com/renthus/renthus-admin/internal/workspace"
)

// meteredFeature is the feature the billing snapshot reports usage for.
const meteredFeature = "whatsapp_messages"

type BillingHandler struct {
	gate    *workspace.Gate
	billing *billing.Service
}

func NewBillingHandler(gate *workspace.Gate, billingSvc *billing.Service) *BillingHandler {
	return &BillingHandler{
		gate:    gate,
		billing: billingSvc,
	}
}

// Status is a read-only snapshot: subscription, enabled features, and the
// current month's metered usage. No counter is mutated and nothing is cached.
func (h *BillingHandler) Status(c *gin.Context) {
	access, accessErr := h.gate.Require(c, "owner", "admin")
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}
	ctx := c.Request.Context()

	sub, err := h.billing.ActiveSubscription(ctx, access.CompanyID)
	if err != nil {
		slog.Error("Failed to load subscription", "error", err, "company_id", access.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	features, err := h.billing.EnabledFeatures(ctx, access.CompanyID)
	if err != nil {
		slog.Error("Failed to load features", "error", err, "company_id", access.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	usage, err := h.billing.CheckLimit(ctx, access.CompanyID, meteredFeature, 0, time.Now())
	if err != nil {
		slog.Error("Failed to check usage", "error", err, "company_id", access.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription": sub,
		"features":     features,
		"usage":        usage,
	})
}

func (h *BillingHandler) AllowOverage(c *gin.Context) {
	access, accessErr := h.gate.Require(c, "owner", "admin")
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	subID, alreadyEnabled, err := h.billing.EnableOverage(c.Request.Context(), access.CompanyID)
	if err != nil {
		if errors.Is(err, billing.ErrNoActiveSubscription) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No active subscription"})
			return
		}
		slog.Error("Failed to enable overage", "error", err, "company_id", access.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"subscription_id": subID,
		"already_enabled": alreadyEnabled,
	})
}
