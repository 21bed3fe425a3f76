package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
	"github.com/renthus/renthus-admin/internal/api/http/middleware"
	"github.com/renthus/renthus-admin/internal/companies"
	"github.com/renthus/renthus-admin/internal/printing"
	"github.com/renthus/renthus-admin/internal/workspace"
)

type PrintersHandler struct {
	gate      *workspace.Gate
	companies *companies.Service
	printers  *printing.PrinterStore
}

func NewPrintersHandler(gate *workspace.Gate, companiesSvc *companies.Service, printers *printing.PrinterStore) *PrintersHandler {
	return &PrintersHandler{
		gate:      gate,
		companies: companiesSvc,
		printers:  printers,
	}
}

// ListForAgent serves an agent its company's active printers. Requires agent
// bearer auth; the path company must match the key's company.
func (h *PrintersHandler) ListForAgent(c *gin.Context) {
	agent := middleware.Agent(c)
	if c.Param("companyId") != agent.CompanyID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	printers, err := h.printers.List(c.Request.Context(), agent.CompanyID)
	if err != nil {
		slog.Error("Failed to list printers", "error", err, "company_id", agent.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.PrintersResponse{Printers: printers})
}

// Register creates a printer through a browser session with an active
// membership in the path company.
func (h *PrintersHandler) Register(c *gin.Context) {
	companyID := c.Param("companyId")

	userID := h.gate.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if _, err := h.companies.ActiveMembership(c.Request.Context(), companyID, userID); err != nil {
		if errors.Is(err, companies.ErrNotMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		slog.Error("Membership check failed", "error", err, "company_id", companyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var req dto.CreatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	printer, err := h.printers.Create(c.Request.Context(), companyID, printing.CreatePrinterParams{
		Name:            req.Name,
		Type:            req.Type,
		Format:          req.Format,
		AutoPrint:       req.AutoPrint,
		IntervalSeconds: req.IntervalSeconds,
		Config:          req.Config,
	})
	if err != nil {
		slog.Error("Failed to create printer", "error", err, "company_id", companyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"printer": printer})
}
