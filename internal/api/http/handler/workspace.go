package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
	"github.com/renthus/renthus-admin/internal/companies"
	"github.com/renthus/renthus-admin/internal/workspace"
)

type WorkspaceHandler struct {
	gate         *workspace.Gate
	companies    *companies.Service
	cookieSecure bool
}

func NewWorkspaceHandler(gate *workspace.Gate, companiesSvc *companies.Service, cookieSecure bool) *WorkspaceHandler {
	return &WorkspaceHandler{
		gate:         gate,
		companies:    companiesSvc,
		cookieSecure: cookieSecure,
	}
}

// Select verifies the caller's membership before pinning the workspace cookie.
func (h *WorkspaceHandler) Select(c *gin.Context) {
	var req dto.SelectWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CompanyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing company_id"})
		return
	}
	if _, err := uuid.Parse(req.CompanyID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing company_id"})
		return
	}

	userID := h.gate.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if _, err := h.companies.ActiveMembership(c.Request.Context(), req.CompanyID, userID); err != nil {
		if errors.Is(err, companies.ErrNotMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		slog.Error("Membership check failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	workspace.SetCompanyCookie(c, req.CompanyID, h.cookieSecure)
	c.JSON(http.StatusOK, dto.SelectWorkspaceResponse{Ok: true, CompanyID: req.CompanyID})
}

func (h *WorkspaceHandler) Clear(c *gin.Context) {
	workspace.ClearCompanyCookie(c, h.cookieSecure)
	c.JSON(http.StatusOK, dto.OkResponse{Ok: true})
}

func (h *WorkspaceHandler) Current(c *gin.Context) {
	resp := dto.CurrentWorkspaceResponse{}
	if id := workspace.CompanyIDFromCookie(c); id != "" {
		resp.CompanyID = &id
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WorkspaceHandler) List(c *gin.Context) {
	userID := h.gate.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	memberships, err := h.companies.ListForUser(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to list memberships", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := dto.WorkspaceListResponse{Companies: make([]dto.WorkspaceCompany, 0, len(memberships))}
	for _, m := range memberships {
		resp.Companies = append(resp.Companies, dto.WorkspaceCompany{ID: m.CompanyID, Name: m.CompanyName, Role: m.Role})
	}
	c.JSON(http.StatusOK, resp)
}

// CreateCompany inserts the company with the caller as owner and immediately
// selects it as the active workspace.
func (h *WorkspaceHandler) CreateCompany(c *gin.Context) {
	var req dto.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := h.gate.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	company, err := h.companies.Create(c.Request.Context(), req.Name, userID)
	if err != nil {
		slog.Error("Failed to create company", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create company"})
		return
	}

	workspace.SetCompanyCookie(c, company.ID, h.cookieSecure)
	c.JSON(http.StatusCreated, gin.H{
		"company_id": company.ID,
		"company":    gin.H{"id": company.ID, "name": company.Name, "created_at": company.CreatedAt},
	})
}
