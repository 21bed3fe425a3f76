package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
	"github.com/renthus/renthus-admin/internal/whatsapp"
	"github.com/renthus/renthus-admin/internal/workspace"
)

type WhatsappHandler struct {
	gate     *workspace.Gate
	whatsapp *whatsapp.Service
}

func NewWhatsappHandler(gate *workspace.Gate, whatsappSvc *whatsapp.Service) *WhatsappHandler {
	return &WhatsappHandler{
		gate:     gate,
		whatsapp: whatsappSvc,
	}
}

func (h *WhatsappHandler) Threads(c *gin.Context) {
	access, accessErr := h.gate.Require(c, "owner", "admin", "staff")
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	threads, err := h.whatsapp.Threads(c.Request.Context(), access.CompanyID, c.Query("q"), limit)
	if err != nil {
		slog.Error("Failed to list threads", "error", err, "company_id", access.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if threads == nil {
		threads = []whatsapp.Thread{}
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

func (h *WhatsappHandler) Messages(c *gin.Context) {
	access, accessErr := h.gate.Require(c, "owner", "admin", "staff")
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	messages, err := h.whatsapp.Messages(c.Request.Context(), access.CompanyID, c.Param("id"))
	if err != nil {
		if errors.Is(err, whatsapp.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
			return
		}
		slog.Error("Failed to list messages", "error", err, "thread_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *WhatsappHandler) MarkRead(c *gin.Context) {
	access, accessErr := h.gate.Require(c, "owner", "admin", "staff")
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	err := h.whatsapp.MarkRead(c.Request.Context(), access.CompanyID, access.UserID, c.Param("id"), time.Now())
	if err != nil {
		slog.Error("Failed to mark thread read", "error", err, "thread_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.OkResponse{Ok: true})
}

func (h *WhatsappHandler) Send(c *gin.Context) {
	access, accessErr := h.gate.Require(c, "owner", "admin", "staff")
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.whatsapp.Send(c.Request.Context(), access.CompanyID, req.ThreadID, req.Body, time.Now())
	if err != nil {
		if errors.Is(err, whatsapp.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
			return
		}
		slog.Error("Failed to send message", "error", err, "thread_id", req.ThreadID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
