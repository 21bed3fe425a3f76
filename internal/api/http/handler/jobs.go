package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
	"github.com/renthus/renthus-admin/internal/api/http/middleware"
	"github.com/renthus/renthus-admin/internal/orders"
	"github.com/renthus/renthus-admin/internal/printing"
)

// JobsHandler is the agent-facing side of the fleet protocol.
type JobsHandler struct {
	agents *printing.AgentStore
	jobs   *printing.JobStore
	orders *orders.Service
}

func NewJobsHandler(agents *printing.AgentStore, jobs *printing.JobStore, ordersSvc *orders.Service) *JobsHandler {
	return &JobsHandler{
		agents: agents,
		jobs:   jobs,
		orders: ordersSvc,
	}
}

// Poll reserves pending work for the calling agent. The reservation path
// fails open: any error after authentication yields an empty job list, never
// a 500, so agents keep polling on schedule.
func (h *JobsHandler) Poll(c *gin.Context) {
	agent := middleware.Agent(c)

	jobs, err := h.jobs.Reserve(c.Request.Context(), agent.CompanyID, agent.ID)
	if err != nil {
		slog.Warn("Job reservation failed", "error", err, "agent_id", agent.ID)
		jobs = []printing.Job{}
	}
	if jobs == nil {
		jobs = []printing.Job{}
	}

	h.agents.TouchLastSeenAsync(agent.ID)
	c.JSON(http.StatusOK, dto.PollJobsResponse{Jobs: jobs})
}

// Status records the agent's terminal report for a reserved job.
func (h *JobsHandler) Status(c *gin.Context) {
	agent := middleware.Agent(c)
	jobID := c.Param("id")

	var req dto.JobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing status"})
		return
	}
	if req.Status != printing.JobStatusDone && req.Status != printing.JobStatusFailed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, printing.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		slog.Error("Failed to load job", "error", err, "job_id", jobID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job.CompanyID != agent.CompanyID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	now := time.Now()
	if err := h.jobs.MarkProcessed(c.Request.Context(), jobID, agent.ID, req.Status, req.Error, now); err != nil {
		slog.Error("Failed to record job status", "error", err, "job_id", jobID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Stamping the order is best-effort; the job status is already recorded.
	if req.Status == printing.JobStatusDone && job.OrderID != nil {
		if err := h.orders.MarkPrinted(c.Request.Context(), *job.OrderID, now); err != nil {
			slog.Warn("Failed to stamp printed_at", "error", err, "order_id", *job.OrderID)
		}
	}

	h.agents.TouchLastSeenAsync(agent.ID)
	c.JSON(http.StatusOK, dto.OkResponse{Ok: true})
}
