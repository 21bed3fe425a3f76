package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/renthus/renthus-admin/internal/api/http/dto"
	"github.com/renthus/renthus-admin/internal/printing"
	"github.com/renthus/renthus-admin/internal/workspace"
)

// AgentsHandler covers the admin side of the print-agent fleet: registration,
// download-token issuance, and the installer download itself.
type AgentsHandler struct {
	gate    *workspace.Gate
	agents  *printing.AgentStore
	tokens  *printing.TokenStore
	bundler *printing.Bundler
	config  printing.Config
}

func NewAgentsHandler(gate *workspace.Gate, agents *printing.AgentStore, tokens *printing.TokenStore, bundler *printing.Bundler, config printing.Config) *AgentsHandler {
	return &AgentsHandler{
		gate:    gate,
		agents:  agents,
		tokens:  tokens,
		bundler: bundler,
		config:  config,
	}
}

// Create registers an agent and returns the plaintext API key exactly once.
func (h *AgentsHandler) Create(c *gin.Context) {
	access, accessErr := h.gate.Require(c, "owner", "admin")
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	var req dto.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name"})
		return
	}

	agent, apiKey, err := h.agents.Create(c.Request.Context(), access.CompanyID, strings.TrimSpace(req.Name))
	if err != nil {
		slog.Error("Failed to create agent", "error", err, "company_id", access.CompanyID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.CreateAgentResponse{Agent: agent, APIKey: apiKey})
}

// GenerateDownloadToken rotates the agent's key and mints a short-lived
// single-use token whose payload escrows the new plaintext key.
func (h *AgentsHandler) GenerateDownloadToken(c *gin.Context) {
	access, accessErr := h.gate.Require(c, "owner", "admin")
	if accessErr != nil {
		c.JSON(accessErr.Status, gin.H{"error": accessErr.Message})
		return
	}

	agentID := c.Param("id")
	agent, err := h.agents.Get(c.Request.Context(), agentID)
	if err != nil {
		if errors.Is(err, printing.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
			return
		}
		slog.Error("Failed to load agent", "error", err, "agent_id", agentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if agent.CompanyID != access.CompanyID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req dto.GenerateDownloadTokenRequest
	_ = c.ShouldBindJSON(&req)
	platform := printing.NormalizePlatform(req.Platform)

	apiKey, err := h.agents.RotateKey(c.Request.Context(), agentID)
	if err != nil {
		slog.Error("Failed to rotate agent key", "error", err, "agent_id", agentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tokenPlain, expiresAt, err := h.tokens.Create(c.Request.Context(), agentID, apiKey, access.UserID, h.config.TokenTTL())
	if err != nil {
		slog.Error("Failed to create download token", "error", err, "agent_id", agentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	downloadURL := fmt.Sprintf("%s/api/print/agents/%s/download?token=%s&platform=%s",
		strings.TrimRight(h.config.BaseURL, "/"), agentID, url.QueryEscape(tokenPlain), platform)

	c.JSON(http.StatusCreated, dto.DownloadTokenResponse{DownloadURL: downloadURL, ExpiresAt: expiresAt})
}

// Download consumes the token, decrypts the escrowed key, and streams the
// installer bundle. The escrow is wiped once the bundle is served.
func (h *AgentsHandler) Download(c *gin.Context) {
	agentID := c.Param("id")
	tokenPlain := c.Query("token")
	if tokenPlain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_token"})
		return
	}

	// Consuming burns the token, so make sure there is a bundle to serve first.
	if !h.bundler.HasArtifact(c.Query("platform")) {
		slog.Error("Agent binary missing", "platform", c.Query("platform"), "agent_id", agentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bundle unavailable"})
		return
	}

	consumed, err := h.tokens.Consume(c.Request.Context(), agentID, tokenPlain)
	if err != nil {
		slog.Error("Token consume failed", "error", err, "agent_id", agentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if consumed == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid_or_expired_token"})
		return
	}

	apiKey, err := h.tokens.DecryptKey(consumed.EncryptedAPIKey)
	if err != nil {
		slog.Error("Failed to decrypt escrowed key", "error", err, "agent_id", agentID)
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid_or_expired_token"})
		return
	}

	agent, err := h.agents.Get(c.Request.Context(), agentID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid_or_expired_token"})
		return
	}

	bundle, filename, err := h.bundler.Build(c.Query("platform"), printing.BundleConfig{
		APIBaseURL: h.config.BaseURL,
		AgentID:    agent.ID,
		AgentKey:   apiKey,
		CompanyID:  agent.CompanyID,
		AgentName:  agent.Name,
		Port:       h.config.AgentPort,
	})
	if err != nil {
		slog.Error("Failed to build bundle", "error", err, "agent_id", agentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bundle unavailable"})
		return
	}

	if err := h.tokens.WipeKey(c.Request.Context(), consumed.ID); err != nil {
		slog.Warn("Failed to wipe escrowed key", "error", err, "token_id", consumed.ID)
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/zip", bundle)
}
