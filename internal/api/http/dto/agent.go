package dto

import (
	"time"

	"github.com/renthus/renthus-admin/internal/printing"
)

type CreateAgentRequest struct {
	Name string `json:"name"`
}

type CreateAgentResponse struct {
	Agent  printing.Agent `json:"agent"`
	APIKey string         `json:"api_key"`
}

type GenerateDownloadTokenRequest struct {
	Platform string `json:"platform"`
}

type DownloadTokenResponse struct {
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type PollJobsResponse struct {
	Jobs []printing.Job `json:"jobs"`
}

type JobStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Error  *string `json:"error"`
}

type CreatePrinterRequest struct {
	Name            string         `json:"name" binding:"required"`
	Type            string         `json:"type"`
	Format          string         `json:"format"`
	AutoPrint       bool           `json:"auto_print"`
	IntervalSeconds int            `json:"interval_seconds"`
	Config          map[string]any `json:"config"`
}

type PrintersResponse struct {
	Printers []printing.Printer `json:"printers"`
}
