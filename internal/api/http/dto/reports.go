package dto

type ReportSummaryRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SendMessageRequest struct {
	ThreadID string `json:"thread_id" binding:"required"`
	Body     string `json:"body" binding:"required"`
}
