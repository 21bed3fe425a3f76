package printing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/renthus/renthus-admin/internal/db"
)

var ErrJobNotFound = errors.New("print job not found")

// Job statuses an agent may report back.
const (
	JobStatusDone   = "done"
	JobStatusFailed = "failed"
)

type Job struct {
	ID        string         `json:"id"`
	CompanyID string         `json:"company_id"`
	OrderID   *string        `json:"order_id,omitempty"`
	PrinterID *string        `json:"printer_id,omitempty"`
	Status    string         `json:"status"`
	Payload   map[string]any `json:"payload"`
	Error     *string        `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// JobStore wraps the print-job table and the reserve_print_job procedure.
type JobStore struct {
	db db.DBTX
}

func NewJobStore(dbtx db.DBTX) *JobStore {
	return &JobStore{db: dbtx}
}

// Reserve claims pending work for the agent. Atomicity (at-most-once delivery
// of a job to one agent) lives entirely in the database procedure; this layer
// treats it as a black box returning zero or more rows.
func (s *JobStore) Reserve(ctx context.Context, companyID, agentID string) ([]Job, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id::text, company_id::text, order_id::text, printer_id::text, status, payload, error, created_at
		 FROM reserve_print_job($1, $2)`,
		companyID, agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("reserve print job: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *JobStore) Get(ctx context.Context, jobID string) (Job, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id::text, company_id::text, order_id::text, printer_id::text, status, payload, error, created_at
		 FROM print_jobs WHERE id = $1`,
		jobID,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrJobNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// MarkProcessed records the agent's terminal status report for a job.
func (s *JobStore) MarkProcessed(ctx context.Context, jobID, agentID, status string, errText *string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE print_jobs SET status = $2, processed_by = $3, processed_at = $4, error = COALESCE($5, error)
		 WHERE id = $1`,
		jobID, status, agentID, at, errText,
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (Job, error) {
	var (
		job     Job
		payload []byte
	)
	err := row.Scan(&job.ID, &job.CompanyID, &job.OrderID, &job.PrinterID, &job.Status, &payload, &job.Error, &job.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, err
		}
		return Job{}, fmt.Errorf("scan job: %w", err)
	}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &job.Payload)
	}
	return job, nil
}
