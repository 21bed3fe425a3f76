package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/renthus/renthus-admin/internal/db"
)

var ErrThreadNotFound = errors.New("thread not found")

const (
	DefaultThreadLimit = 50
	MaxThreadLimit     = 200

	previewLength = 120
)

type Thread struct {
	ID                 string     `json:"id"`
	PhoneE164          string     `json:"phone_e164"`
	ProfileName        *string    `json:"profile_name"`
	LastMessageAt      *time.Time `json:"last_message_at"`
	LastMessagePreview *string    `json:"last_message_preview"`
	CreatedAt          time.Time  `json:"created_at"`
}

type Message struct {
	ID        string    `json:"id"`
	Direction string    `json:"direction"`
	Provider  *string   `json:"provider"`
	FromAddr  *string   `json:"from_addr"`
	ToAddr    *string   `json:"to_addr"`
	Body      *string   `json:"body"`
	Status    *string   `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	db db.DBTX
}

func NewService(dbtx db.DBTX) *Service {
	return &Service{db: dbtx}
}

// Threads lists the company's threads, most recent activity first. q filters
// by phone or profile name when non-empty.
func (s *Service) Threads(ctx context.Context, companyID, q string, limit int) ([]Thread, error) {
	if limit <= 0 {
		limit = DefaultThreadLimit
	}
	if limit > MaxThreadLimit {
		limit = MaxThreadLimit
	}

	query := `SELECT id::text, phone_e164, profile_name, last_message_at, last_message_preview, created_at
	          FROM whatsapp_threads WHERE company_id = $1`
	args := []any{companyID}
	if q != "" {
		query += ` AND (phone_e164 ILIKE $2 OR profile_name ILIKE $2)`
		args = append(args, "%"+q+"%")
	}
	query += fmt.Sprintf(` ORDER BY last_message_at DESC NULLS LAST LIMIT %d`, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var result []Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.PhoneE164, &t.ProfileName, &t.LastMessageAt, &t.LastMessagePreview, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// Messages returns a thread's messages ascending by creation time, after
// verifying the thread belongs to the company.
func (s *Service) Messages(ctx context.Context, companyID, threadID string) ([]Message, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`SELECT id::text FROM whatsapp_threads WHERE id = $1 AND company_id = $2`,
		threadID, companyID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("check thread: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id::text, direction, provider, from_addr, to_addr, body, status, created_at
		 FROM whatsapp_messages WHERE thread_id = $1 ORDER BY created_at`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Direction, &m.Provider, &m.FromAddr, &m.ToAddr, &m.Body, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// MarkRead records that the user has read the thread up to now.
func (s *Service) MarkRead(ctx context.Context, companyID, userID, threadID string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO whatsapp_thread_reads (company_id, user_id, thread_id, last_read_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (company_id, user_id, thread_id) DO UPDATE SET last_read_at = EXCLUDED.last_read_at`,
		companyID, userID, threadID, at,
	)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// Send records an outbound message and bumps the thread's activity columns.
// Provider delivery happens out of band.
func (s *Service) Send(ctx context.Context, companyID, threadID, body string, at time.Time) (Message, error) {
	var phone string
	err := s.db.QueryRow(ctx,
		`SELECT phone_e164 FROM whatsapp_threads WHERE id = $1 AND company_id = $2`,
		threadID, companyID,
	).Scan(&phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrThreadNotFound
		}
		return Message{}, fmt.Errorf("check thread: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var msg Message
	err = tx.QueryRow(ctx,
		`INSERT INTO whatsapp_messages (thread_id, company_id, direction, to_addr, body, status, created_at)
		 VALUES ($1, $2, 'outbound', $3, $4, 'queued', $5)
		 RETURNING id::text, direction, provider, from_addr, to_addr, body, status, created_at`,
		threadID, companyID, phone, body, at,
	).Scan(&msg.ID, &msg.Direction, &msg.Provider, &msg.FromAddr, &msg.ToAddr, &msg.Body, &msg.Status, &msg.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	preview := body
	if len(preview) > previewLength {
		preview = preview[:previewLength]
	}
	_, err = tx.Exec(ctx,
		`UPDATE whatsapp_threads SET last_message_at = $2, last_message_preview = $3 WHERE id = $1`,
		threadID, at, preview,
	)
	if err != nil {
		return Message{}, fmt.Errorf("bump thread: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("commit: %w", err)
	}

	return msg, nil
}
