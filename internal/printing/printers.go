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

var ErrPrinterNotFound = errors.New("printer not found")

type Printer struct {
	ID              string         `json:"id"`
	CompanyID       string         `json:"company_id"`
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Format          string         `json:"format"`
	AutoPrint       bool           `json:"auto_print"`
	IntervalSeconds int            `json:"interval_seconds"`
	IsActive        bool           `json:"is_active"`
	Config          map[string]any `json:"config"`
	CreatedAt       time.Time      `json:"created_at"`
}

type PrinterStore struct {
	db db.DBTX
}

func NewPrinterStore(dbtx db.DBTX) *PrinterStore {
	return &PrinterStore{db: dbtx}
}

type CreatePrinterParams struct {
	Name            string
	Type            string
	Format          string
	AutoPrint       bool
	IntervalSeconds int
	Config          map[string]any
}

func (s *PrinterStore) Create(ctx context.Context, companyID string, params CreatePrinterParams) (Printer, error) {
	if params.Type == "" {
		params.Type = "network"
	}
	if params.Format == "" {
		params.Format = "receipt"
	}
	cfg, err := json.Marshal(params.Config)
	if err != nil {
		return Printer{}, fmt.Errorf("marshal printer config: %w", err)
	}
	if params.Config == nil {
		cfg = []byte("{}")
	}

	row := s.db.QueryRow(ctx,
		`INSERT INTO printers (company_id, name, type, format, auto_print, interval_seconds, config)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id::text, company_id::text, name, type, format, auto_print, interval_seconds, is_active, config, created_at`,
		companyID, params.Name, params.Type, params.Format, params.AutoPrint, params.IntervalSeconds, cfg,
	)
	return scanPrinter(row)
}

// List returns the company's active printers, oldest first.
func (s *PrinterStore) List(ctx context.Context, companyID string) ([]Printer, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id::text, company_id::text, name, type, format, auto_print, interval_seconds, is_active, config, created_at
		 FROM printers
		 WHERE company_id = $1 AND is_active
		 ORDER BY created_at`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list printers: %w", err)
	}
	defer rows.Close()

	printers := []Printer{}
	for rows.Next() {
		p, err := scanPrinter(rows)
		if err != nil {
			return nil, err
		}
		printers = append(printers, p)
	}
	return printers, rows.Err()
}

func scanPrinter(row pgx.Row) (Printer, error) {
	var (
		p   Printer
		cfg []byte
	)
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Type, &p.Format, &p.AutoPrint, &p.IntervalSeconds, &p.IsActive, &cfg, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Printer{}, ErrPrinterNotFound
		}
		return Printer{}, fmt.Errorf("scan printer: %w", err)
	}
	if len(cfg) > 0 {
		_ = json.Unmarshal(cfg, &p.Config)
	}
	return p, nil
}
