package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/renthus/renthus-admin/internal/db"
)

var ErrOrderNotFound = errors.New("order not found")

const (
	DefaultListLimit = 120
	MaxListLimit     = 300

	statsWindowDays = 30
)

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type Order struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	Status      string     `json:"status"`
	TotalAmount float64    `json:"total_amount"`
	PrintedAt   *time.Time `json:"printed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Customer    *Customer  `json:"customer,omitempty"`
}

type Item struct {
	ID               string    `json:"id"`
	OrderID          string    `json:"order_id"`
	ProductName      string    `json:"product_name"`
	ProductVariantID *string   `json:"product_variant_id,omitempty"`
	Quantity         int       `json:"quantity"`
	UnitPrice        float64   `json:"unit_price"`
	LineTotal        float64   `json:"line_total"`
	CreatedAt        time.Time `json:"created_at"`
}

// StatusBucket aggregates one order status.
type StatusBucket struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type DayBucket struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type Stats struct {
	Counts       map[string]int `json:"counts"`
	TotalRevenue float64        `json:"totalRevenue"`
}

type Summary struct {
	TotalOrders   int     `json:"total_orders"`
	Revenue       float64 `json:"revenue"`
	TotalMessages int     `json:"total_messages"`
}

type Service struct {
	db db.DBTX
}

func NewService(dbtx db.DBTX) *Service {
	return &Service{db: dbtx}
}

// List returns the company's most recent orders with their customer, newest
// first. status filters when non-empty and not "all".
func (s *Service) List(ctx context.Context, companyID, status string, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `SELECT o.id::text, o.status, o.total_amount, o.created_at,
	                 c.name, c.phone, c.address
	          FROM orders o
	          LEFT JOIN customers c ON c.id = o.customer_id
	          WHERE o.company_id = $1`
	args := []any{companyID}
	if status != "" && status != "all" {
		query += ` AND o.status = $2`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY o.created_at DESC LIMIT %d`, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var result []Order
	for rows.Next() {
		var (
			o                    Order
			name, phone, address *string
		)
		if err := rows.Scan(&o.ID, &o.Status, &o.TotalAmount, &o.CreatedAt, &name, &phone, &address); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if name != nil {
			o.Customer = &Customer{Name: *name}
			if phone != nil {
				o.Customer.Phone = *phone
			}
			if address != nil {
				o.Customer.Address = *address
			}
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// Get fetches a single order with its items. The caller is responsible for
// checking company ownership on the returned order.
func (s *Service) Get(ctx context.Context, orderID string) (Order, []Item, error) {
	var o Order
	err := s.db.QueryRow(ctx,
		`SELECT id::text, company_id::text, status, total_amount, printed_at, created_at
		 FROM orders WHERE id = $1`,
		orderID,
	).Scan(&o.ID, &o.CompanyID, &o.Status, &o.TotalAmount, &o.PrintedAt, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, nil, ErrOrderNotFound
		}
		return Order{}, nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id::text, order_id::text, product_name, product_variant_id::text,
		        quantity, unit_price, line_total, created_at
		 FROM order_items WHERE order_id = $1 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		// Item failures degrade to an empty list rather than failing the order.
		return o, []Item{}, nil
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductName, &it.ProductVariantID,
			&it.Quantity, &it.UnitPrice, &it.LineTotal, &it.CreatedAt); err != nil {
			return o, []Item{}, nil
		}
		items = append(items, it)
	}
	return o, items, nil
}

// StatusSummary aggregates order count and revenue per status.
func (s *Service) StatusSummary(ctx context.Context, companyID string) (map[string]StatusBucket, error) {
	rows, err := s.db.Query(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM orders WHERE company_id = $1 GROUP BY status`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("status summary: %w", err)
	}
	defer rows.Close()

	summary := make(map[string]StatusBucket)
	for rows.Next() {
		var (
			status string
			bucket StatusBucket
		)
		if err := rows.Scan(&status, &bucket.Count, &bucket.Revenue); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summary[status] = bucket
	}
	return summary, rows.Err()
}

// Stats computes per-status counts, total revenue, and a zero-filled daily
// series for the last 30 UTC days.
func (s *Service) Stats(ctx context.Context, companyID string, now time.Time) (Stats, []DayBucket, error) {
	rows, err := s.db.Query(ctx,
		`SELECT status, total_amount, created_at
		 FROM orders WHERE company_id = $1 ORDER BY created_at DESC`,
		companyID,
	)
	if err != nil {
		return Stats{}, nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{Counts: make(map[string]int)}

	today := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	daily := make([]DayBucket, 0, statsWindowDays)
	dayIndex := make(map[string]int, statsWindowDays)
	for i := statsWindowDays - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format("2006-01-02")
		dayIndex[key] = len(daily)
		daily = append(daily, DayBucket{Date: key})
	}

	for rows.Next() {
		var (
			status    string
			amount    float64
			createdAt time.Time
		)
		if err := rows.Scan(&status, &amount, &createdAt); err != nil {
			return Stats{}, nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.Counts[status]++
		stats.TotalRevenue += amount

		key := createdAt.UTC().Format("2006-01-02")
		if idx, ok := dayIndex[key]; ok {
			daily[idx].Orders++
			daily[idx].Revenue += amount
		}
	}
	return stats, daily, rows.Err()
}

// ReportSummary counts orders, revenue, and WhatsApp messages over a window.
func (s *Service) ReportSummary(ctx context.Context, companyID string, start, end time.Time) (Summary, error) {
	var summary Summary
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM orders WHERE company_id = $1 AND created_at BETWEEN $2 AND $3`,
		companyID, start, end,
	).Scan(&summary.TotalOrders, &summary.Revenue)
	if err != nil {
		return Summary{}, fmt.Errorf("order summary: %w", err)
	}

	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM whatsapp_messages
		 WHERE company_id = $1 AND created_at BETWEEN $2 AND $3`,
		companyID, start, end,
	).Scan(&summary.TotalMessages)
	if err != nil {
		return Summary{}, fmt.Errorf("message summary: %w", err)
	}

	return summary, nil
}

// MarkPrinted stamps printed_at on the order. Best-effort for the job-status
// flow; callers may drop the error.
func (s *Service) MarkPrinted(ctx context.Context, orderID string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE orders SET printed_at = $2 WHERE id = $1`,
		orderID, at,
	)
	return err
}
