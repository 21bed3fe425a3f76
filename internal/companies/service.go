package companies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/renthus/renthus-admin/internal/db"
)

var ErrNotMember = errors.New("user is not an active member of the company")

type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Membership summarizes one user-to-company binding.
type Membership struct {
	CompanyID   string
	CompanyName string
	Role        string
}

type Service struct {
	db db.DBTX
}

func NewService(dbtx db.DBTX) *Service {
	return &Service{db: dbtx}
}

// Create inserts the company and its owner membership in a single transaction.
func (s *Service) Create(ctx context.Context, name, ownerUserID string) (Company, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Company{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var company Company
	err = tx.QueryRow(ctx,
		`INSERT INTO companies (name) VALUES ($1) RETURNING id::text, name, created_at`,
		name,
	).Scan(&company.ID, &company.Name, &company.CreatedAt)
	if err != nil {
		return Company{}, fmt.Errorf("insert company: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO company_users (company_id, user_id, role, is_active) VALUES ($1, $2, 'owner', true)`,
		company.ID, ownerUserID,
	)
	if err != nil {
		return Company{}, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Company{}, fmt.Errorf("commit: %w", err)
	}

	return company, nil
}

// ActiveMembership returns the caller's role in the company, or ErrNotMember
// when the membership is missing or inactive.
func (s *Service) ActiveMembership(ctx context.Context, companyID, userID string) (string, error) {
	var (
		role     string
		isActive bool
	)
	err := s.db.QueryRow(ctx,
		`SELECT role, is_active FROM company_users WHERE company_id = $1 AND user_id = $2`,
		companyID, userID,
	).Scan(&role, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("query membership: %w", err)
	}
	if !isActive {
		return "", ErrNotMember
	}
	return role, nil
}

// ListForUser returns the companies the user actively belongs to.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Membership, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.id::text, c.name, cu.role
		 FROM company_users cu
		 JOIN companies c ON c.id = cu.company_id
		 WHERE cu.user_id = $1 AND cu.is_active
		 ORDER BY c.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var result []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.CompanyID, &m.CompanyName, &m.Role); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
