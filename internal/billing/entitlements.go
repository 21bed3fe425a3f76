package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/renthus/renthus-admin/internal/db"
)

var ErrNoActiveSubscription = errors.New("no active subscription")

type ActiveSubscription struct {
	SubscriptionID string  `json:"subscription_id"`
	PlanID         string  `json:"plan_id"`
	PlanKey        string  `json:"plan_key"`
	PlanName       *string `json:"plan_name"`
	AllowOverage   bool    `json:"allow_overage"`
}

// LimitCheck is a read-only snapshot of one metered feature: no counter is
// mutated when computing it.
type LimitCheck struct {
	Allowed       bool   `json:"allowed"`
	FeatureKey    string `json:"feature_key"`
	YearMonth     string `json:"year_month"`
	Used          int    `json:"used"`
	LimitPerMonth *int   `json:"limit_per_month"`
	WillOverageBy int    `json:"will_overage_by"`
	AllowOverage  bool   `json:"allow_overage"`
}

type Service struct {
	db db.DBTX
}

func NewService(dbtx db.DBTX) *Service {
	return &Service{db: dbtx}
}

// YearMonth formats the UTC billing period key, e.g. "2026-08".
func YearMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// ActiveSubscription returns the company's newest active subscription joined
// to its plan, or nil when there is none.
func (s *Service) ActiveSubscription(ctx context.Context, companyID string) (*ActiveSubscription, error) {
	var sub ActiveSubscription
	err := s.db.QueryRow(ctx,
		`SELECT s.id::text, s.plan_id::text, p.key, p.name, s.allow_overage
		 FROM subscriptions s
		 JOIN plans p ON p.id = s.plan_id
		 WHERE s.company_id = $1 AND s.status = 'active'
		 ORDER BY s.started_at DESC
		 LIMIT 1`,
		companyID,
	).Scan(&sub.SubscriptionID, &sub.PlanID, &sub.PlanKey, &sub.PlanName, &sub.AllowOverage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	return &sub, nil
}

// EnabledFeatures is the union of the active plan's features and the
// company's addons. Empty without an active subscription.
func (s *Service) EnabledFeatures(ctx context.Context, companyID string) ([]string, error) {
	sub, err := s.ActiveSubscription(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return []string{}, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT feature_key FROM plan_features WHERE plan_id = $1
		 UNION
		 SELECT feature_key FROM subscription_addons WHERE company_id = $2
		 ORDER BY feature_key`,
		sub.PlanID, companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	features := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, key)
	}
	return features, rows.Err()
}

// CheckLimit reports current usage of a metered feature against the plan's
// monthly limit. increment models a prospective use; pass 0 for a pure read.
func (s *Service) CheckLimit(ctx context.Context, companyID, featureKey string, increment int, now time.Time) (LimitCheck, error) {
	result := LimitCheck{
		FeatureKey: featureKey,
		YearMonth:  YearMonth(now),
	}

	sub, err := s.ActiveSubscription(ctx, companyID)
	if err != nil {
		return LimitCheck{}, err
	}

	var limit *int
	if sub != nil {
		result.AllowOverage = sub.AllowOverage
		err = s.db.QueryRow(ctx,
			`SELECT limit_per_month FROM feature_limits WHERE plan_id = $1 AND feature_key = $2`,
			sub.PlanID, featureKey,
		).Scan(&limit)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return LimitCheck{}, fmt.Errorf("query limit: %w", err)
		}
	}
	result.LimitPerMonth = limit

	err = s.db.QueryRow(ctx,
		`SELECT used FROM usage_monthly WHERE company_id = $1 AND feature_key = $2 AND year_month = $3`,
		companyID, featureKey, result.YearMonth,
	).Scan(&result.Used)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return LimitCheck{}, fmt.Errorf("query usage: %w", err)
	}

	if limit == nil {
		result.Allowed = true
		return result, nil
	}

	projected := result.Used + increment
	if projected > *limit {
		result.WillOverageBy = projected - *limit
		result.Allowed = result.AllowOverage
	} else {
		result.Allowed = true
	}
	return result, nil
}

// EnableOverage sets allow_overage on the active subscription. Idempotent.
// The bool result reports whether it was already enabled.
func (s *Service) EnableOverage(ctx context.Context, companyID string) (string, bool, error) {
	var (
		subID        string
		allowOverage bool
	)
	err := s.db.QueryRow(ctx,
		`SELECT id::text, allow_overage FROM subscriptions
		 WHERE company_id = $1 AND status = 'active'
		 ORDER BY started_at DESC
		 LIMIT 1`,
		companyID,
	).Scan(&subID, &allowOverage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, ErrNoActiveSubscription
		}
		return "", false, fmt.Errorf("query subscription: %w", err)
	}

	if allowOverage {
		return subID, true, nil
	}

	_, err = s.db.Exec(ctx,
		`UPDATE subscriptions SET allow_overage = true WHERE id = $1`,
		subID,
	)
	if err != nil {
		return "", false, fmt.Errorf("enable overage: %w", err)
	}
	return subID, false, nil
}
