package billing

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscriptionColumns() []string {
	return []string{"id", "plan_id", "key", "name", "allow_overage"}
}

func planName(name string) *string { return &name }

func expectSubscription(mock pgxmock.PgxPoolIface, allowOverage bool) {
	mock.ExpectQuery("FROM subscriptions").
		WithArgs("company-1").
		WillReturnRows(pgxmock.NewRows(subscriptionColumns()).
			AddRow("sub-1", "plan-1", "pro", planName("Pro"), allowOverage))
}

func expectLimit(mock pgxmock.PgxPoolIface, limit *int) {
	mock.ExpectQuery("FROM feature_limits").
		WithArgs("plan-1", "whatsapp_messages").
		WillReturnRows(pgxmock.NewRows([]string{"limit_per_month"}).AddRow(limit))
}

func expectUsage(mock pgxmock.PgxPoolIface, used int, yearMonth string) {
	mock.ExpectQuery("FROM usage_monthly").
		WithArgs("company-1", "whatsapp_messages", yearMonth).
		WillReturnRows(pgxmock.NewRows([]string{"used"}).AddRow(used))
}

func TestYearMonthFormat(t *testing.T) {
	at := time.Date(2026, time.August, 31, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-08", YearMonth(at))
}

func TestCheckLimitUnlimitedWithoutSubscription(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM subscriptions").
		WithArgs("company-1").
		WillReturnRows(pgxmock.NewRows(subscriptionColumns()))
	expectUsage(mock, 7, "2026-08")

	svc := NewService(mock)
	check, err := svc.CheckLimit(context.Background(), "company-1", "whatsapp_messages", 1, now)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Nil(t, check.LimitPerMonth)
	assert.Equal(t, 7, check.Used)
	assert.Zero(t, check.WillOverageBy)
}

func TestCheckLimitWithinLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	limit := 100
	expectSubscription(mock, false)
	expectLimit(mock, &limit)
	expectUsage(mock, 40, "2026-08")

	svc := NewService(mock)
	check, err := svc.CheckLimit(context.Background(), "company-1", "whatsapp_messages", 1, now)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Equal(t, 40, check.Used)
	assert.Zero(t, check.WillOverageBy)
}

func TestCheckLimitBlockedWithoutOverage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	limit := 10
	expectSubscription(mock, false)
	expectLimit(mock, &limit)
	expectUsage(mock, 10, "2026-08")

	svc := NewService(mock)
	check, err := svc.CheckLimit(context.Background(), "company-1", "whatsapp_messages", 1, now)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.Equal(t, 1, check.WillOverageBy)
	assert.False(t, check.AllowOverage)
}

func TestCheckLimitAllowedWithOverage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	limit := 10
	expectSubscription(mock, true)
	expectLimit(mock, &limit)
	expectUsage(mock, 14, "2026-08")

	svc := NewService(mock)
	check, err := svc.CheckLimit(context.Background(), "company-1", "whatsapp_messages", 1, now)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Equal(t, 5, check.WillOverageBy)
	assert.True(t, check.AllowOverage)
}

func TestEnableOverageIdempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM subscriptions").
		WithArgs("company-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "allow_overage"}).AddRow("sub-1", true))

	svc := NewService(mock)
	subID, alreadyEnabled, err := svc.EnableOverage(context.Background(), "company-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", subID)
	assert.True(t, alreadyEnabled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnableOverageSetsFlag(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM subscriptions").
		WithArgs("company-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "allow_overage"}).AddRow("sub-1", false))
	mock.ExpectExec("UPDATE subscriptions SET allow_overage").
		WithArgs("sub-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(mock)
	subID, alreadyEnabled, err := svc.EnableOverage(context.Background(), "company-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", subID)
	assert.False(t, alreadyEnabled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnableOverageNoSubscription(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM subscriptions").
		WithArgs("company-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "allow_overage"}))

	svc := NewService(mock)
	_, _, err = svc.EnableOverage(context.Background(), "company-1")
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}
