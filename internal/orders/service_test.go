package orders

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsBuildsThirtyZeroFilledBuckets(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, time.August, 31, 15, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM orders WHERE company_id").
		WithArgs("company-1").
		WillReturnRows(pgxmock.NewRows([]string{"status", "total_amount", "created_at"}))

	svc := NewService(mock)
	stats, daily, err := svc.Stats(context.Background(), "company-1", now)
	require.NoError(t, err)

	require.Len(t, daily, 30)
	assert.Equal(t, "2026-08-02", daily[0].Date)
	assert.Equal(t, "2026-08-31", daily[29].Date)
	for _, bucket := range daily {
		assert.Zero(t, bucket.Orders)
		assert.Zero(t, bucket.Revenue)
	}
	assert.Empty(t, stats.Counts)
	assert.Zero(t, stats.TotalRevenue)
}

func TestStatsAccumulatesIntoBuckets(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, time.August, 31, 15, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM orders WHERE company_id").
		WithArgs("company-1").
		WillReturnRows(pgxmock.NewRows([]string{"status", "total_amount", "created_at"}).
			AddRow("delivered", 120.5, now.Add(-2*time.Hour)).
			AddRow("delivered", 30.0, now.AddDate(0, 0, -1)).
			AddRow("pending", 45.0, now.AddDate(0, 0, -1)).
			// Outside the 30-day window: counted in totals, not in the series.
			AddRow("delivered", 99.0, now.AddDate(0, 0, -40)))

	svc := NewService(mock)
	stats, daily, err := svc.Stats(context.Background(), "company-1", now)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Counts["delivered"])
	assert.Equal(t, 1, stats.Counts["pending"])
	assert.InDelta(t, 294.5, stats.TotalRevenue, 0.001)

	require.Len(t, daily, 30)
	today := daily[29]
	assert.Equal(t, 1, today.Orders)
	assert.InDelta(t, 120.5, today.Revenue, 0.001)

	yesterday := daily[28]
	assert.Equal(t, 2, yesterday.Orders)
	assert.InDelta(t, 75.0, yesterday.Revenue, 0.001)

	var bucketed int
	for _, b := range daily {
		bucketed += b.Orders
	}
	assert.Equal(t, 3, bucketed)
}

func TestListClampsLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("LIMIT 300").
		WithArgs("company-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "total_amount", "created_at", "name", "phone", "address"}))

	svc := NewService(mock)
	_, err = svc.List(context.Background(), "company-1", "", 5000)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFiltersByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	name := "Ana"
	mock.ExpectQuery("AND o.status").
		WithArgs("company-1", "pending").
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "total_amount", "created_at", "name", "phone", "address"}).
			AddRow("order-1", "pending", 10.0, time.Now(), &name, (*string)(nil), (*string)(nil)))

	svc := NewService(mock)
	list, err := svc.List(context.Background(), "company-1", "pending", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Customer)
	assert.Equal(t, "Ana", list[0].Customer.Name)
}

func TestGetOrderNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "company_id", "status", "total_amount", "printed_at", "created_at"}))

	svc := NewService(mock)
	_, _, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
