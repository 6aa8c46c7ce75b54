package kpi

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const snapshotDocument = `{
  "user_id": "6f1c2f9e-3b0a-4d8e-9a51-1f7b2a0c9d10",
  "quotes": [
    {"id": "0b5b7c1e-98a4-4e0c-a7a7-8b8a5f0c0001", "customer_email": "a@x", "status": "Aprovado",
     "created_at": "2026-03-30T10:00:00Z", "items": [{"quantity": "2", "unit_price": 100}]},
    {"id": "0b5b7c1e-98a4-4e0c-a7a7-8b8a5f0c0002", "customer_email": "b@x", "status": "pending",
     "created_at": "2026-03-29T10:00:00Z", "total": "abc"},
    {"id": "0b5b7c1e-98a4-4e0c-a7a7-8b8a5f0c0003", "owner_id": "11111111-1111-1111-1111-111111111111",
     "status": "approved", "created_at": "2026-03-29T10:00:00Z", "total": 10}
  ],
  "products": [
    {"id": "0b5b7c1e-98a4-4e0c-a7a7-8b8a5f0c0101", "stock": "3", "min_stock": null, "price": 9.5},
    {"id": "0b5b7c1e-98a4-4e0c-a7a7-8b8a5f0c0102", "stock": 12, "min_stock": 2, "price": null}
  ]
}`

func TestLoadSnapshotLenientNumbers(t *testing.T) {
	snap, err := LoadSnapshot(strings.NewReader(snapshotDocument))
	require.NoError(t, err)

	require.Equal(t, testUser, snap.UserID)
	require.Len(t, snap.Quotes, 3)
	require.Equal(t, testUser, snap.Quotes[0].OwnerID)
	require.Equal(t, 2.0, snap.Quotes[0].Items[0].Quantity)
	require.NotNil(t, snap.Quotes[1].Total)
	require.True(t, math.IsNaN(*snap.Quotes[1].Total))

	require.Equal(t, 3, snap.Products[0].Stock)
	require.Nil(t, snap.Products[0].MinStock)
	require.Equal(t, 2, *snap.Products[1].MinStock)
	require.True(t, math.IsNaN(snap.Products[1].Price))
}

func TestLoadSnapshotFlagsMissingStock(t *testing.T) {
	doc := `{"products": [{"id": "0b5b7c1e-98a4-4e0c-a7a7-8b8a5f0c0101", "price": 1}, {"id": "0b5b7c1e-98a4-4e0c-a7a7-8b8a5f0c0102", "stock": 1e30, "price": 1}]}`
	snap, err := LoadSnapshot(strings.NewReader(doc))
	require.NoError(t, err)
	require.True(t, snap.Products[0].StockInvalid)
	require.False(t, snap.Products[1].StockInvalid)
	require.Equal(t, math.MaxInt32, snap.Products[1].Stock)
}

func TestWholeUnits(t *testing.T) {
	cases := []struct {
		in    float64
		units int
		ok    bool
	}{
		{in: 3.9, units: 3, ok: true},
		{in: -2.5, units: -2, ok: true},
		{in: 1e300, units: math.MaxInt32, ok: true},
		{in: -1e300, units: math.MinInt32, ok: true},
		{in: math.NaN(), units: 0, ok: false},
		{in: math.Inf(1), units: 0, ok: false},
	}
	for _, tc := range cases {
		units, ok := WholeUnits(tc.in)
		require.Equal(t, tc.units, units, "input %v", tc.in)
		require.Equal(t, tc.ok, ok, "input %v", tc.in)
	}
}

func TestLoadSnapshotRejectsInvalidJSON(t *testing.T) {
	_, err := LoadSnapshot(strings.NewReader(`{"quotes": [`))
	require.Error(t, err)
}

func TestSnapshotStoreFiltersByOwnerAndRange(t *testing.T) {
	snap, err := LoadSnapshot(strings.NewReader(snapshotDocument))
	require.NoError(t, err)
	store := NewSnapshotStore(snap)
	ctx := context.Background()

	from := time.Date(2026, 3, 29, 10, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 30, 10, 0, 0, 0, time.UTC)
	quotes, err := store.Quotes(ctx, testUser, from, to)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Equal(t, "pending", quotes[0].Status)

	products, err := store.Products(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, products, 2)

	others, err := store.Products(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, others)
}

func TestSnapshotReportFlagsMalformedFields(t *testing.T) {
	snap, err := LoadSnapshot(strings.NewReader(snapshotDocument))
	require.NoError(t, err)
	svc := NewService(fastGateway(NewSnapshotStore(snap)), nil, nil)
	svc.WithClock(func() time.Time { return testNow })

	report, err := svc.Generate(context.Background(), testUser, PeriodWeek)
	require.NoError(t, err)
	require.Equal(t, 200.0, report.Financial.ApprovedValue)
	require.Equal(t, 2, report.Quotes.Total)
	require.Equal(t, 2, report.Diagnostics.MalformedFields)
	require.Equal(t, 28.5, report.Products.TotalValue)
}
