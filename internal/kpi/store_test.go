package kpi

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	kpidb "github.com/odyssey-erp/odyssey-kpi/internal/kpi/db"
)

type mockRepository struct {
	quoteRows   []kpidb.QuotesInRangeRow
	itemRows    []kpidb.QuoteItemsRow
	productRows []kpidb.ProductsByOwnerRow
	err         error

	lastRange    kpidb.QuotesInRangeParams
	itemCalls    int
	lastQuoteIDs []pgtype.UUID
}

func (m *mockRepository) QuotesInRange(ctx context.Context, arg kpidb.QuotesInRangeParams) ([]kpidb.QuotesInRangeRow, error) {
	m.lastRange = arg
	return m.quoteRows, m.err
}

func (m *mockRepository) QuoteItemsByQuoteIDs(ctx context.Context, quoteIDs []pgtype.UUID) ([]kpidb.QuoteItemsRow, error) {
	m.itemCalls++
	m.lastQuoteIDs = quoteIDs
	return m.itemRows, m.err
}

func (m *mockRepository) ProductsByOwner(ctx context.Context, userID pgtype.UUID) ([]kpidb.ProductsByOwnerRow, error) {
	return m.productRows, m.err
}

func numeric(v int64, exp int32) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(v), Exp: exp, Valid: true}
}

func TestRepositoryStoreMapsQuotes(t *testing.T) {
	quoteA := uuid.New()
	quoteB := uuid.New()
	created := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	repo := &mockRepository{
		quoteRows: []kpidb.QuotesInRangeRow{
			{ID: pgtype.UUID{Bytes: quoteA, Valid: true}, UserID: pgtype.UUID{Bytes: testUser, Valid: true},
				CustomerEmail: pgtype.Text{String: "a@x", Valid: true}, Status: pgtype.Text{String: "aprovado", Valid: true},
				CreatedAt: pgtype.Timestamptz{Time: created, Valid: true}},
			{ID: pgtype.UUID{Bytes: quoteB, Valid: true}, UserID: pgtype.UUID{Bytes: testUser, Valid: true},
				Status: pgtype.Text{String: "pending", Valid: true}, CreatedAt: pgtype.Timestamptz{Time: created, Valid: true},
				Total: numeric(12550, -2)},
		},
		itemRows: []kpidb.QuoteItemsRow{
			{QuoteID: pgtype.UUID{Bytes: quoteA, Valid: true}, Quantity: numeric(2, 0), UnitPrice: numeric(1999, -2)},
			{QuoteID: pgtype.UUID{Bytes: quoteA, Valid: true}, Quantity: numeric(1, 0), UnitPrice: pgtype.Numeric{}, Total: numeric(5, 0)},
		},
	}
	store := NewRepositoryStore(repo)
	from := created.Add(-time.Hour)
	to := created.Add(time.Hour)

	quotes, err := store.Quotes(context.Background(), testUser, from, to)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	require.Equal(t, from, repo.lastRange.From.Time)
	require.Equal(t, to, repo.lastRange.To.Time)
	require.Len(t, repo.lastQuoteIDs, 2)

	require.Equal(t, quoteA, quotes[0].ID)
	require.Equal(t, "a@x", quotes[0].CustomerEmail)
	require.Nil(t, quotes[0].Total)
	require.Len(t, quotes[0].Items, 2)
	require.InDelta(t, 19.99, quotes[0].Items[0].UnitPrice, 1e-9)
	require.True(t, math.IsNaN(quotes[0].Items[1].UnitPrice))
	require.Equal(t, 5.0, *quotes[0].Items[1].Total)

	require.Empty(t, quotes[1].Items)
	require.InDelta(t, 125.5, *quotes[1].Total, 1e-9)
	require.InDelta(t, 44.98, QuoteValue(quotes[0]), 1e-9)
}

func TestRepositoryStoreSkipsItemsForEmptyRange(t *testing.T) {
	repo := &mockRepository{}
	quotes, err := NewRepositoryStore(repo).Quotes(context.Background(), testUser, testNow.Add(-time.Hour), testNow)
	require.NoError(t, err)
	require.Empty(t, quotes)
	require.Zero(t, repo.itemCalls)
}

func TestRepositoryStoreMapsProducts(t *testing.T) {
	repo := &mockRepository{
		productRows: []kpidb.ProductsByOwnerRow{
			{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Stock: pgtype.Int4{Int32: 4, Valid: true}, MinStock: pgtype.Int4{Int32: 10, Valid: true}, Price: numeric(250, -1)},
			{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Stock: pgtype.Int4{Int32: 8, Valid: true}, Price: numeric(3, 0)},
		},
	}
	products, err := NewRepositoryStore(repo).Products(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, 10, *products[0].MinStock)
	require.Equal(t, 25.0, products[0].Price)
	require.Nil(t, products[1].MinStock)
	require.Equal(t, StockLow, ClassifyStock(products[0]))
	require.Equal(t, StockHealthy, ClassifyStock(products[1]))
}

func TestRepositoryStoreFlagsNullStock(t *testing.T) {
	repo := &mockRepository{
		productRows: []kpidb.ProductsByOwnerRow{
			{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Price: numeric(3, 0)},
		},
	}
	products, err := NewRepositoryStore(repo).Products(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.True(t, products[0].StockInvalid)
	require.Zero(t, products[0].Stock)

	tl := &tally{}
	report := analyzeStock(products, tl)
	require.Equal(t, 1, report.OutOfStock)
	require.Equal(t, 1, tl.malformed)
}

func TestRepositoryStorePropagatesErrors(t *testing.T) {
	repo := &mockRepository{err: errors.New("connection reset")}
	_, err := NewRepositoryStore(repo).Products(context.Background(), testUser)
	require.Error(t, err)
}

func TestTxRepositoryStoreRunsQueriesInOneSnapshot(t *testing.T) {
	quoteID := uuid.New()
	repo := &mockRepository{
		quoteRows: []kpidb.QuotesInRangeRow{{ID: pgtype.UUID{Bytes: quoteID, Valid: true}, Status: pgtype.Text{String: "draft", Valid: true}}},
		itemRows:  []kpidb.QuoteItemsRow{{QuoteID: pgtype.UUID{Bytes: quoteID, Valid: true}, Quantity: numeric(1, 0), UnitPrice: numeric(3, 0)}},
	}
	runs := 0
	store := NewTxRepositoryStore(func(ctx context.Context, fn func(Repository) error) error {
		runs++
		return fn(repo)
	})

	quotes, err := store.Quotes(context.Background(), testUser, testNow.Add(-time.Hour), testNow)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Equal(t, 1, runs)
	require.Equal(t, 1, repo.itemCalls)
}
