package kpi

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	kpidb "github.com/odyssey-erp/odyssey-kpi/internal/kpi/db"
)

// Repository exposes the generated queries the Postgres record store relies on.
type Repository interface {
	QuotesInRange(ctx context.Context, arg kpidb.QuotesInRangeParams) ([]kpidb.QuotesInRangeRow, error)
	QuoteItemsByQuoteIDs(ctx context.Context, quoteIDs []pgtype.UUID) ([]kpidb.QuoteItemsRow, error)
	ProductsByOwner(ctx context.Context, userID pgtype.UUID) ([]kpidb.ProductsByOwnerRow, error)
}

// TxRunner runs fn against a Repository bound to a single read snapshot.
type TxRunner func(ctx context.Context, fn func(Repository) error) error

// RepositoryStore adapts the Postgres queries to RecordStore.
type RepositoryStore struct {
	run TxRunner
}

// NewRepositoryStore wraps repo as a RecordStore.
func NewRepositoryStore(repo Repository) *RepositoryStore {
	return NewTxRepositoryStore(func(_ context.Context, fn func(Repository) error) error {
		return fn(repo)
	})
}

// NewTxRepositoryStore reads quotes and their items through run so both
// queries observe the same snapshot.
func NewTxRepositoryStore(run TxRunner) *RepositoryStore {
	return &RepositoryStore{run: run}
}

func (s *RepositoryStore) Quotes(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]QuoteRecord, error) {
	var out []QuoteRecord
	err := s.run(ctx, func(repo Repository) error {
		records, err := quotesFrom(ctx, repo, userID, from, to)
		out = records
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func quotesFrom(ctx context.Context, repo Repository, userID uuid.UUID, from, to time.Time) ([]QuoteRecord, error) {
	rows, err := repo.QuotesInRange(ctx, kpidb.QuotesInRangeParams{
		UserID: uuidParam(userID),
		From:   timeParam(from),
		To:     timeParam(to),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []QuoteRecord{}, nil
	}
	ids := make([]pgtype.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	itemRows, err := repo.QuoteItemsByQuoteIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make(map[uuid.UUID][]QuoteLineItem, len(rows))
	for _, row := range itemRows {
		id := uuid.UUID(row.QuoteID.Bytes)
		items[id] = append(items[id], QuoteLineItem{
			Quantity:  requiredNumeric(row.Quantity),
			UnitPrice: requiredNumeric(row.UnitPrice),
			Total:     optionalNumeric(row.Total),
		})
	}

	out := make([]QuoteRecord, 0, len(rows))
	for _, row := range rows {
		id := uuid.UUID(row.ID.Bytes)
		out = append(out, QuoteRecord{
			ID:            id,
			OwnerID:       uuid.UUID(row.UserID.Bytes),
			CustomerEmail: row.CustomerEmail.String,
			Status:        row.Status.String,
			CreatedAt:     row.CreatedAt.Time.UTC(),
			Items:         items[id],
			Total:         optionalNumeric(row.Total),
		})
	}
	return out, nil
}

func (s *RepositoryStore) Products(ctx context.Context, userID uuid.UUID) ([]ProductRecord, error) {
	var rows []kpidb.ProductsByOwnerRow
	err := s.run(ctx, func(repo Repository) error {
		var err error
		rows, err = repo.ProductsByOwner(ctx, uuidParam(userID))
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]ProductRecord, 0, len(rows))
	for _, row := range rows {
		product := ProductRecord{
			ID:           uuid.UUID(row.ID.Bytes),
			Stock:        int(row.Stock.Int32),
			Price:        requiredNumeric(row.Price),
			StockInvalid: !row.Stock.Valid,
		}
		if row.MinStock.Valid {
			threshold := int(row.MinStock.Int32)
			product.MinStock = &threshold
		}
		out = append(out, product)
	}
	return out, nil
}

func uuidParam(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func timeParam(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

// requiredNumeric maps NULL to NaN so aggregation counts the field as malformed.
func requiredNumeric(n pgtype.Numeric) float64 {
	if !n.Valid {
		return math.NaN()
	}
	v, err := n.Float64Value()
	if err != nil || !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func optionalNumeric(n pgtype.Numeric) *float64 {
	if !n.Valid {
		return nil
	}
	v := requiredNumeric(n)
	return &v
}
