package kpi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a tenant's records captured as a JSON document.
type Snapshot struct {
	UserID   uuid.UUID
	Quotes   []QuoteRecord
	Products []ProductRecord
}

type snapshotDoc struct {
	UserID   uuid.UUID         `json:"user_id"`
	Quotes   []snapshotQuote   `json:"quotes"`
	Products []snapshotProduct `json:"products"`
}

type snapshotQuote struct {
	ID            uuid.UUID      `json:"id"`
	OwnerID       uuid.UUID      `json:"owner_id"`
	CustomerEmail string         `json:"customer_email"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	Items         []snapshotItem `json:"items"`
	Total         *flexFloat     `json:"total"`
}

type snapshotItem struct {
	Quantity  *flexFloat `json:"quantity"`
	UnitPrice *flexFloat `json:"unit_price"`
	Total     *flexFloat `json:"total"`
}

type snapshotProduct struct {
	ID       uuid.UUID  `json:"id"`
	Stock    *flexFloat `json:"stock"`
	MinStock *flexFloat `json:"min_stock"`
	Price    *flexFloat `json:"price"`
}

// flexFloat accepts JSON numbers, numeric strings and null. Anything else
// decodes to NaN so aggregation counts it as malformed.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		*f = flexFloat{}
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = flexFloat{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			v = math.NaN()
		}
		*f = flexFloat{value: v, set: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		*f = flexFloat{value: math.NaN(), set: true}
		return nil
	}
	*f = flexFloat{value: v, set: true}
	return nil
}

func (f *flexFloat) required() float64 {
	if f == nil || !f.set {
		return math.NaN()
	}
	return f.value
}

func (f *flexFloat) optional() *float64 {
	if f == nil || !f.set {
		return nil
	}
	v := f.value
	return &v
}

// LoadSnapshot decodes a snapshot document. Quotes without an owner inherit
// the document's user_id.
func LoadSnapshot(r io.Reader) (Snapshot, error) {
	var doc snapshotDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Snapshot{}, fmt.Errorf("kpi: decode snapshot: %w", err)
	}
	snap := Snapshot{
		UserID:   doc.UserID,
		Quotes:   make([]QuoteRecord, 0, len(doc.Quotes)),
		Products: make([]ProductRecord, 0, len(doc.Products)),
	}
	for _, q := range doc.Quotes {
		owner := q.OwnerID
		if owner == uuid.Nil {
			owner = doc.UserID
		}
		record := QuoteRecord{
			ID:            q.ID,
			OwnerID:       owner,
			CustomerEmail: q.CustomerEmail,
			Status:        q.Status,
			CreatedAt:     q.CreatedAt.UTC(),
			Total:         q.Total.optional(),
		}
		for _, item := range q.Items {
			record.Items = append(record.Items, QuoteLineItem{
				Quantity:  item.Quantity.required(),
				UnitPrice: item.UnitPrice.required(),
				Total:     item.Total.optional(),
			})
		}
		snap.Quotes = append(snap.Quotes, record)
	}
	for _, p := range doc.Products {
		stock, ok := WholeUnits(p.Stock.required())
		product := ProductRecord{
			ID:           p.ID,
			Stock:        stock,
			Price:        p.Price.required(),
			StockInvalid: !ok,
		}
		if v := p.MinStock.optional(); v != nil {
			threshold, _ := WholeUnits(*v)
			product.MinStock = &threshold
		}
		snap.Products = append(snap.Products, product)
	}
	return snap, nil
}

// WholeUnits truncates v to a whole unit count clamped to the int32 range.
// ok is false when v is NaN or infinite, in which case the count is 0.
func WholeUnits(v float64) (units int, ok bool) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, false
	case v >= math.MaxInt32:
		return math.MaxInt32, true
	case v <= math.MinInt32:
		return math.MinInt32, true
	}
	return int(math.Trunc(v)), true
}

// SnapshotStore serves a Snapshot as a RecordStore.
type SnapshotStore struct {
	snap Snapshot
}

// NewSnapshotStore wraps snap.
func NewSnapshotStore(snap Snapshot) *SnapshotStore {
	return &SnapshotStore{snap: snap}
}

func (s *SnapshotStore) Quotes(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]QuoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]QuoteRecord, 0)
	for _, q := range s.snap.Quotes {
		if q.OwnerID != userID {
			continue
		}
		if q.CreatedAt.Before(from) || !q.CreatedAt.Before(to) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *SnapshotStore) Products(ctx context.Context, userID uuid.UUID) ([]ProductRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.snap.UserID != uuid.Nil && s.snap.UserID != userID {
		return []ProductRecord{}, nil
	}
	out := make([]ProductRecord, len(s.snap.Products))
	copy(out, s.snap.Products)
	return out, nil
}
