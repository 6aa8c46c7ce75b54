package kpi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errStoreDown = errors.New("store down")

// fakeStore serves fixed records and can fail or block individual sources.
type fakeStore struct {
	mu sync.Mutex

	quotes   []QuoteRecord
	products []ProductRecord

	failQuotes   bool
	failProducts bool
	// failEndingBefore fails quote ranges that end before it.
	failEndingBefore time.Time
	// failFirst fails the first N calls of every source.
	failFirst int
	block     bool

	quoteCalls   int
	productCalls int
}

func (s *fakeStore) Quotes(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]QuoteRecord, error) {
	s.mu.Lock()
	s.quoteCalls++
	calls := s.quoteCalls
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.failQuotes || calls <= s.failFirst || to.Before(s.failEndingBefore) {
		return nil, errStoreDown
	}
	out := make([]QuoteRecord, 0)
	for _, q := range s.quotes {
		if q.OwnerID != userID || q.CreatedAt.Before(from) || !q.CreatedAt.Before(to) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *fakeStore) Products(ctx context.Context, userID uuid.UUID) ([]ProductRecord, error) {
	s.mu.Lock()
	s.productCalls++
	calls := s.productCalls
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.failProducts || calls <= s.failFirst {
		return nil, errStoreDown
	}
	return append([]ProductRecord(nil), s.products...), nil
}

var (
	testUser = uuid.MustParse("6f1c2f9e-3b0a-4d8e-9a51-1f7b2a0c9d10")
	testNow  = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
)

func fastGateway(store RecordStore) *Gateway {
	return NewGateway(store, GatewayConfig{
		SourceTimeout:  200 * time.Millisecond,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  2 * time.Millisecond,
	}, nil, nil)
}

// seededStore holds quotes spread over the current and previous 30 day windows.
func seededStore() *fakeStore {
	day := 24 * time.Hour
	return &fakeStore{
		quotes: []QuoteRecord{
			{ID: uuid.New(), OwnerID: testUser, CustomerEmail: "a@x", Status: "approved", CreatedAt: testNow.Add(-1 * day), Items: []QuoteLineItem{{Quantity: 2, UnitPrice: 100}}},
			{ID: uuid.New(), OwnerID: testUser, CustomerEmail: "A@x", Status: "aprovado", CreatedAt: testNow.Add(-2 * day), Total: ptr(50.0)},
			{ID: uuid.New(), OwnerID: testUser, CustomerEmail: "b@x", Status: "pendente", CreatedAt: testNow.Add(-3 * day), Total: ptr(300.0)},
			{ID: uuid.New(), OwnerID: testUser, CustomerEmail: "c@x", Status: "rejected", CreatedAt: testNow.Add(-40 * day), Total: ptr(80.0)},
			{ID: uuid.New(), OwnerID: testUser, CustomerEmail: "c@x", Status: "approved", CreatedAt: testNow.Add(-45 * day), Total: ptr(125.0)},
			{ID: uuid.New(), OwnerID: uuid.New(), CustomerEmail: "z@x", Status: "approved", CreatedAt: testNow.Add(-1 * day), Total: ptr(1000.0)},
		},
		products: []ProductRecord{
			{ID: uuid.New(), Stock: 0, Price: 10},
			{ID: uuid.New(), Stock: 3, MinStock: ptr(5), Price: 20},
			{ID: uuid.New(), Stock: 50, MinStock: ptr(5), Price: 30},
		},
	}
}
