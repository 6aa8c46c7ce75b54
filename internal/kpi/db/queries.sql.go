package kpidb

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const quotesInRange = `-- name: QuotesInRange :many
SELECT id, user_id, customer_email, status, created_at, total
FROM quotes
WHERE user_id = $1
  AND created_at >= $2
  AND created_at < $3
ORDER BY created_at, id
`

func (q *Queries) QuotesInRange(ctx context.Context, arg QuotesInRangeParams) ([]QuotesInRangeRow, error) {
	rows, err := q.db.Query(ctx, quotesInRange, arg.UserID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []QuotesInRangeRow
	for rows.Next() {
		var i QuotesInRangeRow
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.CustomerEmail,
			&i.Status,
			&i.CreatedAt,
			&i.Total,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const quoteItemsByQuoteIDs = `-- name: QuoteItemsByQuoteIDs :many
SELECT quote_id, quantity, unit_price, total
FROM quote_items
WHERE quote_id = ANY($1::uuid[])
ORDER BY quote_id, id
`

func (q *Queries) QuoteItemsByQuoteIDs(ctx context.Context, quoteIDs []pgtype.UUID) ([]QuoteItemsRow, error) {
	rows, err := q.db.Query(ctx, quoteItemsByQuoteIDs, quoteIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []QuoteItemsRow
	for rows.Next() {
		var i QuoteItemsRow
		if err := rows.Scan(
			&i.QuoteID,
			&i.Quantity,
			&i.UnitPrice,
			&i.Total,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const productsByOwner = `-- name: ProductsByOwner :many
SELECT id, stock, min_stock, price
FROM products
WHERE user_id = $1
ORDER BY id
`

func (q *Queries) ProductsByOwner(ctx context.Context, userID pgtype.UUID) ([]ProductsByOwnerRow, error) {
	rows, err := q.db.Query(ctx, productsByOwner, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProductsByOwnerRow
	for rows.Next() {
		var i ProductsByOwnerRow
		if err := rows.Scan(
			&i.ID,
			&i.Stock,
			&i.MinStock,
			&i.Price,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const quoteOwners = `-- name: QuoteOwners :many
SELECT DISTINCT user_id
FROM quotes
ORDER BY user_id
`

func (q *Queries) QuoteOwners(ctx context.Context) ([]pgtype.UUID, error) {
	rows, err := q.db.Query(ctx, quoteOwners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []pgtype.UUID
	for rows.Next() {
		var userID pgtype.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		items = append(items, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
