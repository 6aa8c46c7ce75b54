package kpidb

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type QuotesInRangeParams struct {
	UserID pgtype.UUID
	From   pgtype.Timestamptz
	To     pgtype.Timestamptz
}

type QuotesInRangeRow struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	CustomerEmail pgtype.Text
	Status        pgtype.Text
	CreatedAt     pgtype.Timestamptz
	Total         pgtype.Numeric
}

type QuoteItemsRow struct {
	QuoteID   pgtype.UUID
	Quantity  pgtype.Numeric
	UnitPrice pgtype.Numeric
	Total     pgtype.Numeric
}

type ProductsByOwnerRow struct {
	ID       pgtype.UUID
	Stock    pgtype.Int4
	MinStock pgtype.Int4
	Price    pgtype.Numeric
}
