package kpidynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
)

const (
	DefaultQuotesTable   = "quotes"
	DefaultProductsTable = "products"
	// QuotesByOwnerIndex is the GSI keyed by user_id (hash) and created_at
	// (range, epoch milliseconds).
	QuotesByOwnerIndex = "user_id-created_at-index"
)

// Tables names the DynamoDB tables backing the store.
type Tables struct {
	Quotes   string
	Products string
}

// Store reads quote and product records from DynamoDB.
//
// Table requirements:
//   - quotes: GSI user_id (S) + created_at (N, epoch ms)
//   - products: PK user_id (S), SK id (S)
type Store struct {
	client dynamodb.QueryAPIClient
	tables Tables
}

var _ kpi.RecordStore = (*Store)(nil)

// NewStore wires a query client. Empty table names fall back to the defaults.
func NewStore(client dynamodb.QueryAPIClient, tables Tables) *Store {
	if tables.Quotes == "" {
		tables.Quotes = DefaultQuotesTable
	}
	if tables.Products == "" {
		tables.Products = DefaultProductsTable
	}
	return &Store{client: client, tables: tables}
}

// Quotes returns quotes in [from, to). The range key is whole milliseconds, so
// the upper bound is expressed inclusively as to-1ms.
func (s *Store) Quotes(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]kpi.QuoteRecord, error) {
	lo := from.UTC().UnixMilli()
	hi := to.UTC().UnixMilli() - 1
	if hi < lo {
		return []kpi.QuoteRecord{}, nil
	}
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Quotes),
		IndexName:              aws.String(QuotesByOwnerIndex),
		KeyConditionExpression: aws.String("#uid = :uid AND #created BETWEEN :from AND :to"),
		ExpressionAttributeNames: map[string]string{
			"#uid":     "user_id",
			"#created": "created_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid":  &types.AttributeValueMemberS{Value: userID.String()},
			":from": &types.AttributeValueMemberN{Value: strconv.FormatInt(lo, 10)},
			":to":   &types.AttributeValueMemberN{Value: strconv.FormatInt(hi, 10)},
		},
	}
	var items []quoteItem
	if err := s.query(ctx, input, func(page []map[string]types.AttributeValue) error {
		var decoded []quoteItem
		if err := attributevalue.UnmarshalListOfMaps(page, &decoded); err != nil {
			return err
		}
		items = append(items, decoded...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("kpidynamo: query quotes: %w", err)
	}

	out := make([]kpi.QuoteRecord, 0, len(items))
	for _, it := range items {
		record := kpi.QuoteRecord{
			ID:            parseID(it.ID),
			OwnerID:       parseID(it.UserID),
			CustomerEmail: it.CustomerEmail,
			Status:        it.Status,
			CreatedAt:     time.UnixMilli(it.CreatedAt).UTC(),
			Total:         it.Total.optional(),
		}
		for _, line := range it.Items {
			record.Items = append(record.Items, kpi.QuoteLineItem{
				Quantity:  line.Quantity.required(),
				UnitPrice: line.UnitPrice.required(),
				Total:     line.Total.optional(),
			})
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *Store) Products(ctx context.Context, userID uuid.UUID) ([]kpi.ProductRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Products),
		KeyConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": "user_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID.String()},
		},
	}
	var items []productItem
	if err := s.query(ctx, input, func(page []map[string]types.AttributeValue) error {
		var decoded []productItem
		if err := attributevalue.UnmarshalListOfMaps(page, &decoded); err != nil {
			return err
		}
		items = append(items, decoded...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("kpidynamo: query products: %w", err)
	}

	out := make([]kpi.ProductRecord, 0, len(items))
	for _, it := range items {
		stock, ok := kpi.WholeUnits(it.Stock.required())
		product := kpi.ProductRecord{
			ID:           parseID(it.ID),
			Stock:        stock,
			Price:        it.Price.required(),
			StockInvalid: !ok,
		}
		if v := it.MinStock.optional(); v != nil {
			threshold, _ := kpi.WholeUnits(*v)
			product.MinStock = &threshold
		}
		out = append(out, product)
	}
	return out, nil
}

func (s *Store) query(ctx context.Context, input *dynamodb.QueryInput, page func([]map[string]types.AttributeValue) error) error {
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		if err := page(out.Items); err != nil {
			return err
		}
	}
	return nil
}

func parseID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
