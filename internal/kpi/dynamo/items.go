package kpidynamo

import (
	"math"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// number decodes N attributes and numeric S attributes. NULL leaves it unset;
// any other shape decodes to NaN so aggregation counts it as malformed.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberNULL:
		*n = number{}
	case *types.AttributeValueMemberN:
		*n = parseNumber(v.Value)
	case *types.AttributeValueMemberS:
		if strings.TrimSpace(v.Value) == "" {
			*n = number{}
			return nil
		}
		*n = parseNumber(v.Value)
	default:
		*n = number{value: math.NaN(), set: true}
	}
	return nil
}

func parseNumber(raw string) number {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return number{value: math.NaN(), set: true}
	}
	return number{value: f, set: true}
}

func (n number) required() float64 {
	if !n.set {
		return math.NaN()
	}
	return n.value
}

func (n number) optional() *float64 {
	if !n.set {
		return nil
	}
	v := n.value
	return &v
}

type quoteItem struct {
	ID            string     `dynamodbav:"id"`
	UserID        string     `dynamodbav:"user_id"`
	CustomerEmail string     `dynamodbav:"customer_email"`
	Status        string     `dynamodbav:"status"`
	CreatedAt     int64      `dynamodbav:"created_at"`
	Total         number     `dynamodbav:"total"`
	Items         []lineItem `dynamodbav:"items"`
}

type lineItem struct {
	Quantity  number `dynamodbav:"quantity"`
	UnitPrice number `dynamodbav:"unit_price"`
	Total     number `dynamodbav:"total"`
}

type productItem struct {
	ID       string `dynamodbav:"id"`
	UserID   string `dynamodbav:"user_id"`
	Stock    number `dynamodbav:"stock"`
	MinStock number `dynamodbav:"min_stock"`
	Price    number `dynamodbav:"price"`
}
