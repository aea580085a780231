package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/storelab/go-checkout-saga/internal/aws"
)

var (
	// ErrNotFound indicates the product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock indicates the decrement would make inventory negative.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Store encapsulates operations on the products table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new products Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Get fetches a product by id. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, productID string) (*Product, error) {
	key := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: productPK(productID)},
		"SK": &types.AttributeValueMemberS{Value: productSK},
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var p Product
	if err := aws.UnmarshalItem(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// Put writes a full product record. Used by the catalog collaborator and by
// seeding; checkout itself never calls it.
func (s *Store) Put(ctx context.Context, p Product) error {
	now := s.nowFunc()
	p.PK = productPK(p.ProductID)
	p.SK = productSK
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	item, err := aws.MarshalItem(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Decrement atomically reduces inventory by qty on behalf of orderID.
// The update only applies while inventory >= qty, and each (order, product)
// pair is tagged in the committed_orders set so a redelivered commit step is
// a no-op instead of a double decrement.
//
// Returns nil when the decrement was applied now or on a previous attempt,
// ErrInsufficientStock when stock cannot cover qty, ErrNotFound when the
// product is missing.
func (s *Store) Decrement(ctx context.Context, productID string, qty int, orderID string) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be >= 1, got %d", qty)
	}
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: productPK(productID)},
			"SK": &types.AttributeValueMemberS{Value: productSK},
		},
		UpdateExpression:    awsString("SET inventory = inventory - :qty, updated_at = :ua ADD committed_orders :oset"),
		ConditionExpression: awsString("attribute_exists(PK) AND inventory >= :qty AND NOT contains(committed_orders, :oid)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty":  &types.AttributeValueMemberN{Value: strconv.Itoa(qty)},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":oset": &types.AttributeValueMemberSS{Value: []string{orderID}},
			":oid":  &types.AttributeValueMemberS{Value: orderID},
		},
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err == nil {
		return nil
	}
	var cc *types.ConditionalCheckFailedException
	if !errors.As(err, &cc) {
		return fmt.Errorf("update item: %w", err)
	}

	// The condition failed: missing product, short stock, or already applied.
	// Read back to tell them apart.
	p, getErr := s.getRaw(ctx, productID)
	if getErr != nil {
		return getErr
	}
	if p == nil {
		return ErrNotFound
	}
	for _, applied := range p.committedOrders {
		if applied == orderID {
			return nil // decrement already applied by an earlier delivery
		}
	}
	return ErrInsufficientStock
}

type rawProduct struct {
	Product
	committedOrders []string
}

func (s *Store) getRaw(ctx context.Context, productID string) (*rawProduct, error) {
	key := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: productPK(productID)},
		"SK": &types.AttributeValueMemberS{Value: productSK},
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rp rawProduct
	if err := aws.UnmarshalItem(out.Item, &rp.Product); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	if ss, ok := out.Item["committed_orders"].(*types.AttributeValueMemberSS); ok {
		rp.committedOrders = ss.Value
	}
	return &rp, nil
}

func awsString(s string) *string { return &s }
