package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/storelab/go-checkout-saga/internal/aws"
)

// ErrVersionConflict indicates a concurrent writer updated the cart between
// our read and write. The caller should re-read and retry or surface CONFLICT.
var ErrVersionConflict = errors.New("cart version conflict")

// Store encapsulates operations on the carts table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a new carts Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

// Get fetches the cart for a user. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, userID string) (*Cart, error) {
	key := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: cartPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: cartSK},
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
	var c Cart
	if err := aws.UnmarshalItem(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &c, nil
}

// Put writes the full cart with a compare-and-swap on the version field.
// A cart read at version N is written back at N+1 only while the stored
// version is still N; carts created fresh (version 0) only write when no
// record exists yet. Stale writes fail with ErrVersionConflict.
func (s *Store) Put(ctx context.Context, c *Cart) error {
	expected := c.Version
	c.PK = cartPK(c.UserID)
	c.SK = cartSK
	c.Version = expected + 1

	item, err := aws.MarshalItem(c)
	if err != nil {
		c.Version = expected
		return fmt.Errorf("marshal cart: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}
	if expected == 0 {
		input.ConditionExpression = awsString("attribute_not_exists(PK)")
	} else {
		input.ConditionExpression = awsString("version = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		c.Version = expected
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrVersionConflict
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Delete removes the cart record entirely. Deleting an absent cart is a no-op.
func (s *Store) Delete(ctx context.Context, userID string) error {
	key := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: cartPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: cartSK},
	}
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
