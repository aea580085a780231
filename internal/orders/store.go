package orders

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/storelab/go-checkout-saga/internal/aws"
)

var (
	// ErrStatusMismatch indicates a conditional status transition failed
	// because the stored status was not the expected one.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrAlreadyExists indicates an order with the same id already exists.
	ErrAlreadyExists = errors.New("order already exists")
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create persists a new order record. The caller sets OrderID; key and index
// attributes are derived here. Fails with ErrAlreadyExists on id collision.
func (s *Store) Create(ctx context.Context, o Order) error {
	now := s.nowFunc().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	o.PK = orderPK(o.UserID)
	o.SK = orderSK(o.OrderID)
	o.GSI1PK = statusKey(o.Status)
	o.GSI1SK = fmt.Sprintf("%s#%s", o.CreatedAt.Format(time.RFC3339), o.OrderID)
	o.GSI2PK = "ORDER"
	o.GSI2SK = o.GSI1SK

	item, err := aws.MarshalItem(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(SK)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches an order. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       orderKey(userID, orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := aws.UnmarshalItem(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// TransitionStatus conditionally moves the order from expected -> next.
// Returns ErrStatusMismatch if the stored status is no longer expected,
// which is how redelivered saga steps detect they already ran.
func (s *Store) TransitionStatus(ctx context.Context, userID, orderID string, expected, next Status) error {
	return s.transition(ctx, userID, orderID, expected, next, nil)
}

// TransitionWithTransaction is TransitionStatus plus recording the payment
// transaction id in the same conditional write.
func (s *Store) TransitionWithTransaction(ctx context.Context, userID, orderID string, expected, next Status, transactionID string) error {
	return s.transition(ctx, userID, orderID, expected, next, map[string]types.AttributeValue{
		"transaction_id": &types.AttributeValueMemberS{Value: transactionID},
	})
}

// MarkFailed moves the order to failed with a reason, from any non-terminal
// state. Marking an already-terminal order is reported as ErrStatusMismatch.
func (s *Store) MarkFailed(ctx context.Context, userID, orderID, reason string) error {
	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(userID, orderID),
		UpdateExpression: awsString("SET #s = :failed, GSI1PK = :gsi, failure_reason = :fr, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed":    &types.AttributeValueMemberS{Value: string(StatusFailed)},
			":gsi":       &types.AttributeValueMemberS{Value: statusKey(StatusFailed)},
			":fr":        &types.AttributeValueMemberS{Value: reason},
			":ua":        &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":confirmed": &types.AttributeValueMemberS{Value: string(StatusConfirmed)},
		},
		ConditionExpression: awsString("#s <> :failed AND #s <> :confirmed"),
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item (mark failed): %w", err)
	}
	return nil
}

// IncrementAttempts increases the attempts counter by 1 (useful for worker retries)
func (s *Store) IncrementAttempts(ctx context.Context, userID, orderID string) error {
	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(userID, orderID),
		UpdateExpression: awsString("SET attempts = if_not_exists(attempts, :zero) + :inc, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":inc":  &types.AttributeValueMemberN{Value: "1"},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

// ListByUser returns the user's orders most recent first, with a base64
// continuation token when more pages remain. limit <= 0 falls back to the
// default page size; values above the cap are clamped.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int, nextToken string) ([]Order, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: awsString("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: orderPK(userID)},
			":sk": &types.AttributeValueMemberS{Value: "ORDER#"},
		},
		Limit:            awsInt32(int32(limit)),
		ScanIndexForward: awsBool(false), // most recent first
	}
	if nextToken != "" {
		start, err := decodeNextToken(nextToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid next token: %w", err)
		}
		input.ExclusiveStartKey = start
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("query orders: %w", err)
	}

	result := make([]Order, 0, len(out.Items))
	for _, item := range out.Items {
		var o Order
		if err := aws.UnmarshalItem(item, &o); err != nil {
			return nil, "", fmt.Errorf("unmarshal order: %w", err)
		}
		result = append(result, o)
	}

	token := ""
	if len(out.LastEvaluatedKey) > 0 {
		token, err = encodeNextToken(out.LastEvaluatedKey)
		if err != nil {
			return nil, "", err
		}
	}
	return result, token, nil
}

func (s *Store) transition(ctx context.Context, userID, orderID string, expected, next Status, extra map[string]types.AttributeValue) error {
	if !CanTransitionTo(expected, next) {
		return fmt.Errorf("illegal status transition %s -> %s", expected, next)
	}
	now := s.nowFunc().UTC()
	updateExpr := "SET #s = :new, GSI1PK = :gsi, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: string(next)},
		":gsi":      &types.AttributeValueMemberS{Value: statusKey(next)},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		":expected": &types.AttributeValueMemberS{Value: string(expected)},
	}
	for name, v := range extra {
		placeholder := ":" + name
		updateExpr += fmt.Sprintf(", %s = %s", name, placeholder)
		values[placeholder] = v
	}

	input := &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       orderKey(userID, orderID),
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func orderKey(userID, orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: orderPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: orderSK(orderID)},
	}
}

// nextToken encodes the Query continuation key (string attributes only).
func encodeNextToken(key map[string]types.AttributeValue) (string, error) {
	flat := make(map[string]string, len(key))
	for k, v := range key {
		sv, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("unsupported key attribute type for %q", k)
		}
		flat[k] = sv.Value
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return "", fmt.Errorf("marshal next token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeNextToken(token string) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}
	key := make(map[string]types.AttributeValue, len(flat))
	for k, v := range flat {
		key[k] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}

func awsString(s string) *string { return &s }
func awsInt32(i int32) *int32    { return &i }
func awsBool(b bool) *bool       { return &b }
