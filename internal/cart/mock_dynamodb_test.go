package cart

import (
	"context"
	"errors"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a minimal in-memory stand-in for the carts table, keyed by
// PK|SK. It understands the two conditional puts the store issues.
type mockDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func itemKey(attrs map[string]types.AttributeValue) (string, error) {
	pk, ok := attrs["PK"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing PK")
	}
	sk, ok := attrs["SK"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing SK")
	}
	return pk.Value + "|" + sk.Value, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.items[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := itemKey(params.Item)
	if err != nil {
		return nil, err
	}

	if params.ConditionExpression != nil {
		switch *params.ConditionExpression {
		case "attribute_not_exists(PK)":
			if _, exists := m.items[k]; exists {
				return nil, &types.ConditionalCheckFailedException{}
			}
		case "version = :expected":
			existing, exists := m.items[k]
			if !exists {
				return nil, &types.ConditionalCheckFailedException{}
			}
			curr, ok := existing["version"].(*types.AttributeValueMemberN)
			expected := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN)
			if !ok || curr.Value != expected.Value {
				return nil, &types.ConditionalCheckFailedException{}
			}
		default:
			return nil, errors.New("unsupported condition: " + *params.ConditionExpression)
		}
	}

	m.items[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return nil, errors.New("not used by the carts store")
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	delete(m.items, k)
	return &dyn.DeleteItemOutput{}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	return nil, errors.New("not used by the carts store")
}
