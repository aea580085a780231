package catalog

import (
	"context"
	"errors"
	"strconv"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is an in-memory products table. It simulates the conditional
// decrement expression the store relies on, including the committed_orders
// string set.
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
	m.items[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

// UpdateItem supports the single decrement expression the store issues:
//
//	SET inventory = inventory - :qty, updated_at = :ua ADD committed_orders :oset
//	attribute_exists(PK) AND inventory >= :qty AND NOT contains(committed_orders, :oid)
func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, exists := m.items[k]
	if !exists {
		return nil, &types.ConditionalCheckFailedException{}
	}

	invAttr, ok := item["inventory"].(*types.AttributeValueMemberN)
	if !ok {
		return nil, errors.New("inventory attribute missing")
	}
	inventory, err := strconv.Atoi(invAttr.Value)
	if err != nil {
		return nil, err
	}
	qty, err := strconv.Atoi(params.ExpressionAttributeValues[":qty"].(*types.AttributeValueMemberN).Value)
	if err != nil {
		return nil, err
	}
	orderID := params.ExpressionAttributeValues[":oid"].(*types.AttributeValueMemberS).Value

	var committed []string
	if ss, ok := item["committed_orders"].(*types.AttributeValueMemberSS); ok {
		committed = ss.Value
	}
	for _, id := range committed {
		if id == orderID {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if inventory < qty {
		return nil, &types.ConditionalCheckFailedException{}
	}

	item["inventory"] = &types.AttributeValueMemberN{Value: strconv.Itoa(inventory - qty)}
	item["committed_orders"] = &types.AttributeValueMemberSS{Value: append(committed, orderID)}
	if ua, ok := params.ExpressionAttributeValues[":ua"]; ok {
		item["updated_at"] = ua
	}
	m.items[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
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
	return nil, errors.New("not used by the products store")
}
