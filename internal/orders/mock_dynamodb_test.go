package orders

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is an in-memory orders table keyed by PK|SK. It simulates the
// conditional writes and the paginated query the store issues.
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
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(SK)" {
		if _, exists := m.items[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, exists := m.items[k]
	if !exists {
		if params.ConditionExpression != nil {
			return nil, &types.ConditionalCheckFailedException{}
		}
		item = map[string]types.AttributeValue{}
		for kk, vv := range params.Key {
			item[kk] = vv
		}
	}

	status := ""
	if s, ok := item["status"].(*types.AttributeValueMemberS); ok {
		status = s.Value
	}
	vals := params.ExpressionAttributeValues

	if params.ConditionExpression != nil {
		switch *params.ConditionExpression {
		case "#s = :expected":
			expected := vals[":expected"].(*types.AttributeValueMemberS).Value
			if status != expected {
				return nil, &types.ConditionalCheckFailedException{}
			}
		case "#s <> :failed AND #s <> :confirmed":
			failed := vals[":failed"].(*types.AttributeValueMemberS).Value
			confirmed := vals[":confirmed"].(*types.AttributeValueMemberS).Value
			if status == failed || status == confirmed {
				return nil, &types.ConditionalCheckFailedException{}
			}
		default:
			return nil, errors.New("unsupported condition: " + *params.ConditionExpression)
		}
	}

	expr := ""
	if params.UpdateExpression != nil {
		expr = *params.UpdateExpression
	}
	if v, ok := vals[":new"]; ok {
		item["status"] = v
	}
	if v, ok := vals[":failed"]; ok && strings.Contains(expr, "#s = :failed") {
		item["status"] = v
	}
	if v, ok := vals[":gsi"]; ok {
		item["GSI1PK"] = v
	}
	if v, ok := vals[":fr"]; ok {
		item["failure_reason"] = v
	}
	if v, ok := vals[":ua"]; ok {
		item["updated_at"] = v
	}
	if v, ok := vals[":transaction_id"]; ok {
		item["transaction_id"] = v
	}
	if strings.Contains(expr, "attempts") {
		curr := 0
		if a, ok := item["attempts"].(*types.AttributeValueMemberN); ok {
			curr, _ = strconv.Atoi(a.Value)
		}
		item["attempts"] = &types.AttributeValueMemberN{Value: strconv.Itoa(curr + 1)}
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

// Query supports "PK = :pk AND begins_with(SK, :sk)" with Limit,
// ScanIndexForward=false and ExclusiveStartKey, which is all ListByUser uses.
func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pk := params.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	prefix := params.ExpressionAttributeValues[":sk"].(*types.AttributeValueMemberS).Value

	var keys []string
	for k := range m.items {
		parts := strings.SplitN(k, "|", 2)
		if parts[0] == pk && strings.HasPrefix(parts[1], prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	start := 0
	if params.ExclusiveStartKey != nil {
		sk, err := itemKey(params.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		for i, k := range keys {
			if k == sk {
				start = i + 1
				break
			}
		}
	}

	limit := len(keys)
	if params.Limit != nil {
		limit = int(*params.Limit)
	}

	out := &dyn.QueryOutput{}
	end := start + limit
	if end > len(keys) {
		end = len(keys)
	}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, m.items[k])
	}
	if end < len(keys) && len(out.Items) > 0 {
		last := m.items[keys[end-1]]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"PK": last["PK"],
			"SK": last["SK"],
		}
	}
	return out, nil
}
