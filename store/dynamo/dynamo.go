// Package dynamo implements store.Store backed by DynamoDB. Each sample is
// one item, keyed by a string partition key, with the payload in a binary
// attribute.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/msamogh/nonechucks/store"
)

// Client is the subset of the DynamoDB API the store uses. *dynamodb.Client
// satisfies it; tests substitute a fake.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Store implements store.Store for DynamoDB.
type Store struct {
	client    Client
	table     string
	keyAttr   string
	valueAttr string
}

// NewStore creates a new DynamoDB sample store reading from table, with
// keyAttr as the partition key attribute and valueAttr holding the payload.
func NewStore(client Client, table, keyAttr, valueAttr string) *Store {
	return &Store{
		client:    client,
		table:     table,
		keyAttr:   keyAttr,
		valueAttr: valueAttr,
	}
}

// Get fetches the item stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			s.keyAttr: &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if resp.Item == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}

	attr, ok := resp.Item[s.valueAttr]
	if !ok {
		return nil, fmt.Errorf("item %s has no attribute %q", key, s.valueAttr)
	}
	switch v := attr.(type) {
	case *types.AttributeValueMemberB:
		return v.Value, nil
	case *types.AttributeValueMemberS:
		return []byte(v.Value), nil
	default:
		return nil, fmt.Errorf("item %s attribute %q has unsupported type %T", key, s.valueAttr, attr)
	}
}
