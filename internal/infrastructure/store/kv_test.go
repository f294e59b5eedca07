package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runKVContract exercises the behaviour every backend shares.
func runKVContract(t *testing.T, kv KV, prefix string) {
	ctx := context.Background()
	key := prefix + ":cartelera_cart"

	_, found, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Set(ctx, key, []byte(`[{"id":"evt-1","qty":2}]`)))
	value, found, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `[{"id":"evt-1","qty":2}]`, string(value))

	require.NoError(t, kv.Set(ctx, key, []byte(`[]`)))
	value, _, err = kv.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(value))

	assert.ErrorIs(t, kv.Set(ctx, "", []byte("x")), ErrEmptyKey)
	_, _, err = kv.Get(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)

	if lister, ok := kv.(KeyLister); ok {
		require.NoError(t, kv.Set(ctx, prefix+":cartelera_favs", []byte(`[]`)))
		keys, err := lister.Keys(ctx, prefix+":")
		require.NoError(t, err)
		assert.Equal(t, []string{prefix + ":cartelera_cart", prefix + ":cartelera_favs"}, keys)
	}
}

// ============================================
// Memory Backend Tests
// ============================================

func TestMemoryKV_Contract(t *testing.T) {
	runKVContract(t, NewMemoryKV(), "s1")
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	value := []byte("abc")

	require.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'z'

	got, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

// ============================================
// Postgres Backend Tests
// ============================================

func TestPostgresKV_Contract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := ConnectPostgres(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	kv := NewPostgresKV(db)
	require.NoError(t, kv.EnsureSchema(ctx))

	runKVContract(t, kv, "test-"+uuid.NewString())
}

// ============================================
// Redis Backend Tests
// ============================================

func TestRedisKV_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	kv := NewRedisKV(db)

	mock.ExpectGet("s1:cartelera_cart").SetVal(`[{"id":"evt-1","qty":1}]`)
	mock.ExpectGet("s1:cartelera_favs").RedisNil()

	value, found, err := kv.Get(context.Background(), "s1:cartelera_cart")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"evt-1","qty":1}]`, string(value))

	_, found, err = kv.Get(context.Background(), "s1:cartelera_favs")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisKV_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	kv := NewRedisKV(db)

	mock.ExpectSet("s1:cartelera_favs", []byte(`["evt-1"]`), 0).SetVal("OK")

	require.NoError(t, kv.Set(context.Background(), "s1:cartelera_favs", []byte(`["evt-1"]`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisKV_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	kv := NewRedisKV(db)

	mock.ExpectGet("s1:cartelera_cart").SetErr(errors.New("connection refused"))
	mock.ExpectSet("s1:cartelera_cart", []byte("[]"), 0).SetErr(errors.New("READONLY"))

	_, _, err := kv.Get(context.Background(), "s1:cartelera_cart")
	assert.ErrorContains(t, err, "connection refused")

	err = kv.Set(context.Background(), "s1:cartelera_cart", []byte("[]"))
	assert.ErrorContains(t, err, "READONLY")
}

// ============================================
// DynamoDB Backend Tests
// ============================================

type fakeDynamo struct {
	items  map[string]map[string]types.AttributeValue
	putErr error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(item map[string]types.AttributeValue) string {
	if k, ok := item["key"].(*types.AttributeValueMemberS); ok {
		return k.Value
	}
	return ""
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	prefix := in.ExpressionAttributeValues[":prefix"].(*types.AttributeValueMemberS).Value
	out := &dynamodb.ScanOutput{}
	for k, item := range f.items {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out.Items = append(out.Items, map[string]types.AttributeValue{"key": item["key"]})
		}
	}
	return out, nil
}

func TestDynamoKV_Contract(t *testing.T) {
	runKVContract(t, NewDynamoKV(newFakeDynamo(), "cartelera_kv"), "s1")
}

func TestDynamoKV_ItemShape(t *testing.T) {
	fake := newFakeDynamo()
	kv := NewDynamoKV(fake, "cartelera_kv")

	require.NoError(t, kv.Set(context.Background(), "s1:cartelera_orders", []byte(`[]`)))

	var entry dynamoEntry
	require.NoError(t, attributevalue.UnmarshalMap(fake.items["s1:cartelera_orders"], &entry))
	assert.Equal(t, "s1:cartelera_orders", entry.Key)
	assert.Equal(t, []byte(`[]`), entry.Value)
	assert.NotEmpty(t, entry.UpdatedAt)
}

func TestDynamoKV_PutError(t *testing.T) {
	fake := newFakeDynamo()
	fake.putErr = errors.New("throttled")
	kv := NewDynamoKV(fake, "cartelera_kv")

	err := kv.Set(context.Background(), "s1:cartelera_cart", []byte(`[]`))

	assert.ErrorContains(t, err, "throttled")
}
