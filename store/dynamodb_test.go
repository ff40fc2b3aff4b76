package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamoDB holds one table in memory and implements the calls DynamoDBStore makes. Query
// results come in pages of pageSize items.
type fakeDynamoDB struct {
	dynamodbiface.DynamoDBAPI
	tableExists bool
	items       map[string]map[int]map[string]*dynamodb.AttributeValue
	pageSize    int
	batchSizes  []int
	lock        sync.Mutex
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: make(map[string]map[int]map[string]*dynamodb.AttributeValue), pageSize: 2}
}

func seqOf(item map[string]*dynamodb.AttributeValue) int {
	n, _ := strconv.Atoi(aws.StringValue(item[tableSortKey].N))
	return n
}

func (f *fakeDynamoDB) DescribeTableWithContext(
	_ aws.Context, _ *dynamodb.DescribeTableInput, _ ...request.Option,
) (*dynamodb.DescribeTableOutput, error) {
	if !f.tableExists {
		return nil, awserr.New(dynamodb.ErrCodeResourceNotFoundException, "no table", nil)
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func (f *fakeDynamoDB) CreateTableWithContext(
	_ aws.Context, _ *dynamodb.CreateTableInput, _ ...request.Option,
) (*dynamodb.CreateTableOutput, error) {
	f.tableExists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamoDB) WaitUntilTableExistsWithContext(
	_ aws.Context, _ *dynamodb.DescribeTableInput, _ ...request.WaiterOption,
) error {
	return nil
}

func (f *fakeDynamoDB) PutItemWithContext(
	_ aws.Context, input *dynamodb.PutItemInput, _ ...request.Option,
) (*dynamodb.PutItemOutput, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	run := aws.StringValue(input.Item[tablePartitionKey].S)
	seq := seqOf(input.Item)
	if f.items[run] == nil {
		f.items[run] = make(map[int]map[string]*dynamodb.AttributeValue)
	}
	if _, exists := f.items[run][seq]; exists && input.ConditionExpression != nil {
		return nil, awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "exists", nil)
	}
	f.items[run][seq] = input.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) QueryWithContext(
	_ aws.Context, input *dynamodb.QueryInput, _ ...request.Option,
) (*dynamodb.QueryOutput, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	run := aws.StringValue(input.ExpressionAttributeValues[":run"].S)
	var seqs []int
	for seq := range f.items[run] {
		if input.ExclusiveStartKey == nil || seq > seqOf(input.ExclusiveStartKey) {
			seqs = append(seqs, seq)
		}
	}
	sort.Ints(seqs)
	out := &dynamodb.QueryOutput{}
	for _, seq := range seqs {
		if len(out.Items) == f.pageSize {
			out.LastEvaluatedKey = out.Items[len(out.Items)-1]
			break
		}
		out.Items = append(out.Items, f.items[run][seq])
	}
	return out, nil
}

func (f *fakeDynamoDB) BatchWriteItemWithContext(
	_ aws.Context, input *dynamodb.BatchWriteItemInput, _ ...request.Option,
) (*dynamodb.BatchWriteItemOutput, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, requests := range input.RequestItems {
		f.batchSizes = append(f.batchSizes, len(requests))
		for _, r := range requests {
			if r.DeleteRequest != nil {
				run := aws.StringValue(r.DeleteRequest.Key[tablePartitionKey].S)
				delete(f.items[run], seqOf(r.DeleteRequest.Key))
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func TestDynamoDBStore(t *testing.T) {
	fake := newFakeDynamoDB()
	s := NewDynamoDBStore(fake, "", DefaultPrefix, nil)
	require.NoError(t, s.EnsureTable(context.Background()))
	assert.True(t, fake.tableExists)
	require.NoError(t, s.EnsureTable(context.Background()))

	testPartialStore(t, s)
	assert.Contains(t, fake.items, "report-harness:run2")
}

func TestDynamoDBStoreSkipsTakenSequenceNumbers(t *testing.T) {
	fake := newFakeDynamoDB()
	s := NewDynamoDBStore(fake, "table", "p", nil)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "r", StoredPartial{ID: "a", Data: []byte("{}")}))
	// an item the store's count will not see, at the position it would choose next
	moved := fake.items["p:r"][0]
	moved[tableSortKey] = &dynamodb.AttributeValue{N: aws.String("2")}
	fake.items["p:r"][2] = moved
	delete(fake.items["p:r"], 0)

	require.NoError(t, s.Put(ctx, "r", StoredPartial{ID: "b", Data: []byte("{}")}))
	require.NoError(t, s.Put(ctx, "r", StoredPartial{ID: "c", Data: []byte("{}")}))
	partials, err := s.List(ctx, "r")
	require.NoError(t, err)
	var ids []string
	for _, p := range partials {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestDynamoDBStoreResetsInBatches(t *testing.T) {
	fake := newFakeDynamoDB()
	s := NewDynamoDBStore(fake, "table", "p", nil)
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		require.NoError(t, s.Put(ctx, "r", StoredPartial{ID: strconv.Itoa(i), Data: []byte("{}")}))
	}
	require.NoError(t, s.Reset(ctx, "r"))
	assert.Equal(t, []int{25, 5}, fake.batchSizes)
	partials, err := s.List(ctx, "r")
	require.NoError(t, err)
	assert.Len(t, partials, 0)
}
