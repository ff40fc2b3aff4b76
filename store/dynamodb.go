package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/multitest/report-harness/framework"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

const (
	// Schema of the DynamoDB table
	tablePartitionKey = "run"
	tableSortKey      = "seq"
	idAttribute       = "id"
	sourceAttribute   = "source"
	dataAttribute     = "data"

	DefaultDynamoDBTable = "report-harness-partials"

	// BatchWriteItem accepts at most this many requests
	dynamoDBMaxBatchSize = 25
)

// DynamoDBStore keeps each partial as an item whose partition key is the run and whose
// numeric sort key is the partial's position in submission order.
type DynamoDBStore struct {
	dynamodb dynamodbiface.DynamoDBAPI
	table    string
	prefix   string
	logger   framework.Logger
}

func NewDynamoDBStore(client dynamodbiface.DynamoDBAPI, table, prefix string, logger framework.Logger) *DynamoDBStore {
	if logger == nil {
		logger = framework.NullLogger()
	}
	if table == "" {
		table = DefaultDynamoDBTable
	}
	return &DynamoDBStore{dynamodb: client, table: table, prefix: prefix, logger: logger}
}

// NewDynamoDBStoreFromConfig creates a client from the standard AWS configuration sources,
// overridden by any region or endpoint in config, and creates the table if it does not exist.
func NewDynamoDBStoreFromConfig(config Config, logger framework.Logger) (*DynamoDBStore, error) {
	awsConfig := aws.NewConfig()
	if config.DynamoDBRegion != "" {
		awsConfig = awsConfig.WithRegion(config.DynamoDBRegion)
	}
	if config.DynamoDBEndpoint != "" {
		awsConfig = awsConfig.WithEndpoint(config.DynamoDBEndpoint)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsConfig,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, err
	}
	s := NewDynamoDBStore(dynamodb.New(sess), config.DynamoDBTable, config.Prefix, logger)
	if err := s.EnsureTable(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureTable creates the store's table if it does not exist yet.
func (d *DynamoDBStore) EnsureTable(ctx context.Context) error {
	_, err := d.dynamodb.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
	if err == nil {
		return nil
	}
	var aerr awserr.Error
	if !errors.As(err, &aerr) || aerr.Code() != dynamodb.ErrCodeResourceNotFoundException {
		return err
	}
	d.logger.Printf("Creating DynamoDB table %s", d.table)
	_, err = d.dynamodb.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String(tablePartitionKey),
				AttributeType: aws.String(dynamodb.ScalarAttributeTypeS),
			},
			{
				AttributeName: aws.String(tableSortKey),
				AttributeType: aws.String(dynamodb.ScalarAttributeTypeN),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String(tablePartitionKey),
				KeyType:       aws.String(dynamodb.KeyTypeHash),
			},
			{
				AttributeName: aws.String(tableSortKey),
				KeyType:       aws.String(dynamodb.KeyTypeRange),
			},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
		TableName:   aws.String(d.table),
	})
	if err != nil {
		return err
	}
	return d.dynamodb.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
}

func (d *DynamoDBStore) partitionKey(runID string) string {
	return d.prefix + ":" + runID
}

func (d *DynamoDBStore) Put(ctx context.Context, runID string, p StoredPartial) error {
	if runID == "" {
		return errEmptyRunID
	}
	items, err := d.query(ctx, runID, false)
	if err != nil {
		return fmt.Errorf("failed to list existing partials: %w", err)
	}
	seq := len(items)
	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		item := map[string]*dynamodb.AttributeValue{
			tablePartitionKey: {S: aws.String(d.partitionKey(runID))},
			tableSortKey:      {N: aws.String(strconv.Itoa(seq))},
			idAttribute:       {S: aws.String(p.ID)},
			dataAttribute:     {B: p.Data},
		}
		if p.Source != "" {
			item[sourceAttribute] = &dynamodb.AttributeValue{S: aws.String(p.Source)}
		}
		_, err := d.dynamodb.PutItemWithContext(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(d.table),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(#seq)"),
			ExpressionAttributeNames: map[string]*string{
				"#seq": aws.String(tableSortKey),
			},
		})
		if err == nil {
			d.logger.Printf("Stored partial %s in DynamoDB table %s", p.ID, d.table)
			return nil
		}
		var aerr awserr.Error
		if !errors.As(err, &aerr) || aerr.Code() != dynamodb.ErrCodeConditionalCheckFailedException {
			return fmt.Errorf("failed to store partial %q: %w", p.ID, err)
		}
		seq++
	}
	return fmt.Errorf("failed to store partial %q: no free sequence number after %d attempts", p.ID, maxPutAttempts)
}

func (d *DynamoDBStore) List(ctx context.Context, runID string) ([]StoredPartial, error) {
	items, err := d.query(ctx, runID, true)
	if err != nil {
		return nil, err
	}
	ret := make([]StoredPartial, 0, len(items))
	for _, item := range items {
		p := StoredPartial{Data: item[dataAttribute].B}
		if v := item[idAttribute]; v != nil {
			p.ID = aws.StringValue(v.S)
		}
		if v := item[sourceAttribute]; v != nil {
			p.Source = aws.StringValue(v.S)
		}
		ret = append(ret, p)
	}
	return ret, nil
}

func (d *DynamoDBStore) Reset(ctx context.Context, runID string) error {
	items, err := d.query(ctx, runID, false)
	if err != nil {
		return err
	}
	requests := make([]*dynamodb.WriteRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, &dynamodb.WriteRequest{
			DeleteRequest: &dynamodb.DeleteRequest{Key: map[string]*dynamodb.AttributeValue{
				tablePartitionKey: item[tablePartitionKey],
				tableSortKey:      item[tableSortKey],
			}},
		})
	}
	if err := d.batchWriteRequests(ctx, requests); err != nil {
		return fmt.Errorf("failed to delete %d item(s) in batches: %w", len(requests), err)
	}
	return nil
}

func (d *DynamoDBStore) Close() error { return nil }

// query returns all items of a run in sort key order. Without allAttributes, only the keys
// are read.
func (d *DynamoDBStore) query(ctx context.Context, runID string, allAttributes bool) ([]map[string]*dynamodb.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		ConsistentRead:         aws.Bool(true),
		KeyConditionExpression: aws.String("#run = :run"),
		ExpressionAttributeNames: map[string]*string{
			"#run": aws.String(tablePartitionKey),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":run": {S: aws.String(d.partitionKey(runID))},
		},
	}
	if !allAttributes {
		input.ProjectionExpression = aws.String("#run, #seq")
		input.ExpressionAttributeNames["#seq"] = aws.String(tableSortKey)
	}
	var items []map[string]*dynamodb.AttributeValue
	for {
		out, err := d.dynamodb.QueryWithContext(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (d *DynamoDBStore) batchWriteRequests(ctx context.Context, requests []*dynamodb.WriteRequest) error {
	for len(requests) > 0 {
		batchSize := min(len(requests), dynamoDBMaxBatchSize)
		batch := requests[:batchSize]
		requests = requests[batchSize:]

		out, err := d.dynamodb.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]*dynamodb.WriteRequest{d.table: batch},
		})
		if err != nil {
			return err
		}
		// anything DynamoDB could not process goes around again
		requests = append(requests, out.UnprocessedItems[d.table]...)
	}
	return nil
}
