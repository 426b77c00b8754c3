package store

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

// DynamoStore is the DynamoDB-backed RecordStore. One item per merchant,
// partition key merchantId, plus a GSI on the mirrored accountHolderId
// attribute for webhook lookups.
type DynamoStore struct {
	client             *dynamodb.Client
	table              string
	accountHolderIndex string
}

func NewDynamoStore(ctx context.Context, region, table, accountHolderIndex string) (*DynamoStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &DynamoStore{
		client:             dynamodb.NewFromConfig(cfg),
		table:              table,
		accountHolderIndex: accountHolderIndex,
	}, nil
}

func (s *DynamoStore) Get(ctx context.Context, merchantID string) (*models.MerchantOnboardingRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: awssdk.String(s.table),
		Key: map[string]types.AttributeValue{
			"merchantId": &types.AttributeValueMemberS{Value: merchantID},
		},
		ConsistentRead: awssdk.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get merchant %s: %w", merchantID, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var record models.MerchantOnboardingRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("unmarshal merchant %s: %w", merchantID, err)
	}
	return &record, nil
}

func (s *DynamoStore) Put(ctx context.Context, record *models.MerchantOnboardingRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal merchant %s: %w", record.MerchantID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: awssdk.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put merchant %s: %w", record.MerchantID, err)
	}
	return nil
}

// Update applies a partial-field write. Paths may be nested
// ("creationProgress.sweepId"); values are marshalled individually. The
// updatedAt timestamp rides along with every write.
func (s *DynamoStore) Update(ctx context.Context, merchantID string, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}

	update := expression.Set(expression.Name("updatedAt"), expression.Value(time.Now().UTC().Format(time.RFC3339)))
	for path, value := range fields {
		update = update.Set(expression.Name(path), expression.Value(value))
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("build update expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: awssdk.String(s.table),
		Key: map[string]types.AttributeValue{
			"merchantId": &types.AttributeValueMemberS{Value: merchantID},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("update merchant %s: %w", merchantID, err)
	}
	return nil
}

func (s *DynamoStore) FindByAccountHolderID(ctx context.Context, accountHolderID string) (*models.MerchantOnboardingRecord, error) {
	keyCond := expression.Key("accountHolderId").Equal(expression.Value(accountHolderID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build query expression: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 awssdk.String(s.table),
		IndexName:                 awssdk.String(s.accountHolderIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     awssdk.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query account holder %s: %w", accountHolderID, err)
	}
	if len(out.Items) == 0 {
		return nil, ErrNotFound
	}

	var record models.MerchantOnboardingRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &record); err != nil {
		return nil, fmt.Errorf("unmarshal account holder %s: %w", accountHolderID, err)
	}
	return &record, nil
}
