package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/spacesedan/sentilyst/internal/models"
)

const ANALYZED_DATA_TABLE_NAME = "AnalyzedData"

// DynamoAPI is the subset of *dynamodb.Client the store needs.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore keeps analysis history keyed by user_id (partition) and a
// time-ordered UUIDv7 id (sort), so a descending query is newest first.
type DynamoStore struct {
	client DynamoAPI
	table  string
}

func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	if table == "" {
		table = ANALYZED_DATA_TABLE_NAME
	}
	return &DynamoStore{client: client, table: table}
}

func (s *DynamoStore) SaveAnalysis(ctx context.Context, record models.AnalysisRecord) error {
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("[DynamoDB] generate id: %w", err)
		}
		record.ID = id.String()
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("[DynamoDB] marshal analysis: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] put analysis: %w", err)
	}

	slog.Debug("[DynamoDB] Saved analysis",
		slog.String("table", s.table),
		slog.String("id", record.ID))
	return nil
}

func (s *DynamoStore) ListAnalyses(ctx context.Context, userID string) ([]models.AnalysisRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	}

	var records []models.AnalysisRecord
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] query analyses: %w", err)
		}

		var page []models.AnalysisRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			slog.Error("[DynamoDB] Unable to unmarshal analysis page", slog.String("error", err.Error()))
			return nil, err
		}
		records = append(records, page...)
	}

	return records, nil
}

func (s *DynamoStore) DeleteAnalysis(ctx context.Context, userID, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
			"id":      &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression: aws.String("attribute_exists(id)"),
	})

	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return ErrAnalysisNotFound
	}
	if err != nil {
		return fmt.Errorf("[DynamoDB] delete analysis: %w", err)
	}
	return nil
}
