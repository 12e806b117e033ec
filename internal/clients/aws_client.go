package clients

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

var (
	awsCfg  aws.Config
	awsErr  error
	awsOnce sync.Once
)

// GetAWSConfig loads the default credential chain once for region.
func GetAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	awsOnce.Do(func() {
		slog.Info("[AWSClient] Initializing AWS Config...", slog.String("region", region))
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			awsErr = fmt.Errorf("[AWSClient] failed to load AWS config: %w", err)
			return
		}
		awsCfg = cfg
		slog.Info("[AWSClient] AWS Config Initialized")
	})

	return awsCfg, awsErr
}

// GetDynamoDBClient builds a client; a non-empty endpoint points it at
// DynamoDB Local or another compatible server.
func GetDynamoDBClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := GetAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}
