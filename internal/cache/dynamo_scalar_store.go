package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/SkrapecMateja/ChargingStations/internal/models"
)

// DynamoDBClient defines the interface for the DynamoDB operations we need
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// scalarItem is one key-value entry in the scalar table.
type scalarItem struct {
	CacheKey string `dynamodbav:"cacheKey"`
	Value    string `dynamodbav:"value"`
}

// DynamoScalarStore keeps the last-updated timestamp and last-known
// location as individual key-value items in a DynamoDB table.
type DynamoScalarStore struct {
	client    DynamoDBClient
	tableName string
}

func NewDynamoScalarStore(client DynamoDBClient, tableName string) *DynamoScalarStore {
	return &DynamoScalarStore{
		client:    client,
		tableName: tableName,
	}
}

// NewDynamoClient creates a new DynamoDB client based on environment
func NewDynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	if endpoint := os.Getenv("DYNAMODB_ENDPOINT"); endpoint != "" {
		// Local development configuration
		log.Debug().Str("endpoint", endpoint).Msg("Using local DynamoDB endpoint")
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("local"))
		if err != nil {
			return nil, err
		}
		client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
		return client, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}

func (s *DynamoScalarStore) SaveLastUpdated(ctx context.Context, t time.Time) error {
	return s.putScalar(ctx, lastUpdatedKey, t.UTC().Format(time.RFC3339))
}

func (s *DynamoScalarStore) LastUpdated(ctx context.Context) (*time.Time, error) {
	value, err := s.getScalar(ctx, lastUpdatedKey)
	if err != nil || value == "" {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("parsing last updated: %w", err)
	}
	return &t, nil
}

func (s *DynamoScalarStore) SaveLastLocation(ctx context.Context, c models.Coordinate) error {
	if err := s.putScalar(ctx, lastLatitudeKey, formatFloat(c.Latitude)); err != nil {
		return err
	}
	return s.putScalar(ctx, lastLongitudeKey, formatFloat(c.Longitude))
}

func (s *DynamoScalarStore) LastKnownLocation(ctx context.Context) (*models.Coordinate, error) {
	latStr, err := s.getScalar(ctx, lastLatitudeKey)
	if err != nil {
		return nil, err
	}
	lonStr, err := s.getScalar(ctx, lastLongitudeKey)
	if err != nil {
		return nil, err
	}
	if latStr == "" || lonStr == "" {
		return nil, nil
	}

	var c models.Coordinate
	if _, err := fmt.Sscanf(latStr, "%g", &c.Latitude); err != nil {
		return nil, fmt.Errorf("parsing cached latitude: %w", err)
	}
	if _, err := fmt.Sscanf(lonStr, "%g", &c.Longitude); err != nil {
		return nil, fmt.Errorf("parsing cached longitude: %w", err)
	}
	return &c, nil
}

func (s *DynamoScalarStore) putScalar(ctx context.Context, key, value string) error {
	item, err := attributevalue.MarshalMap(scalarItem{CacheKey: key, Value: value})
	if err != nil {
		return fmt.Errorf("marshaling scalar item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("saving scalar to DynamoDB: %w", err)
	}
	return nil
}

// getScalar returns an empty string when the entry was never written.
func (s *DynamoScalarStore) getScalar(ctx context.Context, key string) (string, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"cacheKey": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return "", fmt.Errorf("getting scalar from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return "", nil
	}

	var item scalarItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return "", fmt.Errorf("unmarshaling scalar item: %w", err)
	}
	return item.Value, nil
}
