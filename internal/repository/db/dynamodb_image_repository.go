package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
)

// batchWriteLimit is the maximum number of items DynamoDB accepts per BatchWriteItem.
const batchWriteLimit = 25

const maxUnprocessedRetries = 5

// DynamoImageRepository manages DynamoDB interactions for ImageRecord.
type DynamoImageRepository struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoImageRepository initializes a new DynamoImageRepository.
func NewDynamoImageRepository(client *dynamodb.Client, tableName string) *DynamoImageRepository {
	return &DynamoImageRepository{
		client:    client,
		tableName: tableName,
	}
}

// ListImages returns image records ordered by id. A property filter becomes a Query on
// the partition key, otherwise the whole table is scanned.
func (repo *DynamoImageRepository) ListImages(ctx context.Context, filter domain.ImageFilter) ([]domain.ImageRecord, error) {
	var records []domain.ImageRecord

	if filter.PropertyID != nil {
		paginator := dynamodb.NewQueryPaginator(repo.client, &dynamodb.QueryInput{
			TableName:              aws.String(repo.tableName),
			KeyConditionExpression: aws.String("#pid = :pid"),
			ExpressionAttributeNames: map[string]string{
				"#pid": "property_id",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pid": &types.AttributeValueMemberN{Value: strconv.FormatInt(*filter.PropertyID, 10)},
			},
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to query images by property: %w", err)
			}
			if records, err = appendRecords(records, page.Items); err != nil {
				return nil, err
			}
		}
	} else {
		paginator := dynamodb.NewScanPaginator(repo.client, &dynamodb.ScanInput{
			TableName: aws.String(repo.tableName),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to scan images: %w", err)
			}
			if records, err = appendRecords(records, page.Items); err != nil {
				return nil, err
			}
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func appendRecords(records []domain.ImageRecord, items []map[string]types.AttributeValue) ([]domain.ImageRecord, error) {
	for _, item := range items {
		var record domain.ImageRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal image record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// UpdateImageKey writes the record's storage key and URL. The record must already exist.
func (repo *DynamoImageRepository) UpdateImageKey(ctx context.Context, record domain.ImageRecord) error {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(repo.tableName),
		Key: map[string]types.AttributeValue{
			"property_id": &types.AttributeValueMemberN{Value: strconv.FormatInt(record.PropertyID, 10)},
			"id":          &types.AttributeValueMemberN{Value: strconv.FormatInt(record.ID, 10)},
		},
		UpdateExpression:    aws.String("SET s3_key = :key, #url = :url"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#url": "url",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: record.StorageKey},
			":url": &types.AttributeValueMemberS{Value: record.PublicURL},
		},
	}

	if _, err := repo.client.UpdateItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: id %d", apperrors.ErrRecordNotFound, record.ID)
		}
		return fmt.Errorf("failed to update image record %d: %w", record.ID, err)
	}
	return nil
}

// BulkInsertImages writes records in batches, resubmitting unprocessed items with a
// short linear backoff.
func (repo *DynamoImageRepository) BulkInsertImages(ctx context.Context, records []domain.ImageRecord) (int64, error) {
	var written int64
	for _, batch := range chunkRecords(records, batchWriteLimit) {
		requests := make([]types.WriteRequest, 0, len(batch))
		for _, record := range batch {
			item, err := attributevalue.MarshalMap(record)
			if err != nil {
				return written, fmt.Errorf("failed to marshal image record %d: %w", record.ID, err)
			}
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}

		pending := map[string][]types.WriteRequest{repo.tableName: requests}
		for attempt := 0; len(pending[repo.tableName]) > 0; attempt++ {
			if attempt > maxUnprocessedRetries {
				return written, fmt.Errorf("failed to write %d image records after %d attempts", len(pending[repo.tableName]), attempt)
			}
			if attempt > 0 {
				log.Debugf("Retrying %d unprocessed image records", len(pending[repo.tableName]))
				time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
			}

			out, err := repo.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return written, fmt.Errorf("failed to batch write image records: %w", err)
			}
			written += int64(len(pending[repo.tableName]) - len(out.UnprocessedItems[repo.tableName]))
			pending = out.UnprocessedItems
		}
	}
	return written, nil
}

func chunkRecords(records []domain.ImageRecord, size int) [][]domain.ImageRecord {
	var chunks [][]domain.ImageRecord
	for size < len(records) {
		records, chunks = records[size:], append(chunks, records[:size])
	}
	if len(records) > 0 {
		chunks = append(chunks, records)
	}
	return chunks
}
