package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants.
const (
	pkPrefix = "POST#"
	skMeta   = "META"
)

// dynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore implements PostStore using AWS DynamoDB.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
}

// Compile-time interface check.
var _ PostStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

func postPK(id string) string {
	return pkPrefix + id
}

// CreatePost writes the post with a conditional put so an ID collision
// fails instead of overwriting an existing post.
func (s *DynamoStore) CreatePost(ctx context.Context, post *Post) (*Post, error) {
	p := *post
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	item, err := attributevalue.MarshalMap(&p)
	if err != nil {
		return nil, fmt.Errorf("marshal post: %w", err)
	}
	pk := postPK(p.ID)
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: skMeta}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return nil, fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, skMeta, err)
	}

	log.Debug().Str("postId", p.ID).Str("table", s.tableName).Msg("Post written to DynamoDB")
	return &p, nil
}

// GetPost reads a single post. Returns nil, nil when it does not exist.
func (s *DynamoStore) GetPost(ctx context.Context, id string) (*Post, error) {
	pk := postPK(id)
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, skMeta, err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var p Post
	if err := attributevalue.UnmarshalMap(result.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal PK=%s: %w", pk, err)
	}
	p.ID = id
	return &p, nil
}

// ListPosts returns the newest posts. It is a full table Scan: every page is
// read and sorted in memory regardless of limit, so each call costs read
// capacity proportional to the whole table. Bounding it needs a GSI keyed
// on createdAt queried with ScanIndexForward=false and Limit.
func (s *DynamoStore) ListPosts(ctx context.Context, limit int) ([]*Post, error) {
	limit = ClampLimit(limit)

	input := &dynamodb.ScanInput{
		TableName:        &s.tableName,
		FilterExpression: aws.String("SK = :meta"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":meta": &types.AttributeValueMemberS{Value: skMeta},
		},
	}

	var posts []*Post
	for {
		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Scan table=%s: %w", s.tableName, err)
		}

		for _, item := range result.Items {
			var p Post
			if err := attributevalue.UnmarshalMap(item, &p); err != nil {
				log.Warn().Err(err).Msg("Skipping unreadable post item")
				continue
			}
			if pk, ok := item["PK"].(*types.AttributeValueMemberS); ok {
				p.ID = strings.TrimPrefix(pk.Value, pkPrefix)
			}
			posts = append(posts, &p)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sortNewestFirst(posts)
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func sortNewestFirst(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
