package repo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/eventpass/server/internal/model"
)

// Single-table layout. Profiles live under PROFILE#<id>/PROFILE and are reachable through
// the short_id and email global secondary indexes; challenges live under AUTH#<email>/AUTH_CHALLENGE.
const (
	profileKeyPrefix = "PROFILE#"
	profileSortKey   = "PROFILE"

	ShortIDIndex = "short_id-index"
	EmailIndex   = "email-index"
)

// DynamoAPI is the subset of the DynamoDB client used by the single-table repos.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type dynamoAccountItem struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	ID      string `dynamodbav:"id"`
	ShortID string `dynamodbav:"short_id"`
	PIN     int    `dynamodbav:"pin,omitempty"`
	Email   string `dynamodbav:"email,omitempty"`
	Phone   string `dynamodbav:"phone,omitempty"`
	Name    string `dynamodbav:"name,omitempty"`
}

func (i dynamoAccountItem) toModel() model.Account {
	a := model.Account{
		ID:      i.ID,
		ShortID: i.ShortID,
		Email:   i.Email,
		Phone:   i.Phone,
		Name:    i.Name,
	}
	if a.ID == "" {
		a.ID = strings.TrimPrefix(i.PK, profileKeyPrefix)
	}
	if i.PIN != 0 {
		a.PIN = strconv.Itoa(i.PIN)
	}
	return a
}

// DynamoAccountRepo reads profiles from the single table.
type DynamoAccountRepo struct {
	client DynamoAPI
	table  string
}

// NewDynamoAccountRepo creates a DynamoDB-backed AccountRepo.
func NewDynamoAccountRepo(client DynamoAPI, table string) *DynamoAccountRepo {
	return &DynamoAccountRepo{client: client, table: table}
}

// GetByID retrieves a profile by its internal ID.
func (r *DynamoAccountRepo) GetByID(ctx context.Context, id string) (model.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: profileKeyPrefix + id},
			"SK": &types.AttributeValueMemberS{Value: profileSortKey},
		},
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("get profile: %w", err)
	}
	if len(out.Item) == 0 {
		return model.Account{}, fmt.Errorf("account: %w", ErrNotFound)
	}
	var item dynamoAccountItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return model.Account{}, fmt.Errorf("decode profile: %w", err)
	}
	return item.toModel(), nil
}

// GetByShortID resolves a public short identifier through the short_id index.
func (r *DynamoAccountRepo) GetByShortID(ctx context.Context, shortID string) (model.Account, error) {
	return r.queryIndex(ctx, ShortIDIndex, "short_id", shortID)
}

// GetByEmail resolves a contact email through the email index.
func (r *DynamoAccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.queryIndex(ctx, EmailIndex, "email", email)
}

func (r *DynamoAccountRepo) queryIndex(ctx context.Context, index, attr, value string) (model.Account, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.table),
		IndexName:                aws.String(index),
		KeyConditionExpression:   aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("query %s: %w", index, err)
	}
	if len(out.Items) == 0 {
		return model.Account{}, fmt.Errorf("account: %w", ErrNotFound)
	}
	var item dynamoAccountItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return model.Account{}, fmt.Errorf("decode profile: %w", err)
	}
	return item.toModel(), nil
}

type dynamoChallengeItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Token      string `dynamodbav:"token"`
	Expiration string `dynamodbav:"expiration"`
	CreatedAt  string `dynamodbav:"created_at"`
	TTL        int64  `dynamodbav:"ttl"`
}

// DynamoChallengeStore stores challenge records in the single table. The table's TTL
// attribute is ttl, so DynamoDB performs the physical expiry sweep.
type DynamoChallengeStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoChallengeStore creates a DynamoDB-backed ChallengeStore.
func NewDynamoChallengeStore(client DynamoAPI, table string) *DynamoChallengeStore {
	return &DynamoChallengeStore{client: client, table: table}
}

// Put writes the record without a condition expression; the last writer wins.
func (s *DynamoChallengeStore) Put(ctx context.Context, record model.ChallengeRecord) error {
	item, err := attributevalue.MarshalMap(dynamoChallengeItem{
		PK:         record.PartitionKey(),
		SK:         model.ChallengeSortKey,
		Token:      record.Token,
		Expiration: model.FormatTimestamp(record.Expiration),
		CreatedAt:  model.FormatTimestamp(record.CreatedAt),
		TTL:        record.TTL,
	})
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put challenge: %w", err)
	}
	return nil
}

// Get reads the record for email with a strongly consistent read.
func (s *DynamoChallengeStore) Get(ctx context.Context, email string) (model.ChallengeRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: model.ChallengePartitionKey(email)},
			"SK": &types.AttributeValueMemberS{Value: model.ChallengeSortKey},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return model.ChallengeRecord{}, fmt.Errorf("get challenge: %w", err)
	}
	if len(out.Item) == 0 {
		return model.ChallengeRecord{}, fmt.Errorf("challenge: %w", ErrNotFound)
	}

	var item dynamoChallengeItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return model.ChallengeRecord{}, fmt.Errorf("decode challenge: %w", err)
	}
	expiration, err := model.ParseTimestamp(item.Expiration)
	if err != nil {
		return model.ChallengeRecord{}, fmt.Errorf("decode challenge expiration: %w", err)
	}
	createdAt, err := model.ParseTimestamp(item.CreatedAt)
	if err != nil {
		return model.ChallengeRecord{}, fmt.Errorf("decode challenge created_at: %w", err)
	}
	return model.ChallengeRecord{
		Email:      strings.TrimPrefix(item.PK, model.ChallengeKeyPrefix),
		Token:      item.Token,
		Expiration: expiration,
		CreatedAt:  createdAt,
		TTL:        item.TTL,
	}, nil
}
