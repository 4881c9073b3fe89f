// Package repository provides the DynamoDB-backed rate-limit store used when
// several instances must share one counter (e.g. Lambda).
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Items expire well after the window ends; the table's TTL sweep handles
// eviction so stale client IPs never accumulate.
const ttlSlack = time.Hour

// dynamodbAPI is the minimal DynamoDB interface required by Store.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Store counts hits per client key in a DynamoDB table with an atomic ADD,
// starting a fresh window when the previous one has expired.
type Store struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new rate-limit Store.
func New(api dynamodbAPI, tableName string) (*Store, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Store{api: api, tableName: tableName}, nil
}

func ratePK(key string) string {
	return "RATE#" + key
}

// Hit increments the counter for key inside its current window. The first
// attempt is a conditional ADD against a live window; when the condition
// fails the window is replaced, and a lost replace race falls back to one
// more ADD against the window the winner created.
func (s *Store) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	count, reset, err := s.increment(ctx, key, now)
	if err == nil {
		return count, reset, nil
	}
	if !isConditionalCheckFailed(err) {
		return 0, time.Time{}, fmt.Errorf("repository: Hit increment: %w", err)
	}

	reset = now.Add(window)
	if err := s.startWindow(ctx, key, now, reset); err == nil {
		return 1, reset, nil
	} else if !isConditionalCheckFailed(err) {
		return 0, time.Time{}, fmt.Errorf("repository: Hit start window: %w", err)
	}

	count, reset, err = s.increment(ctx, key, now)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("repository: Hit increment after race: %w", err)
	}
	return count, reset, nil
}

// increment adds one hit to an existing, unexpired window and returns the new
// state. Fails the condition when no live window exists.
func (s *Store) increment(ctx context.Context, key string, now time.Time) (int, time.Time, error) {
	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: ratePK(key)}},
		UpdateExpression:    aws.String("ADD hits :one"),
		ConditionExpression: aws.String("attribute_exists(PK) AND windowReset > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":now": &types.AttributeValueMemberN{Value: millisAttr(now)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return 0, time.Time{}, err
	}

	count, err := intAttr(out.Attributes, "hits")
	if err != nil {
		return 0, time.Time{}, err
	}
	resetMillis, err := int64Attr(out.Attributes, "windowReset")
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, time.UnixMilli(resetMillis), nil
}

// startWindow replaces an absent or expired window with a fresh one counting
// this hit.
func (s *Store) startWindow(ctx context.Context, key string, now, reset time.Time) error {
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":          &types.AttributeValueMemberS{Value: ratePK(key)},
			"hits":        &types.AttributeValueMemberN{Value: "1"},
			"windowReset": &types.AttributeValueMemberN{Value: millisAttr(reset)},
			"ttl":         &types.AttributeValueMemberN{Value: strconv.FormatInt(reset.Add(ttlSlack).Unix(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) OR windowReset <= :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: millisAttr(now)},
		},
	})
	return err
}

func isConditionalCheckFailed(err error) bool {
	var cond *types.ConditionalCheckFailedException
	return errors.As(err, &cond)
}

func millisAttr(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	n, err := int64Attr(item, key)
	return int(n), err
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
