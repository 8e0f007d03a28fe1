package sheet

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoRow struct {
	SubmissionID string   `dynamodbav:"submissionId"`
	ReceivedAt   string   `dynamodbav:"receivedAt"`
	SubmittedAt  string   `dynamodbav:"submittedAt,omitempty"`
	Columns      []string `dynamodbav:"columns"`
	Values       []string `dynamodbav:"values"`
}

// DynamoAppender writes each row as an item keyed by submission id.
type DynamoAppender struct {
	client    dynamoAPI
	tableName string
}

// NewDynamoAppender builds an appender backed by the provided DynamoDB client.
func NewDynamoAppender(client dynamoAPI, tableName string) *DynamoAppender {
	if client == nil {
		panic("sheet: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("sheet: table name cannot be empty")
	}
	return &DynamoAppender{client: client, tableName: tableName}
}

func (d *DynamoAppender) Append(ctx context.Context, row Row) error {
	item, err := attributevalue.MarshalMap(dynamoRow{
		SubmissionID: row.ID,
		ReceivedAt:   row.ReceivedAt.UTC().Format(time.RFC3339Nano),
		SubmittedAt:  row.SubmittedAt,
		Columns:      row.Columns,
		Values:       row.Values,
	})
	if err != nil {
		return fmt.Errorf("sheet: marshal row: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(submissionId)"),
	})
	if err != nil {
		return fmt.Errorf("sheet: put row: %w", err)
	}
	return nil
}
