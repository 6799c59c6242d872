// Package ddb provides a simple repository for writing download audit records to DynamoDB.
package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Putter is the subset of the DynamoDB client the repo needs.
type Putter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Repo wraps a DynamoDB client and table name for audit records.
type Repo struct {
	DB    Putter
	Table string
}

// Record inserts a download record. Grant ids are unique, so an existing
// item with the same keys is a conflict rather than an update.
func (r *Repo) Record(ctx context.Context, rec models.DownloadRecord) error {
	if rec.PK == "" || rec.SK == "" {
		rec.PK, rec.SK = MakeKeys(rec.ObjectKey, rec.GrantID)
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("ddb put %s: %w", rec.GrantID, err)
	}
	return nil
}

// awsStr is a helper to get a pointer to a string literal.
func awsStr(s string) *string { return &s }

// ISO formats t as UTC ISO8601.
func ISO(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// MakeKeys constructs the partition key (PK) and sort key (SK) for a download record.
func MakeKeys(objectKey, grantID string) (pk, sk string) {
	return fmt.Sprintf("OBJECT#%s", objectKey), fmt.Sprintf("GRANT#%s", grantID)
}
