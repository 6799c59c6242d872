// Package models defines the data models used in the application.
package models

// DownloadRecord is the audit record of one issued download grant.
type DownloadRecord struct {
	// DynamoDB keys
	PK string `dynamodbav:"PK"` // OBJECT#<key>
	SK string `dynamodbav:"SK"` // GRANT#<grantID> (ULID)

	GrantID   string `dynamodbav:"grant_id"`
	ObjectKey string `dynamodbav:"object_key"`
	Subject   string `dynamodbav:"subject"`
	Reason    string `dynamodbav:"reason"`
	Mode      string `dynamodbav:"mode"`
	Container string `dynamodbav:"container"`
	IssuedAt  string `dynamodbav:"issued_at"`  // ISO8601
	ExpiresAt string `dynamodbav:"expires_at"` // ISO8601
	RequestID string `dynamodbav:"request_id,omitempty"`
}
