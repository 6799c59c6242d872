package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// HeadAPI is the subset of the S3 client used for existence checks.
type HeadAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Backend presigns GetObject URLs for one bucket.
type S3Backend struct {
	Client    HeadAPI
	Presigner Presigner
	Bucket    string
	Region    string
}

// NewS3 builds a backend from an S3 client.
func NewS3(c *s3.Client, bucket, region string) *S3Backend {
	return &S3Backend{Client: c, Presigner: s3.NewPresignClient(c), Bucket: bucket, Region: region}
}

// Target implements Backend.
func (b *S3Backend) Target() Target {
	return Target{Provider: "s3", Account: "s3:" + b.Region, Container: b.Bucket}
}

// Exists implements Backend with a HeadObject request.
func (b *S3Backend) Exists(ctx context.Context, key ObjectKey) (bool, error) {
	_, err := b.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(string(key)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3: head %s/%s: %w", b.Bucket, key, err)
}

// Check implements Store with a HeadBucket request.
func (b *S3Backend) Check(ctx context.Context) error {
	_, err := b.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.Bucket)})
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return fmt.Errorf("s3: bucket %s not found", b.Bucket)
	default:
		return fmt.Errorf("s3: head bucket %s: %w", b.Bucket, err)
	}
}

// Sign implements Backend.
func (b *S3Backend) Sign(ctx context.Context, req SignRequest) (string, error) {
	ttl := req.Expiry.Sub(req.Start)
	out, err := b.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:               aws.String(b.Bucket),
		Key:                  aws.String(string(req.Key)),
		ResponseCacheControl: aws.String(grantCacheControl(req.GrantID)),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", fmt.Errorf("s3: presign %s/%s: %w", b.Bucket, req.Key, err)
	}
	return out.URL, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey")
}
