// Package s3archive uploads serialized exports to an S3 bucket.
package s3archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/boddenberg/donations-ledger-go/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PutObjectAPI is the slice of the S3 client the archiver needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes exports under exports/<uuid>/<filename>.
type Archiver struct {
	client PutObjectAPI
	bucket string
}

// New loads the default AWS credential chain for region.
func New(ctx context.Context, bucket, region string) (*Archiver, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), bucket), nil
}

// NewWithClient builds an archiver around an existing client.
func NewWithClient(client PutObjectAPI, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

// Archive uploads body and returns its s3:// location.
func (a *Archiver) Archive(ctx context.Context, name, contentType string, body []byte) (string, error) {
	key := fmt.Sprintf("exports/%s/%s", uuid.New().String(), name)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", &domain.ErrStorage{Op: "archive_export", Err: err}
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
