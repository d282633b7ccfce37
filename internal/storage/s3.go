// Package storage keeps original upload payloads in S3 so the pipeline
// can re-derive content without asking the client to upload again.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore abstracts the blob backend for upload payloads.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type s3Store struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	presignTTL    time.Duration
}

// NewS3Store creates an ObjectStore backed by the given bucket.
func NewS3Store(client *s3.Client, bucketName string) ObjectStore {
	return &s3Store{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucketName:    bucketName,
		presignTTL:    15 * time.Minute,
	}
}

func (s *s3Store) Put(ctx context.Context, key, contentType string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to store object %s: %w", key, err)
	}
	return nil
}

// PresignGet generates a signed URL for the given storage path.
func (s *s3Store) PresignGet(ctx context.Context, key string) (string, error) {
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign GET for %s: %w", key, err)
	}
	return resp.URL, nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
