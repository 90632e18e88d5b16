package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the staging bucket.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // custom endpoint (MinIO, LocalStack)
	Prefix   string
}

// S3Stager stages documents in an S3 bucket under Prefix.
type S3Stager struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Stager(ctx context.Context, cfg S3Config) (*S3Stager, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Stager{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Stager) objectKey(key string) string {
	return s.prefix + key
}

func (s *S3Stager) Put(ctx context.Context, draftID string, slot int, obj Object) (string, error) {
	if err := check(obj); err != nil {
		return "", err
	}
	key := StagingKey(draftID, slot)
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(obj.Data),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"filename": obj.Name},
	})
	if err != nil {
		return "", fmt.Errorf("s3 put failed for %s: %w", key, err)
	}
	return key, nil
}

func (s *S3Stager) Get(ctx context.Context, key string) (Object, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return Object{}, ErrNotFound
		}
		return Object{}, fmt.Errorf("s3 get failed for %s: %w", key, err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return Object{}, fmt.Errorf("read %s: %w", key, err)
	}
	return Object{
		Name:        result.Metadata["filename"],
		ContentType: aws.ToString(result.ContentType),
		Data:        data,
	}, nil
}

func (s *S3Stager) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed for %s: %w", key, err)
	}
	return nil
}
