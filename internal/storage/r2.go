package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"transcoder/internal/config"
	"transcoder/internal/services"
)

// R2Store implements Store for Cloudflare R2.
type R2Store struct {
	client *s3.Client
	bucket string
}

// R2Endpoint returns the S3 API endpoint for a Cloudflare account.
func R2Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", strings.TrimSpace(accountID))
}

// NewR2 creates an R2 client with static credentials. An explicit endpoint
// replaces the account endpoint and switches to path-style addressing, which
// S3-compatible test servers expect.
func NewR2(ctx context.Context, cfg config.Storage) (*R2Store, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "r2", "R2 configuration incomplete", nil)
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	pathStyle := endpoint != ""
	if endpoint == "" {
		if strings.TrimSpace(cfg.AccountID) == "" {
			return nil, services.Wrap(services.ErrConfiguration, "storage", "r2", "R2 account id or endpoint is required", nil)
		}
		endpoint = R2Endpoint(cfg.AccountID)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = pathStyle
	})
	return &R2Store{client: client, bucket: cfg.Bucket}, nil
}

// Fetch streams the object at key. The caller closes the reader.
func (c *R2Store) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify("fetch", key, err)
	}
	return out.Body, nil
}

// Put uploads body to key with the given content type.
func (c *R2Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := c.client.PutObject(ctx, input); err != nil {
		return classify("put", key, err)
	}
	return nil
}

// Check verifies that the bucket is reachable with the configured credentials.
func (c *R2Store) Check(ctx context.Context) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return classify("check", c.bucket, err)
	}
	return nil
}

func classify(operation, key string, err error) error {
	message := fmt.Sprintf("%s %s", operation, key)
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return services.Wrap(services.ErrNotFound, "storage", operation, message, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return services.Wrap(services.ErrNotFound, "storage", operation, message, err)
		case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
			return services.Wrap(services.ErrTransient, "storage", operation, message, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "storage", operation, message, err)
	}
	return services.Wrap(services.ErrExternalTool, "storage", operation, message, err)
}
