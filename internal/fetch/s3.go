// internal/fetch/s3.go
// S3 fetcher for s3://bucket/key URIs. It supports both AWS S3 and
// S3-compatible services like MinIO via a custom endpoint.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Fetcher retrieves link targets stored in S3-compatible object storage.
type S3Fetcher struct {
	client *s3.Client
}

// NewS3Fetcher creates an S3 fetcher.
// Parameters:
//   - endpoint: S3 service endpoint URL (empty for AWS S3)
//   - region: AWS region (or equivalent for S3-compatible services)
//   - accessKey, secretKey: static credentials; empty falls back to the
//     default credential chain
func NewS3Fetcher(ctx context.Context, endpoint, region, accessKey, secretKey string) (*S3Fetcher, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}
	if accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     accessKey,
					SecretAccessKey: secretKey,
				}, nil
			})))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // required for MinIO and other S3-compatible services
	})

	return &S3Fetcher{client: client}, nil
}

// Fetch implements Fetcher for s3://bucket/key URIs.
func (f *S3Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return body, nil
}

// splitS3URI splits s3://bucket/key into bucket and key.
func splitS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3 URI: %s", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 URI without object key: %s", uri)
	}
	return u.Host, key, nil
}
