package integrations

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client exports signed offline bundles so check-in devices can
// download them over a presigned URL instead of holding an API
// connection open.
type S3Client struct {
	bucket        string
	endpoint      string
	client        *s3.Client
	publicPresign *s3.PresignClient
}

const bundleURLTTL = 15 * time.Minute

// NewS3 creates s3.
func NewS3(ctx context.Context, cfg config.S3Config) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	endpoint := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	publicEndpoint := normalizeEndpoint(cfg.PublicEndpoint, cfg.UseSSL)
	if publicEndpoint == "" {
		publicEndpoint = endpoint
	}

	options := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if endpoint != "" {
		options.BaseEndpoint = aws.String(endpoint)
	}

	client := s3.New(options)
	publicPresign := s3.NewPresignClient(client)
	if publicEndpoint != "" && publicEndpoint != endpoint {
		publicOptions := options
		publicOptions.BaseEndpoint = aws.String(publicEndpoint)
		publicPresign = s3.NewPresignClient(s3.New(publicOptions))
	}

	return &S3Client{
		bucket:        cfg.Bucket,
		endpoint:      endpoint,
		client:        client,
		publicPresign: publicPresign,
	}, nil
}

// UploadBundle stores a serialized offline bundle and returns a
// presigned download URL valid for 15 minutes.
func (s *S3Client) UploadBundle(ctx context.Context, cacheID string, body []byte) (string, error) {
	key := bundleObjectKey(cacheID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", err
	}

	resp, err := s.publicPresign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = bundleURLTTL
	})
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// DeleteBundle removes an exported bundle once its cache expires.
func (s *S3Client) DeleteBundle(ctx context.Context, cacheID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(bundleObjectKey(cacheID)),
	})
	return err
}

func bundleObjectKey(cacheID string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("offline-bundles/%d/%02d/%s.json", now.Year(), now.Month(), cacheID)
}

// normalizeEndpoint normalizes endpoint.
func normalizeEndpoint(endpoint string, useSSL bool) string {
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http") {
		return endpoint
	}
	scheme := "https"
	if !useSSL {
		scheme = "http"
	}
	return scheme + "://" + endpoint
}
