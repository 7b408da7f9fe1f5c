package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/kontiq/kontiq/internal/pkg/env"
)

// ReceiptStore uploads transaction receipts to an S3-compatible bucket.
type ReceiptStore struct {
	s3Client *s3.Client
	bucket   string
	baseURL  string
}

var receiptStore *ReceiptStore

// NewReceiptStoreFromEnv builds the store from S3_* environment variables.
// Works against AWS as well as S3-compatible providers like MinIO or B2.
func NewReceiptStoreFromEnv() (*ReceiptStore, error) {
	bucket := env.GetEnv("S3_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is not configured")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(env.GetEnv("S3_REGION", "us-east-1")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			env.GetEnv("S3_ACCESS_KEY_ID", ""),
			env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := env.GetEnv("S3_ENDPOINT_URL", "")
	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// S3-compatible providers need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	store := &ReceiptStore{
		s3Client: s3Client,
		bucket:   bucket,
		baseURL:  strings.TrimRight(env.GetEnv("S3_PUBLIC_URL", ""), "/"),
	}

	log.Infof("[Receipts] Initialized S3 client for bucket: %s", bucket)
	return store, nil
}

// SetupReceiptStore initializes the package-level store. Upload attempts
// fail gracefully when S3 is not configured.
func SetupReceiptStore() {
	store, err := NewReceiptStoreFromEnv()
	if err != nil {
		log.Warnf("[Receipts] Receipt uploads disabled: %v", err)
		return
	}
	receiptStore = store
}

func GetReceiptStore() *ReceiptStore {
	return receiptStore
}

// Upload stores a receipt under receipts/<org>/<uuid><ext> and returns the
// object URL.
func (s *ReceiptStore) Upload(ctx context.Context, orgID, filename string, body io.Reader, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	objectKey := fmt.Sprintf("receipts/%s/%s%s", orgID, uuid.NewString(), ext)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          body,
		ContentType:   aws.String(receiptContentType(ext)),
		ContentLength: aws.Int64(size),
		Metadata: map[string]string{
			"original-filename": filename,
			"uploaded-at":       time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt to S3: %w", err)
	}

	log.Infof("[Receipts] Successfully uploaded: s3://%s/%s", s.bucket, objectKey)

	if s.baseURL != "" {
		return s.baseURL + "/" + objectKey, nil
	}
	return objectKey, nil
}

// Delete removes a receipt object.
func (s *ReceiptStore) Delete(ctx context.Context, objectKey string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete receipt from S3: %w", err)
	}
	return nil
}

func receiptContentType(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
