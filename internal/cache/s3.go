package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures the object-store backend. Endpoint may carry an
// http/https scheme; the scheme wins over UseSSL when present.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	ObjectKey       string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// S3Backend keeps the snapshot document as a single object. Whole-object GET
// on load, whole-object PUT on every mutation, the same snapshot semantics as
// the file backend, usable when several instances share storage (last writer
// wins, which the cache contract accepts).
type S3Backend struct {
	client *minio.Client
	bucket string
	key    string
}

func NewS3Backend(cfg S3Config) (*S3Backend, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	key := strings.TrimSpace(cfg.ObjectKey)
	if key == "" {
		key = "askdb/translations.json"
	}

	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Backend{client: client, bucket: strings.TrimSpace(cfg.Bucket), key: key}, nil
}

func (b *S3Backend) Load() ([]byte, error) {
	obj, err := b.client.GetObject(context.Background(), b.bucket, b.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get cache object: %w", err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isMissingObject(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache object: %w", err)
	}
	return data, nil
}

func (b *S3Backend) Save(data []byte) error {
	_, err := b.client.PutObject(
		context.Background(), b.bucket, b.key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("put cache object: %w", err)
	}
	return nil
}

func (b *S3Backend) Clear() error {
	err := b.client.RemoveObject(context.Background(), b.bucket, b.key, minio.RemoveObjectOptions{})
	if err != nil && !isMissingObject(err) {
		return fmt.Errorf("remove cache object: %w", err)
	}
	return nil
}

func (b *S3Backend) Location() string {
	return "s3://" + b.bucket + "/" + b.key
}

func isMissingObject(err error) bool {
	response := minio.ToErrorResponse(err)
	return response.Code == "NoSuchKey" || response.Code == "NoSuchBucket"
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("s3 endpoint is required")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", false, fmt.Errorf("parse endpoint URL: %w", err)
		}
		if parsed.Host == "" {
			return "", false, fmt.Errorf("endpoint host is required")
		}
		if parsed.Scheme == "https" {
			return parsed.Host, true, nil
		}
		return parsed.Host, useSSL, nil
	}
	return raw, useSSL, nil
}
