// Package storage keeps generated documents (receipts) on durable storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"tuitionhub_backend/internals/configs"
)

var ErrNotFound = errors.New("storage: object not found")

// BlobStore writes and reads opaque documents addressed by key. Put returns
// the handle persisted alongside the owning row.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
}

// NewFromConfig picks the backend configured by RECEIPT_STORAGE.
func NewFromConfig(ctx context.Context, cfg configs.BillingConfig) (BlobStore, error) {
	switch strings.ToLower(cfg.ReceiptStorage) {
	case "", "local":
		return NewLocalStore(cfg.ReceiptDir)
	case "oss":
		return NewOSSStoreFromEnv("receipts")
	case "s3":
		return NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint)
	}
	return nil, fmt.Errorf("unknown RECEIPT_STORAGE %q", cfg.ReceiptStorage)
}

func cleanKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return key, nil
}
