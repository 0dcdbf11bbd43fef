package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStore puts documents in an Aliyun OSS bucket.
type OSSStore struct {
	Bucket *oss.Bucket
	Prefix string
}

func getEnv(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func NewOSSStoreFromEnv(prefix string) (*OSSStore, error) {
	endpoint := getEnv("ALI_OSS_ENDPOINT")
	ak := getEnv("ALI_OSS_ACCESS_KEY")
	sk := getEnv("ALI_OSS_SECRET_KEY")
	sts := getEnv("ALI_OSS_SECURITY_TOKEN")
	bucketName := getEnv("ALI_OSS_BUCKET")
	if endpoint == "" || ak == "" || sk == "" || bucketName == "" {
		return nil, fmt.Errorf("missing env: ALI_OSS_ENDPOINT/ACCESS_KEY/SECRET_KEY/BUCKET")
	}

	var (
		client *oss.Client
		err    error
	)
	if sts != "" {
		client, err = oss.New(endpoint, ak, sk, oss.SecurityToken(sts))
	} else {
		client, err = oss.New(endpoint, ak, sk)
	}
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}

	bkt, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}
	log.Printf("[OSS] receipts bucket=%s prefix=%s", bucketName, prefix)

	return &OSSStore{Bucket: bkt, Prefix: strings.Trim(prefix, "/")}, nil
}

func (s *OSSStore) objectKey(key string) string {
	if s.Prefix == "" {
		return key
	}
	return s.Prefix + "/" + key
}

func (s *OSSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	full := s.objectKey(key)
	if err := s.Bucket.PutObject(full, bytes.NewReader(data),
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("inline"),
	); err != nil {
		return "", fmt.Errorf("oss put %s: %w", full, err)
	}
	return full, nil
}

func (s *OSSStore) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	rc, err := s.Bucket.GetObject(handle, oss.WithContext(ctx))
	if err != nil {
		if se, ok := err.(oss.ServiceError); ok && se.StatusCode == 404 {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("oss get %s: %w", handle, err)
	}
	return rc, nil
}
