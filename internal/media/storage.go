package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage writes fetched media bytes somewhere durable and returns the
// relative public path the marketplace serves it from.
type Storage interface {
	Put(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// LocalStorage writes media under a directory served as /uploads.
type LocalStorage struct {
	Dir string
}

func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{Dir: dir}
}

var _ Storage = (*LocalStorage)(nil)

func (s *LocalStorage) Put(_ context.Context, filename, _ string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("media: create uploads dir: %w", err)
	}
	path := filepath.Join(s.Dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("media: write file: %w", err)
	}
	return "/uploads/" + filename, nil
}

type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage writes media to an S3 bucket under a key prefix. The object key
// doubles as the public path when the bucket fronts a CDN or static site.
type S3Storage struct {
	client s3Putter
	bucket string
	prefix string
}

func NewS3Storage(client *s3.Client, bucket, prefix string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

var _ Storage = (*S3Storage)(nil)

func (s *S3Storage) Put(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	key := filename
	if s.prefix != "" {
		key = s.prefix + "/" + filename
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("media: s3 put %s: %w", key, err)
	}
	return "/" + key, nil
}
