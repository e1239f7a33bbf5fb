package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config contains the information required to talk to an object store.
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// AccessGrant is a time-boxed, read-only delegated URL for one object.
// NotBefore is backdated by the issuer's clock-skew margin so the grant is
// valid immediately on return even against a drifting consumer clock.
type AccessGrant struct {
	URL       string
	NotBefore time.Time
	ExpiresAt time.Time
}

// Valid reports whether the grant covers the given instant.
func (g AccessGrant) Valid(now time.Time) bool {
	return !now.Before(g.NotBefore) && !now.After(g.ExpiresAt)
}

// Client represents the storage capabilities the pipeline expects.
type Client interface {
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Download(ctx context.Context, key, destPath string) error
	IssueReadURL(ctx context.Context, key string, validFor, clockSkew time.Duration) (AccessGrant, error)
	Close() error
}

// New creates a blob store client based on the given configuration.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "minio", "s3":
		return newMinioClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported blob store provider: %s", cfg.Provider)
	}
}

type minioClient struct {
	client *minio.Client
	bucket string
}

func newMinioClient(cfg Config) (Client, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &minioClient{client: cl, bucket: cfg.Bucket}, nil
}

func (m *minioClient) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat object %s: %w", key, err)
	}
	return ObjectInfo{Key: key, Size: info.Size}, nil
}

func (m *minioClient) Download(ctx context.Context, key, destPath string) error {
	if err := m.client.FGetObject(ctx, m.bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download object %s: %w", key, err)
	}
	return nil
}

func (m *minioClient) IssueReadURL(ctx context.Context, key string, validFor, clockSkew time.Duration) (AccessGrant, error) {
	now := time.Now().UTC()
	signed, err := m.client.PresignedGetObject(ctx, m.bucket, key, validFor, nil)
	if err != nil {
		return AccessGrant{}, fmt.Errorf("presign read url for %s: %w", key, err)
	}
	return AccessGrant{
		URL:       signed.String(),
		NotBefore: now.Add(-clockSkew),
		ExpiresAt: now.Add(validFor),
	}, nil
}

func (m *minioClient) Close() error {
	return nil
}
