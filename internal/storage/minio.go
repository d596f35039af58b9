// Package storage wraps the S3-compatible object store used for
// attachment blobs. Clients upload directly with presigned URLs; the API
// only brokers keys and URLs.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mkondo/notes-api/internal/config"
)

// PresignTTL bounds how long a presigned upload URL stays valid.
const PresignTTL = 15 * time.Minute

// Client is a thin wrapper over minio for attachment blobs.
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

// New connects to the object store and ensures the bucket exists.
func New(cfg config.Config) (*Client, error) {
	mc, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: cfg.StorageUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := mc.BucketExists(ctx, cfg.StorageBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.StorageBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Client{mc: mc, bucket: cfg.StorageBucket, publicURL: strings.TrimRight(cfg.StoragePublicURL, "/")}, nil
}

// NewObjectKey returns a fresh storage key for an upload, preserving the
// original file extension so content sniffing downstream stays sane.
func NewObjectKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return "attachments/" + uuid.NewString() + ext
}

// PresignUpload returns a presigned PUT URL for the given key.
func (c *Client) PresignUpload(ctx context.Context, key string) (string, error) {
	u, err := c.mc.PresignedPutObject(ctx, c.bucket, key, PresignTTL)
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}
	return u.String(), nil
}

// Remove deletes the object for the given key. Missing objects are not an
// error; detach must stay idempotent against partially failed uploads.
func (c *Client) Remove(ctx context.Context, key string) error {
	err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// ObjectURL returns the externally reachable URL for a stored object.
func (c *Client) ObjectURL(key string) string {
	if c.publicURL == "" {
		return ""
	}
	return c.publicURL + "/" + url.PathEscape(c.bucket) + "/" + key
}
