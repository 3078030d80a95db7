// Package objstore is an HTTP client for S3-compatible object storage.
// Uploaded payloads are intermediate artifacts: they exist only for the
// duration of one provider submission and are deleted afterwards.
package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/config"
	"github.com/yy0691/AI-Videos-Play/internal/transport"
)

const requestTimeout = 10 * time.Minute

// Client implements transport.ObjectStore against a presigned-style
// HTTP object storage endpoint.
type Client struct {
	logger     *slog.Logger
	endpoint   string
	bucket     string
	accessKey  string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates an object storage client from configuration. It
// returns an error when the endpoint or bucket is missing; callers that
// want storage to be optional should check cfg.Configured() first.
func NewClient(cfg config.StorageConfig, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("storage endpoint cannot be empty")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:     logger.With(slog.String("component", "objstore_client")),
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		bucket:     cfg.Bucket,
		accessKey:  cfg.AccessKey,
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

var _ transport.ObjectStore = (*Client)(nil)

// Upload implements transport.ObjectStore.Upload. Keys are random so
// concurrent submissions of the same video never collide.
func (c *Client) Upload(ctx context.Context, data []byte, mimeType string) (*transport.StoredObject, error) {
	key := uuid.New().String()
	url := c.objectURL(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", mimeType)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		return nil, fmt.Errorf("%w: upload: %v", transport.ErrStorageUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("upload rejected by storage",
			"status", resp.StatusCode,
			"key", key,
			"body", string(body))
		return nil, fmt.Errorf("%w: upload returned status %d", transport.ErrStorageUnavailable, resp.StatusCode)
	}

	c.logger.Info("payload uploaded", "key", key, "size_bytes", len(data))
	return &transport.StoredObject{URL: url, Key: key}, nil
}

// Delete implements transport.ObjectStore.Delete. Deleting an object
// that no longer exists is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(key), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: delete: %v", transport.ErrStorageUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return fmt.Errorf("%w: delete returned status %d", transport.ErrStorageUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, key)
}

func (c *Client) authorize(req *http.Request) {
	if c.accessKey != "" {
		req.SetBasicAuth(c.accessKey, c.secretKey)
	}
}
