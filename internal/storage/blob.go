package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/collabkit/ticketdesk/internal/config"
)

// BlobStore is the external file-storage contract. List exists so an upload
// can be verified before its metadata is recorded.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, path string) error
	List(ctx context.Context, dirPrefix string) ([]string, error)
}

// restBlobStore talks to a storage REST endpoint (bucket-scoped object API).
type restBlobStore struct {
	client *resty.Client
	bucket string
	logger *zap.Logger
}

// NewBlobStore builds the REST adapter. Without a base URL it returns a
// disabled store whose calls fail loudly; only blob operations fail, the
// service still boots.
func NewBlobStore(cfg config.StorageConfig, logger *zap.Logger) BlobStore {
	if cfg.BaseURL == "" {
		logger.Warn("blob storage not configured; file uploads disabled")
		return &restBlobStore{bucket: cfg.Bucket, logger: logger}
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Authorization", "Bearer "+cfg.Token)

	return &restBlobStore{client: client, bucket: cfg.Bucket, logger: logger}
}

func (s *restBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("blob storage not configured")
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Post(fmt.Sprintf("/object/%s/%s", s.bucket, path))
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("blob upload returned %s", resp.Status())
	}
	return fmt.Sprintf("%s/object/public/%s/%s", s.client.BaseURL, s.bucket, path), nil
}

func (s *restBlobStore) Remove(ctx context.Context, path string) error {
	if s.client == nil {
		return fmt.Errorf("blob storage not configured")
	}
	resp, err := s.client.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/object/%s/%s", s.bucket, path))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("blob remove returned %s", resp.Status())
	}
	return nil
}

func (s *restBlobStore) List(ctx context.Context, dirPrefix string) ([]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("blob storage not configured")
	}
	var entries []struct {
		Name string `json:"name"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"prefix": dirPrefix}).
		SetResult(&entries).
		Post(fmt.Sprintf("/object/list/%s", s.bucket))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("blob list returned %s", resp.Status())
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	return names, nil
}
