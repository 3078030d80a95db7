// Package remote is the HTTP client for the account sync service. The
// sync queue hands it video ids; it assembles the current local state of
// each video and pushes it upstream.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/domain"
	"github.com/yy0691/AI-Videos-Play/internal/store"
	"github.com/yy0691/AI-Videos-Play/internal/syncqueue"
)

const (
	pushTimeout  = 30 * time.Second
	probeTimeout = 5 * time.Second
)

// TokenSource supplies the bearer token for sync requests. An empty
// token means no session is active.
type TokenSource interface {
	Token(ctx context.Context) string
}

// Client implements syncqueue.RemoteStore and the connectivity half of
// syncqueue.Oracle against the sync service's JSON API.
type Client struct {
	logger     *slog.Logger
	baseURL    string
	tokens     TokenSource
	videos     store.VideoStore
	analyses   store.AnalysisStore
	httpClient *http.Client
}

// NewClient creates a sync service client.
func NewClient(baseURL string, tokens TokenSource, videos store.VideoStore, analyses store.AnalysisStore, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("sync service URL cannot be empty")
	}
	if tokens == nil {
		return nil, errors.New("token source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:     logger.With(slog.String("component", "sync_client")),
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		videos:     videos,
		analyses:   analyses,
		httpClient: &http.Client{Timeout: pushTimeout},
	}, nil
}

var _ syncqueue.RemoteStore = (*Client)(nil)

// pushPayload is the wire format for one synced video.
type pushPayload struct {
	Video    videoPayload     `json:"video"`
	Analyses []analysisRecord `json:"analyses"`
}

type videoPayload struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	SizeBytes  int64     `json:"sizeBytes"`
	DurationMS int64     `json:"durationMs"`
	MimeType   string    `json:"mimeType"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type analysisRecord struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Language  string    `json:"language,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Push implements syncqueue.RemoteStore.Push. A video deleted locally
// since it was enqueued is treated as synced and dropped. Authentication
// failures surface as syncqueue.ErrAuthRequired so the queue stops
// draining instead of retrying.
func (c *Client) Push(ctx context.Context, entityID uuid.UUID) error {
	token := c.tokens.Token(ctx)
	if token == "" {
		return syncqueue.ErrAuthRequired
	}

	video, err := c.videos.GetByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, store.ErrVideoNotFound) {
			c.logger.Info("skipping sync of deleted video", "video_id", entityID)
			return nil
		}
		return fmt.Errorf("failed to load video for sync: %w", err)
	}

	results, err := c.analyses.GetByVideo(ctx, entityID)
	if err != nil {
		return fmt.Errorf("failed to load analyses for sync: %w", err)
	}

	body, err := json.Marshal(buildPayload(video, results))
	if err != nil {
		return fmt.Errorf("failed to encode sync payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1/videos/%s", c.baseURL, entityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sync push failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Debug("video synced", "video_id", entityID, "analyses", len(results))
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: sync service returned status %d", syncqueue.ErrAuthRequired, resp.StatusCode)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sync service returned status %d: %s", resp.StatusCode, string(msg))
	}
}

// Online probes the sync service health endpoint. Any response at all,
// including an error status, means the service is reachable.
func (c *Client) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

func buildPayload(video *domain.Video, results []*domain.AnalysisResult) pushPayload {
	payload := pushPayload{
		Video: videoPayload{
			ID:         video.ID,
			Title:      video.Title,
			SizeBytes:  video.SizeBytes,
			DurationMS: video.Duration.Milliseconds(),
			MimeType:   video.MimeType,
			CreatedAt:  video.CreatedAt,
			UpdatedAt:  video.UpdatedAt,
		},
		Analyses: make([]analysisRecord, 0, len(results)),
	}
	for _, r := range results {
		payload.Analyses = append(payload.Analyses, analysisRecord{
			ID:        r.ID,
			Kind:      string(r.Kind),
			Text:      r.Text,
			Language:  r.Language,
			Model:     r.Model,
			CreatedAt: r.CreatedAt,
		})
	}
	return payload
}
