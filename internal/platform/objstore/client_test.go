package objstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yy0691/AI-Videos-Play/internal/config"
	"github.com/yy0691/AI-Videos-Play/internal/transport"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

func newTestServer(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		mu.Lock()
		requests = append(requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	client, err := NewClient(config.StorageConfig{
		Endpoint:  endpoint,
		Bucket:    "analysis-staging",
		AccessKey: "test-access",
		SecretKey: "test-secret",
	}, nil)
	require.NoError(t, err)
	return client
}

func TestUploadPutsPayloadUnderBucket(t *testing.T) {
	t.Parallel()

	server, requests := newTestServer(t, http.StatusOK)
	client := newTestClient(t, server.URL)

	payload := []byte("compressed audio bytes")
	stored, err := client.Upload(context.Background(), payload, "audio/mp4")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.Key)
	assert.Contains(t, stored.URL, "/analysis-staging/"+stored.Key)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/analysis-staging/"+stored.Key, req.Path)
	assert.Equal(t, "audio/mp4", req.ContentType)
	assert.Equal(t, payload, req.Body)
}

func TestUploadKeysAreUnique(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, http.StatusOK)
	client := newTestClient(t, server.URL)

	first, err := client.Upload(context.Background(), []byte("a"), "audio/mp4")
	require.NoError(t, err)
	second, err := client.Upload(context.Background(), []byte("b"), "audio/mp4")
	require.NoError(t, err)
	assert.NotEqual(t, first.Key, second.Key)
}

func TestUploadServerErrorIsStorageUnavailable(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, http.StatusInternalServerError)
	client := newTestClient(t, server.URL)

	_, err := client.Upload(context.Background(), []byte("data"), "audio/mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrStorageUnavailable)
}

func TestUploadUnreachableEndpointIsStorageUnavailable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://127.0.0.1:1")

	_, err := client.Upload(context.Background(), []byte("data"), "audio/mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrStorageUnavailable)
}

func TestDeleteIssuesDeleteForKey(t *testing.T) {
	t.Parallel()

	server, requests := newTestServer(t, http.StatusNoContent)
	client := newTestClient(t, server.URL)

	require.NoError(t, client.Delete(context.Background(), "some-key"))

	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodDelete, (*requests)[0].Method)
	assert.Equal(t, "/analysis-staging/some-key", (*requests)[0].Path)
}

func TestDeleteMissingObjectIsNotAnError(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, http.StatusNotFound)
	client := newTestClient(t, server.URL)

	assert.NoError(t, client.Delete(context.Background(), "gone"))
}

func TestNewClientRequiresEndpointAndBucket(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.StorageConfig{Bucket: "b"}, nil)
	assert.Error(t, err)

	_, err = NewClient(config.StorageConfig{Endpoint: "http://s"}, nil)
	assert.Error(t, err)
}
