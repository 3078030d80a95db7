package transport

import (
	"context"
	"log/slog"
)

// Payload is a binary media payload bound for the analysis provider.
type Payload struct {
	Data     []byte
	MimeType string
}

// Size returns the payload size in bytes.
func (p Payload) Size() int64 {
	return int64(len(p.Data))
}

// StoredObject is a payload uploaded to object storage, addressable by
// URL and deletable by key.
type StoredObject struct {
	URL string
	Key string
}

// plan tracks the intermediate artifacts of one Submit call: the current
// candidate payload and any object uploaded to storage. Artifacts are
// owned exclusively by the plan and released once the attempt concludes,
// whatever the outcome.
type plan struct {
	strategy Strategy
	ceiling  int64
	payload  Payload
	stored   *StoredObject
}

// release discards the plan's storage artifact. It runs after the Submit
// call concludes, so it must not be stopped by the caller's (possibly
// already cancelled) context.
func (p *plan) release(ctx context.Context, storage ObjectStore, logger *slog.Logger) {
	if p.stored == nil || storage == nil {
		return
	}

	if err := storage.Delete(context.WithoutCancel(ctx), p.stored.Key); err != nil {
		logger.Warn("failed to delete intermediate storage object",
			"key", p.stored.Key,
			"error", err)
		return
	}
	p.stored = nil
}
