// Package transport implements the adaptive submission pipeline that
// delivers large media payloads to the analysis provider. Given a payload
// of arbitrary size and a gateway with a hard request-body ceiling, the
// router picks among direct transfer, payload compression, and offload to
// object storage with reference-by-URL, falling back deterministically
// when a strategy proves infeasible.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ProviderRequest carries one submission to the analysis provider.
// Exactly one of Payload and PayloadURL is set: inline bytes for direct
// transfers, a dereferenceable URL for the storage-reference strategy.
type ProviderRequest struct {
	Kind       string
	Payload    []byte
	PayloadURL string
	MimeType   string
	Params     map[string]string
}

// ProviderResult is the provider's successful response.
type ProviderResult struct {
	Text     string
	Language string
	Model    string
}

// Provider submits analysis requests to the remote provider. Failures
// must be wrapped in one of the classified transport errors so the router
// can decide between falling back and propagating.
type Provider interface {
	Call(ctx context.Context, req ProviderRequest) (*ProviderResult, error)
}

// Compressor reduces a payload's size by transcoding it to a lower
// bitrate. onProgress, when non-nil, receives percentages in [0,100].
type Compressor interface {
	Compress(ctx context.Context, data []byte, mimeType string, targetBitrateKbps int, onProgress func(percent int)) ([]byte, error)

	// OutputMimeType is the MIME type of the payloads Compress produces.
	// Transcoding changes the container, so compressed bytes must never
	// travel under the input's type.
	OutputMimeType() string
}

// ObjectStore uploads payloads to intermediate object storage and deletes
// them once the submission concludes.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, mimeType string) (*StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// Options configures one Submit call.
type Options struct {
	// Kind is the analysis kind forwarded to the provider.
	Kind string

	// Params are provider parameters (e.g. target language).
	Params map[string]string

	// OnProgress, when non-nil, receives stage labels and percentages as
	// the submission advances through its steps.
	OnProgress func(stage string, percent int)
}

// Router is the adaptive transport router. A single instance is safe for
// concurrent use; each Submit call owns its own intermediate artifacts.
type Router struct {
	probe      Probe
	provider   Provider
	compressor Compressor
	storage    ObjectStore
	logger     *slog.Logger
}

// NewRouter creates a Router. storage may be nil when object storage is
// not configured; the storage-reference strategy then fails with
// ErrStorageUnavailable instead of being attempted.
func NewRouter(probe Probe, provider Provider, compressor Compressor, storage ObjectStore, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		probe:      probe,
		provider:   provider,
		compressor: compressor,
		storage:    storage,
		logger:     logger.With("component", "transport_router"),
	}
}

// Submit delivers the payload to the provider, trying strategies in strict
// fallback order: direct transfer, compressed transfer, then object
// storage reference. Each step re-evaluates the candidate size against
// the gateway ceiling and never re-attempts a strategy already proven
// infeasible, so a call performs at most three attempts.
//
// Size-related and transient-network failures advance the fallback;
// provider rejections, unsupported-input compression failures, and
// storage unavailability are terminal. When every strategy fails, the
// returned error is a *SubmitError describing each attempt.
func (r *Router) Submit(ctx context.Context, payload Payload, opts Options) (*ProviderResult, error) {
	var attempts []Attempt
	size := payload.Size()
	ceiling := r.probe.Ceiling()

	r.logger.Info("starting submission",
		"size_bytes", size,
		"ceiling_bytes", ceiling,
		"kind", opts.Kind)

	// Step 1: direct transfer with the original payload.
	if r.probe.FitsGateway(size) {
		p := plan{strategy: StrategyDirect, ceiling: ceiling, payload: payload}
		result, err := r.attempt(ctx, &p, opts)
		if err == nil {
			return result, nil
		}
		if !fallbackDriving(err) {
			return nil, err
		}
		attempts = append(attempts, Attempt{Strategy: StrategyDirect, Err: err})
	} else {
		attempts = append(attempts, Attempt{
			Strategy: StrategyDirect,
			Err:      fmt.Errorf("%w: %d bytes over %d byte ceiling", ErrSizeLimitExceeded, size, ceiling),
		})
	}

	// Step 2: compress, then direct transfer if the result fits. The
	// target bitrate is a monotonic function of the original size.
	bitrate := targetBitrateKbps(size)
	r.reportStage(opts, "compressing audio", 0)

	compressed, err := r.compressor.Compress(ctx, payload.Data, payload.MimeType, bitrate, func(percent int) {
		r.reportStage(opts, "compressing audio", percent)
	})
	if err != nil {
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &SubmitError{Attempts: append(attempts, Attempt{Strategy: StrategyCompressed, Err: err})}
	}

	candidate := Payload{Data: compressed, MimeType: r.compressor.OutputMimeType()}
	r.logger.Info("compression finished",
		"original_bytes", size,
		"compressed_bytes", candidate.Size(),
		"target_bitrate_kbps", bitrate)

	if r.probe.FitsGateway(candidate.Size()) {
		p := plan{strategy: StrategyCompressed, ceiling: ceiling, payload: candidate}
		result, err := r.attempt(ctx, &p, opts)
		if err == nil {
			return result, nil
		}
		if !fallbackDriving(err) {
			if ctxErr := context.Cause(ctx); ctxErr != nil {
				return nil, ctxErr
			}
			// A terminal failure after fallback still reports the
			// strategies already burned.
			return nil, &SubmitError{Attempts: append(attempts, Attempt{Strategy: StrategyCompressed, Err: err})}
		}
		attempts = append(attempts, Attempt{Strategy: StrategyCompressed, Err: err})
	} else {
		attempts = append(attempts, Attempt{
			Strategy: StrategyCompressed,
			Err:      fmt.Errorf("%w: compressed to %d bytes, still over %d byte ceiling", ErrSizeLimitExceeded, candidate.Size(), ceiling),
		})
	}

	// Step 3: upload to object storage and submit by reference. This is
	// the last resort; its failure is terminal.
	if r.storage == nil || !r.probe.StorageAvailable() {
		return nil, &SubmitError{Attempts: append(attempts, Attempt{
			Strategy: StrategyStorageRef,
			Err:      fmt.Errorf("%w: credentials not configured", ErrStorageUnavailable),
		})}
	}

	r.reportStage(opts, "uploading to storage", 0)
	stored, err := r.storage.Upload(ctx, candidate.Data, candidate.MimeType)
	if err != nil {
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &SubmitError{Attempts: append(attempts, Attempt{Strategy: StrategyStorageRef, Err: err})}
	}

	p := plan{
		strategy: StrategyStorageRef,
		ceiling:  ceiling,
		payload:  Payload{MimeType: candidate.MimeType},
		stored:   stored,
	}
	defer p.release(ctx, r.storage, r.logger)

	result, err := r.attempt(ctx, &p, opts)
	if err != nil {
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &SubmitError{Attempts: append(attempts, Attempt{Strategy: StrategyStorageRef, Err: err})}
	}
	return result, nil
}

// attempt performs one provider call for the given plan.
func (r *Router) attempt(ctx context.Context, p *plan, opts Options) (*ProviderResult, error) {
	req := ProviderRequest{
		Kind:     opts.Kind,
		MimeType: p.payload.MimeType,
		Params:   opts.Params,
	}
	if p.stored != nil {
		req.PayloadURL = p.stored.URL
	} else {
		req.Payload = p.payload.Data
	}

	r.reportStage(opts, "submitting to provider", 0)
	r.logger.Debug("attempting strategy", "strategy", p.strategy)

	result, err := r.provider.Call(ctx, req)
	if err != nil {
		r.logger.Warn("strategy failed", "strategy", p.strategy, "error", err)
		return nil, err
	}

	r.reportStage(opts, "submitting to provider", 100)
	r.logger.Info("submission succeeded", "strategy", p.strategy)
	return result, nil
}

func (r *Router) reportStage(opts Options, stage string, percent int) {
	if opts.OnProgress != nil {
		opts.OnProgress(stage, percent)
	}
}

// targetBitrateKbps picks the compression target bitrate from the
// original payload size. Larger inputs get more aggressive compression;
// the mapping is monotonically non-increasing.
func targetBitrateKbps(sizeBytes int64) int {
	switch {
	case sizeBytes <= 16<<20:
		return 128
	case sizeBytes <= 64<<20:
		return 96
	case sizeBytes <= 256<<20:
		return 64
	default:
		return 48
	}
}

// AsSubmitError extracts a *SubmitError from err, if present.
func AsSubmitError(err error) (*SubmitError, bool) {
	var submitErr *SubmitError
	if errors.As(err, &submitErr) {
		return submitErr, true
	}
	return nil, false
}
