// Package gemini implements the analysis provider using Google's Gemini
// API. Payloads are submitted either inline (direct and compressed
// transfers) or by URI (object-storage references); the transport router
// decides which.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/yy0691/AI-Videos-Play/internal/config"
	"github.com/yy0691/AI-Videos-Play/internal/domain"
	"github.com/yy0691/AI-Videos-Play/internal/transport"
)

// prompts per analysis kind. Translation appends the target language
// from the request params.
var kindPrompts = map[string]string{
	string(domain.AnalysisKindTranscription): "Transcribe the spoken audio in this media verbatim. Output only the transcript text.",
	string(domain.AnalysisKindSummary):       "Summarize the content of this media in clear bullet points covering the main topics, arguments, and conclusions.",
	string(domain.AnalysisKindTranslation):   "Transcribe the spoken audio in this media, then translate the transcript.",
	string(domain.AnalysisKindKeyInfo):       "Extract the key information from this media: names, dates, figures, decisions, and action items, as a structured list.",
}

// Provider implements transport.Provider against the Gemini API.
type Provider struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// NewProvider creates a Gemini-backed analysis provider.
func NewProvider(ctx context.Context, cfg config.ProviderConfig, logger *slog.Logger) (*Provider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Provider{
		logger: logger.With("component", "gemini_provider"),
		client: client,
		model:  cfg.ModelName,
	}, nil
}

var _ transport.Provider = (*Provider)(nil)

// Call implements transport.Provider. Errors are wrapped in the
// transport taxonomy so the router can drive its fallback progression.
func (p *Provider) Call(ctx context.Context, req transport.ProviderRequest) (*transport.ProviderResult, error) {
	prompt, ok := kindPrompts[req.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown analysis kind %q", transport.ErrProviderRejected, req.Kind)
	}

	language := ""
	if req.Params != nil {
		language = req.Params["target_language"]
	}
	if req.Kind == string(domain.AnalysisKindTranslation) {
		if language == "" {
			return nil, fmt.Errorf("%w: translation requires a target_language param", transport.ErrProviderRejected)
		}
		prompt = fmt.Sprintf("%s Translate into %s. Output only the translation.", prompt, language)
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	switch {
	case req.PayloadURL != "":
		parts = append(parts, genai.NewPartFromURI(req.PayloadURL, req.MimeType))
	case len(req.Payload) > 0:
		parts = append(parts, genai.NewPartFromBytes(req.Payload, req.MimeType))
	default:
		return nil, fmt.Errorf("%w: request carries neither payload nor reference", transport.ErrProviderRejected)
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	p.logger.Debug("calling provider",
		"kind", req.Kind,
		"model", p.model,
		"inline_bytes", len(req.Payload),
		"by_reference", req.PayloadURL != "")

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return nil, p.classify(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response from model", transport.ErrProviderRejected)
	}

	return &transport.ProviderResult{
		Text:     text,
		Language: language,
		Model:    p.model,
	}, nil
}

// classify maps a Gemini API failure onto the transport error taxonomy.
func (p *Provider) classify(err error) error {
	if ctxErr := contextError(err); ctxErr != nil {
		return ctxErr
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 413:
			return fmt.Errorf("%w: %v", transport.ErrSizeLimitExceeded, err)
		case apiErr.Code == 401 || apiErr.Code == 403:
			return fmt.Errorf("%w: authentication: %v", transport.ErrProviderRejected, err)
		case apiErr.Code == 429:
			return fmt.Errorf("%w: rate limited: %v", transport.ErrProviderRejected, err)
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return fmt.Errorf("%w: %v", transport.ErrProviderRejected, err)
		default:
			return fmt.Errorf("%w: provider internal: %v", transport.ErrTransientNetwork, err)
		}
	}

	// No HTTP status at all: the request never made it to the provider.
	return fmt.Errorf("%w: %v", transport.ErrTransientNetwork, err)
}

func contextError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
