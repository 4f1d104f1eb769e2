// Package llm implements opspod.LLM for the supported model providers.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/boat-builder/opspod"
	"github.com/boat-builder/opspod/config"
	"github.com/google/uuid"
)

// MaxTokens bounds every completion.
const MaxTokens = 4096

type options struct {
	baseURL           string
	httpClient        *http.Client
	injectIdentifiers bool
	logger            *slog.Logger
}

type Option func(*options)

// WithHTTPClient replaces the transport used to reach the provider.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(cfg config.LLM, opts []Option) options {
	o := options{injectIdentifiers: cfg.InjectIdentifiers, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the client for cfg.Provider.
func New(cfg config.LLM, opts ...Option) (opspod.LLM, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg, opts...), nil
	case config.ProviderAzure:
		return NewAzure(cfg, opts...), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg, opts...), nil
	case "":
		return nil, &config.MissingError{Key: "LLM_PROVIDER"}
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

// identifiers returns the request identifiers to add to the request JSON when
// injection is enabled.
func (o options) identifiers(ctx context.Context) map[string]string {
	if !o.injectIdentifiers {
		return nil
	}
	return opspod.RequestIdentifiers(ctx)
}

func toolCallID(id string) string {
	if id != "" {
		return id
	}
	return "call_" + uuid.NewString()
}
