package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/seedkeeper/seedkeeper/pkg/normalize"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
)

// Query is what the AI is asked about. Section, when set, restricts the
// request to that section's fields.
type Query struct {
	SeedName    string `json:"seed_name"`
	VarietyName string `json:"variety_name,omitempty"`
	Section     string `json:"section,omitempty"`
}

// Config controls which provider is used and how it is called.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Endpoint    string
	Timeout     time.Duration
	MaxAttempts int
	Registry    *schema.Registry
	HTTPClient  *http.Client
}

// Client looks up seed details with a generative model.
type Client interface {
	Lookup(ctx context.Context, q Query) (normalize.RawResult, error)
}

const (
	defaultProvider    = "gemini"
	defaultGeminiModel = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4.1-mini"
	defaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	defaultTimeout     = 45 * time.Second
	defaultMaxAttempts = 3
)

// ErrEmptyQuery is returned when no seed name was given.
var ErrEmptyQuery = errors.New("a seed name is required")

// TransportError wraps every failure to obtain a usable answer from the
// provider: unreachable host, non-2xx status, timeout, empty or non-JSON body.
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewClient builds a concrete Client based on the provided config.
func NewClient(cfg Config) (Client, error) {
	cfg.Provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}
	if cfg.Registry == nil {
		cfg.Registry = schema.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	switch cfg.Provider {
	case "gemini":
		return newGeminiClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

func checkQuery(q Query) (Query, error) {
	q.SeedName = strings.TrimSpace(q.SeedName)
	q.VarietyName = strings.TrimSpace(q.VarietyName)
	q.Section = strings.TrimSpace(strings.ToLower(q.Section))
	if q.SeedName == "" {
		return q, ErrEmptyQuery
	}
	return q, nil
}
