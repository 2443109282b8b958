package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/seedkeeper/seedkeeper/internal/utils"
	"github.com/seedkeeper/seedkeeper/pkg/normalize"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
)

const providerGemini = "gemini"

type geminiClient struct {
	apiKey      string
	model       string
	endpoint    string
	timeout     time.Duration
	maxAttempts int
	reg         *schema.Registry
}

func newGeminiClient(cfg Config) (*geminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini requires an API key (set ai.api_key in config or GEMINI_API_KEY)")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiClient{
		apiKey:      apiKey,
		model:       model,
		endpoint:    strings.TrimSpace(cfg.Endpoint),
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		reg:         cfg.Registry,
	}, nil
}

func (g *geminiClient) Lookup(ctx context.Context, q Query) (normalize.RawResult, error) {
	q, err := checkQuery(q)
	if err != nil {
		return nil, err
	}
	system, user, err := buildPrompt(g.reg, q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	opts := []option.ClientOption{option.WithAPIKey(g.apiKey)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, &TransportError{Provider: providerGemini, Err: err}
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0.2),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(g.reg, q.Section),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	utils.Log.Debugf("[ai] gemini lookup for %q (%q), section %q", q.SeedName, q.VarietyName, q.Section)

	var (
		lastErr    error
		lastStatus int
	)
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		resp, err := m.GenerateContent(ctx, genai.Text(user))
		if err != nil {
			lastErr, lastStatus = err, geminiStatus(err)
			utils.Log.Debugf("[ai] gemini attempt %d/%d failed: %v", attempt, g.maxAttempts, err)
			if attempt == g.maxAttempts || !retryableStatus(lastStatus) {
				break
			}
			select {
			case <-ctx.Done():
				return nil, &TransportError{Provider: providerGemini, Err: ctx.Err()}
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}

		txt := firstText(resp)
		if txt == "" {
			return nil, &TransportError{Provider: providerGemini, Err: errors.New("empty response")}
		}
		raw, err := normalize.ParseRawResult([]byte(txt))
		if err != nil {
			return nil, &TransportError{Provider: providerGemini, Err: fmt.Errorf("bad JSON: %w", err)}
		}
		return raw, nil
	}
	return nil, &TransportError{Provider: providerGemini, StatusCode: lastStatus, Err: lastErr}
}

// geminiStatus returns the HTTP status carried by a Gemini API error, or 0
// when the request never got a response.
func geminiStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// retryableStatus mirrors the OpenAI retry policy: network failures, 429 and
// 5xx are retried, other client errors are not.
func retryableStatus(code int) bool {
	return code == 0 || code == http.StatusTooManyRequests || code >= 500
}

// responseSchema describes the expected object so the model keeps to the
// catalog's keys and value shapes. Every property is nullable.
func responseSchema(reg *schema.Registry, section string) *genai.Schema {
	props := make(map[string]*genai.Schema)
	for _, f := range reg.AIFields(section) {
		props[f.Key] = fieldSchema(f)
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: props}
}

func fieldSchema(f schema.FieldSpec) *genai.Schema {
	s := &genai.Schema{Description: f.Label, Nullable: true}
	switch f.Kind {
	case schema.KindBoolean:
		s.Type = genai.TypeBoolean
	case schema.KindInteger:
		s.Type = genai.TypeInteger
	case schema.KindEnum:
		s.Type = genai.TypeString
		s.Format = "enum"
		s.Enum = f.Values()
	case schema.KindMultiEnum:
		s.Type = genai.TypeArray
		s.Items = &genai.Schema{Type: genai.TypeString, Format: "enum", Enum: f.Values()}
	default:
		s.Type = genai.TypeString
	}
	return s
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
