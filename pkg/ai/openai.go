package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/seedkeeper/seedkeeper/internal/utils"
	"github.com/seedkeeper/seedkeeper/pkg/normalize"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
)

const providerOpenAI = "openai"

// openAIClient talks to any OpenAI-compatible chat completions endpoint.
type openAIClient struct {
	apiKey   string
	model    string
	endpoint string
	reg      *schema.Registry
	client   *retryablehttp.Client
}

func newOpenAIClient(cfg Config) (*openAIClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai requires an API key (set ai.api_key in config or OPENAI_API_KEY)")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = cfg.MaxAttempts - 1
	retryClient.RetryWaitMin = 300 * time.Millisecond
	retryClient.RetryWaitMax = 3 * time.Second
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.HTTPClient != nil {
		retryClient.HTTPClient = cfg.HTTPClient
	} else {
		retryClient.HTTPClient.Timeout = cfg.Timeout
	}

	return &openAIClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		reg:      cfg.Registry,
		client:   retryClient,
	}, nil
}

func (o *openAIClient) Lookup(ctx context.Context, q Query) (normalize.RawResult, error) {
	q, err := checkQuery(q)
	if err != nil {
		return nil, err
	}
	system, user, err := buildPrompt(o.reg, q)
	if err != nil {
		return nil, err
	}

	reqBody := openAIChatRequest{
		Model: o.model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0.2,
		ResponseFormat: openAIResponseFormat{Type: "json_object"},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bodyBytes)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	utils.Log.Debugf("[ai] openai lookup for %q (%q), section %q", q.SeedName, q.VarietyName, q.Section)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: providerOpenAI, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(data, "error.message").String(); msg != "" {
			return nil, &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: errors.New(msg)}
		}
		return nil, &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	content := strings.TrimSpace(gjson.GetBytes(data, "choices.0.message.content").String())
	if content == "" {
		return nil, &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: errors.New("empty response")}
	}

	raw, err := normalize.ParseRawResult([]byte(content))
	if err != nil {
		return nil, &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %w", err)}
	}
	return raw, nil
}

type openAIChatRequest struct {
	Model          string               `json:"model"`
	Messages       []openAIMessage      `json:"messages"`
	Temperature    float64              `json:"temperature"`
	ResponseFormat openAIResponseFormat `json:"response_format"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}
