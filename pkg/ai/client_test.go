package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"

	"github.com/seedkeeper/seedkeeper/pkg/normalize"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
)

func chatResponse(content string) string {
	data, _ := json.Marshal(map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(data)
}

func newTestOpenAI(t *testing.T, url string, attempts int) Client {
	t.Helper()
	c, err := NewClient(Config{Provider: "OpenAI", APIKey: "test-key", Endpoint: url, MaxAttempts: attempts})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestOpenAILookup(t *testing.T) {
	var gotBody openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		io.WriteString(w, chatResponse("```json\n{\"variety_name\": \"Brandywine\", \"sun\": \"full sun\"}\n```"))
	}))
	defer srv.Close()

	c := newTestOpenAI(t, srv.URL, 1)
	raw, err := c.Lookup(context.Background(), Query{SeedName: " Tomato ", VarietyName: "Brandywine", Section: "Basic"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	want := normalize.RawResult{
		{Key: "variety_name", Value: "Brandywine"},
		{Key: "sun", Value: "full sun"},
	}
	if !reflect.DeepEqual(raw, want) {
		t.Fatalf("expected:\n%s\nactual:\n%s", mustJSON(want), mustJSON(raw))
	}

	if gotBody.Model != defaultOpenAIModel || gotBody.ResponseFormat.Type != "json_object" {
		t.Fatalf("unexpected request: %s", mustJSON(gotBody))
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("messages = %d", len(gotBody.Messages))
	}
	user := gotBody.Messages[1].Content
	if !strings.Contains(user, "Seed name: Tomato\n") || !strings.Contains(user, "Only fill in the basic fields.") {
		t.Fatalf("user prompt = %q", user)
	}
	system := gotBody.Messages[0].Content
	if !strings.Contains(system, "- seed_type (Seed Type): one of Hybrid | Heirloom | Open-Pollinated") {
		t.Fatalf("system prompt misses seed_type:\n%s", system)
	}
	if strings.Contains(system, "sunlight") {
		t.Fatalf("system prompt leaks fields outside the section")
	}
}

func TestOpenAITransportErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		attempts   int
		wantStatus int
		wantCalls  int32
		wantMsg    string
	}{
		{
			name:       "api error message",
			status:     http.StatusUnauthorized,
			body:       `{"error": {"message": "invalid api key"}}`,
			attempts:   3,
			wantStatus: http.StatusUnauthorized,
			wantCalls:  1,
			wantMsg:    "invalid api key",
		},
		{
			name:       "server errors are retried",
			status:     http.StatusBadGateway,
			body:       `upstream down`,
			attempts:   2,
			wantStatus: http.StatusBadGateway,
			wantCalls:  2,
		},
		{
			name:       "empty content",
			status:     http.StatusOK,
			body:       chatResponse("  "),
			attempts:   1,
			wantStatus: http.StatusOK,
			wantCalls:  1,
			wantMsg:    "empty response",
		},
		{
			name:       "content is not an object",
			status:     http.StatusOK,
			body:       chatResponse(`["Tomato"]`),
			attempts:   1,
			wantStatus: http.StatusOK,
			wantCalls:  1,
			wantMsg:    "bad JSON",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := newTestOpenAI(t, srv.URL, tc.attempts).Lookup(context.Background(), Query{SeedName: "Tomato"})
			var terr *TransportError
			if !errors.As(err, &terr) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if terr.Provider != providerOpenAI || terr.StatusCode != tc.wantStatus {
				t.Fatalf("unexpected error fields: %+v", terr)
			}
			if tc.wantMsg != "" && !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not mention %q", err, tc.wantMsg)
			}
			if got := calls.Load(); got != tc.wantCalls {
				t.Fatalf("calls = %d, want %d", got, tc.wantCalls)
			}
		})
	}
}

func TestOpenAIUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestOpenAI(t, url, 1).Lookup(context.Background(), Query{SeedName: "Tomato"})
	var terr *TransportError
	if !errors.As(err, &terr) || terr.StatusCode != 0 {
		t.Fatalf("expected TransportError without status, got %v", err)
	}
}

func TestGeminiTransportErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		attempts  int
		wantCalls int32
	}{
		{name: "client errors are not retried", status: http.StatusBadRequest, attempts: 3, wantCalls: 1},
		{name: "rate limits are retried", status: http.StatusTooManyRequests, attempts: 2, wantCalls: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				io.WriteString(w, `{"error": {"code": `+strconv.Itoa(tc.status)+`, "message": "request rejected"}}`)
			}))
			defer srv.Close()

			c, err := NewClient(Config{APIKey: "test-key", Endpoint: srv.URL, MaxAttempts: tc.attempts})
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			_, err = c.Lookup(context.Background(), Query{SeedName: "Tomato"})
			var terr *TransportError
			if !errors.As(err, &terr) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if terr.Provider != providerGemini || terr.StatusCode != tc.status {
				t.Fatalf("unexpected error fields: %+v", terr)
			}
			if got := calls.Load(); got != tc.wantCalls {
				t.Fatalf("calls = %d, want %d", got, tc.wantCalls)
			}
		})
	}
}

func TestGeminiStatus(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", &googleapi.Error{Code: http.StatusForbidden})
	if got := geminiStatus(wrapped); got != http.StatusForbidden {
		t.Fatalf("geminiStatus = %d, want 403", got)
	}
	if got := geminiStatus(errors.New("dial tcp: refused")); got != 0 {
		t.Fatalf("geminiStatus = %d, want 0", got)
	}
	for code, want := range map[int]bool{0: true, 400: false, 404: false, 429: true, 500: true, 503: true} {
		if got := retryableStatus(code); got != want {
			t.Errorf("retryableStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestLookupRejectsBadQueries(t *testing.T) {
	c := newTestOpenAI(t, "http://127.0.0.1:0", 1)

	if _, err := c.Lookup(context.Background(), Query{SeedName: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := c.Lookup(context.Background(), Query{SeedName: "Tomato", Section: "roots"}); err == nil {
		t.Fatalf("unknown section should fail")
	}
	if _, err := c.Lookup(context.Background(), Query{SeedName: "Tomato", Section: schema.SectionNotes}); err == nil {
		t.Fatalf("section without AI fields should fail")
	}
}

func TestNewClientConfig(t *testing.T) {
	if _, err := NewClient(Config{Provider: "claude", APIKey: "x"}); err == nil {
		t.Fatalf("unsupported provider should fail")
	}
	if _, err := NewClient(Config{APIKey: ""}); err == nil {
		t.Fatalf("gemini without a key should fail")
	}
	if _, err := NewClient(Config{Provider: "openai"}); err == nil {
		t.Fatalf("openai without a key should fail")
	}

	c, err := NewClient(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	g, ok := c.(*geminiClient)
	if !ok {
		t.Fatalf("default provider should be gemini, got %T", c)
	}
	if g.model != defaultGeminiModel || g.timeout != defaultTimeout || g.maxAttempts != defaultMaxAttempts {
		t.Fatalf("defaults not applied: %+v", g)
	}
}

func TestResponseSchema(t *testing.T) {
	s := responseSchema(schema.Default(), schema.SectionGrowing)
	if s.Type != genai.TypeObject {
		t.Fatalf("root type = %v", s.Type)
	}
	if _, ok := s.Properties["variety_name"]; ok {
		t.Fatalf("out-of-section field in schema")
	}

	sun := s.Properties["sunlight"]
	if sun == nil || sun.Type != genai.TypeString || !reflect.DeepEqual(sun.Enum, []string{"Partial Sun", "Partial Shade", "Full Shade", "Full Sun"}) {
		t.Fatalf("sunlight schema = %s", mustJSON(sun))
	}
	if d := s.Properties["days_to_maturity"]; d == nil || d.Type != genai.TypeInteger || !d.Nullable {
		t.Fatalf("days_to_maturity schema = %s", mustJSON(d))
	}

	all := responseSchema(schema.Default(), "")
	cats := all.Properties["categories"]
	if cats == nil || cats.Type != genai.TypeArray || cats.Items == nil || len(cats.Items.Enum) != 7 {
		t.Fatalf("categories schema = %s", mustJSON(cats))
	}
	if _, ok := all.Properties["notes"]; ok {
		t.Fatalf("user-only field in schema")
	}
}

func mustJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}
