package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedkeeper/seedkeeper/pkg/ai"
	"github.com/seedkeeper/seedkeeper/pkg/normalize"
	"github.com/seedkeeper/seedkeeper/pkg/populate"
	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

type stubClient struct {
	raw normalize.RawResult
	err error
}

func (c *stubClient) Lookup(ctx context.Context, q ai.Query) (normalize.RawResult, error) {
	return c.raw, c.err
}

// gatedClient blocks every lookup until gate closes and records whether the
// lookup's context was still alive when it returned.
type gatedClient struct {
	raw     normalize.RawResult
	started chan struct{}
	gate    chan struct{}
	ctxErr  chan error
}

func newGatedClient(raw normalize.RawResult) *gatedClient {
	return &gatedClient{
		raw:     raw,
		started: make(chan struct{}, 1),
		gate:    make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
}

func (c *gatedClient) Lookup(ctx context.Context, q ai.Query) (normalize.RawResult, error) {
	c.started <- struct{}{}
	<-c.gate
	c.ctxErr <- ctx.Err()
	return c.raw, nil
}

func newTestEnv(t *testing.T, client ai.Client, user, pass string) (*httptest.Server, *Server) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "seeds.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db, nil, populate.NewSessions(client, nil, nil), user, pass)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, s
}

func newTestServer(t *testing.T, client ai.Client, user, pass string) *httptest.Server {
	t.Helper()
	ts, _ := newTestEnv(t, client, user, pass)
	return ts
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestSeedLifecycle(t *testing.T) {
	ts := newTestServer(t, &stubClient{}, "", "")

	resp := do(t, http.MethodPost, ts.URL+"/api/seeds", map[string]any{
		"state": map[string]any{
			"values": map[string]any{
				"seed_name":    "Tomato",
				"variety_name": "Brandywine",
				"sunlight":     "Full Sun",
			},
		},
		"ai_changes": []map[string]any{{"key": "sunlight", "new_value": "Full Sun", "reason": "ai-populated"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created storage.Seed
	decode(t, resp, &created)
	require.NotEmpty(t, created.UID)

	resp = do(t, http.MethodGet, ts.URL+"/api/seeds/"+created.UID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got storage.Seed
	decode(t, resp, &got)
	assert.Equal(t, "Brandywine", got.VarietyName)
	assert.Equal(t, "Full Sun", got.Fields["sunlight"])

	resp = do(t, http.MethodPut, ts.URL+"/api/seeds/"+created.UID, map[string]any{
		"state": map[string]any{
			"values": map[string]any{
				"seed_name":    "Tomato",
				"variety_name": "Brandywine",
				"sunlight":     "Partial Sun",
			},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated struct {
		Changes []storage.Change `json:"changes"`
	}
	decode(t, resp, &updated)
	require.Len(t, updated.Changes, 1)
	assert.Equal(t, "sunlight", updated.Changes[0].FieldKey)
	assert.Equal(t, storage.ReasonUserEdit, updated.Changes[0].Reason)

	resp = do(t, http.MethodGet, ts.URL+"/api/seeds?search=brandy", nil)
	var list []storage.Seed
	decode(t, resp, &list)
	assert.Len(t, list, 1)

	resp = do(t, http.MethodGet, ts.URL+"/api/changes?uid="+created.UID, nil)
	var changes []storage.Change
	decode(t, resp, &changes)
	assert.NotEmpty(t, changes)
	assert.Equal(t, storage.ReasonUserEdit, changes[0].Reason)

	resp = do(t, http.MethodDelete, ts.URL+"/api/seeds/"+created.UID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/seeds/"+created.UID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateSeedWithoutName(t *testing.T) {
	ts := newTestServer(t, &stubClient{}, "", "")
	resp := do(t, http.MethodPost, ts.URL+"/api/seeds", map[string]any{
		"state": map[string]any{"values": map[string]any{"variety_name": "Genovese"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateSeedDatabaseFailure(t *testing.T) {
	ts, s := newTestEnv(t, &stubClient{}, "", "")
	require.NoError(t, s.DB.Close())

	resp := do(t, http.MethodPost, ts.URL+"/api/seeds", map[string]any{
		"state": map[string]any{"values": map[string]any{"seed_name": "Basil"}},
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestStorageErrorStatus(t *testing.T) {
	s := &Server{}
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("get: %w", storage.ErrNotFound), want: http.StatusNotFound},
		{err: storage.ErrNameRequired, want: http.StatusBadRequest},
		{err: errors.New("NOT NULL constraint failed: a value is required"), want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		s.storageError(rec, tc.err)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}

type populateResponse struct {
	State struct {
		Values map[string]any `json:"values"`
	} `json:"updated_state"`
	Changes []struct {
		Key string `json:"key"`
	} `json:"change_set"`
	Dropped int    `json:"dropped_field_count"`
	NoOp    bool   `json:"no_op"`
	Summary string `json:"summary"`
}

func TestPopulate(t *testing.T) {
	client := &stubClient{raw: normalize.RawResult{
		{Key: "variety_name", Value: "Brandywine"},
		{Key: "sunlight", Value: "full sun"},
		{Key: "days_to_maturity", Value: "about two months"},
	}}
	ts := newTestServer(t, client, "", "")

	body := map[string]any{
		"form_id":   "form-1",
		"seed_name": "Tomato",
		"state": map[string]any{
			"values":  map[string]any{"seed_name": "Tomato", "water_needs": "Low"},
			"touched": map[string]bool{"water_needs": true},
		},
	}
	resp := do(t, http.MethodPost, ts.URL+"/api/populate", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out populateResponse
	decode(t, resp, &out)
	assert.False(t, out.NoOp)
	assert.Equal(t, 1, out.Dropped)
	require.Len(t, out.Changes, 2)
	assert.Equal(t, "Brandywine", out.State.Values["variety_name"])
	assert.Equal(t, "Full Sun", out.State.Values["sunlight"])
	assert.Equal(t, "Low", out.State.Values["water_needs"])
	assert.True(t, strings.HasPrefix(out.Summary, "AI updated 2 fields:"))

	// feeding the merged state back changes nothing
	body["state"] = map[string]any{"values": out.State.Values}
	resp = do(t, http.MethodPost, ts.URL+"/api/populate", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again populateResponse
	decode(t, resp, &again)
	assert.True(t, again.NoOp)
	assert.Empty(t, again.Changes)
}

func TestPopulateErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   map[string]any
		status int
	}{
		{
			name:   "transport failure",
			err:    &ai.TransportError{Provider: "gemini", Err: errors.New("boom")},
			body:   map[string]any{"form_id": "f", "seed_name": "Tomato"},
			status: http.StatusBadGateway,
		},
		{
			name:   "empty query",
			err:    ai.ErrEmptyQuery,
			body:   map[string]any{"form_id": "f"},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing form id",
			body:   map[string]any{"seed_name": "Tomato"},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown seed",
			body:   map[string]any{"form_id": "f", "uid": "nope"},
			status: http.StatusNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, &stubClient{err: tc.err}, "", "")
			resp := do(t, http.MethodPost, ts.URL+"/api/populate", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestAbandon(t *testing.T) {
	client := newGatedClient(normalize.RawResult{{Key: "sunlight", Value: "Full Sun"}})
	ts, s := newTestEnv(t, client, "", "")

	var out map[string]bool
	decode(t, do(t, http.MethodPost, ts.URL+"/api/populate/abandon", map[string]string{"form_id": "f"}), &out)
	assert.False(t, out["abandoned"])

	status := make(chan int, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/api/populate", "application/json", strings.NewReader(`{"form_id": "f", "seed_name": "Basil"}`))
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()
	<-client.started
	assert.Equal(t, 1, s.Sessions.Len())

	decode(t, do(t, http.MethodPost, ts.URL+"/api/populate/abandon", map[string]string{"form_id": "f"}), &out)
	assert.True(t, out["abandoned"])

	close(client.gate)
	assert.Equal(t, http.StatusConflict, <-status, "the abandoned answer is stale")
	assert.Zero(t, s.Sessions.Len())
}

func TestPopulateSessionsAreReleased(t *testing.T) {
	ts, s := newTestEnv(t, &stubClient{raw: normalize.RawResult{{Key: "sunlight", Value: "full sun"}}}, "", "")

	for i := 0; i < 50; i++ {
		resp := do(t, http.MethodPost, ts.URL+"/api/populate", map[string]any{"form_id": fmt.Sprintf("page-%d", i), "seed_name": "Tomato"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Zero(t, s.Sessions.Len())
}

func TestPopulateOutlivesDisconnect(t *testing.T) {
	client := newGatedClient(normalize.RawResult{{Key: "sunlight", Value: "Full Sun"}})
	ts, s := newTestEnv(t, client, "", "")

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+"/api/populate", strings.NewReader(`{"form_id": "f", "seed_name": "Basil"}`))
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
		}
	}()
	<-client.started

	cancel()
	<-done
	// let the server notice the closed connection
	time.Sleep(100 * time.Millisecond)

	close(client.gate)
	assert.NoError(t, <-client.ctxErr)
	assert.Eventually(t, func() bool { return s.Sessions.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFields(t *testing.T) {
	ts := newTestServer(t, &stubClient{}, "", "")

	resp := do(t, http.MethodGet, ts.URL+"/api/fields?section=growing", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fields []struct {
		Key     string `json:"key"`
		Section string `json:"section"`
	}
	decode(t, resp, &fields)
	require.NotEmpty(t, fields)
	for _, f := range fields {
		assert.Equal(t, "growing", f.Section, f.Key)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/fields?section=garage", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportAndStats(t *testing.T) {
	ts := newTestServer(t, &stubClient{}, "", "")
	do(t, http.MethodPost, ts.URL+"/api/seeds", map[string]any{
		"state": map[string]any{"values": map[string]any{"seed_name": "Basil", "categories": []string{"Herbs"}}},
	})

	resp := do(t, http.MethodGet, ts.URL+"/api/export.csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Basil")

	resp = do(t, http.MethodGet, ts.URL+"/api/stats", nil)
	var stats storage.Stats
	decode(t, resp, &stats)
	assert.Equal(t, 1, stats.SeedCount)
	assert.Equal(t, 1, stats.WithoutVariety)
}

func TestBasicAuth(t *testing.T) {
	ts := newTestServer(t, &stubClient{}, "admin", "secret")

	resp := do(t, http.MethodGet, ts.URL+"/api/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/stats", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
