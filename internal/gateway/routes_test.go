package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rbarrantes/triage/internal/jira"
	"github.com/rbarrantes/triage/internal/llm"
	"github.com/rbarrantes/triage/internal/logging"
	"github.com/rbarrantes/triage/internal/report"
	"github.com/rbarrantes/triage/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	// Public endpoint only returns status
	assert.Empty(t, health.Version)
}

func TestNotFoundEndpoint(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateEndpoint(t *testing.T) {
	_, ts := testServer(t, WithRegistry(mockRegistry(echoMock())))

	resp := postJSON(t, ts.URL+"/v1/generate", generateParams{Prompt: "Hi there"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "You said: Hi there", result["content"])
	assert.Equal(t, "mock-model", result["model"])
}

func TestGenerateEndpointStream(t *testing.T) {
	_, ts := testServer(t, WithRegistry(mockRegistry(echoMock())))

	resp := postJSON(t, ts.URL+"/v1/generate", generateParams{Prompt: "stream", Stream: true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	var events []llm.StreamEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var evt llm.StreamEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &evt))
		events = append(events, evt)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 3)
	assert.Equal(t, "delta", events[0].Type)
	assert.Equal(t, "Hello ", events[0].Content)
	assert.Equal(t, "done", events[2].Type)
	require.NotNil(t, events[2].Response)
	assert.Equal(t, "Hello world", events[2].Response.Content)
}

func TestGenerateEndpointUnavailable(t *testing.T) {
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.UnavailableError{Provider: "ollama", Endpoint: "http://localhost:11434"}
		},
	}
	_, ts := testServer(t, WithRegistry(mockRegistry(mock)))

	resp := postJSON(t, ts.URL+"/v1/generate", generateParams{Prompt: "Hi"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]ErrorShape
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "inference_unavailable", body["error"].Code)
}

func TestGenerateEndpointProviderError(t *testing.T) {
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.ProviderError{Provider: "ollama", Message: "model not found", Code: 404}
		},
	}
	_, ts := testServer(t, WithRegistry(mockRegistry(mock)))

	resp := postJSON(t, ts.URL+"/v1/generate", generateParams{Prompt: "Hi"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestGenerateEndpointNoProvider(t *testing.T) {
	_, ts := testServer(t)

	resp := postJSON(t, ts.URL+"/v1/generate", generateParams{Prompt: "Hi"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGenerateEndpointMissingPrompt(t *testing.T) {
	_, ts := testServer(t, WithRegistry(mockRegistry(echoMock())))

	resp := postJSON(t, ts.URL+"/v1/generate", generateParams{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportEndpoint(t *testing.T) {
	jiraSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total": 1, "issues": [{"key": "OPS-1", "fields": {
			"summary": "Fix login",
			"status": {"name": "Open"},
			"priority": {"name": "High"},
			"project": {"key": "OPS"},
			"created": "2026-08-01T10:00:00.000+0000"
		}}]}`))
	}))
	t.Cleanup(jiraSrv.Close)

	log := logging.New(nil, "silent")
	svc := report.NewService(report.ServiceOptions{
		Jira:    jira.NewClient(jiraSrv.URL, "user", "token", log),
		Archive: report.NewArchive(t.TempDir(), log),
		Reports: testConfig().Reports,
	}, log)

	_, ts := testServer(t, WithReports(svc))

	ai := false
	resp := postJSON(t, ts.URL+"/v1/report", reportParams{Project: "OPS", AI: &ai})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var summary report.RunSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 1, summary.TicketCount)
	assert.Contains(t, summary.Body, "OPS-1")
	assert.NotEmpty(t, summary.ReportPath)
}

func TestReportEndpointNotConfigured(t *testing.T) {
	_, ts := testServer(t)

	resp := postJSON(t, ts.URL+"/v1/report", reportParams{})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRunsEndpoint(t *testing.T) {
	db, err := store.Open(":memory:", logging.New(nil, "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.SaveRun(&store.Run{Project: "OPS", Status: "completed"}))
	require.NoError(t, db.SaveRun(&store.Run{Project: "WEB", Status: "completed"}))

	_, ts := testServer(t, WithStore(db))

	resp, err := http.Get(ts.URL + "/v1/runs?project=OPS")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Runs []store.Run `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result.Runs, 1)
	assert.Equal(t, "OPS", result.Runs[0].Project)
}

func TestCORSMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway.AllowedOrigins = []string{"http://localhost:3000"}

	log := logging.New(nil, "silent")
	srv := New(cfg, log)

	mux := http.NewServeMux()
	srv.registerHTTPRoutes(mux)
	handler := withMiddleware(mux, log, cfg.Gateway.AllowedOrigins)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// Unlisted origin gets no CORS headers.
	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.Header.Set("Origin", "http://evil.example")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Empty(t, rec2.Header().Get("Access-Control-Allow-Origin"))
}
