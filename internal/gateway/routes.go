package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rbarrantes/triage/internal/llm"
	"github.com/rbarrantes/triage/internal/report"
)

// llmCallTimeout is the maximum duration for an inference call.
const llmCallTimeout = 5 * time.Minute

// reportTimeout bounds a full report pipeline run.
const reportTimeout = 10 * time.Minute

// runsListMax caps the run history page size.
const runsListMax = 100

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/generate", s.handleGenerate)
	mux.HandleFunc("POST /v1/report", s.handleReport)
	mux.HandleFunc("GET /v1/runs", s.handleRuns)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("generate.send", s.rpcGenerateSend)
	s.Handle("report.run", s.rpcReportRun)
	s.Handle("runs.list", s.rpcRunsList)
}

// generateParams is the request body for generation over HTTP and RPC.
type generateParams struct {
	Prompt      string   `json:"prompt"`
	System      string   `json:"system,omitempty"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

func (p generateParams) completionRequest() llm.CompletionRequest {
	return llm.CompletionRequest{
		Model:       p.Model,
		System:      p.System,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: p.Prompt}},
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Stream:      p.Stream,
	}
}

// handleGenerate relays a prompt to the inference provider. With stream=true
// the response is NDJSON: one StreamEvent per line, ending with a done event.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "no inference provider configured")
		return
	}

	var p generateParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	if p.Prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_params", "prompt is required")
		return
	}

	client, err := s.registry.Resolve(p.Model)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), llmCallTimeout)
	defer cancel()

	if p.Stream {
		s.streamGenerate(ctx, w, client, p)
		return
	}

	resp, err := client.Complete(ctx, p.completionRequest())
	if err != nil {
		status, code := inferenceErrorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"content":    resp.Content,
		"model":      resp.Model,
		"usage":      resp.Usage,
		"durationMs": resp.Duration.Milliseconds(),
	})
}

// streamGenerate writes inference events as NDJSON, flushing per event.
func (s *Server) streamGenerate(ctx context.Context, w http.ResponseWriter, client llm.Client, p generateParams) {
	ch, err := client.Stream(ctx, p.completionRequest())
	if err != nil {
		status, code := inferenceErrorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for evt := range ch {
		if err := enc.Encode(evt); err != nil {
			s.log.Warn().Err(err).Msg("stream write failed")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// inferenceErrorStatus maps inference errors to HTTP status and error code.
func inferenceErrorStatus(err error) (int, string) {
	var unavail *llm.UnavailableError
	if errors.As(err, &unavail) {
		return http.StatusServiceUnavailable, "inference_unavailable"
	}
	var provider *llm.ProviderError
	if errors.As(err, &provider) {
		return http.StatusBadGateway, "provider_error"
	}
	return http.StatusInternalServerError, "inference_error"
}

// reportParams is the request body for POST /v1/report and report.run.
type reportParams struct {
	Project string `json:"project,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	AI      *bool  `json:"ai,omitempty"`
}

// generateRequest resolves the AI flag against the configured default.
func (p reportParams) generateRequest(defaultAI bool) report.GenerateRequest {
	ai := defaultAI
	if p.AI != nil {
		ai = *p.AI
	}
	return report.GenerateRequest{Project: p.Project, Limit: p.Limit, AI: ai}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "report pipeline not configured")
		return
	}

	var p reportParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()

	summary, err := s.reports.Generate(ctx, p.generateRequest(s.cfg.Reports.ReportAI()))
	if err != nil {
		writeError(w, http.StatusBadGateway, "report_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "run history not configured")
		return
	}

	runs, err := s.db.Runs(r.URL.Query().Get("project"), runsListMax)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// RPC handlers

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: s.clients.Count(),
	})
}

func (s *Server) rpcGenerateSend(rc *RequestContext) {
	if s.registry == nil {
		rc.RespondError("unavailable", "no inference provider configured")
		return
	}

	var p generateParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Prompt == "" {
		rc.RespondError("invalid_params", "prompt is required")
		return
	}

	client, err := s.registry.Resolve(p.Model)
	if err != nil {
		rc.RespondError("unavailable", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), llmCallTimeout)
	defer cancel()

	if p.Stream {
		s.streamGenerateRPC(ctx, rc, client, p)
		return
	}

	resp, err := client.Complete(ctx, p.completionRequest())
	if err != nil {
		_, code := inferenceErrorStatus(err)
		rc.RespondError(code, err.Error())
		return
	}

	rc.Respond(map[string]any{
		"content":    resp.Content,
		"model":      resp.Model,
		"usage":      resp.Usage,
		"durationMs": resp.Duration.Milliseconds(),
	})
}

// streamGenerateRPC forwards deltas as generate.delta events, then responds
// with the final result.
func (s *Server) streamGenerateRPC(ctx context.Context, rc *RequestContext, client llm.Client, p generateParams) {
	ch, err := client.Stream(ctx, p.completionRequest())
	if err != nil {
		_, code := inferenceErrorStatus(err)
		rc.RespondError(code, err.Error())
		return
	}

	var content string
	var final *llm.CompletionResponse

	for evt := range ch {
		switch evt.Type {
		case "delta":
			content += evt.Content
			rc.Client.SendEvent("generate.delta", map[string]any{
				"requestId": rc.Frame.ID,
				"content":   evt.Content,
			}, s.eventSeq.Add(1))
		case "done":
			final = evt.Response
		case "error":
			rc.RespondError("inference_error", evt.Error)
			return
		}
	}

	result := map[string]any{"content": content}
	if final != nil {
		if final.Content != "" {
			result["content"] = final.Content
		}
		result["model"] = final.Model
		result["usage"] = final.Usage
		result["durationMs"] = final.Duration.Milliseconds()
	}
	rc.Respond(result)
}

func (s *Server) rpcReportRun(rc *RequestContext) {
	if s.reports == nil {
		rc.RespondError("unavailable", "report pipeline not configured")
		return
	}

	var p reportParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	summary, err := s.reports.Generate(ctx, p.generateRequest(s.cfg.Reports.ReportAI()))
	if err != nil {
		rc.RespondError("report_failed", err.Error())
		return
	}
	rc.Respond(summary)
}

type runsListParams struct {
	Project string `json:"project,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func (s *Server) rpcRunsList(rc *RequestContext) {
	if s.db == nil {
		rc.RespondError("unavailable", "run history not configured")
		return
	}

	var p runsListParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Limit <= 0 || p.Limit > runsListMax {
		p.Limit = runsListMax
	}

	runs, err := s.db.Runs(p.Project, p.Limit)
	if err != nil {
		rc.RespondError("store_error", err.Error())
		return
	}
	rc.Respond(map[string]any{"runs": runs})
}
