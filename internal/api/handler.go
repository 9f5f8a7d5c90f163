// Package api serves the analysis engine over HTTP. Clients POST raw log
// rows and receive the full analysis result; repeated requests over
// unchanged inputs are served from the result cache.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/henrilopes1/log-analyzer/internal/cache"
	"github.com/henrilopes1/log-analyzer/internal/config"
	"github.com/henrilopes1/log-analyzer/internal/detect"
	apperrors "github.com/henrilopes1/log-analyzer/internal/errors"
	"github.com/henrilopes1/log-analyzer/internal/loader"
	"github.com/henrilopes1/log-analyzer/internal/normalize"
	"github.com/henrilopes1/log-analyzer/internal/schema"
)

// Publisher is the downstream findings sink the handler notifies after a
// run. The Kafka publisher satisfies it; nil disables publishing.
type Publisher interface {
	PublishFindings(ctx context.Context, result *detect.Result) error
}

// Handler serves analysis requests.
type Handler struct {
	cfg         *config.Config
	normalizer  *normalize.Normalizer
	resultCache *cache.TwoTier
	publisher   Publisher
	metrics     *Metrics
	logger      *slog.Logger

	startTime    time.Time
	analysesRun  atomic.Int64
	lastAnalysis atomic.Value // stores uuid.UUID
}

// NewHandler creates the API handler. resultCache and publisher may be nil.
func NewHandler(cfg *config.Config, resultCache *cache.TwoTier, publisher Publisher, metrics *Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Handler{
		cfg:         cfg,
		normalizer:  normalize.New(logger),
		resultCache: resultCache,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		startTime:   time.Now(),
	}
}

// Routes returns the full route table wrapped in middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/analyze", h.HandleAnalyze)
	mux.HandleFunc("GET /v1/status", h.HandleStatus)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.Handle("GET /metrics", h.metrics.Handler())

	return WithMiddleware(mux, h.cfg, h.metrics, h.logger)
}

// AnalyzeRequest carries raw log rows straight from the client. Both row
// sets are optional but at least one must be present.
type AnalyzeRequest struct {
	Firewall json.RawMessage `json:"firewall,omitempty"`
	Auth     json.RawMessage `json:"auth,omitempty"`
	Params   *detect.Params  `json:"params,omitempty"`
}

// AnalyzeResponse wraps the analysis result with request bookkeeping.
type AnalyzeResponse struct {
	Success   bool           `json:"success"`
	Cached    bool           `json:"cached"`
	RequestID string         `json:"request_id"`
	Result    *detect.Result `json:"result"`
}

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// HandleAnalyze handles POST /v1/analyze. It accepts either a JSON body
// with raw rows or a multipart form with firewall/auth file parts.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	r.Body = http.MaxBytesReader(w, r.Body, int64(h.cfg.Server.MaxPayloadSize))

	var records []schema.Record
	var dropped int
	params := h.cfg.Detection

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var err error
		records, dropped, err = h.decodeMultipart(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), requestID)
			return
		}
	} else {
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				respondError(w, http.StatusRequestEntityTooLarge, "payload too large", requestID)
				return
			}
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err), requestID)
			return
		}

		if len(req.Firewall) == 0 && len(req.Auth) == 0 {
			respondError(w, http.StatusBadRequest, "no log rows provided", requestID)
			return
		}

		if req.Params != nil {
			params = *req.Params
			if err := params.Validate(); err != nil {
				respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid parameters: %v", err), requestID)
				return
			}
		}

		var err error
		records, dropped, err = h.decodeRows(&req)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), requestID)
			return
		}
	}
	if len(records) > h.cfg.Server.MaxBatchSize {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("batch size exceeds maximum of %d", h.cfg.Server.MaxBatchSize), requestID)
		return
	}

	result, cached := h.analyze(r.Context(), records, dropped, params)

	h.analysesRun.Add(1)
	h.lastAnalysis.Store(result.AnalysisID)

	respondJSON(w, http.StatusOK, AnalyzeResponse{
		Success:   true,
		Cached:    cached,
		RequestID: requestID,
		Result:    result,
	})
}

// decodeRows parses and normalizes both row sets.
func (h *Handler) decodeRows(req *AnalyzeRequest) ([]schema.Record, int, error) {
	var all []schema.Record
	var dropped int

	kinds := []struct {
		raw  json.RawMessage
		kind schema.Kind
	}{
		{req.Firewall, schema.KindFirewall},
		{req.Auth, schema.KindAuthentication},
	}

	for _, k := range kinds {
		if len(k.raw) == 0 {
			continue
		}
		rows, err := loader.ReadJSON(bytes.NewReader(k.raw), k.kind)
		if err != nil {
			return nil, 0, fmt.Errorf("%s rows: %w", k.kind, err)
		}
		records, drops := h.normalizer.Normalize(rows, k.kind)
		all = append(all, records...)
		dropped += drops.Total()
	}

	// Merge keeps global chronological order across both sources.
	return normalize.SortRecords(all), dropped, nil
}

// decodeMultipart reads firewall and auth file parts. File format is chosen
// by each part's filename extension, matching the CLI loader.
func (h *Handler) decodeMultipart(r *http.Request) ([]schema.Record, int, error) {
	if err := r.ParseMultipartForm(int64(h.cfg.Server.MaxPayloadSize)); err != nil {
		return nil, 0, fmt.Errorf("invalid multipart form: %w", err)
	}

	var all []schema.Record
	var dropped int
	var found bool

	for field, kind := range map[string]schema.Kind{
		"firewall": schema.KindFirewall,
		"auth":     schema.KindAuthentication,
	} {
		file, header, err := r.FormFile(field)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			return nil, 0, fmt.Errorf("%s file: %w", field, err)
		}
		found = true

		rows, err := readUpload(file, header.Filename, kind)
		file.Close()
		if err != nil {
			return nil, 0, fmt.Errorf("%s file: %w", field, err)
		}

		records, drops := h.normalizer.Normalize(rows, kind)
		all = append(all, records...)
		dropped += drops.Total()
	}

	if !found {
		return nil, 0, fmt.Errorf("no log files provided; expected firewall and/or auth parts")
	}
	return normalize.SortRecords(all), dropped, nil
}

func readUpload(file io.Reader, filename string, kind schema.Kind) ([]map[string]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return loader.ReadCSV(file, kind)
	case ".json":
		return loader.ReadJSON(file, kind)
	default:
		return nil, fmt.Errorf("unsupported file extension %q, want .csv or .json", filepath.Ext(filename))
	}
}

func (h *Handler) analyze(ctx context.Context, records []schema.Record, dropped int, params detect.Params) (*detect.Result, bool) {
	var key string
	if h.resultCache != nil {
		var err error
		key, err = cache.Key(records, params)
		if err == nil {
			if result, err := h.resultCache.Get(ctx, key); err == nil {
				h.metrics.CacheHits.Inc()
				return result, true
			}
			h.metrics.CacheMisses.Inc()
		}
	}

	start := time.Now()
	result := detect.NewEngine(params).Analyze(records).WithDropped(dropped)
	h.metrics.AnalyzeDuration.Observe(time.Since(start).Seconds())
	h.metrics.AnalysesTotal.Inc()
	h.metrics.SuspectsFound.Add(float64(len(result.Suspects)))
	h.metrics.RecordsDropped.Add(float64(dropped))

	if h.resultCache != nil && key != "" {
		if err := h.resultCache.Put(ctx, key, result, h.cfg.Cache.TTL); err != nil {
			h.logger.Warn("result cache write failed", "error", err)
		}
	}

	if h.publisher != nil && len(result.Suspects) > 0 {
		if err := h.publisher.PublishFindings(ctx, result); err != nil {
			h.logger.Error("findings publish failed", "error", err, "analysis_id", result.AnalysisID)
		}
	}

	return result, false
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	Status        string        `json:"status"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	AnalysesRun   int64         `json:"analyses_run"`
	LastAnalysis  string        `json:"last_analysis,omitempty"`
	Params        detect.Params `json:"params"`
}

// HandleStatus handles GET /v1/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		AnalysesRun:   h.analysesRun.Load(),
		Params:        h.cfg.Detection,
	}
	if id, ok := h.lastAnalysis.Load().(uuid.UUID); ok {
		resp.LastAnalysis = id.String()
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondError scrubs client-visible error text in production so file
// paths, addresses, and credential fragments never leave the process.
func respondError(w http.ResponseWriter, status int, msg, requestID string) {
	respondJSON(w, status, errorResponse{Error: apperrors.SanitizeString(msg), RequestID: requestID})
}
