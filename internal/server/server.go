// Package server exposes the document registry over a JSON HTTP API
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nainya/docsim/internal/logger"
	"github.com/nainya/docsim/internal/metrics"
	"github.com/nainya/docsim/internal/seed"
	"github.com/nainya/docsim/pkg/document"
	"github.com/nainya/docsim/pkg/fragment"
	"github.com/nainya/docsim/pkg/journal"
	"github.com/nainya/docsim/pkg/query"
	"github.com/nainya/docsim/pkg/transition"
)

// Config holds API server settings
type Config struct {
	Port             int
	SimulatedLatency time.Duration
}

// Server wires the query engine, batch coordinator, and fragment index over
// one shared store and serves them under /api/v1.
type Server struct {
	store     *document.RecordStore
	queries   *query.Engine
	coord     *transition.Coordinator
	fragments *fragment.Index
	jnl       *journal.Log
	log       *logger.Logger
	metrics   *metrics.Metrics

	router *gin.Engine
	server *http.Server
}

// NewServer creates the API server and mounts all routes
func NewServer(store *document.RecordStore, jnl *journal.Log, log *logger.Logger, m *metrics.Metrics, cfg Config) *Server {
	s := &Server{
		store:     store,
		queries:   query.NewEngine(store),
		coord:     transition.NewCoordinator(store, jnl),
		fragments: fragment.NewIndex(store),
		jnl:       jnl,
		log:       log,
		metrics:   m,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), observe(m, log))
	if cfg.SimulatedLatency > 0 {
		router.Use(simulateLatency(cfg.SimulatedLatency))
	}

	api := router.Group("/api/v1")
	api.GET("/documents", s.listDocuments)
	api.GET("/documents/:nid", s.getDocument)
	api.GET("/documents/:nid/fragments", s.listFragments)
	api.GET("/documents/:nid/journal", s.recordJournal)
	api.PATCH("/documents/:nid/timestamps", s.updateTimestamps)
	api.POST("/documents/retry", s.retryDocuments)
	api.POST("/documents/reset", s.resetDocuments)
	api.POST("/documents/reset-all", s.resetAllDocuments)
	api.POST("/sync", s.syncRecords)
	api.GET("/stats", s.stats)

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router returns the HTTP handler. Tests drive it directly through httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving the API and blocks until shutdown
func (s *Server) Start() error {
	s.log.Info("Starting API server").
		Str("addr", s.server.Addr).
		Send()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the API server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.LogServerShutdown()
	return s.server.Shutdown(ctx)
}

// listDocuments handles GET /api/v1/documents
func (s *Server) listDocuments(c *gin.Context) {
	statuses, err := parseStatusCSV(c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}

	page, err := parseIntParam(c, "page", 1)
	if err != nil {
		writeError(c, err)
		return
	}
	pageSize, err := parseIntParam(c, "pageSize", 10)
	if err != nil {
		writeError(c, err)
		return
	}

	f := query.Filter{
		NID:       c.Query("nid"),
		Statuses:  statuses,
		FileTypes: splitCSV(c.Query("fileTypes")),
	}

	res, err := s.queries.List(f, query.Page{Page: page, PageSize: pageSize})
	if err != nil {
		writeError(c, err)
		return
	}

	s.metrics.RecordQueriesTotal.Inc()
	c.JSON(http.StatusOK, listResponse{
		Items:    toDocumentViews(res.Items),
		Total:    res.Total,
		Page:     res.Page,
		PageSize: res.PageSize,
	})
}

// getDocument handles GET /api/v1/documents/:nid
func (s *Server) getDocument(c *gin.Context) {
	rec, err := s.store.Get(c.Param("nid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentView(rec))
}

// retryDocuments handles POST /api/v1/documents/retry
func (s *Server) retryDocuments(c *gin.Context) {
	var req batchRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	start := time.Now()
	res, err := s.coord.Retry(transition.Selection{NIDs: req.NIDs, FileTypes: req.FileTypes})
	s.finishBatch(c, "retry", res, err, time.Since(start))
}

// resetDocuments handles POST /api/v1/documents/reset
func (s *Server) resetDocuments(c *gin.Context) {
	var req batchRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	policy, err := transition.ParsePolicy(req.Policy)
	if err != nil {
		writeError(c, err)
		return
	}

	start := time.Now()
	res, err := s.coord.Reset(transition.Selection{NIDs: req.NIDs, FileTypes: req.FileTypes}, policy)
	s.finishBatch(c, "reset", res, err, time.Since(start))
}

// resetAllDocuments handles POST /api/v1/documents/reset-all
func (s *Server) resetAllDocuments(c *gin.Context) {
	var req resetAllRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	policy, err := transition.ParsePolicy(req.Policy)
	if err != nil {
		writeError(c, err)
		return
	}

	start := time.Now()
	res, err := s.coord.ResetAll(policy)
	s.finishBatch(c, "reset_all", res, err, time.Since(start))
}

// finishBatch records metrics and logging for one batch run and writes the
// response. Failed runs produce no response body beyond the error.
func (s *Server) finishBatch(c *gin.Context, operation string, res *transition.BatchResult, err error, duration time.Duration) {
	if err != nil {
		s.metrics.RecordBatchOperation(operation, 0, duration, err)
		s.log.LogBatchOperation(operation, "", 0, duration, err)
		writeError(c, err)
		return
	}

	s.metrics.RecordBatchOperation(operation, res.AffectedCount, duration, nil)
	s.metrics.RecordTransitions(operation, "applied", res.AffectedCount)
	s.metrics.RecordTransitions(operation, "skipped_processing", res.SkippedProcessing)
	s.metrics.RecordTransitions(operation, "skipped_pending", res.SkippedPending)
	s.metrics.RecordTransitions(operation, "not_found", res.NotFound)
	s.log.LogBatchOperation(operation, res.TaskID, res.AffectedCount, duration, nil)
	s.updateRecordGauges()

	c.JSON(http.StatusOK, batchResponse{
		Message:       res.Message,
		AffectedCount: res.AffectedCount,
	})
}

// syncRecords handles POST /api/v1/sync. The refresh restores seed records
// that were removed, never touching records that drifted.
func (s *Server) syncRecords(c *gin.Context) {
	added, err := seed.Refresh(s.store)
	if err != nil {
		writeError(c, err)
		return
	}

	now := s.store.Now()
	for _, nid := range added {
		s.jnl.Append(journal.Entry{
			NID:     nid,
			Stage:   journal.StageSync,
			Level:   journal.LevelInfo,
			Message: "record restored by ingestion refresh",
			At:      now,
		})
	}

	s.metrics.RecordSync(len(added))
	s.updateRecordGauges()
	s.log.Info("Ingestion refresh completed").
		Int("added", len(added)).
		Send()

	c.Status(http.StatusNoContent)
}

// updateTimestamps handles PATCH /api/v1/documents/:nid/timestamps
func (s *Server) updateTimestamps(c *gin.Context) {
	nid := c.Param("nid")

	var req timestampsRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if req.UpdateTime == nil && req.LastUpdateTime == nil {
		writeError(c, fmt.Errorf("at least one of updateTime, lastUpdateTime is required: %w", document.ErrInvalidInput))
		return
	}
	if req.UpdateTime != nil && *req.UpdateTime < 0 {
		writeError(c, fmt.Errorf("updateTime must be non-negative epoch milliseconds: %w", document.ErrInvalidInput))
		return
	}
	if req.LastUpdateTime != nil && *req.LastUpdateTime < 0 {
		writeError(c, fmt.Errorf("lastUpdateTime must be non-negative epoch milliseconds: %w", document.ErrInvalidInput))
		return
	}

	resp := timestampsResponse{NID: nid}
	_, err := s.store.Mutate(nid, func(rec *document.DocumentRecord) error {
		if req.UpdateTime != nil {
			resp.UpdateTime = &timestampChange{Old: rec.UpdateTime.UnixMilli(), New: *req.UpdateTime}
			rec.UpdateTime = time.UnixMilli(*req.UpdateTime)
		}
		if req.LastUpdateTime != nil {
			resp.LastUpdateTime = &timestampChange{Old: rec.LastUpdateTime.UnixMilli(), New: *req.LastUpdateTime}
			rec.LastUpdateTime = time.UnixMilli(*req.LastUpdateTime)
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}

	s.jnl.Append(journal.Entry{
		NID:     nid,
		Stage:   journal.StageTimestamps,
		Level:   journal.LevelInfo,
		Message: "timestamps adjusted: " + strings.Join(changedFields(req), ", "),
		At:      s.store.Now(),
	})

	c.JSON(http.StatusOK, resp)
}

// listFragments handles GET /api/v1/documents/:nid/fragments
func (s *Server) listFragments(c *gin.Context) {
	page, err := parseIntParam(c, "page", 1)
	if err != nil {
		writeError(c, err)
		return
	}
	pageSize, err := parseIntParam(c, "pageSize", 10)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := s.fragments.List(c.Param("nid"), c.Query("keyword"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	s.metrics.FragmentQueriesTotal.Inc()
	c.JSON(http.StatusOK, fragmentsResponse{
		Items: res.Items,
		Total: res.Total,
	})
}

// recordJournal handles GET /api/v1/documents/:nid/journal
func (s *Server) recordJournal(c *gin.Context) {
	nid := c.Param("nid")

	limit, err := parseIntParam(c, "limit", 50)
	if err != nil {
		writeError(c, err)
		return
	}

	// The journal itself has no notion of unknown records.
	if _, err := s.store.Get(nid); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, journalResponse{
		Items: toJournalViews(s.jnl.ForRecord(nid, limit)),
		Total: s.jnl.Len(nid),
	})
}

// stats handles GET /api/v1/stats
func (s *Server) stats(c *gin.Context) {
	counts := s.store.CountByStatus()
	pending := counts[document.StatusPending]
	processing := counts[document.StatusProcessing]
	completed := counts[document.StatusCompleted]
	rejected := counts[document.StatusRejected]

	rate := 0.0
	if terminal := completed + rejected; terminal > 0 {
		rate = math.Round(float64(completed)/float64(terminal)*10000) / 100
	}

	s.metrics.UpdateRecordCounts(pending, processing, completed, rejected)
	c.JSON(http.StatusOK, statsResponse{
		Total:       s.store.Len(),
		Pending:     pending,
		Processing:  processing,
		Completed:   completed,
		Rejected:    rejected,
		SuccessRate: rate,
	})
}

func (s *Server) updateRecordGauges() {
	counts := s.store.CountByStatus()
	s.metrics.UpdateRecordCounts(
		counts[document.StatusPending],
		counts[document.StatusProcessing],
		counts[document.StatusCompleted],
		counts[document.StatusRejected],
	)
}

// writeError maps domain errors onto HTTP status codes. Anything outside
// the taxonomy is a 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, document.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, document.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, document.ErrCurrentlyProcessing):
		status = http.StatusConflict
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// bindJSON decodes an optional JSON body. An empty body leaves the target
// zero-valued; a malformed one is invalid input.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("malformed request body: %w", document.ErrInvalidInput)
	}
	return nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseStatusCSV(raw string) ([]document.Status, error) {
	parts := splitCSV(raw)
	if len(parts) == 0 {
		return nil, nil
	}
	statuses := make([]document.Status, 0, len(parts))
	for _, p := range parts {
		code, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("status %q is not a number: %w", p, document.ErrInvalidInput)
		}
		st, err := document.ParseStatus(code)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func parseIntParam(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number: %w", name, raw, document.ErrInvalidInput)
	}
	return v, nil
}

func changedFields(req timestampsRequest) []string {
	fields := make([]string, 0, 2)
	if req.UpdateTime != nil {
		fields = append(fields, "updateTime")
	}
	if req.LastUpdateTime != nil {
		fields = append(fields, "lastUpdateTime")
	}
	return fields
}
