// Package server provides the HTTP API behind the dashboard UI.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/daftar/daftar/pkg/analysis"
	"github.com/daftar/daftar/pkg/cache"
	"github.com/daftar/daftar/pkg/charts"
	"github.com/daftar/daftar/pkg/config"
	"github.com/daftar/daftar/pkg/dataset"
	"github.com/daftar/daftar/pkg/export"
	"github.com/daftar/daftar/pkg/ingest"
)

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job represents one analysis run over an uploaded dataset.
type Job struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	InputName   string     `json:"input_name"`
	InputPath   string     `json:"input_path,omitempty"`
	Rows        int        `json:"rows"`
	SkippedRows int        `json:"skipped_rows"`
	Checksum    string     `json:"checksum,omitempty"`
	CacheHit    bool       `json:"cache_hit,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Progress    Progress   `json:"progress"`
	Error       string     `json:"error,omitempty"`
}

// Progress tracks analysis progress for the SSE stream.
type Progress struct {
	Phase   string  `json:"phase"` // uploaded, parsing, analyzing, complete
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Server handles HTTP requests for the dashboard.
type Server struct {
	cfg      *config.Config
	store    *JobStore
	broker   *SSEBroker
	cache    cache.Cache
	renderer charts.Renderer
	log      *zap.Logger
	mux      *http.ServeMux
	staticFS embed.FS

	// In-memory per-job results; not persisted across restarts.
	reports  sync.Map // jobID -> *analysis.Report
	datasets sync.Map // jobID -> *dataset.Dataset
}

// NewServer creates the dashboard server.
func NewServer(cfg *config.Config, staticFS embed.FS, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	store, err := NewJobStore(cfg.Storage.JobsFile)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	if removed := store.Cleanup(cfg.Storage.JobsRetention); removed > 0 {
		log.Info("pruned old jobs", zap.Int("removed", removed))
	}

	reportCache, err := newCache(cfg)
	if err != nil {
		// The cache is an optimization; fall back rather than refuse to
		// start when Redis is unreachable.
		log.Warn("report cache unavailable, continuing without it", zap.Error(err))
		reportCache = cache.Nop{}
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		broker:   NewSSEBroker(),
		cache:    reportCache,
		renderer: charts.NewRenderer(),
		log:      log,
		mux:      http.NewServeMux(),
		staticFS: staticFS,
	}

	s.setupRoutes()
	return s, nil
}

func newCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "none":
		return cache.Nop{}, nil
	case "redis":
		rc := cache.DefaultRedisConfig(cfg.Cache.Redis.Address)
		rc.Password = cfg.Cache.Redis.Password
		rc.Database = cfg.Cache.Redis.Database
		if cfg.Cache.Redis.Prefix != "" {
			rc.Prefix = cfg.Cache.Redis.Prefix
		}
		rc.TTL = cfg.Cache.TTL
		return cache.NewRedis(context.Background(), rc)
	default:
		return cache.NewMemory(cfg.Cache.TTL), nil
	}
}

// setupRoutes configures HTTP handlers.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/sections", s.handleSections)
	s.mux.HandleFunc("/api/upload", s.handleUpload)
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/job/", s.handleJob)
	s.mux.HandleFunc("/api/report/", s.handleReport)
	s.mux.HandleFunc("/api/chart/", s.handleChart)
	s.mux.HandleFunc("/api/export/", s.handleExport)
	s.mux.HandleFunc("/api/events/", s.handleEvents)

	// Static files (embedded HTML/CSS/JS)
	s.mux.HandleFunc("/", s.handleStatic)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	w.Header().Set("Access-Control-Allow-Origin", corsOrigin(s.cfg))
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mux.ServeHTTP(w, r)

	if strings.HasPrefix(r.URL.Path, "/api/") && !strings.HasPrefix(r.URL.Path, "/api/events/") {
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func corsOrigin(cfg *config.Config) string {
	if len(cfg.Server.CORSOrigins) > 0 {
		return cfg.Server.CORSOrigins[0]
	}
	return "*"
}

// Close releases resources.
func (s *Server) Close() error {
	if err := s.cache.Close(); err != nil {
		s.log.Warn("close cache", zap.Error(err))
	}
	return s.store.Close()
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"})
}

// handleSections returns the section descriptors for the toggle sidebar.
func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, analysis.SectionList)
}

// handleUpload receives a registration export and starts analysis.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxBytes := s.cfg.Server.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "Upload exceeds the size limit", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Failed to parse upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	tempDir := s.cfg.Server.UploadTempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		jsonError(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	jobID := uuid.NewString()
	tempPath := filepath.Join(tempDir, jobID+"-"+filepath.Base(header.Filename))

	out, err := os.Create(tempPath)
	if err != nil {
		jsonError(w, "Failed to save file", http.StatusInternalServerError)
		return
	}
	size, err := io.Copy(out, file)
	out.Close()
	if err != nil {
		jsonError(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	s.store.Put(Job{
		ID:        jobID,
		Status:    JobPending,
		InputName: header.Filename,
		InputPath: tempPath,
		StartTime: time.Now(),
		Progress: Progress{
			Phase:   "uploaded",
			Message: "File uploaded, analysis starting",
		},
	})

	go s.runAnalysis(jobID)

	jsonResponse(w, map[string]interface{}{
		"job_id":    jobID,
		"file_name": header.Filename,
		"file_size": size,
	})
}

// handleAnalyze starts (or restarts) analysis for a job or a
// server-local path, including s3:// URIs.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		JobID string `json:"job_id"`
		Path  string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var jobID string
	if req.JobID != "" {
		if _, ok := s.store.Get(req.JobID); !ok {
			jsonError(w, "Job not found", http.StatusNotFound)
			return
		}
		jobID = req.JobID
	} else {
		if req.Path == "" {
			jsonError(w, "job_id or path required", http.StatusBadRequest)
			return
		}
		jobID = uuid.NewString()
		s.store.Put(Job{
			ID:        jobID,
			Status:    JobPending,
			InputName: filepath.Base(req.Path),
			InputPath: req.Path,
			StartTime: time.Now(),
		})
	}

	go s.runAnalysis(jobID)

	jsonResponse(w, map[string]string{
		"job_id": jobID,
		"status": "started",
	})
}

// runAnalysis performs the load-clean-aggregate pipeline for one job.
// The goroutine never holds its own *Job; every mutation goes through
// the store so concurrent readers see consistent copies.
func (s *Server) runAnalysis(jobID string) {
	ctx := context.Background()
	tracer := otel.Tracer("daftar/server")
	ctx, span := tracer.Start(ctx, "analyze")
	defer span.End()

	job, ok := s.setProgress(jobID, JobRunning, "parsing", 10, "Parsing dataset...")
	if !ok {
		return
	}

	ds, err := ingest.Load(ctx, job.InputPath, ingest.DefaultOptions())
	if err != nil {
		s.failJob(jobID, err)
		return
	}

	checksum := ds.Checksum()
	s.store.Update(jobID, func(j *Job) {
		j.Rows = ds.Len()
		j.SkippedRows = ds.SkippedRows
		j.Checksum = checksum
	})
	s.datasets.Store(jobID, ds)
	s.setProgress(jobID, JobRunning, "analyzing", 50, "Computing report sections...")

	rep, hit, err := s.cachedReport(ctx, checksum, ds)
	if err != nil {
		s.failJob(jobID, err)
		return
	}

	s.reports.Store(jobID, rep)

	now := time.Now()
	s.store.Update(jobID, func(j *Job) {
		j.CacheHit = hit
		j.EndTime = &now
	})
	job, _ = s.setProgress(jobID, JobCompleted, "complete", 100, "Analysis complete")
	s.broker.PublishComplete(jobID, job)

	s.log.Info("analysis complete",
		zap.String("job", jobID),
		zap.String("input", job.InputName),
		zap.Int("rows", job.Rows),
		zap.Int("skipped", job.SkippedRows),
		zap.Bool("cache_hit", hit))
}

// cachedReport returns a cached report for the dataset checksum or
// computes and stores one.
func (s *Server) cachedReport(ctx context.Context, checksum string, ds *dataset.Dataset) (*analysis.Report, bool, error) {
	if rep, ok, err := s.cache.Get(ctx, checksum); err == nil && ok {
		return rep, true, nil
	}

	counter, closeCounter, err := analysis.EngineCounter(s.cfg.Analysis.Engine, ds)
	if err != nil {
		return nil, false, err
	}
	defer closeCounter()

	rep, err := analysis.BuildReport(ctx, analysis.Meta{
		Source:      ds.SourceName,
		Rows:        ds.Len(),
		SkippedRows: ds.SkippedRows,
		Checksum:    checksum,
	}, counter, s.reportOptions())
	if err != nil {
		return nil, false, err
	}

	if err := s.cache.Put(ctx, checksum, rep); err != nil {
		s.log.Warn("cache put failed", zap.Error(err))
	}
	return rep, false, nil
}

func (s *Server) reportOptions() analysis.Options {
	return analysis.Options{
		TopRegencies:    s.cfg.Analysis.TopRegencies,
		TopOccupations:  s.cfg.Analysis.TopOccupations,
		TopSchools:      s.cfg.Analysis.TopSchools,
		HighlightRegion: s.cfg.Analysis.HighlightRegion,
	}
}

func (s *Server) setProgress(jobID, status, phase string, percent float64, message string) (Job, bool) {
	job, ok := s.store.Update(jobID, func(j *Job) {
		j.Status = status
		j.Progress = Progress{Phase: phase, Percent: percent, Message: message}
	})
	if ok {
		s.broker.PublishProgress(jobID, job)
	}
	return job, ok
}

func (s *Server) failJob(jobID string, err error) {
	now := time.Now()
	s.store.Update(jobID, func(j *Job) {
		j.Status = JobFailed
		j.Error = err.Error()
		j.EndTime = &now
	})
	s.broker.PublishError(jobID, err)
	s.log.Warn("analysis failed", zap.String("job", jobID), zap.Error(err))
}

// handleJobs lists all jobs.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.store.List())
}

// handleJob returns one job's status.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/job/")
	if jobID == "" {
		jsonError(w, "Job ID required", http.StatusBadRequest)
		return
	}

	job, ok := s.store.Get(jobID)
	if !ok {
		jsonError(w, "Job not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, job)
}

// handleReport returns the report JSON, optionally filtered to the
// sections the UI has toggled on (?sections=a,b,c).
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/report/")
	rep, ok := s.report(jobID)
	if !ok {
		jsonError(w, "No report for job", http.StatusNotFound)
		return
	}

	if raw := r.URL.Query().Get("sections"); raw != "" {
		rep = rep.Filtered(strings.Split(raw, ","))
	}
	jsonResponse(w, rep)
}

// handleChart renders one chart as PNG:
// /api/chart/{job}/{section}/{chart}.png
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/chart/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		jsonError(w, "Expected /api/chart/{job}/{section}/{chart}.png", http.StatusBadRequest)
		return
	}
	jobID, sectionID := parts[0], parts[1]
	chartID := strings.TrimSuffix(parts[2], ".png")

	rep, ok := s.report(jobID)
	if !ok {
		jsonError(w, "No report for job", http.StatusNotFound)
		return
	}
	section, ok := rep.Section(sectionID)
	if !ok {
		jsonError(w, "Unknown section", http.StatusNotFound)
		return
	}
	c, ok := section.Chart(chartID)
	if !ok {
		jsonError(w, "Unknown chart", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := s.renderer.Render(w, *c); err != nil {
		s.log.Warn("chart render failed",
			zap.String("job", jobID),
			zap.String("chart", chartID),
			zap.Error(err))
	}
}

// handleExport serves the processed dataset:
// /api/export/{job}?format=csv|xlsx|arrow
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/export/")
	v, ok := s.datasets.Load(jobID)
	if !ok {
		jsonError(w, "No dataset for job", http.StatusNotFound)
		return
	}
	ds := v.(*dataset.Dataset)

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "processed_student_data."+format.Extension()))
	if err := export.Dataset(w, ds, format); err != nil {
		s.log.Warn("export failed", zap.String("job", jobID), zap.Error(err))
	}
}

// handleEvents streams job progress via SSE: /api/events/{job}
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/events/")
	if jobID == "" {
		jsonError(w, "Job ID required", http.StatusBadRequest)
		return
	}

	var initial interface{}
	if job, ok := s.store.Get(jobID); ok {
		initial = job
	}
	s.broker.SSEHandler(jobID, initial)(w, r)
}

// handleStatic serves the embedded web UI.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	data, err := s.staticFS.ReadFile("web" + path)
	if err != nil {
		data, err = s.staticFS.ReadFile("web/index.html")
		if err != nil {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
	}

	switch filepath.Ext(path) {
	case ".html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case ".css":
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	case ".js":
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	case ".json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}

	w.Write(data)
}

func (s *Server) report(jobID string) (*analysis.Report, bool) {
	v, ok := s.reports.Load(jobID)
	if !ok {
		return nil, false
	}
	return v.(*analysis.Report), true
}

// Helper functions

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
