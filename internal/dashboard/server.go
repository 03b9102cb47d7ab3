// Package dashboard serves the analysis page and the scrape/refresh actions.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/JakeFAU/gradcafe-crawler/internal/metrics"
	"github.com/JakeFAU/gradcafe-crawler/internal/pipeline"
	"github.com/JakeFAU/gradcafe-crawler/internal/storage/postgres"
)

// User-facing messages.
const (
	MsgScrapeBusy   = "Scraping already in progress. Please wait."
	MsgRefreshBusy  = "Cannot update analysis: Pull Data is running."
	MsgPulled       = "Data pulled successfully!"
	MsgRefreshed    = "Analysis refreshed with latest database results."
	MsgScrapeFailed = "Data pull failed. Please try again later."
	MsgQueryFailed  = "Analysis is unavailable. Please try again later."
)

// Form actions.
const (
	ActionScrape  = "scrape"
	ActionRefresh = "refresh"
)

// ErrBusy is returned when a scrape is requested while another one holds the lock.
var ErrBusy = errors.New("pipeline run already in progress")

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// Analyzer computes the analysis answers.
type Analyzer interface {
	Answers(ctx context.Context) ([]postgres.Answer, error)
}

// Server wires HTTP handlers to the pipeline and analyzer.
type Server struct {
	router   chi.Router
	runner   Runner
	analyzer Analyzer
	lock     *RunLock
	logger   *zap.Logger

	mu     sync.RWMutex
	latest []postgres.Answer
}

type pageData struct {
	Message string
	Busy    bool
	Answers []postgres.Answer
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, analyzer Analyzer, lock *RunLock, logger *zap.Logger) (*Server, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	if lock == nil {
		lock = &RunLock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner:   runner,
		analyzer: analyzer,
		lock:     lock,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", s.index)
	r.Post("/", s.action)

	s.router = r
	return s, nil
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Scrape runs the pipeline under the run lock and refreshes the cached analysis.
func (s *Server) Scrape(ctx context.Context) ([]postgres.Answer, error) {
	if !s.lock.TryAcquire() {
		return nil, ErrBusy
	}
	defer s.lock.Release()

	res, err := s.runner.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline run: %w", err)
	}
	s.logger.Info("scrape finished", zap.String("run_id", res.RunID), zap.Int("new", res.New), zap.Int("total", res.Total))
	return s.refresh(ctx)
}

func (s *Server) refresh(ctx context.Context) ([]postgres.Answer, error) {
	answers, err := s.analyzer.Answers(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute analysis: %w", err)
	}
	s.mu.Lock()
	s.latest = answers
	s.mu.Unlock()
	return answers, nil
}

func (s *Server) cached() []postgres.Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	answers := s.cached()
	if answers == nil {
		var err error
		if answers, err = s.refresh(r.Context()); err != nil {
			s.fail(w, r, MsgQueryFailed, err)
			return
		}
	}
	s.render(w, r, http.StatusOK, pageData{Answers: answers, Busy: s.lock.Busy()})
}

func (s *Server) action(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("action") == ActionScrape {
		s.scrape(w, r)
		return
	}
	if s.lock.Busy() {
		s.render(w, r, http.StatusConflict, pageData{Message: MsgRefreshBusy, Busy: true, Answers: s.cached()})
		return
	}
	answers, err := s.refresh(r.Context())
	if err != nil {
		s.fail(w, r, MsgQueryFailed, err)
		return
	}
	s.render(w, r, http.StatusOK, pageData{Message: MsgRefreshed, Answers: answers})
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	// The run outlives a disconnected client.
	answers, err := s.Scrape(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, ErrBusy):
		s.render(w, r, http.StatusConflict, pageData{Message: MsgScrapeBusy, Busy: true, Answers: s.cached()})
	case err != nil:
		s.fail(w, r, MsgScrapeFailed, err)
	default:
		s.render(w, r, http.StatusOK, pageData{Message: MsgPulled, Answers: answers})
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error("dashboard request failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	http.Error(w, msg, http.StatusInternalServerError)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		s.fail(w, r, "internal server error", fmt.Errorf("render template: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec), zap.Stack("stack"))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
