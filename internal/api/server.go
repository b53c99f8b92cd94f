package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/walletscan/internal/api/middleware"
	model "github.com/khanhnv2901/walletscan/internal/domain/scan"
	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

const maxRequestBody = 1 << 20

// ScanService runs a synchronous scan.
type ScanService interface {
	Run(ctx context.Context, raw string) (*model.Result, error)
	Patterns() []string
}

type HealthService interface {
	Check(ctx context.Context) error
	Ready(ctx context.Context) error
}

type JobService interface {
	StartJob(ctx context.Context, req JobRequest) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]Job, error)
	Subscribe() (chan Job, func())
}

// ScanRequest is the body of POST /api/v1/scan.
type ScanRequest struct {
	Target string `json:"target"`
}

// ScanResponse is a Result plus the pre-built match table rows.
type ScanResponse struct {
	*model.Result
	Rows [][3]string `json:"rows"`
}

type Config struct {
	Scanner     ScanService
	Health      HealthService
	Jobs        JobService
	AuthToken   string
	Logger      *zap.Logger
	CORSOrigins []string // Allowed CORS origins (empty = allow all)
	RateLimit   int      // Requests per second per IP (0 = disabled)
	RateBurst   int      // Burst size for rate limiter
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	limiters *rateLimiterMap
}

func NewServer(cfg Config) *Server {
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(),
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// RequestID -> Logging -> RateLimit -> CORS -> Auth -> Handler
	handler := middleware.RequestID(s.withLogging(s.withRateLimit(s.withCORS(s.mux))))
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	for _, prefix := range []string{"/api/v1", "/api"} {
		s.mux.Handle(prefix+"/health", s.withAuth(http.HandlerFunc(s.handleHealth)))
		s.mux.Handle(prefix+"/ready", s.withAuth(http.HandlerFunc(s.handleReady)))
		s.mux.Handle(prefix+"/patterns", s.withAuth(http.HandlerFunc(s.handlePatterns)))
		s.mux.Handle(prefix+"/scan", s.withAuth(http.HandlerFunc(s.handleScan)))
		s.mux.Handle(prefix+"/jobs", s.withAuth(http.HandlerFunc(s.handleJobs)))
		s.mux.Handle(prefix+"/jobs/", s.withAuth(http.HandlerFunc(s.handleJobByID)))
		s.mux.Handle(prefix+"/jobs-stream", s.withAuth(http.HandlerFunc(s.handleJobStream)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Check(r.Context()); err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Ready(r.Context()); err != nil {
			s.writeError(w, r, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Scanner == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("scanner not available"))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"patterns": s.cfg.Scanner.Patterns()})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Scanner == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("scanner not available"))
		return
	}

	var target string
	switch r.Method {
	case http.MethodGet:
		target = r.URL.Query().Get("target")
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		var req ScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, errors.New("invalid request body"))
			return
		}
		target = req.Target
	default:
		s.methodNotAllowed(w, r)
		return
	}

	result, err := s.cfg.Scanner.Run(r.Context(), target)
	if err != nil {
		s.writeError(w, r, scanErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{Result: result, Rows: result.Rows()})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		limit := 25
		if q := r.URL.Query().Get("limit"); q != "" {
			if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		jobs, err := s.cfg.Jobs.ListJobs(r.Context(), limit)
		if err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, jobs)
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		var req JobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, errors.New("invalid request body"))
			return
		}
		job, err := s.cfg.Jobs.StartJob(r.Context(), req)
		if err != nil {
			s.writeError(w, r, scanErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusAccepted, job)
	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	id := r.URL.Path[strings.LastIndex(r.URL.Path, "/jobs/")+len("/jobs/"):]
	if id == "" {
		s.writeError(w, r, http.StatusNotFound, errors.New("job ID required"))
		return
	}
	job, err := s.cfg.Jobs.GetJob(r.Context(), id)
	if err != nil || job == nil {
		s.writeError(w, r, http.StatusNotFound, scanerrors.ErrJobNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	// Subscribe before the headers go out so a client never misses an update.
	updates, unsubscribe := s.cfg.Jobs.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case job, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(job)
			if err != nil {
				s.requestLogger(r).Error("failed to marshal job", zap.Error(err))
				continue
			}
			chunk := make([]byte, 0, len(payload)+20)
			chunk = append(chunk, "event: job\ndata: "...)
			chunk = append(chunk, payload...)
			chunk = append(chunk, "\n\n"...)
			if !s.writeStreamChunk(w, chunk) {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		burst := s.cfg.RateBurst
		if burst <= 0 {
			burst = s.cfg.RateLimit
		}
		if !s.limiters.getLimiter(ip, s.cfg.RateLimit, burst).Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded", zap.String("client_ip", ip))
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop and strips any port.
func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip, _, _ = strings.Cut(forwarded, ",")
		ip = strings.TrimSpace(ip)
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		if s.cfg.Logger != nil {
			s.cfg.Logger.Info("http_request",
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", lrw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.Int64("bytes", lrw.bytesWritten),
			)
		}
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter captures the status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

// Flush lets the job stream flush through the logging wrapper.
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// scanErrorStatus maps scan errors onto HTTP status codes.
func scanErrorStatus(err error) int {
	switch {
	case errors.Is(err, scanerrors.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, scanerrors.ErrTargetInactive):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// publicError returns the message a client may see for a scan error.
func publicError(err error) string {
	switch {
	case errors.Is(err, scanerrors.ErrInvalidTarget):
		return scanerrors.ErrInvalidTarget.Error()
	case errors.Is(err, scanerrors.ErrTargetInactive):
		return scanerrors.ErrTargetInactive.Error()
	default:
		return "internal server error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	switch {
	case status >= 500:
		// Details stay in the server log.
		s.requestLogger(r).Error("internal_server_error", zap.Error(err), zap.Int("status", status))
		msg = "internal server error"
	case errors.Is(err, scanerrors.ErrInvalidTarget), errors.Is(err, scanerrors.ErrTargetInactive):
		msg = publicError(err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) writeStreamChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		if s.cfg.Logger != nil {
			s.cfg.Logger.Error("failed to write stream chunk", zap.Error(err))
		}
		return false
	}
	return true
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
	}
	go m.cleanupLoop()
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.limiters[ip]
	if !exists {
		entry = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// cleanupLoop removes limiters that haven't been used in 5 minutes
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		for ip, entry := range m.limiters {
			if time.Since(entry.lastSeen) > 5*time.Minute {
				delete(m.limiters, ip)
			}
		}
		m.mu.Unlock()
	}
}
