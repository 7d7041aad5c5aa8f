package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"transcoder/internal/api"
	"transcoder/internal/config"
	"transcoder/internal/history"
	"transcoder/internal/logging"
	"transcoder/internal/queue"
	"transcoder/internal/workflow"
)

const (
	serviceName           = "video-transcoding-service"
	missingFieldsMessage  = "Missing required fields: videoId, originalKey"
	invalidVideoIDMessage = "Invalid videoId: must not contain path separators or be . or .."
	maxRequestBytes       = 1 << 20
	defaultHistoryLimit   = 50
)

type apiServer struct {
	bind     string
	secret   string
	logger   *slog.Logger
	daemon   *Daemon
	validate *validator.Validate

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:     strings.TrimSpace(cfg.Paths.APIBind),
		secret:   strings.TrimSpace(cfg.Paths.APISecret),
		logger:   logging.NewComponentLogger(logger, "api-server"),
		daemon:   d,
		validate: newValidator(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("POST /transcode", authMiddleware(srv.secret, srv.handleTranscode))
	mux.HandleFunc("GET /api/status", authMiddleware(srv.secret, srv.handleStatus))
	mux.HandleFunc("GET /api/history", authMiddleware(srv.secret, srv.handleHistory))

	srv.server = &http.Server{
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// newValidator reports JSON field names instead of Go field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api server disabled; no bind address configured")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.secret != ""),
	)
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok", Service: serviceName})
}

func (s *apiServer) handleTranscode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithContext(ctx, s.logger)

	var req api.TranscodeRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Info("rejected malformed admission", logging.Error(err))
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.VideoID = strings.TrimSpace(req.VideoID)
	req.OriginalKey = strings.TrimSpace(req.OriginalKey)
	req.Filename = strings.TrimSpace(req.Filename)

	if err := s.validate.Struct(req); err != nil {
		logger.Info("rejected incomplete admission", logging.String("missing", missingFields(err)))
		s.writeError(w, http.StatusBadRequest, missingFieldsMessage)
		return
	}

	position, err := s.daemon.Submit(ctx, req.ToJob())
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrInvalidJob):
		logger.Info("rejected invalid admission", logging.Error(err))
		s.writeError(w, http.StatusBadRequest, invalidVideoIDMessage)
		return
	case errors.Is(err, queue.ErrDuplicateJob):
		s.writeError(w, http.StatusConflict, fmt.Sprintf("Video %s is already queued", req.VideoID))
		return
	case errors.Is(err, workflow.ErrStopped):
		s.writeError(w, http.StatusServiceUnavailable, "Transcoding service is shutting down")
		return
	default:
		logging.ErrorWithContext(logger, "admission failed", "admission_failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, api.TranscodeResponse{
		Success:       true,
		Message:       fmt.Sprintf("Transcoding job queued at position %d", position),
		VideoID:       req.VideoID,
		QueuePosition: position,
	})
}

func missingFields(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	names := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		names = append(names, fe.Field())
	}
	return strings.Join(names, ",")
}

func (s *apiServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.daemon.Status()
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		WorkDir:      status.WorkDir,
		Storage:      status.Storage,
		HistoryPath:  status.HistoryPath,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: api.FromDependencies(status.Dependencies),
		Profiles:     api.FromProfiles(status.Profiles),
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	reader := s.daemon.history
	if reader == nil {
		s.writeError(w, http.StatusNotFound, "History is disabled")
		return
	}
	query := r.URL.Query()
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	var (
		entries []history.Entry
		err     error
	)
	if job := strings.TrimSpace(query.Get("job")); job != "" {
		entries, err = reader.ForJob(r.Context(), job)
	} else {
		entries, err = reader.Recent(r.Context(), limit)
	}
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "history query failed", "history_query_failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Entries: api.FromHistory(entries)})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := writeJSON(w, status, payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, api.ErrorResponse{Error: message})
}
