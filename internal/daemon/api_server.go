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
	"strconv"
	"strings"
	"sync"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"pressline/internal/api"
	_ "pressline/internal/apidocs"
	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stagelog"
	"pressline/internal/workflow"
)

const maxRequestBytes = 8 << 20

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	itemSvc *api.ItemService

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		daemon:  d,
		itemSvc: api.NewItemService(d.items, d.history),
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/intake", authMiddleware(token, srv.handleIntake))
	mux.HandleFunc("POST /api/batch", authMiddleware(token, srv.handleBatch))
	mux.HandleFunc("POST /api/stages/{stage}", authMiddleware(token, srv.handleTrigger))
	mux.HandleFunc("GET /api/items", authMiddleware(token, srv.handleItems))
	mux.HandleFunc("GET /api/items/{id}", authMiddleware(token, srv.handleItem))
	mux.HandleFunc("GET /api/items/{id}/history", authMiddleware(token, srv.handleHistory))
	mux.HandleFunc("POST /api/items/{id}/approve", authMiddleware(token, srv.handleApprove))
	mux.HandleFunc("POST /api/items/{id}/review", authMiddleware(token, srv.handleReview))
	mux.HandleFunc("POST /api/items/{id}/retry", authMiddleware(token, srv.handleRetry))
	mux.HandleFunc("GET /api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("GET /swagger/", authMiddleware(token, httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))))
	if cfg.Metrics.Enabled && d.metrics != nil {
		mux.Handle("GET /metrics", d.metrics.Handler())
	}

	srv.server = &http.Server{
		Handler:           srv.accessLog(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.StageTimeout() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api server disabled", logging.String(logging.FieldEventType, "api_disabled"))
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

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
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

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req api.IntakeRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, err)
		return
	}
	if err := validateRawContent(req.RawContent); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.daemon.intake.Submit(r.Context(), req.ContentID, req.RawContent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.writeError(w, services.Wrap(services.ErrValidation, "", "batch", "read request body", err))
		return
	}
	resp, err := s.daemon.intake.Batch(r.Context(), body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, resp.HTTPStatus(), resp)
}

func (s *apiServer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	name, err := stagelog.ParseStage(r.PathValue("stage"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req api.TriggerRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.ContentID) == "" {
		s.writeError(w, services.Wrap(services.ErrValidation, string(name), "trigger", "content_id is required", nil))
		return
	}

	outcome, err := s.daemon.workflow.Trigger(r.Context(), req.ContentID, name, workflow.TriggerOptions{Force: req.Force})
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if outcome.Failed {
		status = api.OutcomeStatusCode(outcome.ErrorKind)
	}
	s.writeJSON(w, status, api.FromOutcome(outcome))
}

func (s *apiServer) handleItems(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	items, err := s.itemSvc.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ItemListResponse{Items: items})
}

func (s *apiServer) handleItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.itemSvc.Describe(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ItemResponse{Item: *item})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.itemSvc.History(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req api.DecisionRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		s.writeError(w, err)
		return
	}
	item, err := s.daemon.workflow.Approve(r.Context(), r.PathValue("id"), req.Reason)
	s.writeItem(w, item, err)
}

func (s *apiServer) handleReview(w http.ResponseWriter, r *http.Request) {
	var req api.DecisionRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		s.writeError(w, err)
		return
	}
	item, err := s.daemon.workflow.HoldForReview(r.Context(), r.PathValue("id"), req.Reason)
	s.writeItem(w, item, err)
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	item, err := s.daemon.workflow.Retry(r.Context(), r.PathValue("id"))
	s.writeItem(w, item, err)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		StorageDriver: status.StorageDriver,
		DatabasePath:  status.DatabasePath,
		LockFilePath:  status.LockFilePath,
		APIBind:       status.APIBind,
		Workflow:      api.FromStatusSummary(status.Workflow),
	})
}

func (s *apiServer) writeItem(w http.ResponseWriter, item *content.Item, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ItemResponse{Item: api.FromItem(item)})
}

func parseListFilter(r *http.Request) (content.ListFilter, error) {
	query := r.URL.Query()
	var filter content.ListFilter
	for _, value := range query["status"] {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := content.ParseStatus(part)
			if err != nil {
				return content.ListFilter{}, err
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	for key, target := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return content.ListFilter{}, services.Wrap(services.ErrValidation, "", "list items", key+" must be a non-negative integer", nil)
		}
		*target = n
	}
	return filter, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any, optional bool) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(target); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return services.Wrap(services.ErrValidation, "", "decode request", "request body must be a JSON object", err)
	}
	return nil
}

func validateRawContent(raw json.RawMessage) error {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return services.Wrap(services.ErrValidation, "", "intake", "raw_content must be a JSON object", nil)
	}
	return nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	resp := api.NewErrorResponse(err)
	status := api.StatusCode(services.ErrorKind(resp.Details.Kind))
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(s.logger, "api request failed", "api_request_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, resp.Details.Kind),
			logging.String(logging.FieldErrorHint, resp.Details.Hint),
			logging.String(logging.FieldImpact, "request returned an error to the caller"),
		)
	}
	s.writeJSON(w, status, resp)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *apiServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("api request",
			logging.String(logging.FieldEventType, "api_request"),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("duration", time.Since(started)),
		)
	})
}
