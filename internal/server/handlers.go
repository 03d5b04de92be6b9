package server

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/maauso/wcfm-archiver/internal/archiver"
	"github.com/maauso/wcfm-archiver/internal/retention"
	"github.com/maauso/wcfm-archiver/internal/storage"
)

// StatusProvider reports the live state of a running engine.
type StatusProvider interface {
	RunID() string
	State() archiver.State
}

// Handlers contains the HTTP handlers for the status API.
type Handlers struct {
	engine    StatusProvider
	ledger    *retention.Ledger
	store     storage.Storage
	validator *validator.Validate
	logger    *slog.Logger
	started   time.Time
	now       func() time.Time
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithNow overrides the time source used for uptime.
func WithNow(now func() time.Time) HandlerOption {
	return func(h *Handlers) {
		h.now = now
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(engine StatusProvider, ledger *retention.Ledger, store storage.Storage, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		engine:    engine,
		ledger:    ledger,
		store:     store,
		validator: validator.New(),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.started = h.now()
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Status handles GET /status requests.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		RunID:         h.engine.RunID(),
		State:         string(h.engine.State()),
		ArchivedFiles: len(h.ledger.Files()),
		MaxFiles:      h.ledger.Len(),
		Uptime:        h.now().Sub(h.started).Seconds(),
	})
}

// Archives handles GET /archives requests. Files are listed oldest first.
func (h *Handlers) Archives(w http.ResponseWriter, r *http.Request) {
	var query ArchivesQuery
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer", "INVALID_LIMIT")
			return
		}
		query.Limit = limit
	}

	if err := h.validator.Struct(query); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	names := h.ledger.Files()
	total := len(names)
	if query.Limit > 0 && query.Limit < len(names) {
		names = names[len(names)-query.Limit:]
	}

	files := make([]ArchiveResponse, 0, len(names))
	for _, name := range names {
		entry := ArchiveResponse{Name: name}
		if fi, err := os.Stat(h.store.Path(name)); err == nil {
			entry.Size = fi.Size()
		} else {
			h.logger.Debug("archived file not readable",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
		}
		files = append(files, entry)
	}

	writeJSON(w, http.StatusOK, ArchivesResponse{Files: files, Total: total})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
