package trigger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/tally/internal/expenses"
	"github.com/JaimeStill/tally/internal/workflow"
	"github.com/JaimeStill/tally/pkg/handlers"
	"github.com/JaimeStill/tally/pkg/routes"
)

const maxRequestBytes = 64 * 1024

// Queue publishes trigger events.
type Queue interface {
	Publish(ctx context.Context, e Event) (string, error)
}

// Handler exposes pipeline runs over HTTP.
type Handler struct {
	run    Runner
	queue  Queue
	logger *slog.Logger
}

// NewHandler creates a Handler. A nil queue disables async requests.
func NewHandler(run Runner, queue Queue, logger *slog.Logger) *Handler {
	return &Handler{
		run:    run,
		queue:  queue,
		logger: logger.With("handler", "extractions"),
	}
}

// Routes returns the route group for extraction endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:  "/extractions",
		Tag:     "Extractions",
		Schemas: schemas,
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Create, Doc: createDoc},
		},
	}
}

// Create runs the pipeline for the posted event and returns the record ID,
// or queues the event and returns 202 when async=true.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	e, err := handlers.DecodeJSON[Event](r, maxRequestBytes)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if err := e.Validate(); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if r.URL.Query().Get("async") == "true" {
		h.enqueue(w, r, e)
		return
	}

	res, err := h.run(r.Context(), e.DocumentURL, e.CorrelationID)
	if err != nil {
		var we *workflow.Error
		if !errors.As(err, &we) {
			handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
			return
		}
		h.logger.Warn("extraction failed", "correlation_id", e.CorrelationID, "kind", we.Kind, "error", we)
		handlers.RespondJSON(w, StatusFor(we), we)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request, e Event) {
	if h.queue == nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, errors.New("async triggers not configured"))
		return
	}

	id, err := h.queue.Publish(r.Context(), e)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, map[string]string{
		"correlation_id": e.CorrelationID,
		"message_id":     id,
		"status":         "queued",
	})
}

// StatusFor maps a workflow error to an HTTP status.
func StatusFor(we *workflow.Error) int {
	switch we.Kind {
	case workflow.KindInvalidArguments:
		return http.StatusBadRequest
	case workflow.KindExtractionFailed:
		return http.StatusUnprocessableEntity
	case workflow.KindPersistenceFailed:
		if errors.Is(we, expenses.ErrNotFound) {
			return http.StatusNotFound
		}
		if errors.Is(we, expenses.ErrNotPending) {
			return http.StatusConflict
		}
		return http.StatusBadGateway
	case workflow.KindPipelineIncomplete:
		if errors.Is(we, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
	}
	return http.StatusInternalServerError
}
