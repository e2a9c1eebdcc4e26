package events

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/internal/principal"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// DeadLetterStore lists and revives notifications that exhausted retries.
type DeadLetterStore interface {
	ListDead(ctx context.Context, limit int) ([]OutboxEntry, error)
	Requeue(ctx context.Context, id uuid.UUID) error
}

var errDeadLetterNotFound = apperr.NotFound("dead_letter_not_found", "no dead notification with that id")

// DeadLetterHandler serves /api/admin/notifications.
type DeadLetterHandler struct {
	store  DeadLetterStore
	logger *logging.Logger
}

func NewDeadLetterHandler(store DeadLetterStore, logger *logging.Logger) *DeadLetterHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DeadLetterHandler{store: store, logger: logger}
}

func (h *DeadLetterHandler) Routes(r chi.Router) {
	r.Get("/dead", h.List)
	r.Post("/{id}/requeue", h.Requeue)
}

func (h *DeadLetterHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	entries, err := h.store.ListDead(r.Context(), limit)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []OutboxEntry{}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"notifications": entries, "count": len(entries)})
}

func (h *DeadLetterHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apperr.Write(w, h.logger, errDeadLetterNotFound)
		return
	}
	if err := h.store.Requeue(r.Context(), id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			err = errDeadLetterNotFound
		}
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Info("dead notification requeued", "id", id, "actor", principal.ActorFromContext(r.Context()))
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}
