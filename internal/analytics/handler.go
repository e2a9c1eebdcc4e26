package analytics

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Handler serves /api/admin/analytics and the live feed.
type Handler struct {
	reporter *Reporter
	hub      *Hub
	logger   *logging.Logger
}

func NewHandler(reporter *Reporter, hub *Hub, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{reporter: reporter, hub: hub, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/summary", h.Summary)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.reporter == nil {
		apperr.Write(w, h.logger, apperr.Unavailable(apperr.CodeNotConfigured, "analytics requires a database"))
		return
	}
	summary, err := h.reporter.Summary(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, summary)
}

// Live upgrades to a websocket streaming studio events.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		apperr.Write(w, h.logger, apperr.Unavailable(apperr.CodeNotConfigured, "live feed disabled"))
		return
	}
	h.hub.ServeWS(w, r)
}
