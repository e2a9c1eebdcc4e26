package contacts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Handler serves the public contact form and /api/admin/contacts.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// AdminRoutes mounts list, reply and delete on a single path.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Reply)
	r.Delete("/", h.Delete)
}

// Create handles POST /api/contact.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "id": c.ID})
}

// Pagination describes a page of contacts.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type listResponse struct {
	Contacts   []*Contact `json:"contacts"`
	Pagination Pagination `json:"pagination"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := 1, 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	list, total, err := h.svc.List(r.Context(), limit, (page-1)*limit)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, listResponse{
		Contacts: list,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	})
}

func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Reply(r.Context(), req); err != nil {
		if errors.Is(err, ErrReplyFailed) {
			h.logger.Error("contact reply failed", "error", err, "contact_id", req.ContactID)
			apperr.WriteMessage(w, http.StatusInternalServerError, "failed to send reply")
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "reply sent"})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.URL.Query().Get("id")); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "contact deleted"})
}
