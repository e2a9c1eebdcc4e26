package users

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/internal/principal"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Handler serves /api/admin/users.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"users": list})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.normalize()
	if err := in.validate(); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	u := &User{Email: in.Email, Name: in.Name, Role: in.Role, Active: in.active()}
	if err := h.repo.Create(r.Context(), u); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Info("user created", "id", u.ID, "role", u.Role, "actor", principal.ActorFromContext(r.Context()))
	apperr.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.normalize()
	if err := in.validate(); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	current, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	current.Email, current.Name, current.Role = in.Email, in.Name, in.Role
	if in.Active != nil {
		current.Active = *in.Active
	}
	if err := h.repo.Update(r.Context(), current); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, current)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if p, ok := principal.FromContext(r.Context()); ok && p.Subject == id {
		apperr.Write(w, h.logger, ErrDeleteSelf)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Info("user deleted", "id", id, "actor", principal.ActorFromContext(r.Context()))
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "user deleted"})
}
