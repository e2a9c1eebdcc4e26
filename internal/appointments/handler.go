package appointments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Handler exposes the admin appointment endpoints.
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

// Routes mounts the handler under /api/admin/appointments.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/status", h.SetStatus)
}

// ListResponse is the response for listing appointments.
type ListResponse struct {
	Appointments []*Appointment `json:"appointments"`
	Count        int            `json:"count"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	list, err := h.svc.List(r.Context(), filter)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, ListResponse{Appointments: list, Count: len(list)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.svc.Create(r.Context(), req)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, appt)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, appt)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "appointment deleted"})
}

// Export streams the filtered list as an xlsx workbook.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	filter.Limit, filter.Offset = 0, 0
	list, err := h.svc.List(r.Context(), filter)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	var buf bytes.Buffer
	if err := ExportXLSX(&buf, list); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{Query: q.Get("q"), CustomerID: q.Get("customer_id")}
	if raw := q.Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			return Filter{}, err
		}
		filter.Status = status
	}
	if raw := q.Get("from"); raw != "" {
		t, err := parseTimeParam(raw)
		if err != nil {
			return Filter{}, apperr.Validation("invalid_from", "from", "from must be RFC3339 or YYYY-MM-DD")
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := parseTimeParam(raw)
		if err != nil {
			return Filter{}, apperr.Validation("invalid_to", "to", "to must be RFC3339 or YYYY-MM-DD")
		}
		filter.To = &t
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 500 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}
	return filter, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}
