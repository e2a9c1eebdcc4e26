package calsync

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Handler serves /api/admin/bookings.
type Handler struct {
	syncer *Syncer
	logger *logging.Logger
}

func NewHandler(syncer *Syncer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{syncer: syncer, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/sync", h.Sync)
	r.Get("/health", h.Health)
	r.Get("/{uid}", h.Get)
	r.Post("/{uid}/confirm", h.Confirm)
	r.Post("/{uid}/reject", h.Reject)
	r.Post("/{uid}/cancel", h.Cancel)
	r.Post("/{uid}/notes", h.AddNote)
}

type listResponse struct {
	Bookings []*Booking `json:"bookings"`
	Total    int        `json:"total"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := BookingFilter{Limit: DefaultBatchSize}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= MaxBatchSize {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		filter.Offset = v
	}
	if raw := q.Get("status"); raw != "" {
		status := BookingStatus(raw)
		if !status.Valid() {
			apperr.Write(w, h.logger, apperr.Validation("invalid_booking_status", "status", "unknown booking status"))
			return
		}
		filter.Status = status
	}
	list, total, err := h.syncer.ListBookings(r.Context(), filter)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, listResponse{Bookings: list, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.syncer.GetBooking(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var opts SyncOptions
	if err := decodeOptional(r, &opts); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if opts.BatchSize < 0 {
		apperr.Write(w, h.logger, apperr.Validation("invalid_batch_size", "batch_size", "batch_size must be positive"))
		return
	}
	result, err := h.syncer.SyncBookings(r.Context(), opts)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	apperr.WriteJSON(w, http.StatusOK, h.syncer.HealthStatus(r.Context()))
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	b, err := h.syncer.Confirm(r.Context(), chi.URLParam(r, "uid"))
	h.writeBooking(w, b, err)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeOptional(r, &req); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.syncer.Reject(r.Context(), chi.URLParam(r, "uid"), req.Reason)
	h.writeBooking(w, b, err)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeOptional(r, &req); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.syncer.Cancel(r.Context(), chi.URLParam(r, "uid"), req.Reason)
	h.writeBooking(w, b, err)
}

func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.syncer.AppendInternalNote(r.Context(), chi.URLParam(r, "uid"), req.Note)
	h.writeBooking(w, b, err)
}

func (h *Handler) writeBooking(w http.ResponseWriter, b *Booking, err error) {
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			h.logger.Error("calendar provider rejected request", "error", err)
			apperr.WriteMessage(w, http.StatusBadGateway, "calendar provider request failed")
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, b)
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
