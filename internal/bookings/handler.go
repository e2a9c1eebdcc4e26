package bookings

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Handler serves POST /api/bookings.
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

type submitResponse struct {
	Success       bool   `json:"success"`
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, submitResponse{
		Success:       true,
		AppointmentID: appt.ID,
		Status:        string(appt.Status),
	})
}
