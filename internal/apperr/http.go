package apperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Response is the JSON error envelope every handler returns.
type Response struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	Field         string `json:"field,omitempty"`
	SetupRequired bool   `json:"setup_required,omitempty"`
}

// HTTPStatus maps an error onto its HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Write translates err into a JSON response. Internal errors are logged with
// full detail and answered with a generic message.
func Write(w http.ResponseWriter, logger *logging.Logger, err error) {
	if logger == nil {
		logger = logging.Default()
	}
	status := HTTPStatus(err)
	resp := Response{Error: "internal error"}

	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		resp.Error = appErr.Message
		resp.Code = appErr.Code
		resp.Field = appErr.Field
		resp.SetupRequired = appErr.Code == CodeNotConfigured
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "status", status)
	} else {
		logger.Debug("request rejected", "error", err, "status", status)
	}
	WriteJSON(w, status, resp)
}

// WriteMessage writes a plain error message with the given status.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Error: message})
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// CodeNotConfigured marks integrations that need setup before use.
const CodeNotConfigured = "not_configured"
