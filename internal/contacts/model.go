package contacts

import (
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
)

// Contact is a message submitted through the public contact form.
type Contact struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Subject   string     `json:"subject"`
	Message   string     `json:"message"`
	RepliedAt *time.Time `json:"replied_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreateRequest is the public contact form body.
type CreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ReplyRequest is the admin reply body.
type ReplyRequest struct {
	ContactID    string `json:"contact_id"`
	ReplyMessage string `json:"reply_message"`
}

const maxMessageLength = 5000

var (
	ErrNotFound       = apperr.NotFound("contact_not_found", "contact not found")
	ErrInvalidName    = apperr.Validation("contact_name_required", "name", "name is required")
	ErrInvalidEmail   = apperr.Validation("contact_email_invalid", "email", "a valid email is required")
	ErrMissingMessage = apperr.Validation("contact_message_required", "message", "message is required")
	ErrMessageTooLong = apperr.Validation("contact_message_too_long", "message", "message is too long")
	ErrMissingFields  = apperr.Validation("contact_reply_fields_required", "", "contact_id and reply_message are required")
	ErrInvalidID      = apperr.Validation("contact_id_invalid", "id", "a valid contact id is required")
	ErrReplyFailed    = &apperr.Error{Kind: apperr.KindInternal, Code: "contact_reply_failed", Message: "failed to send reply"}
)

func (r *CreateRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
}

// Validate checks a normalized request.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return ErrInvalidName
	}
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		return ErrInvalidEmail
	}
	if r.Message == "" {
		return ErrMissingMessage
	}
	if len(r.Message) > maxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
