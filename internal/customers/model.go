package customers

import (
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
)

// Customer is a studio client.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input is the body for creating or updating a customer.
type Input struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

var (
	ErrNotFound       = apperr.NotFound("customer_not_found", "customer not found")
	ErrInvalidName    = apperr.Validation("customer_name_required", "name", "name is required")
	ErrInvalidEmail   = apperr.Validation("customer_email_invalid", "email", "a valid email is required")
	ErrDuplicateEmail = apperr.Conflict("customer_email_taken", "a customer with this email already exists")
)

// Normalize trims fields and lowercases the email.
func (in *Input) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Notes = strings.TrimSpace(in.Notes)
}

// Validate validates a normalized input.
func (in *Input) Validate() error {
	if in.Name == "" {
		return ErrInvalidName
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		return ErrInvalidEmail
	}
	return nil
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Query  string
	Limit  int
	Offset int
}

func (f ListFilter) matches(c *Customer) bool {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(c.Email, q) ||
		strings.Contains(c.Phone, q)
}
