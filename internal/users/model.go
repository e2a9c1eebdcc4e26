package users

import (
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/internal/principal"
)

// User is a staff account. Authentication itself is handled by the external
// identity provider; this record carries the role used for authorization.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input is the create/update body.
type Input struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active *bool  `json:"active,omitempty"`
}

var Roles = []string{principal.RoleAdmin, principal.RoleArtist, principal.RoleStaff}

var (
	ErrNotFound       = apperr.NotFound("user_not_found", "user not found")
	ErrInvalidEmail   = apperr.Validation("user_email_invalid", "email", "a valid email is required")
	ErrInvalidRole    = apperr.Validation("user_role_invalid", "role", "role must be one of admin, artist, staff")
	ErrDuplicateEmail = apperr.Conflict("user_email_taken", "a user with this email already exists")
	ErrDeleteSelf     = apperr.Conflict("user_delete_self", "you cannot delete your own account")
)

func (in *Input) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == "" {
		in.Role = principal.RoleStaff
	}
}

func (in *Input) validate() error {
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		return ErrInvalidEmail
	}
	for _, r := range Roles {
		if r == in.Role {
			return nil
		}
	}
	return ErrInvalidRole
}

func (in *Input) active() bool {
	return in.Active == nil || *in.Active
}
