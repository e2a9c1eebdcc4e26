package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/internal/principal"
)

// StudioClaims are the claims issued to studio staff by the identity provider.
type StudioClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

var (
	errUnauthenticated = &apperr.Error{Kind: apperr.KindUnauthorized, Code: "unauthenticated", Message: "authentication required"}
	errInvalidToken    = &apperr.Error{Kind: apperr.KindUnauthorized, Code: "invalid_token", Message: "invalid token"}
	errNotAdmin        = &apperr.Error{Kind: apperr.KindForbidden, Code: "forbidden", Message: "admin role required"}
)

// AdminJWT enforces an HS256 bearer token whose role claim is admin. The
// verified identity is stored with principal.WithPrincipal.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				apperr.Write(w, nil, errUnauthenticated)
				return
			}
			tokenString := bearerToken(r)
			if tokenString == "" {
				apperr.Write(w, nil, errUnauthenticated)
				return
			}
			claims := &StudioClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				apperr.Write(w, nil, errInvalidToken)
				return
			}
			p := principal.Principal{Subject: claims.Subject, Email: claims.Email, Role: claims.Role}
			if !p.IsAdmin() {
				apperr.Write(w, nil, errNotAdmin)
				return
			}
			next.ServeHTTP(w, r.WithContext(principal.WithPrincipal(r.Context(), p)))
		})
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so those may pass access_token in the query instead.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if auth == "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	return ""
}
