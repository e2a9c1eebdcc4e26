package router

import (
	"mime"
	"net/http"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
)

// requireJSON rejects bodies that are not declared as JSON on public form
// endpoints. A missing Content-Type is tolerated.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			if ct := r.Header.Get("Content-Type"); ct != "" {
				mediaType, _, err := mime.ParseMediaType(ct)
				if err != nil || mediaType != "application/json" {
					apperr.WriteMessage(w, http.StatusUnsupportedMediaType, "content type must be application/json")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
