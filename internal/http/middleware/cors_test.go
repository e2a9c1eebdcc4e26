package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		preflight   bool
		wantStatus  int
		wantOrigin  string
		wantHandler bool
	}{
		{name: "listed origin", allowed: []string{"https://studio.example"}, origin: "https://studio.example", wantStatus: http.StatusOK, wantOrigin: "https://studio.example", wantHandler: true},
		{name: "trailing slash in config", allowed: []string{"https://studio.example/"}, origin: "https://studio.example", wantStatus: http.StatusOK, wantOrigin: "https://studio.example", wantHandler: true},
		{name: "unknown origin", allowed: []string{"https://studio.example"}, origin: "https://evil.example", wantStatus: http.StatusOK, wantHandler: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://random.example", wantStatus: http.StatusOK, wantOrigin: "https://random.example", wantHandler: true},
		{name: "no origin", allowed: []string{"*"}, wantStatus: http.StatusOK, wantHandler: true},
		{name: "preflight allowed", allowed: []string{"https://studio.example"}, origin: "https://studio.example", preflight: true, wantStatus: http.StatusNoContent, wantOrigin: "https://studio.example"},
		{name: "preflight denied", allowed: []string{"https://studio.example"}, origin: "https://evil.example", preflight: true, wantStatus: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := CORS(tc.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			method := http.MethodPost
			if tc.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/api/bookings", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantHandler, called)
			assert.Equal(t, tc.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tc.wantOrigin != "" {
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
			}
		})
	}
}
