package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = NotFound("thing_not_found", "thing not found")

func TestIsMatchesByKindAndCode(t *testing.T) {
	wrapped := fmt.Errorf("repo: %w", Wrap(errSentinel, errors.New("no rows")))

	assert.True(t, errors.Is(wrapped, errSentinel))
	assert.False(t, errors.Is(wrapped, NotFound("other", "other")))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestWithfKeepsIdentity(t *testing.T) {
	base := Validation("invalid_transition", "status", "status transition not allowed")
	err := Withf(base, "cannot change status from %s to %s", "COMPLETED", "SCHEDULED")

	assert.True(t, errors.Is(err, base))
	assert.Equal(t, "status", err.Field)
	assert.Equal(t, "cannot change status from COMPLETED to SCHEDULED", err.Error())
	assert.Equal(t, "status transition not allowed", base.Message)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          Validation("bad", "f", "bad"),
		http.StatusNotFound:            errSentinel,
		http.StatusConflict:            Conflict("stale", "stale"),
		http.StatusServiceUnavailable:  Unavailable(CodeNotConfigured, "setup"),
		http.StatusUnauthorized:        &Error{Kind: KindUnauthorized, Message: "no"},
		http.StatusForbidden:           &Error{Kind: KindForbidden, Message: "no"},
		http.StatusInternalServerError: errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, HTTPStatus(err), "error %v", err)
	}
}

func TestWriteHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, nil, errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "internal error", resp.Error)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestWriteValidationIncludesField(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, nil, Validation("required", "customer_id", "customer_id is required"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "customer_id", resp.Field)
	assert.Equal(t, "required", resp.Code)
}

func TestWriteNotConfiguredFlagsSetup(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, nil, Unavailable(CodeNotConfigured, "calendar integration not configured"))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.SetupRequired)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
