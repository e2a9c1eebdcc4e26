package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/inkstudio-platform/internal/events"
	"github.com/wolfman30/inkstudio-platform/internal/notify"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg notify.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePublisher struct {
	events []events.Event
}

func (f *fakePublisher) Dispatch(ctx context.Context, evt events.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func newTestHandler(t *testing.T, sender *fakeSender) (*Handler, *InMemoryRepository, *fakePublisher, http.Handler) {
	t.Helper()
	repo := NewInMemoryRepository()
	pub := &fakePublisher{}
	svc := NewService(repo, sender, nil).WithEvents(pub).WithStudioName("Black Anchor")
	h := NewHandler(svc, nil)
	r := chi.NewRouter()
	r.Post("/api/contact", h.Create)
	r.Route("/api/admin/contacts", h.AdminRoutes)
	return h, repo, pub, r
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateContact(t *testing.T) {
	_, repo, pub, router := newTestHandler(t, &fakeSender{})

	rec := do(router, http.MethodPost, "/api/contact", `{"name":"Ada","email":"ADA@example.com","message":"Do you do fine line?"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	list, total, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "ada@example.com", list[0].Email)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeContactReceived, pub.events[0].Type)

	rec = do(router, http.MethodPost, "/api/contact", `{"name":"Ada","email":"nope","message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"email"`)
}

func TestListContactsPagination(t *testing.T) {
	_, repo, _, router := newTestHandler(t, &fakeSender{})
	for i := 0; i < 5; i++ {
		_, err := repo.Create(context.Background(), CreateRequest{Name: "c", Email: "c@example.com", Message: "m"})
		require.NoError(t, err)
	}

	rec := do(router, http.MethodGet, "/api/admin/contacts?limit=2&page=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Contacts, 1)
	assert.Equal(t, Pagination{Page: 3, Limit: 2, Total: 5, TotalPages: 3}, resp.Pagination)
}

func TestReplyToContact(t *testing.T) {
	sender := &fakeSender{}
	_, repo, _, router := newTestHandler(t, sender)
	c, err := repo.Create(context.Background(), CreateRequest{Name: "Ada", Email: "ada@example.com", Subject: "Flash", Message: "Is the swallow available?"})
	require.NoError(t, err)

	rec := do(router, http.MethodPost, "/api/admin/contacts", `{"contact_id":"`+c.ID+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/api/admin/contacts", `{"contact_id":"`+uuid.NewString()+`","reply_message":"yes"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPost, "/api/admin/contacts", `{"contact_id":"`+c.ID+`","reply_message":"Yes it is!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"reply sent"}`, rec.Body.String())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].To)
	assert.Equal(t, "Re: Flash", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "Yes it is!")

	stored, err := repo.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.RepliedAt)
}

func TestReplyEmailFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("provider down")}
	_, repo, _, router := newTestHandler(t, sender)
	c, err := repo.Create(context.Background(), CreateRequest{Name: "Ada", Email: "ada@example.com", Message: "hello"})
	require.NoError(t, err)

	rec := do(router, http.MethodPost, "/api/admin/contacts", `{"contact_id":"`+c.ID+`","reply_message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "provider down")

	stored, err := repo.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RepliedAt)
}

func TestDeleteContact(t *testing.T) {
	_, repo, _, router := newTestHandler(t, &fakeSender{})
	c, err := repo.Create(context.Background(), CreateRequest{Name: "Ada", Email: "ada@example.com", Message: "hello"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodDelete, "/api/admin/contacts", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodDelete, "/api/admin/contacts?id=abc", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodDelete, "/api/admin/contacts?id="+uuid.NewString(), "").Code)

	rec := do(router, http.MethodDelete, "/api/admin/contacts?id="+c.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"contact deleted"}`, rec.Body.String())

	_, err = repo.Get(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
