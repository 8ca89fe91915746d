package registration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/signup-go/apperror"
	"github.com/user/signup-go/logging"
	"github.com/user/signup-go/metrics"
	"github.com/user/signup-go/users"
)

// stubRegistrar returns a canned result and records whether it was called.
type stubRegistrar struct {
	account *users.Account
	err     error
	called  bool
}

func (s *stubRegistrar) RegisterUser(_ context.Context, email, username string) (*users.Account, error) {
	s.called = true
	return s.account, s.err
}

func newTestRouter(svc Registrar) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/users", NewHandlers(svc, logging.NewNopLogger()).RegisterRoutes)
	return r
}

func doRegister(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func TestHandleRegister_Success(t *testing.T) {
	svc := NewService(users.NewMemoryRepository(), &fakeNotifier{}, logging.NewNopLogger(), metrics.New())
	h := newTestRouter(svc)

	rec, body := doRegister(t, h, `{"email":"john@example.com","username":"Sophie Müller"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{
		"id":       float64(1),
		"email":    "john@example.com",
		"username": "Sophie Müller",
		"status":   "PENDING",
	}, body)
}

func TestHandleRegister_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"empty object", `{}`},
		{"missing username", `{"email":"john@example.com"}`},
		{"missing email", `{"username":"john"}`},
		{"empty email", `{"email":"","username":"john"}`},
		{"null username", `{"email":"john@example.com","username":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubRegistrar{}
			rec, body := doRegister(t, newTestRouter(svc), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]any{"error": "Email and username are required"}, body)
			assert.False(t, svc.called)
		})
	}
}

func TestHandleRegister_MalformedBody(t *testing.T) {
	svc := &stubRegistrar{}
	rec, body := doRegister(t, newTestRouter(svc), `{"email":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", body["error"])
	assert.False(t, svc.called)
}

func TestHandleRegister_NonStringEmail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"number email", `{"email":123,"username":"john"}`, "Invalid email format"},
		{"object email", `{"username":"john","email":{"a":1}}`, "Invalid email format"},
		{"number username", `{"email":"john@example.com","username":42}`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubRegistrar{}
			rec, body := doRegister(t, newTestRouter(svc), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, body["error"])
			assert.False(t, svc.called)
		})
	}
}

func TestHandleRegister_DomainErrorsAre400WithMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{apperror.ErrInvalidEmailFormat, "Invalid email format"},
		{apperror.ErrUsernameRequired, "Username is required"},
		{apperror.ErrEmailAlreadyRegistered, "Email already registered"},
		{apperror.NewRegistrationFailedError(errors.New("pq: deadlock detected")), "Registration failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rec, body := doRegister(t, newTestRouter(&stubRegistrar{err: tt.err}), `{"email":"john@example.com","username":"john"}`)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]any{"error": tt.want}, body)
		})
	}
}

func TestHandleRegister_UnexpectedErrorIs500Generic(t *testing.T) {
	for _, err := range []error{
		errors.New("nil pointer somewhere"),
		apperror.NewDatabaseError("pool exhausted", nil),
	} {
		rec, body := doRegister(t, newTestRouter(&stubRegistrar{err: err}), `{"email":"john@example.com","username":"john"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, map[string]any{"error": "An unexpected error occurred"}, body)
	}
}

func TestHandleRegister_WhitespaceUsernameReachesService(t *testing.T) {
	svc := NewService(users.NewMemoryRepository(), &fakeNotifier{}, logging.NewNopLogger(), metrics.New())

	rec, body := doRegister(t, newTestRouter(svc), `{"email":"john@example.com","username":"   "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username is required", body["error"])
}

func TestHandleRegister_DuplicateThroughHTTP(t *testing.T) {
	svc := NewService(users.NewMemoryRepository(), &fakeNotifier{}, logging.NewNopLogger(), metrics.New())
	h := newTestRouter(svc)

	rec, _ := doRegister(t, h, `{"email":"john@example.com","username":"john"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doRegister(t, h, `{"email":"john@example.com","username":"johnny"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", body["error"])
}
