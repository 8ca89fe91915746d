package registration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/user/signup-go/apperror"
	"github.com/user/signup-go/logging"
	"github.com/user/signup-go/users"
)

// Boundary messages. Domain errors carry their own messages.
const (
	msgFieldsRequired  = "Email and username are required"
	msgUnexpectedError = "An unexpected error occurred"
)

// Registrar is what the handlers need from the registration workflow.
type Registrar interface {
	RegisterUser(ctx context.Context, email, username string) (*users.Account, error)
}

// Handlers exposes the registration workflow over HTTP.
type Handlers struct {
	service  Registrar
	validate *validator.Validate
	logger   logging.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service Registrar, logger logging.Logger) *Handlers {
	return &Handlers{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// RegisterRoutes mounts the registration routes on r (expected under /api/users).
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.HandleRegister())
}

// HandleRegister godoc
// @Summary Register a new account
// @Description Creates a PENDING account and sends a verification notification.
// @Description Emails are compared exactly; a notification failure does not fail the request.
// @Tags Users
// @Accept json
// @Produce json
// @Param registerBody body registration.RegisterRequest true "Email and username"
// @Success 200 {object} users.Account "Account created"
// @Failure 400 {object} apperror.ErrorResponse "Missing field, invalid email, blank username, duplicate email or storage failure"
// @Failure 500 {object} apperror.ErrorResponse "An unexpected error occurred"
// @Router /api/users/register [post]
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		// An empty body decodes as {} and fails the required check below.
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field == "email" && req.Username != "" {
				WriteError(w, r, apperror.ErrInvalidEmailFormat)
				return
			}
			WriteError(w, r, apperror.NewBadRequestError("Invalid request body", err))
			return
		}

		// Absent, null and "" all count as missing. Whitespace-only usernames
		// pass here and are rejected by the service with its own message.
		if err := h.validate.Struct(req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError(msgFieldsRequired, err))
			return
		}

		account, err := h.service.RegisterUser(r.Context(), req.Email, req.Username)
		if err != nil {
			if !apperror.IsDomainError(err) {
				h.logger.Error(r.Context(), "unexpected registration error", "error", err)
			}
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, account)
	}
}

// writeJSON serializes data to JSON and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// WriteError writes err as a `{"error": ...}` body.
// Registration errors and boundary errors keep their message and status.
// Anything else becomes a 500 with a generic message, so internal details
// never reach the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok || appErr.StatusCode() >= http.StatusInternalServerError {
		appErr = apperror.NewInternalError(msgUnexpectedError, err)
	}
	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
