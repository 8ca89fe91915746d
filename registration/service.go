// Package registration implements the user sign-up workflow and its HTTP
// endpoint. The Service validates the submitted email and username, rejects
// duplicates, persists a PENDING account and asks the notifier to send a
// verification message. It acts as the "Service" layer, analogous to a
// Service class in Nest.js, and handlers.go is the matching controller.
package registration

import (
	"context"
	"errors"

	"github.com/user/signup-go/apperror"
	"github.com/user/signup-go/logging"
	"github.com/user/signup-go/metrics"
	"github.com/user/signup-go/notify"
	"github.com/user/signup-go/users"
)

// Service registers new accounts.
// Dependencies are injected via the constructor.
type Service struct {
	repo     users.Repository
	notifier notify.Notifier
	logger   logging.Logger
	metrics  *metrics.Metrics
}

// NewService creates a new Service. A nil m gets a private, unexported registry.
func NewService(repo users.Repository, notifier notify.Notifier, logger logging.Logger, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With("component", "registration"),
		metrics:  m,
	}
}

// RegisterUser creates a PENDING account for email and username.
//
// The steps run in a fixed order and the first failing one decides the error:
//  1. email format        -> apperror.ErrInvalidEmailFormat
//  2. username not blank  -> apperror.ErrUsernameRequired
//  3. no account with this exact email -> apperror.ErrEmailAlreadyRegistered
//  4. save; a uniqueness violation also yields ErrEmailAlreadyRegistered,
//     any other storage failure yields a RegistrationFailed error
//  5. send the verification notification and wait for it; its failure is
//     logged and does not fail the registration
//
// Email and username are stored exactly as given. Every returned error is an
// *apperror.AppError of one of the four registration kinds.
func (s *Service) RegisterUser(ctx context.Context, email, username string) (account *users.Account, err error) {
	defer func() {
		outcome := metrics.OutcomeRegistered
		if err != nil {
			outcome = apperror.TypeOf(err).String()
		}
		s.metrics.ObserveRegistration(outcome)
	}()

	if !IsValidEmail(email) {
		return nil, apperror.ErrInvalidEmailFormat
	}
	if IsBlank(username) {
		return nil, apperror.ErrUsernameRequired
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Error(ctx, "registration failed: lookup by email", "error", err)
		return nil, apperror.NewRegistrationFailedError(err)
	}
	if existing != nil {
		return nil, apperror.ErrEmailAlreadyRegistered
	}

	saved, err := s.repo.Save(ctx, &users.Account{
		Email:    email,
		Username: username,
		Status:   users.StatusPending,
	})
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			// Lost a race with a concurrent registration for the same email.
			return nil, apperror.ErrEmailAlreadyRegistered
		}
		s.logger.Error(ctx, "registration failed: save account", "error", err)
		return nil, apperror.NewRegistrationFailedError(err)
	}

	// TODO: persist failed verification sends so they can be retried; today a
	// failure here leaves the account PENDING with no email on its way.
	notifyErr := s.notifier.SendVerification(ctx, saved.Email)
	s.metrics.ObserveNotification(notifyErr)
	if notifyErr != nil {
		s.logger.Warn(ctx, "verification notification not sent", "account_id", saved.ID, "error", notifyErr)
	}

	s.logger.Info(ctx, "account registered", "account_id", saved.ID)
	return saved, nil
}
