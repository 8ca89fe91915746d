package users

import (
	"context"
	"errors"
)

// ErrDuplicateEmail is returned by Save when the email uniqueness rule is violated.
// Callers must be able to tell it apart from every other storage failure.
var ErrDuplicateEmail = errors.New("users: email already exists")

// Repository is the storage collaborator of the registration workflow.
type Repository interface {
	// FindByEmail returns the account whose email equals email exactly,
	// or (nil, nil) when there is none.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Save inserts account and returns a copy carrying the assigned ID.
	// It returns ErrDuplicateEmail (possibly wrapped) when the email is taken.
	Save(ctx context.Context, account *Account) (*Account, error)
}
