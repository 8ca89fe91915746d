package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/signup-go/apperror"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

const (
	findByEmailQuery = `SELECT id, email, username, status FROM users WHERE email = $1`
	insertQuery      = `INSERT INTO users (email, username, status) VALUES ($1, $2, $3) RETURNING id`
)

// DBTX is the subset of *pgxpool.Pool (and pgx.Tx) that the repository needs.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores accounts in the `users` table.
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByEmail looks an account up by exact email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var (
		account Account
		status  string
	)
	err := r.db.QueryRow(ctx, findByEmailQuery, email).Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.NewDatabaseError("failed to find user by email", err)
	}
	account.Status = Status(status)
	return &account, nil
}

// Save inserts the account. A unique violation on the email constraint is
// reported as ErrDuplicateEmail.
func (r *PostgresRepository) Save(ctx context.Context, account *Account) (*Account, error) {
	saved := *account
	err := r.db.QueryRow(ctx, insertQuery, account.Email, account.Username, string(account.Status)).Scan(&saved.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation &&
			strings.Contains(pgErr.ConstraintName, "email") {
			return nil, fmt.Errorf("%w (constraint %s)", ErrDuplicateEmail, pgErr.ConstraintName)
		}
		return nil, apperror.NewDatabaseError("failed to insert user", err)
	}
	return &saved, nil
}
