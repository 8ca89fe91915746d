package users

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/signup-go/apperror"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func TestPostgresRepository_FindByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(findByEmailQuery)).
		WithArgs("john@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "username", "status"}).
			AddRow(int64(7), "john@example.com", "john", "PENDING"))

	account, err := repo.FindByEmail(context.Background(), "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, &Account{ID: 7, Email: "john@example.com", Username: "john", Status: StatusPending}, account)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_FindByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(findByEmailQuery)).
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "username", "status"}))

	account, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, account)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_FindByEmailQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(findByEmailQuery)).
		WithArgs("john@example.com").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByEmail(context.Background(), "john@example.com")
	require.Error(t, err)
	assert.Equal(t, apperror.DatabaseError, apperror.TypeOf(err))
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}

func TestPostgresRepository_Save(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("sophie@example.com", "Sophie Müller", "PENDING").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	in := &Account{Email: "sophie@example.com", Username: "Sophie Müller", Status: StatusPending}
	saved, err := repo.Save(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(42), saved.ID)
	assert.Equal(t, "Sophie Müller", saved.Username)
	assert.Zero(t, in.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveMapsUniqueViolation(t *testing.T) {
	tests := []struct {
		name          string
		pgErr         *pgconn.PgError
		wantDuplicate bool
	}{
		{
			name:          "email constraint",
			pgErr:         &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
			wantDuplicate: true,
		},
		{
			name:          "other unique constraint",
			pgErr:         &pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"},
			wantDuplicate: false,
		},
		{
			name:          "not null violation",
			pgErr:         &pgconn.PgError{Code: "23502", ColumnName: "username"},
			wantDuplicate: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
				WithArgs("dup@example.com", "dup", "PENDING").
				WillReturnError(tt.pgErr)

			_, err := repo.Save(context.Background(), &Account{Email: "dup@example.com", Username: "dup", Status: StatusPending})
			require.Error(t, err)
			if tt.wantDuplicate {
				assert.ErrorIs(t, err, ErrDuplicateEmail)
			} else {
				assert.NotErrorIs(t, err, ErrDuplicateEmail)
				assert.Equal(t, apperror.DatabaseError, apperror.TypeOf(err))
			}
		})
	}
}
