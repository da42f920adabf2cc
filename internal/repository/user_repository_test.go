package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/api/internal/models"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("scan arity mismatch")
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *models.Role:
			*d = models.Role(v.(string))
		case *time.Time:
			*d = v.(time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type fakeDB struct {
	row       fakeRow
	lastQuery string
	lastArgs  []any
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastQuery, f.lastArgs = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.lastQuery, f.lastArgs = sql, args
	return f.row
}

func TestCreateFillsCreatedAt(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &fakeDB{row: fakeRow{values: []any{created}}}
	repo := NewUserRepository(db)

	user := &models.User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "h", Role: models.RoleUser}
	require.NoError(t, repo.Create(context.Background(), user))

	assert.Equal(t, created, user.CreatedAt)
	assert.Contains(t, db.lastQuery, "INSERT INTO users")
	assert.Equal(t, []any{"u1", "Ada", "ada@example.com", "h", models.RoleUser}, db.lastArgs)
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}}}
	repo := NewUserRepository(db)

	err := repo.Create(context.Background(), &models.User{ID: "u1", Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestCreatePassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	repo := NewUserRepository(&fakeDB{row: fakeRow{err: boom}})

	err := repo.Create(context.Background(), &models.User{ID: "u1"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}

func TestFindByEmail(t *testing.T) {
	created := time.Now().UTC()
	db := &fakeDB{row: fakeRow{values: []any{"u1", "Ada", "ada@example.com", "hash", "admin", created}}}
	repo := NewUserRepository(db)

	user, err := repo.FindByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.Contains(t, db.lastQuery, "lower(email) = lower($1)")
}

func TestFindByEmailNotFound(t *testing.T) {
	repo := NewUserRepository(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewUserRepository(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
