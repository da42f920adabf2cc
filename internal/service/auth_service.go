package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/rs/zerolog"

	"authgate/api/internal/ids"
	"authgate/api/internal/models"
	"authgate/api/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	minPasswordLen = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLen = 72
	maxNameLen     = 200
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	log    zerolog.Logger

	// dummyHash is verified against when the email is unknown so both
	// failure paths spend comparable time.
	dummyHash string
}

func NewAuthService(users UserStore, hasher PasswordHasher, log zerolog.Logger) *AuthService {
	s := &AuthService{
		users:  users,
		hasher: hasher,
		log:    log,
	}
	if hash, err := hasher.Hash("authgate-timing-equalizer"); err == nil {
		s.dummyHash = hash
	} else {
		log.Warn().Err(err).Msg("dummy hash unavailable")
	}
	return s
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// CreateUser registers a new account. The returned user never carries the
// password hash.
func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (models.User, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)

	if err := newValidationError(validation.Errors{
		"name":     validation.Validate(input.Name, validation.Length(0, maxNameLen)),
		"email":    validation.Validate(input.Email, validation.Required, validation.Match(emailPattern)),
		"password": validation.Validate(input.Password, validation.Required, validation.Length(minPasswordLen, maxPasswordLen)),
		"role":     validation.Validate(input.Role, validation.In(string(models.RoleAdmin), string(models.RoleUser))),
	}); err != nil {
		return models.User{}, err
	}

	role, err := models.ParseRole(input.Role)
	if err != nil {
		return models.User{}, &ValidationError{Fields: map[string]string{"role": err.Error()}}
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return models.User{}, ErrDuplicateUser
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		// Lost the race against a concurrent signup for the same email.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return models.User{}, ErrDuplicateUser
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return user.Public(), nil
}

type AuthenticateInput struct {
	Email    string
	Password string
}

// AuthenticateUser returns ErrUserNotFound or ErrInvalidCredentials on a
// failed sign-in. Callers must not reveal which one occurred.
func (s *AuthService) AuthenticateUser(ctx context.Context, input AuthenticateInput) (models.User, error) {
	input.Email = normalizeEmail(input.Email)

	if err := newValidationError(validation.Errors{
		"email":    validation.Validate(input.Email, validation.Required),
		"password": validation.Validate(input.Password, validation.Required),
	}); err != nil {
		return models.User{}, err
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			if s.dummyHash != "" {
				_, _ = s.hasher.Verify(input.Password, s.dummyHash)
			}
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}

	s.log.Debug().Str("user_id", user.ID).Msg("user authenticated")
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user.Public(), nil
}

func (s *AuthService) FindUser(ctx context.Context, email string) (models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user.Public(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
