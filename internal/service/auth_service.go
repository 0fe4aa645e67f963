package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vladyslavplus/orderly/internal/apperr"
	"github.com/vladyslavplus/orderly/internal/broker"
	"github.com/vladyslavplus/orderly/internal/domain"
	"github.com/vladyslavplus/orderly/internal/event"
	"github.com/vladyslavplus/orderly/internal/password"
	"github.com/vladyslavplus/orderly/internal/repository"
	"github.com/vladyslavplus/orderly/internal/token"
)

const defaultRole = "User"

// RegisterParams is the registration payload after transport-level binding.
type RegisterParams struct {
	UserName string
	Email    string
	Password string
	Phone    string
}

// UpdateUserParams carries optional field changes; empty strings mean "leave
// untouched".
type UpdateUserParams struct {
	UserName string
	Email    string
	Phone    string
	Password string
}

// AuthService orchestrates registration, login, and the session lifecycle,
// publishing user lifecycle events after each committed mutation.
type AuthService struct {
	users     repository.UserRepository
	sessions  *token.Manager
	publisher broker.Publisher
	node      *snowflake.Node
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, sessions *token.Manager, publisher broker.Publisher, node *snowflake.Node, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		publisher: publisher,
		node:      node,
		logger:    logger,
		tracer:    otel.Tracer("github.com/vladyslavplus/orderly/internal/service"),
	}
}

// Register creates a user and opens their first session. A duplicate email
// fails with AlreadyExists.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*token.Session, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if err := validateRegistration(params); err != nil {
		return nil, err
	}

	hash, err := password.Hash(params.Password)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.New(apperr.KindInternal, "hash password: %v", err)
	}

	user := domain.User{
		ID:           s.node.Generate().Int64(),
		UserName:     strings.TrimSpace(params.UserName),
		Email:        normalizeEmail(params.Email),
		PasswordHash: hash,
		Phone:        strings.TrimSpace(params.Phone),
		Roles:        []string{defaultRole},
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.KindAlreadyExists, "user with email %s already exists", user.Email)
		}
		span.RecordError(err)
		return nil, apperr.New(apperr.KindInternal, "create user: %v", err)
	}

	session, err := s.sessions.IssueSession(ctx, created)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.publish(ctx, event.UserCreated{
		UserID:    created.ID,
		UserName:  created.UserName,
		Email:     created.Email,
		CreatedAt: created.CreatedAt,
	}, created.Email)

	return session, nil
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, pass string) (*token.Session, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(err)
		}
		return nil, apperr.ErrInvalidCredentials
	}

	valid, err := password.Verify(pass, user.PasswordHash)
	if err != nil || !valid {
		return nil, apperr.ErrInvalidCredentials
	}

	return s.sessions.IssueSession(ctx, user)
}

// Refresh rotates a refresh token into a new session pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*token.Session, error) {
	return s.sessions.Rotate(ctx, refreshToken)
}

// RevokeToken invalidates a refresh token without replacement.
func (s *AuthService) RevokeToken(ctx context.Context, refreshToken string) error {
	return s.sessions.Revoke(ctx, refreshToken)
}

// GetUser loads a user by id.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, apperr.New(apperr.KindNotFound, "user %d not found", userID)
		}
		return domain.User{}, apperr.New(apperr.KindInternal, "get user: %v", err)
	}
	return user, nil
}

// UpdateUser applies non-empty field changes and publishes UserUpdated when
// anything actually changed.
func (s *AuthService) UpdateUser(ctx context.Context, userID int64, params UpdateUserParams) (domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.UpdateUser")
	defer span.End()

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	changed := false
	if name := strings.TrimSpace(params.UserName); name != "" && name != user.UserName {
		user.UserName = name
		changed = true
	}
	if email := normalizeEmail(params.Email); email != "" && email != user.Email {
		user.Email = email
		changed = true
	}
	if phone := strings.TrimSpace(params.Phone); phone != "" && phone != user.Phone {
		user.Phone = phone
		changed = true
	}
	if params.Password != "" {
		if len(params.Password) < 8 {
			return domain.User{}, apperr.New(apperr.KindValidationFailed, "password must be at least 8 characters")
		}
		hash, err := password.Hash(params.Password)
		if err != nil {
			span.RecordError(err)
			return domain.User{}, apperr.New(apperr.KindInternal, "hash password: %v", err)
		}
		user.PasswordHash = hash
		changed = true
	}

	if !changed {
		return user, nil
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return domain.User{}, apperr.New(apperr.KindAlreadyExists, "user with email %s already exists", user.Email)
		}
		span.RecordError(err)
		return domain.User{}, apperr.New(apperr.KindInternal, "update user: %v", err)
	}

	s.publish(ctx, event.UserUpdated{
		UserID:      updated.ID,
		UserName:    updated.UserName,
		Email:       updated.Email,
		PhoneNumber: updated.Phone,
		UpdatedAt:   updated.UpdatedAt,
	}, updated.Email)

	return updated, nil
}

// DeleteUser removes the user; their refresh tokens go with them.
func (s *AuthService) DeleteUser(ctx context.Context, userID int64) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.DeleteUser")
	defer span.End()

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.sessions.PurgeSessions(ctx, userID); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "user %d not found", userID)
		}
		span.RecordError(err)
		return apperr.New(apperr.KindInternal, "delete user: %v", err)
	}

	s.publish(ctx, event.UserDeleted{
		UserID:    user.ID,
		Email:     user.Email,
		DeletedAt: time.Now().UTC(),
	}, user.Email)

	return nil
}

// publish hands an event to the broker after the mutation committed. A
// publish failure never fails the originating request.
func (s *AuthService) publish(ctx context.Context, evt any, key string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt, key); err != nil {
		s.logger.Error("publish event failed",
			zap.String("topic", event.TopicFor(evt)),
			zap.Error(err),
		)
	}
}

func validateRegistration(params RegisterParams) error {
	if strings.TrimSpace(params.UserName) == "" {
		return apperr.New(apperr.KindValidationFailed, "user name is required")
	}
	email := normalizeEmail(params.Email)
	if email == "" || !strings.Contains(email, "@") {
		return apperr.New(apperr.KindValidationFailed, "a valid email is required")
	}
	if len(params.Password) < 8 {
		return apperr.New(apperr.KindValidationFailed, "password must be at least 8 characters")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
