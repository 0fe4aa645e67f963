package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vladyslavplus/orderly/internal/apperr"
	"github.com/vladyslavplus/orderly/internal/domain"
	"github.com/vladyslavplus/orderly/internal/jwt"
	"github.com/vladyslavplus/orderly/internal/repository"
)

const refreshTokenBytes = 64

// Session is an access/refresh token pair handed to the client.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Manager orchestrates the refresh token lifecycle: issuance, rotation,
// revocation, and validation. Refresh tokens are opaque single-use values;
// rotation revokes the parent and inserts a descendant atomically, so a
// replayed token fails with TokenInvalid instead of minting a second chain.
type Manager struct {
	tokens     repository.TokenRepository
	users      repository.UserRepository
	signer     *jwt.Signer
	node       *snowflake.Node
	refreshTTL time.Duration
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewManager wires dependencies.
func NewManager(tokens repository.TokenRepository, users repository.UserRepository, signer *jwt.Signer, node *snowflake.Node, refreshTTL time.Duration, logger *zap.Logger) *Manager {
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Manager{
		tokens:     tokens,
		users:      users,
		signer:     signer,
		node:       node,
		refreshTTL: refreshTTL,
		logger:     logger,
		tracer:     otel.Tracer("github.com/vladyslavplus/orderly/internal/token"),
	}
}

// IssueSession creates a fresh refresh token chain head plus a signed access
// token for the user.
func (m *Manager) IssueSession(ctx context.Context, user domain.User) (*Session, error) {
	ctx, span := m.tracer.Start(ctx, "token.Manager.IssueSession")
	defer span.End()

	record := m.newRefreshToken(user.ID)
	if _, err := m.tokens.Insert(ctx, record); err != nil {
		span.RecordError(err)
		return nil, apperr.New(apperr.KindInternal, "persist refresh token: %v", err)
	}

	access, err := m.signer.Sign(user)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.New(apperr.KindInternal, "sign access token: %v", err)
	}

	m.audit("session.issued", user.ID)
	return m.session(access, record.Token), nil
}

// Rotate exchanges a refresh token for a new pair, atomically revoking the
// old record. Racing rotations on the same token: exactly one wins, the loser
// gets TokenInvalid after observing the already-revoked record.
func (m *Manager) Rotate(ctx context.Context, tokenString string) (*Session, error) {
	ctx, span := m.tracer.Start(ctx, "token.Manager.Rotate")
	defer span.End()

	record, err := m.lookup(ctx, tokenString)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !record.Active(time.Now().UTC()) {
		return nil, apperr.ErrTokenInvalid
	}

	user, err := m.users.GetByID(ctx, record.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.New(apperr.KindInternal, "load token owner: %v", err)
	}

	next := m.newRefreshToken(user.ID)
	rotated, err := m.tokens.Rotate(ctx, record.ID, next)
	if err != nil {
		if errors.Is(err, repository.ErrNotUpdated) {
			// Another rotation revoked the record first.
			return nil, apperr.ErrTokenInvalid
		}
		span.RecordError(err)
		return nil, apperr.New(apperr.KindInternal, "rotate refresh token: %v", err)
	}

	access, err := m.signer.Sign(user)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.New(apperr.KindInternal, "sign access token: %v", err)
	}

	m.audit("session.rotated", user.ID)
	return m.session(access, rotated.Token), nil
}

// Revoke irreversibly invalidates a refresh token without issuing a
// replacement.
func (m *Manager) Revoke(ctx context.Context, tokenString string) error {
	ctx, span := m.tracer.Start(ctx, "token.Manager.Revoke")
	defer span.End()

	record, err := m.lookup(ctx, tokenString)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if record.Revoked {
		return apperr.ErrTokenAlreadyRevoked
	}

	if err := m.tokens.RevokeIfActive(ctx, record.ID); err != nil {
		if errors.Is(err, repository.ErrNotUpdated) {
			return apperr.ErrTokenAlreadyRevoked
		}
		span.RecordError(err)
		return apperr.New(apperr.KindInternal, "revoke refresh token: %v", err)
	}

	m.audit("session.revoked", record.UserID)
	return nil
}

// PurgeSessions deletes every refresh token belonging to the user. Called
// when the user itself is deleted so no orphaned session can rotate.
func (m *Manager) PurgeSessions(ctx context.Context, userID int64) error {
	ctx, span := m.tracer.Start(ctx, "token.Manager.PurgeSessions")
	defer span.End()

	if err := m.tokens.DeleteByUser(ctx, userID); err != nil {
		span.RecordError(err)
		return apperr.New(apperr.KindInternal, "purge refresh tokens: %v", err)
	}

	m.audit("session.purged", userID)
	return nil
}

// Validate is the read-only validity check: the token exists, is unrevoked,
// and has not expired. It returns the owning user.
func (m *Manager) Validate(ctx context.Context, tokenString string) (domain.User, error) {
	ctx, span := m.tracer.Start(ctx, "token.Manager.Validate")
	defer span.End()

	record, err := m.lookup(ctx, tokenString)
	if err != nil {
		return domain.User{}, err
	}
	if !record.Active(time.Now().UTC()) {
		return domain.User{}, apperr.ErrTokenInvalid
	}

	user, err := m.users.GetByID(ctx, record.UserID)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, apperr.New(apperr.KindInternal, "load token owner: %v", err)
	}
	return user, nil
}

func (m *Manager) lookup(ctx context.Context, tokenString string) (domain.RefreshToken, error) {
	if tokenString == "" {
		return domain.RefreshToken{}, apperr.ErrTokenNotFound
	}
	record, err := m.tokens.GetByToken(ctx, tokenString)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RefreshToken{}, apperr.ErrTokenNotFound
		}
		return domain.RefreshToken{}, apperr.New(apperr.KindInternal, "lookup refresh token: %v", err)
	}
	return record, nil
}

func (m *Manager) newRefreshToken(userID int64) domain.RefreshToken {
	// 64 random bytes; collisions are treated as practically impossible at
	// this entropy, so there is no retry loop around the unique index.
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return domain.RefreshToken{
		ID:        m.node.Generate().Int64(),
		UserID:    userID,
		Token:     base64.StdEncoding.EncodeToString(buf),
		ExpiresAt: time.Now().UTC().Add(m.refreshTTL),
	}
}

func (m *Manager) session(access, refresh string) *Session {
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(m.signer.AccessTTL().Seconds()),
	}
}

func (m *Manager) audit(event string, userID int64) {
	logger := m.logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Info("audit",
		zap.String("event", event),
		zap.Int64("user_id", userID),
		zap.Time("timestamp", time.Now().UTC()),
	)
}
