package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library-service/internal/data/entity"
	"library-service/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned by Revoke when the token is unknown or already revoked.
var ErrSessionNotFound = errors.New("session not found or already revoked")

const sessionColumns = `id, user_id, token, user_agent, ip_address, expires_at, revoked_at, created_at`

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindValidSession(ctx context.Context, token string) (*entity.Session, error)
	Revoke(ctx context.Context, token string) error
	// RevokeAllForUser revokes every live session of the user and returns their tokens.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	// DeleteStale removes sessions that expired or were revoked before cutoff.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSessionRepository(db database.PgxIface, log *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:  db,
		log: log.With(zap.String("repository", "session")),
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, NULL, $7)`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create session", zap.Error(err), zap.String("user_id", session.UserID.String()))
		return fmt.Errorf("create session for user %s: %w", session.UserID, err)
	}

	return nil
}

// FindValidSession returns nil, nil for malformed, unknown, expired or revoked tokens.
func (r *sessionRepository) FindValidSession(ctx context.Context, token string) (*entity.Session, error) {
	parsed, err := uuid.Parse(token)
	if err != nil {
		return nil, nil
	}

	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE token = $1 AND revoked_at IS NULL AND expires_at > NOW()`, parsed)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	session, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entity.Session])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to scan session", zap.Error(err))
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return session, nil
}

func (r *sessionRepository) Revoke(ctx context.Context, token string) error {
	parsed, err := uuid.Parse(token)
	if err != nil {
		return ErrSessionNotFound
	}

	tag, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE sessions SET revoked_at = NOW() WHERE token = $1 AND revoked_at IS NULL`, parsed)
	if err != nil {
		r.log.Error("Failed to revoke session", zap.Error(err))
		return fmt.Errorf("revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL
		RETURNING token`, userID)
	if err != nil {
		return nil, fmt.Errorf("revoke sessions of user %s: %w", userID, err)
	}

	tokens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var token uuid.UUID
		err := row.Scan(&token)
		return token.String(), err
	})
	if err != nil {
		r.log.Error("Failed to revoke user sessions", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("revoke sessions of user %s: %w", userID, err)
	}

	return tokens, nil
}

func (r *sessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := database.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM sessions WHERE expires_at < $1 OR revoked_at < $1`, cutoff)
	if err != nil {
		r.log.Error("Failed to delete stale sessions", zap.Error(err))
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}
