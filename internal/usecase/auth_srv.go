package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"library-service/internal/data/entity"
	"library-service/internal/data/repository"
	"library-service/internal/dto/request"
	"library-service/internal/dto/response"
	"library-service/pkg/cache"
	"library-service/pkg/utils"

	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a bearer token. It returns nil, nil for an unknown or expired token.
	Authenticate(ctx context.Context, token string) (*cache.SessionData, error)
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type authService struct {
	repo     *repository.Repository
	sessions cache.SessionCache
	expiry   time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(
	repo *repository.Repository,
	sessions cache.SessionCache,
	config *utils.Config,
	log *zap.Logger,
) AuthService {
	return &authService{
		repo:     repo,
		sessions: sessions,
		expiry:   time.Duration(config.Session.ExpiryHours) * time.Hour,
		log:      log.With(zap.String("service", "auth")),
		now:      time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate(req); err != nil {
		s.log.Warn("Register validation failed", zap.Error(err))
		return nil, err
	}

	email := req.Email

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		Base:         entity.NewBase(s.now()),
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
	}

	var session *entity.Session
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.User.Create(ctx, user); err != nil {
			return err
		}
		session, err = s.createSession(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email %s: %w", email, ErrConflict)
		}
		s.log.Error("Failed to register user", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	resp := response.AuthToResponse(user, session)
	return &resp, nil
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate(req); err != nil {
		s.log.Warn("Login validation failed", zap.Error(err))
		return nil, err
	}

	email := req.Email

	user, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		s.log.Warn("Invalid login attempt", zap.String("email", email))
		return nil, ErrUnauthorized
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		s.log.Error("Failed to create session", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("User logged in", zap.String("user_id", user.ID.String()))

	resp := response.AuthToResponse(user, session)
	return &resp, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		s.log.Warn("Failed to evict cached session", zap.Error(err))
	}

	if err := s.repo.Session.Revoke(ctx, token); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("logout: %w", err)
	}

	s.log.Info("User logged out")
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*cache.SessionData, error) {
	cached, err := s.sessions.Get(ctx, token)
	if err != nil {
		// the database stays authoritative when the cache is down
		s.log.Warn("Session cache lookup failed", zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	session, err := s.repo.Session.FindValidSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.repo.User.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("find session user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	data := &cache.SessionData{
		UserID:    user.ID,
		IsStaff:   user.IsStaff,
		ExpiresAt: session.ExpiresAt,
	}
	if err := s.sessions.Set(ctx, token, data); err != nil {
		s.log.Warn("Failed to cache session", zap.Error(err))
	}

	return data, nil
}

// staleSessionRetention keeps expired and revoked sessions around for a week
// before the purge job deletes them.
const staleSessionRetention = 7 * 24 * time.Hour

func (s *authService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := s.repo.Session.DeleteStale(ctx, s.now().Add(-staleSessionRetention))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}

	s.log.Info("Expired sessions purged", zap.Int64("removed", removed))
	return removed, nil
}

func (s *authService) createSession(ctx context.Context, user *entity.User) (*entity.Session, error) {
	now := s.now()
	session := &entity.Session{
		BaseSimple: entity.BaseSimple{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
		},
		UserID:    user.ID,
		Token:     utils.GenerateSessionToken(),
		ExpiresAt: now.Add(s.expiry),
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// normalizeEmail trims and lowercases an address before it is validated or stored.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
