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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error)
}

type userService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	sessions    cache.SessionCache
	log         *zap.Logger
	now         func() time.Time
}

func NewUserService(repo *repository.Repository, sessions cache.SessionCache, log *zap.Logger) UserService {
	return &userService{
		userRepo:    repo.User,
		sessionRepo: repo.Session,
		sessions:    sessions,
		log:         log.With(zap.String("service", "user")),
		now:         time.Now,
	}
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := us.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error) {
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := us.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = us.now()

	if err := us.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email %s: %w", user.Email, ErrConflict)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	us.log.Info("Profile updated", zap.String("user_id", user.ID.String()))

	// a new password signs the user out everywhere, the current session included
	if req.Password != nil {
		if err := us.revokeSessions(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) revokeSessions(ctx context.Context, userID uuid.UUID) error {
	tokens, err := us.sessionRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	for _, token := range tokens {
		if err := us.sessions.Delete(ctx, token); err != nil {
			us.log.Warn("Failed to evict cached session", zap.Error(err))
		}
	}

	us.log.Info("Sessions revoked after password change",
		zap.String("user_id", userID.String()),
		zap.Int("count", len(tokens)),
	)
	return nil
}

func (us *userService) findUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := us.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID.String(), ErrNotFound)
	}
	return user, nil
}
