package usecase

import (
	"library-service/internal/data/repository"
	"library-service/pkg/cache"
	"library-service/pkg/checkout"
	"library-service/pkg/notifier"
	"library-service/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Requester is the authenticated caller of an operation.
type Requester struct {
	UserID  uuid.UUID
	IsStaff bool
}

// CanAccess reports whether the requester may see a record owned by ownerID.
func (r Requester) CanAccess(ownerID uuid.UUID) bool {
	return r.IsStaff || r.UserID == ownerID
}

type Service struct {
	Auth      AuthService
	User      UserService
	Book      BookService
	Borrowing BorrowingService
	Payment   PaymentService
	Overdue   *OverdueScanner
}

func NewService(
	repo *repository.Repository,
	config *utils.Config,
	provider checkout.Provider,
	notify notifier.Notifier,
	sessions cache.SessionCache,
	log *zap.Logger,
) *Service {
	fees := NewFeeCalculator(config.Fee.FineMultiplier)
	payment := NewPaymentService(repo, fees, provider, notify, config, log)

	return &Service{
		Auth:      NewAuthService(repo, sessions, config, log),
		User:      NewUserService(repo, sessions, log),
		Book:      NewBookService(repo, log),
		Borrowing: NewBorrowingService(repo, fees, payment, notify, log),
		Payment:   payment,
		Overdue:   NewOverdueScanner(repo.Borrowing, fees, notify, log),
	}
}
