package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library-service/internal/data/entity"
	"library-service/internal/data/repository"
	"library-service/internal/dto/request"
	"library-service/internal/dto/response"
	"library-service/pkg/notifier"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BorrowingService interface {
	CreateBorrowing(ctx context.Context, requester Requester, req *request.CreateBorrowingRequest) (*response.BorrowingResponse, error)
	ListBorrowings(ctx context.Context, requester Requester, req *request.BorrowingListRequest) (*response.PaginatedResponse[response.BorrowingResponse], error)
	GetBorrowing(ctx context.Context, requester Requester, id string) (*response.BorrowingResponse, error)
	ReturnBorrowing(ctx context.Context, requester Requester, id string) (*response.ReturnResponse, error)
	Checkout(ctx context.Context, requester Requester, id string, req *request.CheckoutRequest) (*response.PaymentResponse, error)
}

type borrowingService struct {
	repo     *repository.Repository
	fees     *FeeCalculator
	payments PaymentService
	notify   notifier.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewBorrowingService(
	repo *repository.Repository,
	fees *FeeCalculator,
	payments PaymentService,
	notify notifier.Notifier,
	log *zap.Logger,
) BorrowingService {
	return &borrowingService{
		repo:     repo,
		fees:     fees,
		payments: payments,
		notify:   notify,
		log:      log.With(zap.String("service", "borrowing")),
		now:      time.Now,
	}
}

func (s *borrowingService) CreateBorrowing(ctx context.Context, requester Requester, req *request.CreateBorrowingRequest) (*response.BorrowingResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Create borrowing validation failed", zap.Error(err))
		return nil, err
	}

	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		return nil, newValidationError("book_id", "Must be a valid UUID")
	}
	expected, err := time.Parse(entity.DateLayout, req.ExpectedReturnDate)
	if err != nil {
		return nil, newValidationError("expected_return_date", "Must be a date in format "+entity.DateLayout)
	}

	// the date is checked before any inventory is touched
	now := s.now()
	today := entity.DateOf(now)
	if entity.DateOf(expected).Before(today) {
		return nil, newValidationError("expected_return_date", "Expected return date cannot be in the past")
	}

	borrowing := &entity.Borrowing{
		Base:               entity.NewBase(now),
		BorrowDate:         today,
		ExpectedReturnDate: entity.DateOf(expected),
		BookID:             bookID,
		UserID:             requester.UserID,
	}

	var book *entity.Book
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.Book.FindByIDForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		book = locked
		if book == nil {
			return fmt.Errorf("book %s: %w", bookID.String(), ErrNotFound)
		}
		if !book.InStock() {
			return fmt.Errorf("book %q: %w", book.Title, ErrOutOfStock)
		}

		if err := s.repo.Book.DecrementInventory(ctx, bookID); err != nil {
			if errors.Is(err, repository.ErrOutOfStock) {
				return fmt.Errorf("book %q: %w", book.Title, ErrOutOfStock)
			}
			return err
		}
		book.Inventory--

		return s.repo.Borrowing.Create(ctx, borrowing)
	})
	if err != nil {
		if errors.Is(err, ErrOutOfStock) || errors.Is(err, ErrNotFound) {
			s.log.Warn("Borrowing rejected", zap.Error(err), zap.String("book_id", bookID.String()))
			return nil, err
		}
		s.log.Error("Failed to create borrowing", zap.Error(err), zap.String("book_id", bookID.String()))
		return nil, fmt.Errorf("create borrowing: %w", err)
	}

	s.log.Info("Borrowing created",
		zap.String("borrowing_id", borrowing.ID.String()),
		zap.String("book_id", bookID.String()),
		zap.String("user_id", requester.UserID.String()),
	)

	detail := &entity.BorrowingDetail{Borrowing: borrowing, Book: book}
	s.notifyCreated(ctx, detail)

	resp := s.toResponse(detail, today)
	return &resp, nil
}

// notifyCreated is best-effort, a failed send never undoes the borrowing.
func (s *borrowingService) notifyCreated(ctx context.Context, detail *entity.BorrowingDetail) {
	if err := s.notify.Send(ctx, newBorrowingMessage(detail)); err != nil {
		s.log.Warn("Failed to send new borrowing notification",
			zap.Error(err),
			zap.String("borrowing_id", detail.Borrowing.ID.String()),
		)
	}
}

func (s *borrowingService) ListBorrowings(ctx context.Context, requester Requester, req *request.BorrowingListRequest) (*response.PaginatedResponse[response.BorrowingResponse], error) {
	req.Normalize()
	if err := validate(req); err != nil {
		return nil, err
	}

	filter := repository.BorrowingFilter{
		IsActive: req.IsActive,
		Limit:    req.Limit(),
		Offset:   req.Offset(),
	}

	switch {
	case !requester.IsStaff:
		filter.UserID = &requester.UserID
	case req.UserID != "":
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			return nil, newValidationError("user_id", "Must be a valid UUID")
		}
		filter.UserID = &userID
	}

	details, err := s.repo.Borrowing.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list borrowings: %w", err)
	}

	total, err := s.repo.Borrowing.CountAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count borrowings: %w", err)
	}

	today := entity.DateOf(s.now())
	data := make([]response.BorrowingResponse, 0, len(details))
	for _, detail := range details {
		data = append(data, s.toResponse(detail, today))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *borrowingService) GetBorrowing(ctx context.Context, requester Requester, id string) (*response.BorrowingResponse, error) {
	detail, err := s.findAccessible(ctx, requester, id)
	if err != nil {
		return nil, err
	}

	resp := s.toResponse(detail, entity.DateOf(s.now()))
	return &resp, nil
}

// ReturnBorrowing releases the copy immediately. An overdue borrowing gets its
// FINE checkout session first, while it is still priced as overdue.
func (s *borrowingService) ReturnBorrowing(ctx context.Context, requester Requester, id string) (*response.ReturnResponse, error) {
	detail, err := s.findAccessible(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	if detail.Borrowing.IsReturned() {
		return nil, fmt.Errorf("borrowing %s: %w", id, ErrAlreadyReturned)
	}

	today := entity.DateOf(s.now())

	var fine *entity.Payment
	if detail.Borrowing.IsOverdue(today) {
		fine, err = s.payments.CreateSession(ctx, detail, entity.PaymentTypeFine)
		switch {
		case errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrNothingToPay):
			fine = nil
		case err != nil:
			s.log.Error("Failed to issue fine before return", zap.Error(err), zap.String("borrowing_id", id))
			return nil, err
		}
	}

	borrowingID := detail.Borrowing.ID
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.Borrowing.FindByIDForUpdate(ctx, borrowingID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("borrowing %s: %w", id, ErrNotFound)
		}
		if locked.IsReturned() {
			return fmt.Errorf("borrowing %s: %w", id, ErrAlreadyReturned)
		}

		if err := s.repo.Borrowing.MarkReturned(ctx, borrowingID, today); err != nil {
			if errors.Is(err, repository.ErrAlreadyReturned) {
				return fmt.Errorf("borrowing %s: %w", id, ErrAlreadyReturned)
			}
			return err
		}
		return s.repo.Book.IncrementInventory(ctx, locked.BookID)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyReturned) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.log.Error("Failed to return borrowing", zap.Error(err), zap.String("borrowing_id", id))
		return nil, fmt.Errorf("return borrowing: %w", err)
	}

	detail.Borrowing.ActualReturnDate = &today
	if detail.Book != nil {
		detail.Book.Inventory++
	}

	s.log.Info("Borrowing returned",
		zap.String("borrowing_id", id),
		zap.Bool("fined", fine != nil),
	)

	resp := &response.ReturnResponse{Borrowing: s.toResponse(detail, today)}
	if fine != nil {
		paymentResp := response.PaymentToResponse(fine)
		resp.Fine = &paymentResp
	}
	return resp, nil
}

func (s *borrowingService) Checkout(ctx context.Context, requester Requester, id string, req *request.CheckoutRequest) (*response.PaymentResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	detail, err := s.findAccessible(ctx, requester, id)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.CreateSession(ctx, detail, entity.PaymentType(req.Type))
	if err != nil {
		return nil, err
	}

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

// findAccessible hides borrowings of other users behind ErrNotFound.
func (s *borrowingService) findAccessible(ctx context.Context, requester Requester, id string) (*entity.BorrowingDetail, error) {
	borrowingID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("borrowing %s: %w", id, ErrNotFound)
	}

	detail, err := s.repo.Borrowing.FindDetailByID(ctx, borrowingID)
	if err != nil {
		return nil, fmt.Errorf("find borrowing: %w", err)
	}
	if detail == nil || !requester.CanAccess(detail.Borrowing.UserID) {
		return nil, fmt.Errorf("borrowing %s: %w", id, ErrNotFound)
	}

	return detail, nil
}

func (s *borrowingService) toResponse(detail *entity.BorrowingDetail, today time.Time) response.BorrowingResponse {
	var fees response.Fees
	if detail.Book != nil {
		quote := s.fees.Quote(detail.Borrowing, detail.Book, today)
		fees = response.Fees{
			BorrowingDays: quote.BorrowingDays,
			Price:         quote.BasePrice,
			OverdueDays:   quote.OverdueDays,
			Fine:          quote.Fine,
		}
	}
	return response.BorrowingToResponse(detail, today, fees)
}
