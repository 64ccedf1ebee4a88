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
	"library-service/pkg/checkout"
	"library-service/pkg/notifier"
	"library-service/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	providerName   = "checkout"
	reconcileBatch = 100
)

type PaymentService interface {
	// CreateSession opens (or reopens) the checkout of one borrowing for one payment type.
	CreateSession(ctx context.Context, detail *entity.BorrowingDetail, paymentType entity.PaymentType) (*entity.Payment, error)
	// ReconcileSession syncs a payment with its provider session and reports whether it expired.
	ReconcileSession(ctx context.Context, payment *entity.Payment) (bool, error)
	// ConfirmPayment marks a payment PAID once the provider reports it paid.
	ConfirmPayment(ctx context.Context, id string) (*response.PaymentStatusResponse, error)
	CancelPayment(ctx context.Context, id string) (*response.PaymentStatusResponse, error)
	ReconcileAll(ctx context.Context) error

	ListPayments(ctx context.Context, requester Requester, req *request.PaymentListRequest) (*response.PaginatedResponse[response.PaymentResponse], error)
	GetPayment(ctx context.Context, requester Requester, id string) (*response.PaymentResponse, error)
	RenewPayment(ctx context.Context, requester Requester, id string) (*response.PaymentResponse, error)
}

type paymentService struct {
	repo     *repository.Repository
	fees     *FeeCalculator
	provider checkout.Provider
	notify   notifier.Notifier
	currency string
	baseURL  string
	log      *zap.Logger
	now      func() time.Time
}

func NewPaymentService(
	repo *repository.Repository,
	fees *FeeCalculator,
	provider checkout.Provider,
	notify notifier.Notifier,
	config *utils.Config,
	log *zap.Logger,
) PaymentService {
	return &paymentService{
		repo:     repo,
		fees:     fees,
		provider: provider,
		notify:   notify,
		currency: config.Fee.Currency,
		baseURL:  strings.TrimRight(config.App.BaseURL, "/"),
		log:      log.With(zap.String("service", "payment")),
		now:      time.Now,
	}
}

func (s *paymentService) CreateSession(ctx context.Context, detail *entity.BorrowingDetail, paymentType entity.PaymentType) (*entity.Payment, error) {
	if !paymentType.Valid() {
		return nil, newValidationError("type", "Must be one of: PAYMENT, FINE")
	}

	borrowing, book := detail.Borrowing, detail.Book
	now := s.now()
	today := entity.DateOf(now)

	var amount = s.fees.BasePrice(borrowing, book)
	var overdueDays int
	if paymentType == entity.PaymentTypeFine {
		amount, overdueDays = s.fees.FineDue(borrowing, book, today)
	}

	// truncated to whole cents exactly once, the stored amount is what gets charged
	minor := ToMinorUnits(amount)
	if minor <= 0 {
		return nil, fmt.Errorf("%s for borrowing %s: %w", paymentType, borrowing.ID.String(), ErrNothingToPay)
	}

	var payment *entity.Payment
	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		// serializes concurrent checkouts of the same borrowing
		locked, err := s.repo.Borrowing.FindByIDForUpdate(ctx, borrowing.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("borrowing %s: %w", borrowing.ID.String(), ErrNotFound)
		}

		existing, err := s.repo.Payment.FindByBorrowingAndType(ctx, borrowing.ID, paymentType)
		if err != nil {
			return err
		}
		if existing != nil && existing.IsPaid() {
			return fmt.Errorf("%s for borrowing %s: %w", paymentType, borrowing.ID.String(), ErrAlreadyPaid)
		}

		payment = &entity.Payment{
			Base:        entity.NewBase(now),
			Status:      entity.PaymentStatusPending,
			Type:        paymentType,
			BorrowingID: borrowing.ID,
			MoneyToPay:  FromMinorUnits(minor),
		}
		if existing != nil {
			payment.ID = existing.ID
			payment.CreatedAt = existing.CreatedAt
		}

		session, err := s.provider.CreateSession(ctx, checkout.SessionParams{
			AmountMinor:   minor,
			Currency:      s.currency,
			ProductName:   productName(book),
			SuccessURL:    s.paymentURL(payment.ID, "success"),
			CancelURL:     s.paymentURL(payment.ID, "cancel"),
			SubmitMessage: submitMessage(paymentType, detail, overdueDays),
		})
		if err != nil {
			return &ProviderError{Provider: providerName, Err: err}
		}

		payment.SessionID = session.ID
		payment.SessionURL = session.URL

		if err := s.repo.Payment.Upsert(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrPaymentSettled) {
				return fmt.Errorf("%s for borrowing %s: %w", paymentType, borrowing.ID.String(), ErrAlreadyPaid)
			}
			return err
		}
		return nil
	})
	if err != nil {
		var providerErr *ProviderError
		switch {
		case errors.As(err, &providerErr):
			s.log.Error("Checkout provider failed", zap.Error(err), zap.String("borrowing_id", borrowing.ID.String()))
			return nil, err
		case errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrNotFound):
			return nil, err
		}
		s.log.Error("Failed to create checkout session",
			zap.Error(err),
			zap.String("borrowing_id", borrowing.ID.String()),
			zap.String("type", string(paymentType)),
		)
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	s.log.Info("Checkout session created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("borrowing_id", borrowing.ID.String()),
		zap.String("type", string(paymentType)),
		zap.String("amount", payment.MoneyToPay.StringFixed(2)),
	)

	return payment, nil
}

func (s *paymentService) paymentURL(id uuid.UUID, page string) string {
	return fmt.Sprintf("%s/api/payments/%s/%s", s.baseURL, id.String(), page)
}

func (s *paymentService) ReconcileSession(ctx context.Context, payment *entity.Payment) (bool, error) {
	if payment.IsPaid() {
		return false, nil
	}

	session, err := s.provider.GetSession(ctx, payment.SessionID)
	if err != nil {
		return false, &ProviderError{Provider: providerName, Err: err}
	}

	if session.Paid() {
		if _, err := s.markPaid(ctx, payment); err != nil {
			return false, err
		}
		return false, nil
	}

	if payment.Status == entity.PaymentStatusExpired {
		return true, nil
	}
	if !session.Expired(s.now()) {
		return false, nil
	}

	moved, err := s.repo.Payment.UpdateStatus(ctx, payment.ID, entity.PaymentStatusPending, entity.PaymentStatusExpired)
	if err != nil {
		return false, fmt.Errorf("expire payment: %w", err)
	}
	if moved {
		payment.Status = entity.PaymentStatusExpired
		s.log.Info("Payment session expired", zap.String("payment_id", payment.ID.String()))
	}

	return payment.Status == entity.PaymentStatusExpired, nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, id string) (*response.PaymentStatusResponse, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	if !payment.IsPaid() {
		session, err := s.provider.GetSession(ctx, payment.SessionID)
		if err != nil {
			s.log.Error("Failed to read checkout session", zap.Error(err), zap.String("payment_id", id))
			return nil, &ProviderError{Provider: providerName, Err: err}
		}
		if !session.Paid() {
			return nil, fmt.Errorf("payment %s: %w", id, ErrPaymentNotCompleted)
		}

		if _, err := s.markPaid(ctx, payment); err != nil {
			return nil, err
		}
	}

	return &response.PaymentStatusResponse{
		PaymentID: payment.ID.String(),
		Status:    string(payment.Status),
		Message:   "Payment was successful",
	}, nil
}

// markPaid flips the payment to PAID and notifies only when this call made the change.
func (s *paymentService) markPaid(ctx context.Context, payment *entity.Payment) (bool, error) {
	// a session paid right before it expired may already be marked EXPIRED
	var moved bool
	for _, from := range []entity.PaymentStatus{entity.PaymentStatusPending, entity.PaymentStatusExpired} {
		ok, err := s.repo.Payment.UpdateStatus(ctx, payment.ID, from, entity.PaymentStatusPaid)
		if err != nil {
			return false, fmt.Errorf("confirm payment: %w", err)
		}
		if ok {
			moved = true
			break
		}
	}
	payment.Status = entity.PaymentStatusPaid
	if !moved {
		return false, nil
	}

	s.log.Info("Payment confirmed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("type", string(payment.Type)),
	)

	detail, err := s.repo.Borrowing.FindDetailByID(ctx, payment.BorrowingID)
	if err != nil || detail == nil {
		s.log.Warn("Skipping payment notification, borrowing not loaded",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
		)
		return true, nil
	}

	quote := s.fees.Quote(detail.Borrowing, detail.Book, entity.DateOf(s.now()))
	if err := s.notify.Send(ctx, successPaymentMessage(detail, payment, quote)); err != nil {
		s.log.Warn("Failed to send payment notification", zap.Error(err), zap.String("payment_id", payment.ID.String()))
	}

	return true, nil
}

func (s *paymentService) CancelPayment(ctx context.Context, id string) (*response.PaymentStatusResponse, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	return &response.PaymentStatusResponse{
		PaymentID: payment.ID.String(),
		Status:    string(payment.Status),
		Message:   "Payment can be paid later, the session is available until it expires",
	}, nil
}

// ReconcileAll walks every PENDING payment once. Failures are logged per payment.
func (s *paymentService) ReconcileAll(ctx context.Context) error {
	pending, err := s.repo.Payment.FindPending(ctx, reconcileBatch)
	if err != nil {
		return fmt.Errorf("load pending payments: %w", err)
	}

	var expired, failed int
	for _, payment := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		isExpired, err := s.ReconcileSession(ctx, payment)
		if err != nil {
			failed++
			s.log.Warn("Failed to reconcile payment", zap.Error(err), zap.String("payment_id", payment.ID.String()))
			continue
		}
		if isExpired {
			expired++
		}
	}

	s.log.Info("Payments reconciled",
		zap.Int("checked", len(pending)),
		zap.Int("expired", expired),
		zap.Int("failed", failed),
	)
	return nil
}

func (s *paymentService) ListPayments(ctx context.Context, requester Requester, req *request.PaymentListRequest) (*response.PaginatedResponse[response.PaymentResponse], error) {
	req.Normalize()
	if err := validate(req); err != nil {
		return nil, err
	}

	filter := repository.PaymentFilter{
		Limit:  req.Limit(),
		Offset: req.Offset(),
	}
	if !requester.IsStaff {
		filter.UserID = &requester.UserID
	}
	if req.Status != "" {
		status := entity.PaymentStatus(req.Status)
		filter.Status = &status
	}
	if req.BorrowingID != "" {
		borrowingID, err := uuid.Parse(req.BorrowingID)
		if err != nil {
			return nil, newValidationError("borrowing_id", "Must be a valid UUID")
		}
		filter.BorrowingID = &borrowingID
	}

	payments, err := s.repo.Payment.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	total, err := s.repo.Payment.CountAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count payments: %w", err)
	}

	data := make([]response.PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		data = append(data, response.PaymentToResponse(payment))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *paymentService) GetPayment(ctx context.Context, requester Requester, id string) (*response.PaymentResponse, error) {
	payment, _, err := s.findAccessible(ctx, requester, id)
	if err != nil {
		return nil, err
	}

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

// RenewPayment replaces an expired session with a fresh one. A session that is
// still open is returned as is.
func (s *paymentService) RenewPayment(ctx context.Context, requester Requester, id string) (*response.PaymentResponse, error) {
	payment, detail, err := s.findAccessible(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	if payment.IsPaid() {
		return nil, fmt.Errorf("payment %s: %w", id, ErrAlreadyPaid)
	}

	expired, err := s.ReconcileSession(ctx, payment)
	if err != nil {
		return nil, err
	}
	if payment.IsPaid() {
		return nil, fmt.Errorf("payment %s: %w", id, ErrAlreadyPaid)
	}

	if expired {
		payment, err = s.CreateSession(ctx, detail, payment.Type)
		if err != nil {
			return nil, err
		}
	}

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

func (s *paymentService) findPayment(ctx context.Context, id string) (*entity.Payment, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}

	payment, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}

	return payment, nil
}

// findAccessible hides payments of other users behind ErrNotFound.
func (s *paymentService) findAccessible(ctx context.Context, requester Requester, id string) (*entity.Payment, *entity.BorrowingDetail, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	detail, err := s.repo.Borrowing.FindDetailByID(ctx, payment.BorrowingID)
	if err != nil {
		return nil, nil, fmt.Errorf("find borrowing: %w", err)
	}
	if detail == nil || !requester.CanAccess(detail.Borrowing.UserID) {
		return nil, nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}

	return payment, detail, nil
}
