package adaptor

import (
	"errors"
	"net/http"

	"library-service/internal/usecase"
	"library-service/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth      *AuthHandler
	User      *UserHandler
	Book      *BookHandler
	Borrowing *BorrowingHandler
	Payment   *PaymentHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(service.Auth, log),
		User:      NewUserHandler(service.User, log),
		Book:      NewBookHandler(service.Book, log),
		Borrowing: NewBorrowingHandler(service.Borrowing, log),
		Payment:   NewPaymentHandler(service.Payment, log),
	}
}

// requesterFrom reads the caller set by the AuthSession middleware.
func requesterFrom(r *http.Request) (usecase.Requester, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		return usecase.Requester{}, false
	}
	return usecase.Requester{
		UserID:  userID,
		IsStaff: utils.IsStaffFromContext(r.Context()),
	}, true
}

// writeServiceError maps service errors to status codes. Unknown errors become
// a 500 with a generic message.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var validationErr *usecase.ValidationError
	var providerErr *usecase.ProviderError

	switch {
	case errors.As(err, &validationErr):
		log.Warn("Validation failed", zap.String("operation", operation), zap.Any("errors", validationErr.Fields))
		utils.ResponseBadRequest(w, "Validation failed", validationErr.Fields)

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn("Not found", zap.String("operation", operation), zap.Error(err))
		utils.ResponseNotFound(w, "Resource not found")

	case errors.Is(err, usecase.ErrOutOfStock):
		log.Warn("Out of stock", zap.String("operation", operation), zap.Error(err))
		utils.ResponseBadRequest(w, "Book is out of stock", nil)

	case errors.Is(err, usecase.ErrAlreadyReturned):
		log.Warn("Already returned", zap.String("operation", operation), zap.Error(err))
		utils.ResponseBadRequest(w, "Borrowing has already been returned", nil)

	case errors.Is(err, usecase.ErrAlreadyPaid):
		log.Warn("Already paid", zap.String("operation", operation), zap.Error(err))
		utils.ResponseBadRequest(w, "Payment has already been paid", nil)

	case errors.Is(err, usecase.ErrNothingToPay):
		log.Warn("Nothing to pay", zap.String("operation", operation), zap.Error(err))
		utils.ResponseBadRequest(w, "There is nothing to pay for this borrowing", nil)

	case errors.Is(err, usecase.ErrPaymentNotCompleted):
		log.Warn("Payment not completed", zap.String("operation", operation), zap.Error(err))
		utils.ResponseBadRequest(w, "Payment has not been completed", nil)

	case errors.Is(err, usecase.ErrUnauthorized):
		utils.ResponseUnauthorized(w, "Invalid credentials")

	case errors.Is(err, usecase.ErrForbidden):
		utils.ResponseForbidden(w, "Access denied")

	case errors.Is(err, usecase.ErrConflict):
		log.Warn("Conflict", zap.String("operation", operation), zap.Error(err))
		utils.ResponseConflict(w, "Resource already exists")

	case errors.As(err, &providerErr):
		log.Error("Provider error", zap.String("operation", operation), zap.Error(err))
		utils.ResponseBadGateway(w, "Payment provider is unavailable, try again later")

	default:
		log.Error("Service error", zap.String("operation", operation), zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
