package adaptor

import (
	"net/http"

	"library-service/internal/dto/request"
	"library-service/internal/usecase"
	"library-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// ListPayments handles GET /api/payments?status=&borrowing_id= (protected)
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaymentListRequest{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 10),
		},
		Status:      query.Get("status"),
		BorrowingID: query.Get("borrowing_id"),
	}

	payments, err := h.service.ListPayments(r.Context(), requester, req)
	if err != nil {
		h.handleServiceError(w, err, "list payments")
		return
	}

	utils.ResponseSuccess(w, "success", payments)
}

// GetPayment handles GET /api/payments/{id} (protected)
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payment, err := h.service.GetPayment(r.Context(), requester, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// RenewPayment handles POST /api/payments/{id}/renew (protected)
func (h *PaymentHandler) RenewPayment(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payment, err := h.service.RenewPayment(r.Context(), requester, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "renew payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// Success handles GET /api/payments/{id}/success (provider redirect)
func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ConfirmPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "confirm payment")
		return
	}

	utils.ResponseSuccess(w, result.Message, result)
}

// Cancel handles GET /api/payments/{id}/cancel (provider redirect)
func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.CancelPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "cancel payment")
		return
	}

	utils.ResponseSuccess(w, result.Message, result)
}

func (h *PaymentHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	writeServiceError(w, h.log, err, operation)
}
