package adaptor

import (
	"net/http"

	"library-service/internal/dto/request"
	"library-service/internal/usecase"
	"library-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BorrowingHandler struct {
	service usecase.BorrowingService
	log     *zap.Logger
}

func NewBorrowingHandler(service usecase.BorrowingService, log *zap.Logger) *BorrowingHandler {
	return &BorrowingHandler{
		service: service,
		log:     log.With(zap.String("handler", "borrowing")),
	}
}

// CreateBorrowing handles POST /api/borrowings (protected)
func (h *BorrowingHandler) CreateBorrowing(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateBorrowingRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	borrowing, err := h.service.CreateBorrowing(r.Context(), requester, &req)
	if err != nil {
		h.handleServiceError(w, err, "create borrowing")
		return
	}

	utils.ResponseCreated(w, "Borrowing created", borrowing)
}

// ListBorrowings handles GET /api/borrowings?is_active=&user_id= (protected)
func (h *BorrowingHandler) ListBorrowings(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.BorrowingListRequest{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 10),
		},
		IsActive: utils.ParseBool(query.Get("is_active")),
		UserID:   query.Get("user_id"),
	}

	borrowings, err := h.service.ListBorrowings(r.Context(), requester, req)
	if err != nil {
		h.handleServiceError(w, err, "list borrowings")
		return
	}

	utils.ResponseSuccess(w, "success", borrowings)
}

// GetBorrowing handles GET /api/borrowings/{id} (protected)
func (h *BorrowingHandler) GetBorrowing(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	borrowing, err := h.service.GetBorrowing(r.Context(), requester, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get borrowing")
		return
	}

	utils.ResponseSuccess(w, "success", borrowing)
}

// ReturnBorrowing handles POST /api/borrowings/{id}/return (protected)
func (h *BorrowingHandler) ReturnBorrowing(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	result, err := h.service.ReturnBorrowing(r.Context(), requester, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "return borrowing")
		return
	}

	message := "Borrowing returned"
	if result.Fine != nil {
		message = "Borrowing returned, the overdue fine is waiting to be paid"
	}
	utils.ResponseSuccess(w, message, result)
}

// Checkout handles POST /api/borrowings/{id}/checkout (protected)
func (h *BorrowingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CheckoutRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	payment, err := h.service.Checkout(r.Context(), requester, chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err, "checkout borrowing")
		return
	}

	utils.ResponseCreated(w, "Checkout session created", payment)
}

func (h *BorrowingHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	writeServiceError(w, h.log, err, operation)
}
