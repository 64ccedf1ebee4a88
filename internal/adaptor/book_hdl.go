package adaptor

import (
	"net/http"

	"library-service/internal/dto/request"
	"library-service/internal/usecase"
	"library-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookHandler struct {
	service usecase.BookService
	log     *zap.Logger
}

func NewBookHandler(service usecase.BookService, log *zap.Logger) *BookHandler {
	return &BookHandler{
		service: service,
		log:     log.With(zap.String("handler", "book")),
	}
}

// ListBooks handles GET /api/books (public)
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	books, err := h.service.ListBooks(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "list books")
		return
	}

	utils.ResponseSuccess(w, "success", books)
}

// GetBook handles GET /api/books/{id} (public)
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get book")
		return
	}

	utils.ResponseSuccess(w, "success", book)
}

// CreateBook handles POST /api/admin/books (staff)
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req request.BookRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	book, err := h.service.CreateBook(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "create book")
		return
	}

	utils.ResponseCreated(w, "Book created", book)
}

// UpdateBook handles PUT /api/admin/books/{id} (staff)
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var req request.BookRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	book, err := h.service.UpdateBook(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err, "update book")
		return
	}

	utils.ResponseSuccess(w, "Book updated", book)
}

// DeleteBook handles DELETE /api/admin/books/{id} (staff)
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err, "delete book")
		return
	}

	utils.ResponseSuccess(w, "Book deleted", nil)
}

func (h *BookHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	writeServiceError(w, h.log, err, operation)
}
