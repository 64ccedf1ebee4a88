package wire

import (
	"net/http"

	"library-service/internal/adaptor"
	"library-service/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBook(r chi.Router, bookHandler *adaptor.BookHandler, auth func(http.Handler) http.Handler, log *zap.Logger) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/books", bookHandler.ListBooks)
	r.Get("/api/books/{id}", bookHandler.GetBook)

	// ==================== STAFF ROUTES ====================
	r.Route("/api/admin/books", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.Staff(log))

		r.Post("/", bookHandler.CreateBook)
		r.Put("/{id}", bookHandler.UpdateBook)
		r.Delete("/{id}", bookHandler.DeleteBook)
	})
}
