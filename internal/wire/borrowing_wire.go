package wire

import (
	"net/http"

	"library-service/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBorrowing(r chi.Router, borrowingHandler *adaptor.BorrowingHandler, auth func(http.Handler) http.Handler) {
	r.Route("/api/borrowings", func(r chi.Router) {
		r.Use(auth)

		r.Get("/", borrowingHandler.ListBorrowings)
		r.Post("/", borrowingHandler.CreateBorrowing)
		r.Get("/{id}", borrowingHandler.GetBorrowing)
		r.Post("/{id}/return", borrowingHandler.ReturnBorrowing)
		r.Post("/{id}/checkout", borrowingHandler.Checkout)
	})
}
