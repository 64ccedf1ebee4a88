package wire

import (
	"net/http"

	"library-service/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, auth func(http.Handler) http.Handler) {
	r.Route("/api/payments", func(r chi.Router) {
		// provider redirects carry no session token
		r.Get("/{id}/success", paymentHandler.Success)
		r.Get("/{id}/cancel", paymentHandler.Cancel)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Get("/", paymentHandler.ListPayments)
			r.Get("/{id}", paymentHandler.GetPayment)
			r.Post("/{id}/renew", paymentHandler.RenewPayment)
		})
	})
}
