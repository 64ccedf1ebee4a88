package wire

import (
	"net/http"

	"library-service/internal/adaptor"
	"library-service/internal/data/repository"
	"library-service/internal/usecase"
	"library-service/pkg/cache"
	"library-service/pkg/checkout"
	"library-service/pkg/middleware"
	"library-service/pkg/notifier"
	"library-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Clients are the outside services the application talks to.
type Clients struct {
	Provider checkout.Provider
	Notifier notifier.Notifier
	Sessions cache.SessionCache
}

// App holds the router and the services the scheduler needs.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and routes.
func Wiring(repo *repository.Repository, clients Clients, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, config, clients.Provider, clients.Notifier, clients.Sessions, logger)
	handler := adaptor.NewHandler(service, logger)

	return &App{
		Router:  setupRouter(handler, service, logger),
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, service *usecase.Service, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS)

	auth := middleware.AuthSession(service.Auth, logger)

	wireAuth(r, handler.Auth, auth)
	wireUser(r, handler.User, auth)
	wireBook(r, handler.Book, auth, logger)
	wireBorrowing(r, handler.Borrowing, auth)
	wirePayment(r, handler.Payment, auth)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseSuccess(w, "OK", nil)
	})

	return r
}
