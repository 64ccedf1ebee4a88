package repository

import (
	"errors"

	"library-service/pkg/database"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrDuplicate is returned when an insert or update hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

type Repository struct {
	Tx        database.Transactor
	User      UserRepository
	Session   SessionRepository
	Book      BookRepository
	Borrowing BorrowingRepository
	Payment   PaymentRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Tx:        database.NewTransactor(db),
		User:      NewUserRepository(db, log),
		Session:   NewSessionRepository(db, log),
		Book:      NewBookRepository(db, log),
		Borrowing: NewBorrowingRepository(db, log),
		Payment:   NewPaymentRepository(db, log),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
