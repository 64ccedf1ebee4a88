package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library-service/internal/data/entity"
	"library-service/pkg/database"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrAlreadyReturned is returned by MarkReturned when the return date is already set.
var ErrAlreadyReturned = errors.New("borrowing already returned")

// BorrowingFilter narrows borrowing listings. Nil fields are not applied.
type BorrowingFilter struct {
	UserID   *uuid.UUID
	IsActive *bool
	Limit    int
	Offset   int
}

type BorrowingRepository interface {
	Create(ctx context.Context, borrowing *entity.Borrowing) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Borrowing, error)
	FindDetailByID(ctx context.Context, id uuid.UUID) (*entity.BorrowingDetail, error)
	FindAll(ctx context.Context, filter BorrowingFilter) ([]*entity.BorrowingDetail, error)
	CountAll(ctx context.Context, filter BorrowingFilter) (int64, error)

	// FindActiveDueBy returns unreturned borrowings expected back on or before cutoff.
	FindActiveDueBy(ctx context.Context, cutoff time.Time) ([]*entity.BorrowingDetail, error)

	// Return flow, call inside a transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Borrowing, error)
	MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time) error
}

type borrowingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBorrowingRepository(db database.PgxIface, log *zap.Logger) BorrowingRepository {
	return &borrowingRepository{
		db:  db,
		log: log.With(zap.String("repository", "borrowing")),
	}
}

const borrowingColumns = `id, borrow_date, expected_return_date, actual_return_date, book_id, user_id, created_at, updated_at`

var detailColumns = []interface{}{
	goqu.I("br.id"), goqu.I("br.borrow_date"), goqu.I("br.expected_return_date"),
	goqu.I("br.actual_return_date"), goqu.I("br.book_id"), goqu.I("br.user_id"),
	goqu.I("br.created_at"), goqu.I("br.updated_at"),
	goqu.I("b.id"), goqu.I("b.title"), goqu.I("b.author"), goqu.I("b.cover"),
	goqu.I("b.inventory"), goqu.I("b.daily_fee"), goqu.I("b.created_at"), goqu.I("b.updated_at"),
}

func scanBorrowing(row pgx.Row) (*entity.Borrowing, error) {
	var borrowing entity.Borrowing
	err := row.Scan(
		&borrowing.ID,
		&borrowing.BorrowDate,
		&borrowing.ExpectedReturnDate,
		&borrowing.ActualReturnDate,
		&borrowing.BookID,
		&borrowing.UserID,
		&borrowing.CreatedAt,
		&borrowing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func scanBorrowingDetail(row pgx.Row) (*entity.BorrowingDetail, error) {
	var borrowing entity.Borrowing
	var book entity.Book
	err := row.Scan(
		&borrowing.ID,
		&borrowing.BorrowDate,
		&borrowing.ExpectedReturnDate,
		&borrowing.ActualReturnDate,
		&borrowing.BookID,
		&borrowing.UserID,
		&borrowing.CreatedAt,
		&borrowing.UpdatedAt,
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Cover,
		&book.Inventory,
		&book.DailyFee,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entity.BorrowingDetail{Borrowing: &borrowing, Book: &book}, nil
}

func detailSelect() *goqu.SelectDataset {
	return goqu.Dialect("postgres").
		From(goqu.T("borrowings").As("br")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("br.book_id")))).
		Prepared(true)
}

func (f BorrowingFilter) expressions() []exp.Expression {
	var where []exp.Expression
	if f.UserID != nil {
		where = append(where, goqu.I("br.user_id").Eq(*f.UserID))
	}
	if f.IsActive != nil {
		if *f.IsActive {
			where = append(where, goqu.I("br.actual_return_date").IsNull())
		} else {
			where = append(where, goqu.I("br.actual_return_date").IsNotNull())
		}
	}
	return where
}

func (r *borrowingRepository) Create(ctx context.Context, borrowing *entity.Borrowing) error {
	query := `
		INSERT INTO borrowings (id, borrow_date, expected_return_date, actual_return_date,
		                        book_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		borrowing.ID,
		borrowing.BorrowDate,
		borrowing.ExpectedReturnDate,
		borrowing.ActualReturnDate,
		borrowing.BookID,
		borrowing.UserID,
		borrowing.CreatedAt,
		borrowing.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create borrowing",
			zap.Error(err),
			zap.String("book_id", borrowing.BookID.String()),
			zap.String("user_id", borrowing.UserID.String()),
		)
		return fmt.Errorf("create borrowing of book %s: %w", borrowing.BookID.String(), err)
	}

	return nil
}

func (r *borrowingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Borrowing, error) {
	query := `SELECT ` + borrowingColumns + ` FROM borrowings WHERE id = $1`

	borrowing, err := scanBorrowing(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find borrowing by ID",
			zap.Error(err),
			zap.String("borrowing_id", id.String()),
		)
		return nil, fmt.Errorf("find borrowing by ID %s: %w", id.String(), err)
	}

	return borrowing, nil
}

func (r *borrowingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Borrowing, error) {
	query := `SELECT ` + borrowingColumns + ` FROM borrowings WHERE id = $1 FOR UPDATE`

	borrowing, err := scanBorrowing(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock borrowing",
			zap.Error(err),
			zap.String("borrowing_id", id.String()),
		)
		return nil, fmt.Errorf("lock borrowing %s: %w", id.String(), err)
	}

	return borrowing, nil
}

func (r *borrowingRepository) FindDetailByID(ctx context.Context, id uuid.UUID) (*entity.BorrowingDetail, error) {
	query, args, err := detailSelect().
		Select(detailColumns...).
		Where(goqu.I("br.id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build borrowing detail query: %w", err)
	}

	detail, err := scanBorrowingDetail(database.Conn(ctx, r.db).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find borrowing detail",
			zap.Error(err),
			zap.String("borrowing_id", id.String()),
		)
		return nil, fmt.Errorf("find borrowing detail %s: %w", id.String(), err)
	}

	return detail, nil
}

func (r *borrowingRepository) FindAll(ctx context.Context, filter BorrowingFilter) ([]*entity.BorrowingDetail, error) {
	query, args, err := detailSelect().
		Select(detailColumns...).
		Where(filter.expressions()...).
		Order(goqu.I("br.borrow_date").Desc(), goqu.I("br.created_at").Desc()).
		Limit(uint(filter.Limit)).
		Offset(uint(filter.Offset)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build borrowing list query: %w", err)
	}

	return r.queryDetails(ctx, query, args...)
}

func (r *borrowingRepository) CountAll(ctx context.Context, filter BorrowingFilter) (int64, error) {
	query, args, err := detailSelect().
		Select(goqu.COUNT(goqu.Star())).
		Where(filter.expressions()...).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build borrowing count query: %w", err)
	}

	var count int64
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.log.Error("Failed to count borrowings", zap.Error(err))
		return 0, fmt.Errorf("count borrowings: %w", err)
	}

	return count, nil
}

func (r *borrowingRepository) FindActiveDueBy(ctx context.Context, cutoff time.Time) ([]*entity.BorrowingDetail, error) {
	query, args, err := detailSelect().
		Select(detailColumns...).
		Where(
			goqu.I("br.expected_return_date").Lte(cutoff),
			goqu.I("br.actual_return_date").IsNull(),
		).
		Order(goqu.I("br.expected_return_date").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build due borrowings query: %w", err)
	}

	return r.queryDetails(ctx, query, args...)
}

func (r *borrowingRepository) queryDetails(ctx context.Context, query string, args ...any) ([]*entity.BorrowingDetail, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query borrowings", zap.Error(err), zap.String("query", query))
		return nil, fmt.Errorf("query borrowings: %w", err)
	}
	defer rows.Close()

	var details []*entity.BorrowingDetail
	for rows.Next() {
		detail, err := scanBorrowingDetail(rows)
		if err != nil {
			r.log.Error("Failed to scan borrowing row", zap.Error(err))
			return nil, fmt.Errorf("scan borrowing row: %w", err)
		}
		details = append(details, detail)
	}

	return details, rows.Err()
}

func (r *borrowingRepository) MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time) error {
	query := `
		UPDATE borrowings
		SET actual_return_date = $2, updated_at = NOW()
		WHERE id = $1 AND actual_return_date IS NULL
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, returnDate)
	if err != nil {
		r.log.Error("Failed to mark borrowing returned",
			zap.Error(err),
			zap.String("borrowing_id", id.String()),
		)
		return fmt.Errorf("mark borrowing %s returned: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("borrowing %s: %w", id.String(), ErrAlreadyReturned)
	}

	return nil
}
