package repository

import (
	"context"
	"errors"
	"fmt"

	"library-service/internal/data/entity"
	"library-service/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrOutOfStock is returned by DecrementInventory when no copy is left.
var ErrOutOfStock = errors.New("no copies left")

type BookRepository interface {
	Create(ctx context.Context, book *entity.Book) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Book, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.Book, error)
	CountAll(ctx context.Context) (int64, error)
	Update(ctx context.Context, book *entity.Book) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Inventory, call inside a transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Book, error)
	DecrementInventory(ctx context.Context, id uuid.UUID) error
	IncrementInventory(ctx context.Context, id uuid.UUID) error
}

type bookRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookRepository(db database.PgxIface, log *zap.Logger) BookRepository {
	return &bookRepository{
		db:  db,
		log: log.With(zap.String("repository", "book")),
	}
}

const bookColumns = `id, title, author, cover, inventory, daily_fee, created_at, updated_at`

func scanBook(row pgx.Row) (*entity.Book, error) {
	var book entity.Book
	err := row.Scan(
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
	return &book, nil
}

func (r *bookRepository) Create(ctx context.Context, book *entity.Book) error {
	query := `
		INSERT INTO books (id, title, author, cover, inventory, daily_fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		book.ID,
		book.Title,
		book.Author,
		book.Cover,
		book.Inventory,
		book.DailyFee,
		book.CreatedAt,
		book.UpdatedAt,
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("book title %q: %w", book.Title, ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create book",
			zap.Error(err),
			zap.String("title", book.Title),
		)
		return fmt.Errorf("create book %q: %w", book.Title, err)
	}

	return nil
}

func (r *bookRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	book, err := scanBook(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find book by ID",
			zap.Error(err),
			zap.String("book_id", id.String()),
		)
		return nil, fmt.Errorf("find book by ID %s: %w", id.String(), err)
	}

	return book, nil
}

func (r *bookRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1 FOR UPDATE`

	book, err := scanBook(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock book",
			zap.Error(err),
			zap.String("book_id", id.String()),
		)
		return nil, fmt.Errorf("lock book %s: %w", id.String(), err)
	}

	return book, nil
}

func (r *bookRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY title LIMIT $1 OFFSET $2`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to list books",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*entity.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			r.log.Error("Failed to scan book row", zap.Error(err))
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		books = append(books, book)
	}

	return books, rows.Err()
}

func (r *bookRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count books", zap.Error(err))
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

func (r *bookRepository) Update(ctx context.Context, book *entity.Book) error {
	query := `
		UPDATE books
		SET title = $2, author = $3, cover = $4, inventory = $5, daily_fee = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query,
		book.ID,
		book.Title,
		book.Author,
		book.Cover,
		book.Inventory,
		book.DailyFee,
		book.UpdatedAt,
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("book title %q: %w", book.Title, ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to update book",
			zap.Error(err),
			zap.String("book_id", book.ID.String()),
		)
		return fmt.Errorf("update book %s: %w", book.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("book %s not found", book.ID.String())
	}

	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete book",
			zap.Error(err),
			zap.String("book_id", id.String()),
		)
		return fmt.Errorf("delete book %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("book %s not found", id.String())
	}

	r.log.Info("Book deleted", zap.String("book_id", id.String()))
	return nil
}

func (r *bookRepository) DecrementInventory(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE books SET inventory = inventory - 1, updated_at = NOW() WHERE id = $1 AND inventory > 0`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to decrement inventory",
			zap.Error(err),
			zap.String("book_id", id.String()),
		)
		return fmt.Errorf("decrement inventory of book %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("book %s: %w", id.String(), ErrOutOfStock)
	}

	return nil
}

func (r *bookRepository) IncrementInventory(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE books SET inventory = inventory + 1, updated_at = NOW() WHERE id = $1`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to increment inventory",
			zap.Error(err),
			zap.String("book_id", id.String()),
		)
		return fmt.Errorf("increment inventory of book %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("book %s not found", id.String())
	}

	return nil
}
