package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"library-service/internal/data/entity"
	"library-service/internal/data/repository"
	"library-service/internal/dto/request"
	"library-service/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookService interface {
	ListBooks(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookResponse], error)
	GetBook(ctx context.Context, id string) (*response.BookResponse, error)
	CreateBook(ctx context.Context, req *request.BookRequest) (*response.BookResponse, error)
	UpdateBook(ctx context.Context, id string, req *request.BookRequest) (*response.BookResponse, error)
	DeleteBook(ctx context.Context, id string) error
}

type bookService struct {
	repo *repository.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewBookService(repo *repository.Repository, log *zap.Logger) BookService {
	return &bookService{
		repo: repo,
		log:  log.With(zap.String("service", "book")),
		now:  time.Now,
	}
}

func (s *bookService) ListBooks(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookResponse], error) {
	req.Normalize()

	books, err := s.repo.Book.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	total, err := s.repo.Book.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	data := make([]response.BookResponse, 0, len(books))
	for _, book := range books {
		data = append(data, response.BookToResponse(book))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *bookService) GetBook(ctx context.Context, id string) (*response.BookResponse, error) {
	book, err := s.findBook(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := response.BookToResponse(book)
	return &resp, nil
}

func (s *bookService) CreateBook(ctx context.Context, req *request.BookRequest) (*response.BookResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Create book validation failed", zap.Error(err))
		return nil, err
	}

	book := &entity.Book{
		Base:      entity.NewBase(s.now()),
		Title:     strings.TrimSpace(req.Title),
		Author:    strings.TrimSpace(req.Author),
		Cover:     entity.CoverType(req.Cover),
		Inventory: *req.Inventory,
		DailyFee:  req.DailyFee,
	}

	if err := s.repo.Book.Create(ctx, book); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("book %q: %w", book.Title, ErrConflict)
		}
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.log.Info("Book created",
		zap.String("book_id", book.ID.String()),
		zap.String("title", book.Title),
	)

	resp := response.BookToResponse(book)
	return &resp, nil
}

func (s *bookService) UpdateBook(ctx context.Context, id string, req *request.BookRequest) (*response.BookResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Update book validation failed", zap.Error(err))
		return nil, err
	}

	book, err := s.findBook(ctx, id)
	if err != nil {
		return nil, err
	}

	book.Title = strings.TrimSpace(req.Title)
	book.Author = strings.TrimSpace(req.Author)
	book.Cover = entity.CoverType(req.Cover)
	book.Inventory = *req.Inventory
	book.DailyFee = req.DailyFee
	book.UpdatedAt = s.now()

	if err := s.repo.Book.Update(ctx, book); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("book %q: %w", book.Title, ErrConflict)
		}
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.log.Info("Book updated", zap.String("book_id", book.ID.String()))

	resp := response.BookToResponse(book)
	return &resp, nil
}

func (s *bookService) DeleteBook(ctx context.Context, id string) error {
	book, err := s.findBook(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Book.Delete(ctx, book.ID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	return nil
}

func (s *bookService) findBook(ctx context.Context, id string) (*entity.Book, error) {
	bookID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}

	book, err := s.repo.Book.FindByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}

	return book, nil
}
