package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"library-service/internal/data/entity"
	"library-service/internal/data/repository"
	"library-service/pkg/checkout"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// ==================== CLOCK ====================

// fixedNow is 10:30 UTC on 2026-03-10.
var fixedNow = time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ==================== MOCKS ====================

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateSession(ctx context.Context, params checkout.SessionParams) (*checkout.Session, error) {
	args := m.Called(ctx, params)
	session, _ := args.Get(0).(*checkout.Session)
	return session, args.Error(1)
}

func (m *mockProvider) GetSession(ctx context.Context, id string) (*checkout.Session, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*checkout.Session)
	return session, args.Error(1)
}

// ==================== IN-MEMORY STORE ====================

// store backs every fake repository with one lock, which stands in for row locks.
type store struct {
	mu         sync.Mutex
	books      map[uuid.UUID]entity.Book
	borrowings map[uuid.UUID]entity.Borrowing
	payments   map[uuid.UUID]entity.Payment
	users      map[uuid.UUID]entity.User
	sessions   map[string]entity.Session
}

func newStore() *store {
	return &store{
		books:      map[uuid.UUID]entity.Book{},
		borrowings: map[uuid.UUID]entity.Borrowing{},
		payments:   map[uuid.UUID]entity.Payment{},
		users:      map[uuid.UUID]entity.User{},
		sessions:   map[string]entity.Session{},
	}
}

func (s *store) repository() *repository.Repository {
	return &repository.Repository{
		Tx:        fakeTx{},
		User:      &fakeUserRepo{s},
		Session:   &fakeSessionRepo{s},
		Book:      &fakeBookRepo{s},
		Borrowing: &fakeBorrowingRepo{s},
		Payment:   &fakePaymentRepo{s},
	}
}

func (s *store) addBook(inventory int, dailyFee string) entity.Book {
	book := entity.Book{
		Base:      entity.NewBase(fixedNow),
		Title:     "Book " + uuid.NewString()[:8],
		Author:    "Author",
		Cover:     entity.CoverHard,
		Inventory: inventory,
		DailyFee:  decimal.RequireFromString(dailyFee),
	}
	s.mu.Lock()
	s.books[book.ID] = book
	s.mu.Unlock()
	return book
}

func (s *store) addBorrowing(book entity.Book, userID uuid.UUID, borrowed, expected time.Time) entity.Borrowing {
	borrowing := entity.Borrowing{
		Base:               entity.NewBase(borrowed),
		BorrowDate:         borrowed,
		ExpectedReturnDate: expected,
		BookID:             book.ID,
		UserID:             userID,
	}
	s.mu.Lock()
	s.borrowings[borrowing.ID] = borrowing
	s.mu.Unlock()
	return borrowing
}

func (s *store) book(id uuid.UUID) entity.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[id]
}

// borrowing returns a copy of the stored row.
func (s *store) borrowing(id uuid.UUID) *entity.Borrowing {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.borrowings[id]
	return &b
}

func (s *store) paymentsOf(borrowingID uuid.UUID) []entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Payment
	for _, p := range s.payments {
		if p.BorrowingID == borrowingID {
			out = append(out, p)
		}
	}
	return out
}

func (s *store) detail(id uuid.UUID) *entity.BorrowingDetail {
	borrowing, ok := s.borrowings[id]
	if !ok {
		return nil
	}
	book := s.books[borrowing.BookID]
	return &entity.BorrowingDetail{Borrowing: &borrowing, Book: &book}
}

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ==================== BOOKS ====================

type fakeBookRepo struct{ s *store }

func (r *fakeBookRepo) Create(_ context.Context, book *entity.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.books {
		if b.Title == book.Title {
			return repository.ErrDuplicate
		}
	}
	r.s.books[book.ID] = *book
	return nil
}

func (r *fakeBookRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book, ok := r.s.books[id]
	if !ok {
		return nil, nil
	}
	return &book, nil
}

func (r *fakeBookRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeBookRepo) FindAll(_ context.Context, limit, offset int) ([]*entity.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*entity.Book
	for _, b := range r.s.books {
		all = append(all, &b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	return page(all, limit, offset), nil
}

func (r *fakeBookRepo) CountAll(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.books)), nil
}

func (r *fakeBookRepo) Update(_ context.Context, book *entity.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, b := range r.s.books {
		if b.Title == book.Title && id != book.ID {
			return repository.ErrDuplicate
		}
	}
	r.s.books[book.ID] = *book
	return nil
}

func (r *fakeBookRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.books, id)
	return nil
}

func (r *fakeBookRepo) DecrementInventory(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book := r.s.books[id]
	if book.Inventory <= 0 {
		return repository.ErrOutOfStock
	}
	book.Inventory--
	r.s.books[id] = book
	return nil
}

func (r *fakeBookRepo) IncrementInventory(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book := r.s.books[id]
	book.Inventory++
	r.s.books[id] = book
	return nil
}

// ==================== BORROWINGS ====================

type fakeBorrowingRepo struct{ s *store }

func (r *fakeBorrowingRepo) Create(_ context.Context, borrowing *entity.Borrowing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.borrowings[borrowing.ID] = *borrowing
	return nil
}

func (r *fakeBorrowingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Borrowing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	borrowing, ok := r.s.borrowings[id]
	if !ok {
		return nil, nil
	}
	return &borrowing, nil
}

func (r *fakeBorrowingRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Borrowing, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeBorrowingRepo) FindDetailByID(_ context.Context, id uuid.UUID) (*entity.BorrowingDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.detail(id), nil
}

func (r *fakeBorrowingRepo) matching(filter repository.BorrowingFilter) []*entity.BorrowingDetail {
	var out []*entity.BorrowingDetail
	for id, b := range r.s.borrowings {
		if filter.UserID != nil && b.UserID != *filter.UserID {
			continue
		}
		if filter.IsActive != nil && *filter.IsActive == b.IsReturned() {
			continue
		}
		out = append(out, r.s.detail(id))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Borrowing.CreatedAt.After(out[j].Borrowing.CreatedAt)
	})
	return out
}

func (r *fakeBorrowingRepo) FindAll(_ context.Context, filter repository.BorrowingFilter) ([]*entity.BorrowingDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(r.matching(filter), filter.Limit, filter.Offset), nil
}

func (r *fakeBorrowingRepo) CountAll(_ context.Context, filter repository.BorrowingFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.matching(filter))), nil
}

func (r *fakeBorrowingRepo) FindActiveDueBy(_ context.Context, cutoff time.Time) ([]*entity.BorrowingDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.BorrowingDetail
	for id, b := range r.s.borrowings {
		if !b.IsReturned() && !b.ExpectedReturnDate.After(cutoff) {
			out = append(out, r.s.detail(id))
		}
	}
	return out, nil
}

func (r *fakeBorrowingRepo) MarkReturned(_ context.Context, id uuid.UUID, returnDate time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	borrowing := r.s.borrowings[id]
	if borrowing.IsReturned() {
		return repository.ErrAlreadyReturned
	}
	borrowing.ActualReturnDate = &returnDate
	r.s.borrowings[id] = borrowing
	return nil
}

// ==================== PAYMENTS ====================

type fakePaymentRepo struct{ s *store }

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	payment, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return &payment, nil
}

func (r *fakePaymentRepo) FindByBorrowingAndType(_ context.Context, borrowingID uuid.UUID, paymentType entity.PaymentType) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.BorrowingID == borrowingID && p.Type == paymentType {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) matching(filter repository.PaymentFilter) []*entity.Payment {
	var out []*entity.Payment
	for _, p := range r.s.payments {
		if filter.UserID != nil && r.s.borrowings[p.BorrowingID].UserID != *filter.UserID {
			continue
		}
		if filter.BorrowingID != nil && p.BorrowingID != *filter.BorrowingID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (r *fakePaymentRepo) FindAll(_ context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(r.matching(filter), filter.Limit, filter.Offset), nil
}

func (r *fakePaymentRepo) CountAll(_ context.Context, filter repository.PaymentFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.matching(filter))), nil
}

func (r *fakePaymentRepo) FindPending(_ context.Context, limit int) ([]*entity.Payment, error) {
	status := entity.PaymentStatusPending
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(r.matching(repository.PaymentFilter{Status: &status}), limit, 0), nil
}

func (r *fakePaymentRepo) Upsert(_ context.Context, payment *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.payments {
		if p.BorrowingID == payment.BorrowingID && p.Type == payment.Type {
			if p.IsPaid() {
				return repository.ErrPaymentSettled
			}
			payment.ID = id
			payment.CreatedAt = p.CreatedAt
			r.s.payments[id] = *payment
			return nil
		}
	}
	r.s.payments[payment.ID] = *payment
	return nil
}

func (r *fakePaymentRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to entity.PaymentStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	payment, ok := r.s.payments[id]
	if !ok || payment.Status != from {
		return false, nil
	}
	payment.Status = to
	r.s.payments[id] = payment
	return true, nil
}

// ==================== USERS & SESSIONS ====================

type fakeUserRepo struct{ s *store }

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, u := range r.s.users {
		if u.Email == user.Email && id != user.ID {
			return repository.ErrDuplicate
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

type fakeSessionRepo struct{ s *store }

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[session.Token.String()] = *session
	return nil
}

func (r *fakeSessionRepo) FindValidSession(_ context.Context, token string) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[token]
	if !ok || !session.Valid(time.Now()) {
		return nil, nil
	}
	return &session, nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[token]
	if !ok || session.RevokedAt != nil {
		return repository.ErrSessionNotFound
	}
	now := time.Now()
	session.RevokedAt = &now
	r.s.sessions[token] = session
	return nil
}

func (r *fakeSessionRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var tokens []string
	now := time.Now()
	for token, session := range r.s.sessions {
		if session.UserID != userID || session.RevokedAt != nil {
			continue
		}
		session.RevokedAt = &now
		r.s.sessions[token] = session
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func (r *fakeSessionRepo) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for token, session := range r.s.sessions {
		if session.ExpiresAt.Before(cutoff) || (session.RevokedAt != nil && session.RevokedAt.Before(cutoff)) {
			delete(r.s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}
