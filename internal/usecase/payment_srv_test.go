package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"library-service/internal/data/entity"
	"library-service/internal/dto/request"
	"library-service/pkg/checkout"
	"library-service/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *utils.Config {
	return &utils.Config{
		App: utils.AppConfig{BaseURL: "http://library.test/"},
		Fee: utils.FeeConfig{FineMultiplier: dec("2"), Currency: "usd"},
	}
}

type paymentFixture struct {
	store    *store
	provider *mockProvider
	notify   *mockNotifier
	svc      *paymentService
	owner    uuid.UUID
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		store:    newStore(),
		provider: &mockProvider{},
		notify:   &mockNotifier{},
		owner:    uuid.New(),
	}
	cfg := testConfig()
	f.svc = NewPaymentService(
		f.store.repository(),
		NewFeeCalculator(cfg.Fee.FineMultiplier),
		f.provider,
		f.notify,
		cfg,
		nopLogger(),
	).(*paymentService)
	f.svc.now = clockAt(fixedNow)
	return f
}

// activeBorrowing is 4 days at a daily fee of 5, due on 2026-03-14.
func (f *paymentFixture) activeBorrowing() *entity.BorrowingDetail {
	book := f.store.addBook(4, "5")
	b := f.store.addBorrowing(book, f.owner, date(2026, 3, 10), date(2026, 3, 14))
	return f.detail(b.ID)
}

// overdueBorrowing was due on 2026-03-07, three days before fixedNow.
func (f *paymentFixture) overdueBorrowing() *entity.BorrowingDetail {
	book := f.store.addBook(4, "5")
	b := f.store.addBorrowing(book, f.owner, date(2026, 3, 1), date(2026, 3, 7))
	return f.detail(b.ID)
}

func (f *paymentFixture) detail(id uuid.UUID) *entity.BorrowingDetail {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.detail(id)
}

func (f *paymentFixture) addPayment(detail *entity.BorrowingDetail, paymentType entity.PaymentType, status entity.PaymentStatus) entity.Payment {
	payment := entity.Payment{
		Base:        entity.NewBase(fixedNow.Add(-time.Hour)),
		Status:      status,
		Type:        paymentType,
		BorrowingID: detail.Borrowing.ID,
		SessionID:   "cs_" + uuid.NewString()[:8],
		SessionURL:  "https://checkout.test/pay",
		MoneyToPay:  dec("20"),
	}
	f.store.mu.Lock()
	f.store.payments[payment.ID] = payment
	f.store.mu.Unlock()
	return payment
}

func (f *paymentFixture) payment(id uuid.UUID) entity.Payment {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.payments[id]
}

func openSession(id string) *checkout.Session {
	return &checkout.Session{
		ID:            id,
		URL:           "https://checkout.test/" + id,
		Status:        checkout.SessionOpen,
		PaymentStatus: "unpaid",
		ExpiresAt:     fixedNow.Add(time.Hour),
	}
}

func TestCreateSession_Payment(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()

	f.provider.On("CreateSession", mock.Anything, mock.Anything).Return(openSession("cs_1"), nil).Once()

	payment, err := f.svc.CreateSession(context.Background(), detail, entity.PaymentTypePayment)
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusPending, payment.Status)
	assert.Equal(t, entity.PaymentTypePayment, payment.Type)
	assert.True(t, dec("20").Equal(payment.MoneyToPay))
	assert.Equal(t, "cs_1", payment.SessionID)
	assert.Equal(t, "https://checkout.test/cs_1", payment.SessionURL)

	params := f.provider.Calls[0].Arguments.Get(1).(checkout.SessionParams)
	assert.Equal(t, int64(2000), params.AmountMinor)
	assert.Equal(t, "usd", params.Currency)
	assert.Equal(t, "Author - "+detail.Book.Title, params.ProductName)
	assert.Equal(t, "http://library.test/api/payments/"+payment.ID.String()+"/success", params.SuccessURL)
	assert.Equal(t, "http://library.test/api/payments/"+payment.ID.String()+"/cancel", params.CancelURL)

	stored := f.payment(payment.ID)
	assert.Equal(t, "cs_1", stored.SessionID)
	f.provider.AssertExpectations(t)
}

func TestCreateSession_ReusesPendingRow(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()
	existing := f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusExpired)

	f.provider.On("CreateSession", mock.Anything, mock.Anything).Return(openSession("cs_2"), nil).Once()

	payment, err := f.svc.CreateSession(context.Background(), detail, entity.PaymentTypePayment)
	require.NoError(t, err)

	assert.Equal(t, existing.ID, payment.ID)
	assert.Equal(t, entity.PaymentStatusPending, payment.Status)
	assert.Len(t, f.store.paymentsOf(detail.Borrowing.ID), 1)
	assert.Equal(t, "cs_2", f.payment(existing.ID).SessionID)
}

func TestCreateSession_AlreadyPaid(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()
	f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusPaid)

	_, err := f.svc.CreateSession(context.Background(), detail, entity.PaymentTypePayment)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	f.provider.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestCreateSession_FineWhenNotOverdue(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()

	_, err := f.svc.CreateSession(context.Background(), detail, entity.PaymentTypeFine)
	assert.ErrorIs(t, err, ErrNothingToPay)
	assert.Empty(t, f.store.paymentsOf(detail.Borrowing.ID))
	f.provider.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestCreateSession_Fine(t *testing.T) {
	f := newPaymentFixture()
	detail := f.overdueBorrowing()

	f.provider.On("CreateSession", mock.Anything, mock.MatchedBy(func(p checkout.SessionParams) bool {
		return p.AmountMinor == 4000 && p.SubmitMessage == "You are paying for overdue borrowing days - 4"
	})).Return(openSession("cs_fine"), nil).Once()

	payment, err := f.svc.CreateSession(context.Background(), detail, entity.PaymentTypeFine)
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentTypeFine, payment.Type)
	assert.True(t, dec("40").Equal(payment.MoneyToPay))
	f.provider.AssertExpectations(t)
}

func TestCreateSession_InvalidType(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()

	_, err := f.svc.CreateSession(context.Background(), detail, entity.PaymentType("REFUND"))

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "type")
}

func TestCreateSession_ProviderFailure(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()

	f.provider.On("CreateSession", mock.Anything, mock.Anything).Return(nil, errors.New("card network down")).Once()

	_, err := f.svc.CreateSession(context.Background(), detail, entity.PaymentTypePayment)

	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "checkout", providerErr.Provider)
	assert.Empty(t, f.store.paymentsOf(detail.Borrowing.ID))
}

func TestConfirmPayment_NotPaidYet(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()
	payment := f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusPending)

	f.provider.On("GetSession", mock.Anything, payment.SessionID).Return(openSession(payment.SessionID), nil).Once()

	_, err := f.svc.ConfirmPayment(context.Background(), payment.ID.String())
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Equal(t, entity.PaymentStatusPending, f.payment(payment.ID).Status)
	f.notify.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestConfirmPayment_NotifiesOnce(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()
	payment := f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusPending)

	paid := openSession(payment.SessionID)
	paid.Status = checkout.SessionComplete
	paid.PaymentStatus = "paid"
	f.provider.On("GetSession", mock.Anything, payment.SessionID).Return(paid, nil)
	f.notify.On("Send", mock.Anything, mock.MatchedBy(func(text string) bool {
		return strings.HasPrefix(text, "SUCCESS PAYMENT!")
	})).Return(nil)

	first, err := f.svc.ConfirmPayment(context.Background(), payment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "PAID", first.Status)

	second, err := f.svc.ConfirmPayment(context.Background(), payment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "PAID", second.Status)

	assert.Equal(t, entity.PaymentStatusPaid, f.payment(payment.ID).Status)
	f.notify.AssertNumberOfCalls(t, "Send", 1)
	f.provider.AssertNumberOfCalls(t, "GetSession", 1)
}

func TestConfirmPayment_UnknownID(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.ConfirmPayment(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ConfirmPayment(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReconcileSession_Expired(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()
	payment := f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusPending)

	session := openSession(payment.SessionID)
	session.Status = checkout.SessionExpired
	f.provider.On("GetSession", mock.Anything, payment.SessionID).Return(session, nil).Once()

	expired, err := f.svc.ReconcileSession(context.Background(), &payment)
	require.NoError(t, err)

	assert.True(t, expired)
	assert.Equal(t, entity.PaymentStatusExpired, f.payment(payment.ID).Status)
}

func TestReconcileSession_StillOpen(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()
	payment := f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusPending)

	f.provider.On("GetSession", mock.Anything, payment.SessionID).Return(openSession(payment.SessionID), nil).Once()

	expired, err := f.svc.ReconcileSession(context.Background(), &payment)
	require.NoError(t, err)

	assert.False(t, expired)
	assert.Equal(t, entity.PaymentStatusPending, f.payment(payment.ID).Status)
}

func TestReconcileSession_PaidAfterExpiry(t *testing.T) {
	f := newPaymentFixture()
	detail := f.activeBorrowing()
	payment := f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusExpired)

	paid := openSession(payment.SessionID)
	paid.PaymentStatus = "paid"
	f.provider.On("GetSession", mock.Anything, payment.SessionID).Return(paid, nil).Once()
	f.notify.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	expired, err := f.svc.ReconcileSession(context.Background(), &payment)
	require.NoError(t, err)

	assert.False(t, expired)
	assert.Equal(t, entity.PaymentStatusPaid, f.payment(payment.ID).Status)
	f.notify.AssertExpectations(t)
}

func TestReconcileAll_ContinuesPastFailures(t *testing.T) {
	f := newPaymentFixture()
	broken := f.addPayment(f.activeBorrowing(), entity.PaymentTypePayment, entity.PaymentStatusPending)
	stale := f.addPayment(f.activeBorrowing(), entity.PaymentTypePayment, entity.PaymentStatusPending)

	expiredSession := openSession(stale.SessionID)
	expiredSession.ExpiresAt = fixedNow.Add(-time.Minute)
	f.provider.On("GetSession", mock.Anything, broken.SessionID).Return(nil, errors.New("timeout"))
	f.provider.On("GetSession", mock.Anything, stale.SessionID).Return(expiredSession, nil)

	require.NoError(t, f.svc.ReconcileAll(context.Background()))

	assert.Equal(t, entity.PaymentStatusPending, f.payment(broken.ID).Status)
	assert.Equal(t, entity.PaymentStatusExpired, f.payment(stale.ID).Status)
	f.provider.AssertNumberOfCalls(t, "GetSession", 2)
}

func TestRenewPayment(t *testing.T) {
	requester := func(f *paymentFixture) Requester { return Requester{UserID: f.owner} }

	t.Run("expired session is replaced", func(t *testing.T) {
		f := newPaymentFixture()
		detail := f.activeBorrowing()
		payment := f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusPending)

		gone := openSession(payment.SessionID)
		gone.Status = checkout.SessionExpired
		f.provider.On("GetSession", mock.Anything, payment.SessionID).Return(gone, nil).Once()
		f.provider.On("CreateSession", mock.Anything, mock.Anything).Return(openSession("cs_new"), nil).Once()

		resp, err := f.svc.RenewPayment(context.Background(), requester(f), payment.ID.String())
		require.NoError(t, err)

		assert.Equal(t, payment.ID.String(), resp.ID)
		assert.Equal(t, "cs_new", resp.SessionID)
		assert.Equal(t, "PENDING", resp.Status)
		f.provider.AssertExpectations(t)
	})

	t.Run("open session is kept", func(t *testing.T) {
		f := newPaymentFixture()
		detail := f.activeBorrowing()
		payment := f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusPending)

		f.provider.On("GetSession", mock.Anything, payment.SessionID).Return(openSession(payment.SessionID), nil).Once()

		resp, err := f.svc.RenewPayment(context.Background(), requester(f), payment.ID.String())
		require.NoError(t, err)

		assert.Equal(t, payment.SessionID, resp.SessionID)
		f.provider.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
	})

	t.Run("paid payment is rejected", func(t *testing.T) {
		f := newPaymentFixture()
		detail := f.activeBorrowing()
		payment := f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusPaid)

		_, err := f.svc.RenewPayment(context.Background(), requester(f), payment.ID.String())
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})

	t.Run("other users see not found", func(t *testing.T) {
		f := newPaymentFixture()
		detail := f.activeBorrowing()
		payment := f.addPayment(detail, entity.PaymentTypePayment, entity.PaymentStatusPending)

		_, err := f.svc.RenewPayment(context.Background(), Requester{UserID: uuid.New()}, payment.ID.String())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListPayments_ScopedToOwner(t *testing.T) {
	f := newPaymentFixture()
	mine := f.addPayment(f.activeBorrowing(), entity.PaymentTypePayment, entity.PaymentStatusPending)

	stranger := uuid.New()
	book := f.store.addBook(1, "3")
	other := f.store.addBorrowing(book, stranger, date(2026, 3, 10), date(2026, 3, 12))
	f.addPayment(f.detail(other.ID), entity.PaymentTypePayment, entity.PaymentStatusPending)

	resp, err := f.svc.ListPayments(context.Background(), Requester{UserID: f.owner}, &request.PaymentListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, mine.ID.String(), resp.Data[0].ID)
	assert.Equal(t, int64(1), resp.Pagination.Total)

	all, err := f.svc.ListPayments(context.Background(), Requester{UserID: uuid.New(), IsStaff: true}, &request.PaymentListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Data, 2)
}

func TestGetPayment_HidesOtherUsers(t *testing.T) {
	f := newPaymentFixture()
	payment := f.addPayment(f.activeBorrowing(), entity.PaymentTypePayment, entity.PaymentStatusPending)

	_, err := f.svc.GetPayment(context.Background(), Requester{UserID: uuid.New()}, payment.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	resp, err := f.svc.GetPayment(context.Background(), Requester{UserID: f.owner}, payment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, payment.ID.String(), resp.ID)
}
