package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"library-service/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStripe(t *testing.T, handler http.HandlerFunc) *Stripe {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewStripe(utils.CheckoutConfig{APIKey: "sk_test_1", BaseURL: server.URL}, zap.NewNop())
}

func TestStripeCreateSession(t *testing.T) {
	stripe := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)

		assert.Equal(t, "Bearer sk_test_1", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "1050", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "Dune", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "http://app/success", r.PostForm.Get("success_url"))
		assert.Equal(t, "http://app/cancel", r.PostForm.Get("cancel_url"))
		assert.Equal(t, "Pay for borrowing", r.PostForm.Get("custom_text[submit][message]"))

		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.example/cs_test_1",
			"status":"open","payment_status":"unpaid","expires_at":1700000000,
			"amount_total":1050,"currency":"usd"}`))
	})

	session, err := stripe.CreateSession(context.Background(), SessionParams{
		AmountMinor:   1050,
		Currency:      "usd",
		ProductName:   "Dune",
		SuccessURL:    "http://app/success",
		CancelURL:     "http://app/cancel",
		SubmitMessage: "Pay for borrowing",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.example/cs_test_1", session.URL)
	assert.Equal(t, SessionOpen, session.Status)
	assert.False(t, session.Paid())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), session.ExpiresAt)
	assert.Equal(t, int64(1050), session.AmountTotal)
}

func TestStripeCreateSessionRejected(t *testing.T) {
	stripe := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid currency"}}`))
	})

	_, err := stripe.CreateSession(context.Background(), SessionParams{AmountMinor: 100, Currency: "xxx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid currency")
}

func TestStripeCreateSessionRejectsZeroAmount(t *testing.T) {
	stripe := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called")
	})

	_, err := stripe.CreateSession(context.Background(), SessionParams{AmountMinor: 0, Currency: "usd"})
	assert.Error(t, err)
}

func TestStripeGetSession(t *testing.T) {
	stripe := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if r.URL.Path != "/v1/checkout/sessions/cs_paid" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"No such checkout.session"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"cs_paid","status":"complete","payment_status":"paid"}`))
	})

	session, err := stripe.GetSession(context.Background(), "cs_paid")
	require.NoError(t, err)
	assert.True(t, session.Paid())
	assert.Equal(t, SessionComplete, session.Status)

	_, err = stripe.GetSession(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, (&Session{Status: SessionExpired}).Expired(now))
	assert.True(t, (&Session{Status: SessionOpen, ExpiresAt: now.Add(-time.Minute)}).Expired(now))
	assert.False(t, (&Session{Status: SessionOpen, ExpiresAt: now.Add(time.Minute)}).Expired(now))
	assert.False(t, (&Session{Status: SessionOpen}).Expired(now))
}
