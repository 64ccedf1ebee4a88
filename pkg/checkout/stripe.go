package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"library-service/pkg/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// Stripe creates and reads Checkout Sessions through the stripe-go client.
type Stripe struct {
	api *client.API
	log *zap.Logger
}

// NewStripe builds a client bound to config.BaseURL, so tests and sandboxes
// can point it at another host. Network retries are left to the reconcile job.
func NewStripe(config utils.CheckoutConfig, log *zap.Logger) *Stripe {
	log = log.With(zap.String("provider", "stripe"))

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        utils.NewHTTPClient(15 * time.Second),
		LeveledLogger:     log.Sugar(),
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
	}
	if config.BaseURL != "" {
		backendConfig.URL = stripe.String(config.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	api := &client.API{}
	api.Init(config.APIKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	return &Stripe{api: api, log: log}
}

func toSession(s *stripe.CheckoutSession) *Session {
	session := &Session{
		ID:            s.ID,
		URL:           s.URL,
		Status:        SessionStatus(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
	}
	if s.ExpiresAt > 0 {
		session.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	return session
}

func (p *Stripe) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	if params.AmountMinor <= 0 {
		return nil, fmt.Errorf("create checkout session: amount must be positive, got %d", params.AmountMinor)
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(params.Currency),
				UnitAmount: stripe.Int64(params.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(params.ProductName),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	if params.SubmitMessage != "" {
		sessionParams.CustomText = &stripe.CheckoutSessionCustomTextParams{
			Submit: &stripe.CheckoutSessionCustomTextSubmitParams{
				Message: stripe.String(params.SubmitMessage),
			},
		}
	}
	sessionParams.Context = ctx

	created, err := p.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", p.apiError(err))
	}
	if created.ID == "" || created.URL == "" {
		return nil, errors.New("create checkout session: empty session id or url")
	}

	p.log.Info("Checkout session created",
		zap.String("session_id", created.ID),
		zap.Int64("amount", params.AmountMinor),
		zap.String("currency", params.Currency),
	)

	return toSession(created), nil
}

func (p *Stripe) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	found, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session %s: %w", id, p.apiError(err))
	}

	return toSession(found), nil
}

// apiError maps a 404 to ErrSessionNotFound and keeps Stripe's message otherwise.
func (p *Stripe) apiError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}

	if stripeErr.HTTPStatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}

	p.log.Warn("Stripe rejected request",
		zap.Int("status", stripeErr.HTTPStatusCode),
		zap.String("type", string(stripeErr.Type)),
		zap.String("code", string(stripeErr.Code)),
		zap.String("message", stripeErr.Msg),
	)
	if stripeErr.Msg != "" {
		return fmt.Errorf("%d: %s", stripeErr.HTTPStatusCode, stripeErr.Msg)
	}
	return err
}
