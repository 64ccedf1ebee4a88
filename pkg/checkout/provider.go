package checkout

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when the provider does not know the session id.
var ErrSessionNotFound = errors.New("checkout session not found")

type SessionStatus string

const (
	SessionOpen     SessionStatus = "open"
	SessionComplete SessionStatus = "complete"
	SessionExpired  SessionStatus = "expired"
)

// SessionParams describes a one-item hosted checkout.
type SessionParams struct {
	AmountMinor   int64
	Currency      string
	ProductName   string
	SuccessURL    string
	CancelURL     string
	SubmitMessage string
}

// Session is the provider's view of a hosted checkout.
type Session struct {
	ID            string
	URL           string
	Status        SessionStatus
	PaymentStatus string
	ExpiresAt     time.Time
	AmountTotal   int64
	Currency      string
}

func (s *Session) Paid() bool {
	return s.PaymentStatus == "paid"
}

// Expired reports whether the session can no longer be paid at now.
func (s *Session) Expired(now time.Time) bool {
	if s.Status == SessionExpired {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Provider creates and inspects hosted checkout sessions.
type Provider interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}
