package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
)

type PaymentType string

const (
	PaymentTypePayment PaymentType = "PAYMENT"
	PaymentTypeFine    PaymentType = "FINE"
)

func (t PaymentType) Valid() bool {
	return t == PaymentTypePayment || t == PaymentTypeFine
}

type Payment struct {
	Base
	Status      PaymentStatus   `db:"status"`
	Type        PaymentType     `db:"type"`
	BorrowingID uuid.UUID       `db:"borrowing_id"`
	SessionURL  string          `db:"session_url"`
	SessionID   string          `db:"session_id"`
	MoneyToPay  decimal.Decimal `db:"money_to_pay"`
}

func (p *Payment) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}
