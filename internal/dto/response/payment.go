package response

import (
	"time"

	"library-service/internal/data/entity"

	"github.com/shopspring/decimal"
)

type PaymentResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Type        string          `json:"type"`
	BorrowingID string          `json:"borrowing_id"`
	SessionURL  string          `json:"session_url"`
	SessionID   string          `json:"session_id"`
	MoneyToPay  decimal.Decimal `json:"money_to_pay"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PaymentStatusResponse answers the provider redirect pages.
type PaymentStatusResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func PaymentToResponse(payment *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          payment.ID.String(),
		Status:      string(payment.Status),
		Type:        string(payment.Type),
		BorrowingID: payment.BorrowingID.String(),
		SessionURL:  payment.SessionURL,
		SessionID:   payment.SessionID,
		MoneyToPay:  payment.MoneyToPay,
		CreatedAt:   payment.CreatedAt,
		UpdatedAt:   payment.UpdatedAt,
	}
}
