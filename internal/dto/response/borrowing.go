package response

import (
	"time"

	"library-service/internal/data/entity"

	"github.com/shopspring/decimal"
)

// Fees is the derived pricing of a borrowing at the time of the response.
type Fees struct {
	BorrowingDays int             `json:"borrowing_days"`
	Price         decimal.Decimal `json:"price"`
	OverdueDays   int             `json:"overdue_days"`
	Fine          decimal.Decimal `json:"fine"`
}

type BorrowingResponse struct {
	ID                 string       `json:"id"`
	BorrowDate         string       `json:"borrow_date"`
	ExpectedReturnDate string       `json:"expected_return_date"`
	ActualReturnDate   *string      `json:"actual_return_date"`
	IsOverdue          bool         `json:"is_overdue"`
	UserID             string       `json:"user_id"`
	Book               BookResponse `json:"book"`
	Fees               Fees         `json:"fees"`
	CreatedAt          time.Time    `json:"created_at"`
}

// ReturnResponse carries the returned borrowing and, when it was overdue, the fine checkout.
type ReturnResponse struct {
	Borrowing BorrowingResponse `json:"borrowing"`
	Fine      *PaymentResponse  `json:"fine,omitempty"`
}

func BorrowingToResponse(detail *entity.BorrowingDetail, today time.Time, fees Fees) BorrowingResponse {
	borrowing := detail.Borrowing

	resp := BorrowingResponse{
		ID:                 borrowing.ID.String(),
		BorrowDate:         borrowing.BorrowDate.Format(entity.DateLayout),
		ExpectedReturnDate: borrowing.ExpectedReturnDate.Format(entity.DateLayout),
		IsOverdue:          borrowing.IsOverdue(today),
		UserID:             borrowing.UserID.String(),
		Fees:               fees,
		CreatedAt:          borrowing.CreatedAt,
	}
	if detail.Book != nil {
		resp.Book = BookToResponse(detail.Book)
	}
	if borrowing.ActualReturnDate != nil {
		returned := borrowing.ActualReturnDate.Format(entity.DateLayout)
		resp.ActualReturnDate = &returned
	}

	return resp
}
