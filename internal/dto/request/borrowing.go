package request

type CreateBorrowingRequest struct {
	BookID             string `json:"book_id" validate:"required,uuid"`
	ExpectedReturnDate string `json:"expected_return_date" validate:"required,datetime=2006-01-02"`
}

// BorrowingListRequest comes from the query string. UserID is honoured for staff only.
type BorrowingListRequest struct {
	PaginatedRequest
	IsActive *bool  `json:"is_active"`
	UserID   string `json:"user_id" validate:"omitempty,uuid"`
}

type CheckoutRequest struct {
	Type string `json:"type" validate:"required,oneof=PAYMENT FINE"`
}
