package request

type PaymentListRequest struct {
	PaginatedRequest
	Status      string `json:"status" validate:"omitempty,oneof=PENDING PAID EXPIRED"`
	BorrowingID string `json:"borrowing_id" validate:"omitempty,uuid"`
}
