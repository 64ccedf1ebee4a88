package request

import "github.com/shopspring/decimal"

// BookRequest is the full book payload for create and update.
type BookRequest struct {
	Title     string          `json:"title" validate:"required,max=100"`
	Author    string          `json:"author" validate:"required,max=255"`
	Cover     string          `json:"cover" validate:"omitempty,oneof=HARD SOFT"`
	Inventory *int            `json:"inventory" validate:"required,gte=0"`
	DailyFee  decimal.Decimal `json:"daily_fee" validate:"gt=0"`
}
