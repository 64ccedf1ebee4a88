package entity

import "github.com/shopspring/decimal"

type CoverType string

const (
	CoverHard CoverType = "HARD"
	CoverSoft CoverType = "SOFT"
	CoverNone CoverType = ""
)

type Book struct {
	Base
	Title     string          `db:"title"`
	Author    string          `db:"author"`
	Cover     CoverType       `db:"cover"`
	Inventory int             `db:"inventory"`
	DailyFee  decimal.Decimal `db:"daily_fee"`
}

func (b *Book) InStock() bool {
	return b.Inventory >= 1
}
