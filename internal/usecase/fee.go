package usecase

import (
	"time"

	"library-service/internal/data/entity"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FeeCalculator prices borrowings. It holds no state beyond the fine multiplier.
type FeeCalculator struct {
	fineMultiplier decimal.Decimal
}

func NewFeeCalculator(fineMultiplier decimal.Decimal) *FeeCalculator {
	return &FeeCalculator{fineMultiplier: fineMultiplier}
}

// Quote is every derived amount of one borrowing on a given day.
type Quote struct {
	BorrowingDays int
	BasePrice     decimal.Decimal
	OverdueDays   int
	Fine          decimal.Decimal
	Total         decimal.Decimal
}

func (c *FeeCalculator) BorrowingDays(b *entity.Borrowing) int {
	return b.BorrowingDays()
}

func (c *FeeCalculator) BasePrice(b *entity.Borrowing, book *entity.Book) decimal.Decimal {
	return book.DailyFee.Mul(decimal.NewFromInt(int64(b.BorrowingDays())))
}

func (c *FeeCalculator) OverdueDays(b *entity.Borrowing, today time.Time) int {
	return b.OverdueDays(today)
}

// FineAmount is zero unless the borrowing is overdue on today.
func (c *FeeCalculator) FineAmount(b *entity.Borrowing, book *entity.Book, today time.Time) decimal.Decimal {
	days := b.OverdueDays(today)
	if days == 0 {
		return decimal.Zero
	}
	return book.DailyFee.Mul(decimal.NewFromInt(int64(days))).Mul(c.fineMultiplier)
}

func (c *FeeCalculator) Quote(b *entity.Borrowing, book *entity.Book, today time.Time) Quote {
	base := c.BasePrice(b, book)
	fine := c.FineAmount(b, book, today)
	return Quote{
		BorrowingDays: b.BorrowingDays(),
		BasePrice:     base,
		OverdueDays:   b.OverdueDays(today),
		Fine:          fine,
		Total:         base.Add(fine),
	}
}

// ToMinorUnits converts an amount to cents, truncating any fraction of a cent.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).IntPart()
}

// FromMinorUnits is the exact inverse of ToMinorUnits for whole cents.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FineDue is the fine owed for a borrowing on today. A returned borrowing owes
// the fine it had accrued on its return date.
func (c *FeeCalculator) FineDue(b *entity.Borrowing, book *entity.Book, today time.Time) (decimal.Decimal, int) {
	asOf, open := b, today
	if b.ActualReturnDate != nil {
		unreturned := *b
		unreturned.ActualReturnDate = nil
		asOf, open = &unreturned, *b.ActualReturnDate
	}
	return c.FineAmount(asOf, book, open), asOf.OverdueDays(open)
}
