package entity

import (
	"time"

	"github.com/google/uuid"
)

const day = 24 * time.Hour

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween is the number of whole calendar days from a to b (negative if b is before a).
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)) / day)
}

type Borrowing struct {
	Base
	BorrowDate         time.Time  `db:"borrow_date"`
	ExpectedReturnDate time.Time  `db:"expected_return_date"`
	ActualReturnDate   *time.Time `db:"actual_return_date"`
	BookID             uuid.UUID  `db:"book_id"`
	UserID             uuid.UUID  `db:"user_id"`
}

func (b *Borrowing) IsReturned() bool {
	return b.ActualReturnDate != nil
}

// IsOverdue: not returned and the expected return date is strictly before today.
func (b *Borrowing) IsOverdue(today time.Time) bool {
	return !b.IsReturned() && DateOf(b.ExpectedReturnDate).Before(DateOf(today))
}

// BorrowingDays is the billable duration, never less than one day.
func (b *Borrowing) BorrowingDays() int {
	return max(1, DaysBetween(b.BorrowDate, b.ExpectedReturnDate))
}

// OverdueDays counts from the expected return date up to the day after today.
func (b *Borrowing) OverdueDays(today time.Time) int {
	if !b.IsOverdue(today) {
		return 0
	}
	return DaysBetween(b.ExpectedReturnDate, DateOf(today).Add(day))
}

// BorrowingDetail is a borrowing joined with its book.
type BorrowingDetail struct {
	Borrowing *Borrowing
	Book      *Book
}
