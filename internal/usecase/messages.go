package usecase

import (
	"fmt"
	"strings"

	"library-service/internal/data/entity"
)

const noOverdueMessage = "No borrowings overdue today!"

func newBorrowingMessage(detail *entity.BorrowingDetail) string {
	var sb strings.Builder
	sb.WriteString("NEW BORROWING!\n")
	fmt.Fprintf(&sb, "Book title: %s\n", detail.Book.Title)
	fmt.Fprintf(&sb, "Book author: %s\n", detail.Book.Author)
	fmt.Fprintf(&sb, "Borrowing date: %s\n", detail.Borrowing.BorrowDate.Format(entity.DateLayout))
	fmt.Fprintf(&sb, "Expected return date: %s", detail.Borrowing.ExpectedReturnDate.Format(entity.DateLayout))
	return sb.String()
}

func overdueMessage(detail *entity.BorrowingDetail, quote Quote) string {
	var sb strings.Builder
	sb.WriteString("OVERDUE BORROWING!\n")
	fmt.Fprintf(&sb, "Book daily fee: %s$\n", detail.Book.DailyFee.StringFixed(2))
	fmt.Fprintf(&sb, "Borrowed day: %s\n", detail.Borrowing.BorrowDate.Format(entity.DateLayout))
	fmt.Fprintf(&sb, "Days overdue: %d days\n", quote.OverdueDays)
	fmt.Fprintf(&sb, "Price without fine: %s$\n", quote.BasePrice.StringFixed(2))
	fmt.Fprintf(&sb, "Price with fine: %s$\n", quote.Total.StringFixed(2))
	fmt.Fprintf(&sb, "Book title: %s\n", detail.Book.Title)
	fmt.Fprintf(&sb, "Book author: %s\n", detail.Book.Author)
	fmt.Fprintf(&sb, "Borrower id: %s", detail.Borrowing.UserID.String())
	return sb.String()
}

func successPaymentMessage(detail *entity.BorrowingDetail, payment *entity.Payment, quote Quote) string {
	var sb strings.Builder
	sb.WriteString("SUCCESS PAYMENT!\n")
	fmt.Fprintf(&sb, "Payment type: %s\n", payment.Type)
	fmt.Fprintf(&sb, "Amount paid: %s$\n", payment.MoneyToPay.StringFixed(2))
	fmt.Fprintf(&sb, "Price without fine: %s$\n", quote.BasePrice.StringFixed(2))
	fmt.Fprintf(&sb, "Price with fine: %s$\n", quote.Total.StringFixed(2))
	fmt.Fprintf(&sb, "Book title: %s\n", detail.Book.Title)
	fmt.Fprintf(&sb, "Book author: %s\n", detail.Book.Author)
	fmt.Fprintf(&sb, "Borrower id: %s", detail.Borrowing.UserID.String())
	return sb.String()
}

func productName(book *entity.Book) string {
	return fmt.Sprintf("%s - %s", book.Author, book.Title)
}

func submitMessage(paymentType entity.PaymentType, detail *entity.BorrowingDetail, overdueDays int) string {
	if paymentType == entity.PaymentTypeFine {
		return fmt.Sprintf("You are paying for overdue borrowing days - %d", overdueDays)
	}
	return fmt.Sprintf("You are paying for borrowing time of book %s - %s", detail.Book.Title, detail.Book.Author)
}
