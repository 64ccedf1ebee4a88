package response

import (
	"time"

	"library-service/internal/data/entity"

	"github.com/shopspring/decimal"
)

type BookResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	Cover     string          `json:"cover"`
	Inventory int             `json:"inventory"`
	DailyFee  decimal.Decimal `json:"daily_fee"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func BookToResponse(book *entity.Book) BookResponse {
	return BookResponse{
		ID:        book.ID.String(),
		Title:     book.Title,
		Author:    book.Author,
		Cover:     string(book.Cover),
		Inventory: book.Inventory,
		DailyFee:  book.DailyFee,
		CreatedAt: book.CreatedAt,
		UpdatedAt: book.UpdatedAt,
	}
}
