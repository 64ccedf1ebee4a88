package repository

import (
	"context"
	"errors"
	"fmt"

	"library-service/internal/data/entity"
	"library-service/pkg/database"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrPaymentSettled is returned by Upsert when the existing row is already PAID.
var ErrPaymentSettled = errors.New("payment already settled")

// PaymentFilter narrows payment listings. Nil fields are not applied.
type PaymentFilter struct {
	UserID      *uuid.UUID
	BorrowingID *uuid.UUID
	Status      *entity.PaymentStatus
	Limit       int
	Offset      int
}

type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByBorrowingAndType(ctx context.Context, borrowingID uuid.UUID, paymentType entity.PaymentType) (*entity.Payment, error)
	FindAll(ctx context.Context, filter PaymentFilter) ([]*entity.Payment, error)
	CountAll(ctx context.Context, filter PaymentFilter) (int64, error)
	FindPending(ctx context.Context, limit int) ([]*entity.Payment, error)

	// Upsert writes the payment for its (borrowing, type) pair and stores the
	// resulting row id back into payment.ID. A PAID row is never overwritten.
	Upsert(ctx context.Context, payment *entity.Payment) error

	// UpdateStatus moves the payment from one status to another. It reports
	// false when the payment was not in the expected status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) (bool, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, status, type, borrowing_id, session_url, session_id, money_to_pay, created_at, updated_at`

var paymentSelectColumns = []interface{}{
	goqu.I("p.id"), goqu.I("p.status"), goqu.I("p.type"), goqu.I("p.borrowing_id"),
	goqu.I("p.session_url"), goqu.I("p.session_id"), goqu.I("p.money_to_pay"),
	goqu.I("p.created_at"), goqu.I("p.updated_at"),
}

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var payment entity.Payment
	err := row.Scan(
		&payment.ID,
		&payment.Status,
		&payment.Type,
		&payment.BorrowingID,
		&payment.SessionURL,
		&payment.SessionID,
		&payment.MoneyToPay,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func paymentSelect() *goqu.SelectDataset {
	return goqu.Dialect("postgres").
		From(goqu.T("payments").As("p")).
		Join(goqu.T("borrowings").As("br"), goqu.On(goqu.I("br.id").Eq(goqu.I("p.borrowing_id")))).
		Prepared(true)
}

func (f PaymentFilter) expressions() []exp.Expression {
	var where []exp.Expression
	if f.UserID != nil {
		where = append(where, goqu.I("br.user_id").Eq(*f.UserID))
	}
	if f.BorrowingID != nil {
		where = append(where, goqu.I("p.borrowing_id").Eq(*f.BorrowingID))
	}
	if f.Status != nil {
		where = append(where, goqu.I("p.status").Eq(string(*f.Status)))
	}
	return where
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByBorrowingAndType(ctx context.Context, borrowingID uuid.UUID, paymentType entity.PaymentType) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE borrowing_id = $1 AND type = $2`

	payment, err := scanPayment(database.Conn(ctx, r.db).QueryRow(ctx, query, borrowingID, paymentType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by borrowing",
			zap.Error(err),
			zap.String("borrowing_id", borrowingID.String()),
			zap.String("type", string(paymentType)),
		)
		return nil, fmt.Errorf("find %s payment of borrowing %s: %w", paymentType, borrowingID.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindAll(ctx context.Context, filter PaymentFilter) ([]*entity.Payment, error) {
	query, args, err := paymentSelect().
		Select(paymentSelectColumns...).
		Where(filter.expressions()...).
		Order(goqu.I("p.created_at").Desc()).
		Limit(uint(filter.Limit)).
		Offset(uint(filter.Offset)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build payment list query: %w", err)
	}

	return r.queryPayments(ctx, query, args...)
}

func (r *paymentRepository) CountAll(ctx context.Context, filter PaymentFilter) (int64, error) {
	query, args, err := paymentSelect().
		Select(goqu.COUNT(goqu.Star())).
		Where(filter.expressions()...).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build payment count query: %w", err)
	}

	var count int64
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.log.Error("Failed to count payments", zap.Error(err))
		return 0, fmt.Errorf("count payments: %w", err)
	}

	return count, nil
}

func (r *paymentRepository) FindPending(ctx context.Context, limit int) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1
		ORDER BY updated_at ASC
		LIMIT $2
	`

	return r.queryPayments(ctx, query, entity.PaymentStatusPending, limit)
}

func (r *paymentRepository) queryPayments(ctx context.Context, query string, args ...any) ([]*entity.Payment, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query payments", zap.Error(err))
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func (r *paymentRepository) Upsert(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (id, status, type, borrowing_id, session_url, session_id,
		                      money_to_pay, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (borrowing_id, type) DO UPDATE
		SET status = EXCLUDED.status,
		    session_url = EXCLUDED.session_url,
		    session_id = EXCLUDED.session_id,
		    money_to_pay = EXCLUDED.money_to_pay,
		    updated_at = EXCLUDED.updated_at
		WHERE payments.status <> 'PAID'
		RETURNING id, created_at
	`

	err := database.Conn(ctx, r.db).QueryRow(ctx, query,
		payment.ID,
		payment.Status,
		payment.Type,
		payment.BorrowingID,
		payment.SessionURL,
		payment.SessionID,
		payment.MoneyToPay,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Scan(&payment.ID, &payment.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s payment of borrowing %s: %w", payment.Type, payment.BorrowingID.String(), ErrPaymentSettled)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("checkout session %s: %w", payment.SessionID, ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to upsert payment",
			zap.Error(err),
			zap.String("borrowing_id", payment.BorrowingID.String()),
			zap.String("type", string(payment.Type)),
		)
		return fmt.Errorf("upsert %s payment of borrowing %s: %w", payment.Type, payment.BorrowingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) (bool, error) {
	query := `
		UPDATE payments
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update payment status",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update payment %s status to %s: %w", id.String(), to, err)
	}

	return result.RowsAffected() == 1, nil
}
