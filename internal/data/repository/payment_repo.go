package repository

import (
	"context"
	"errors"
	"fmt"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/data/entity"
	"ticket-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	ExistsByPaymentKey(ctx context.Context, paymentKey string) (bool, error)
	FindByPaymentKey(ctx context.Context, paymentKey string) (*entity.Payment, error)
	FindByPaymentKeyForUpdate(ctx context.Context, paymentKey string) (*entity.Payment, error)
	Update(ctx context.Context, payment *entity.Payment) error

	// Business queries
	// ExistsPaidForSeat reports whether any payment for the seat is PAID.
	ExistsPaidForSeat(ctx context.Context, seatID int64) (bool, error)
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

const paymentColumns = `id, payment_key, buyer_id, seat_id, method, product_name, amount, status,
	client_ip, approved_at, receipt_url, canceled_at, cancel_reason, created_at, updated_at`

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (payment_key, buyer_id, seat_id, method, product_name, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	// Execute query; RETURNING fills the generated id
	err := r.db.QueryRow(ctx, query,
		payment.PaymentKey,
		payment.BuyerID,
		payment.SeatID,
		payment.Method,
		payment.ProductName,
		payment.Amount,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Scan(&payment.ID)

	if database.IsUniqueViolation(err) {
		return apperror.ErrPaymentKeyCollision.Wrap(err)
	}
	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("payment_key", payment.PaymentKey),
		)
		return fmt.Errorf("create payment %s: %w", payment.PaymentKey, err)
	}

	return nil
}

func (r *paymentRepository) ExistsByPaymentKey(ctx context.Context, paymentKey string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE payment_key = $1)`, paymentKey).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check payment key", zap.Error(err), zap.String("payment_key", paymentKey))
		return false, fmt.Errorf("check payment key %s: %w", paymentKey, err)
	}
	return exists, nil
}

func (r *paymentRepository) FindByPaymentKey(ctx context.Context, paymentKey string) (*entity.Payment, error) {
	return r.findByPaymentKey(ctx, paymentKey, "")
}

func (r *paymentRepository) FindByPaymentKeyForUpdate(ctx context.Context, paymentKey string) (*entity.Payment, error) {
	return r.findByPaymentKey(ctx, paymentKey, "FOR UPDATE")
}

func (r *paymentRepository) findByPaymentKey(ctx context.Context, paymentKey, lock string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_key = $1 ` + lock

	var p entity.Payment
	// QueryRow returns at most one row
	err := r.db.QueryRow(ctx, query, paymentKey).Scan(
		&p.ID,
		&p.PaymentKey,
		&p.BuyerID,
		&p.SeatID,
		&p.Method,
		&p.ProductName,
		&p.Amount,
		&p.Status,
		&p.ClientIP,
		&p.ApprovedAt,
		&p.ReceiptURL,
		&p.CanceledAt,
		&p.CancelReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by key",
			zap.Error(err),
			zap.String("payment_key", paymentKey),
		)
		return nil, fmt.Errorf("find payment %s: %w", paymentKey, err)
	}

	return &p, nil
}

// Update writes the mutable lifecycle columns. amount and payment_key are
// never rewritten.
func (r *paymentRepository) Update(ctx context.Context, p *entity.Payment) error {
	query := `
		UPDATE payments
		SET method = $2, status = $3, client_ip = $4, approved_at = $5,
		    receipt_url = $6, canceled_at = $7, cancel_reason = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		p.ID,
		p.Method,
		p.Status,
		p.ClientIP,
		p.ApprovedAt,
		p.ReceiptURL,
		p.CanceledAt,
		p.CancelReason,
		p.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update payment",
			zap.Error(err),
			zap.String("payment_key", p.PaymentKey),
			zap.String("status", string(p.Status)),
		)
		return fmt.Errorf("update payment %s: %w", p.PaymentKey, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.ErrPaymentNotFound
	}

	return nil
}

func (r *paymentRepository) ExistsPaidForSeat(ctx context.Context, seatID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE seat_id = $1 AND status = 'PAID')`,
		seatID,
	).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check paid payment for seat", zap.Error(err), zap.Int64("seat_id", seatID))
		return false, fmt.Errorf("check paid payment for seat %d: %w", seatID, err)
	}
	return exists, nil
}
