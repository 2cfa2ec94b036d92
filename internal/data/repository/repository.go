package repository

import (
	"context"

	"ticket-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Seat        SeatRepository
	Reservation ReservationRepository
	Payment     PaymentRepository
	Outbox      OutboxRepository
	Session     SessionRepository
	User        UserRepository
	Tx          TxManager
}

// TxManager runs fn against a Repository whose members all share one
// transaction. Returning an error from fn rolls everything back.
type TxManager interface {
	Transact(ctx context.Context, fn func(tx *Repository) error) error
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return newRepository(db, log)
}

func newRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Seat:        NewSeatRepository(db, log),
		Reservation: NewReservationRepository(db, log),
		Payment:     NewPaymentRepository(db, log),
		Outbox:      NewOutboxRepository(db, log),
		Session:     NewSessionRepository(db, log),
		User:        NewUserRepository(db, log),
		Tx:          &pgTxManager{db: db, log: log},
	}
}

type pgTxManager struct {
	db  database.PgxIface
	log *zap.Logger
}

// Transact nested inside another Transact opens a savepoint.
func (m *pgTxManager) Transact(ctx context.Context, fn func(tx *Repository) error) error {
	return database.WithTx(ctx, m.db, func(tx database.PgxIface) error {
		return fn(newRepository(tx, m.log))
	})
}
