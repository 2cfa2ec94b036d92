// Package mocks holds testify mocks of the repository, cache, gateway and
// service interfaces, shared by the package tests.
package mocks

import (
	"context"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// TxManager runs fn against the same Repository, without a database. It
// counts transactions so tests can assert how many units of work ran.
type TxManager struct {
	Repo  *repository.Repository
	Calls int
}

func (m *TxManager) Transact(ctx context.Context, fn func(tx *repository.Repository) error) error {
	m.Calls++
	return fn(m.Repo)
}

// Repositories bundles one mock per repository and a Repository wired to them.
type Repositories struct {
	Seat        *SeatRepository
	Reservation *ReservationRepository
	Payment     *PaymentRepository
	Outbox      *OutboxRepository
	Session     *SessionRepository
	User        *UserRepository
	Tx          *TxManager
	Repo        *repository.Repository
}

func NewRepositories() *Repositories {
	m := &Repositories{
		Seat:        new(SeatRepository),
		Reservation: new(ReservationRepository),
		Payment:     new(PaymentRepository),
		Outbox:      new(OutboxRepository),
		Session:     new(SessionRepository),
		User:        new(UserRepository),
	}
	m.Repo = &repository.Repository{
		Seat:        m.Seat,
		Reservation: m.Reservation,
		Payment:     m.Payment,
		Outbox:      m.Outbox,
		Session:     m.Session,
		User:        m.User,
	}
	m.Tx = &TxManager{Repo: m.Repo}
	m.Repo.Tx = m.Tx
	return m
}

func (m *Repositories) AssertExpectations(t mock.TestingT) {
	m.Seat.AssertExpectations(t)
	m.Reservation.AssertExpectations(t)
	m.Payment.AssertExpectations(t)
	m.Outbox.AssertExpectations(t)
	m.Session.AssertExpectations(t)
	m.User.AssertExpectations(t)
}

type SeatRepository struct {
	mock.Mock
}

func (m *SeatRepository) FindByID(ctx context.Context, id int64) (*entity.Seat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Seat), args.Error(1)
}

func (m *SeatRepository) Acquire(ctx context.Context, seatID int64, lockTimeout time.Duration, now time.Time) (entity.AcquireResult, error) {
	args := m.Called(ctx, seatID, lockTimeout, now)
	return args.Get(0).(entity.AcquireResult), args.Error(1)
}

func (m *SeatRepository) Release(ctx context.Context, seatID int64, now time.Time) error {
	args := m.Called(ctx, seatID, now)
	return args.Error(0)
}

func (m *SeatRepository) ConfirmSold(ctx context.Context, seatID int64, now time.Time) error {
	args := m.Called(ctx, seatID, now)
	return args.Error(0)
}

func (m *SeatRepository) Restock(ctx context.Context, seatID int64, now time.Time) error {
	args := m.Called(ctx, seatID, now)
	return args.Error(0)
}

type ReservationRepository struct {
	mock.Mock
}

func (m *ReservationRepository) CreateHold(ctx context.Context, res *entity.Reservation) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *ReservationRepository) FindLive(ctx context.Context, buyerID uuid.UUID, seatID int64) (*entity.Reservation, error) {
	args := m.Called(ctx, buyerID, seatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Reservation), args.Error(1)
}

func (m *ReservationRepository) FindLiveForUpdate(ctx context.Context, buyerID uuid.UUID, seatID int64) (*entity.Reservation, error) {
	args := m.Called(ctx, buyerID, seatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Reservation), args.Error(1)
}

func (m *ReservationRepository) FindByIDForUpdate(ctx context.Context, id int64) (*entity.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Reservation), args.Error(1)
}

func (m *ReservationRepository) Update(ctx context.Context, res *entity.Reservation) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *ReservationRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Reservation), args.Error(1)
}

type PaymentRepository struct {
	mock.Mock
}

func (m *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *PaymentRepository) ExistsByPaymentKey(ctx context.Context, paymentKey string) (bool, error) {
	args := m.Called(ctx, paymentKey)
	return args.Bool(0), args.Error(1)
}

func (m *PaymentRepository) FindByPaymentKey(ctx context.Context, paymentKey string) (*entity.Payment, error) {
	args := m.Called(ctx, paymentKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *PaymentRepository) FindByPaymentKeyForUpdate(ctx context.Context, paymentKey string) (*entity.Payment, error) {
	args := m.Called(ctx, paymentKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *PaymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *PaymentRepository) ExistsPaidForSeat(ctx context.Context, seatID int64) (bool, error) {
	args := m.Called(ctx, seatID)
	return args.Bool(0), args.Error(1)
}

type OutboxRepository struct {
	mock.Mock
}

func (m *OutboxRepository) Create(ctx context.Context, msg *entity.OutboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]*entity.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.OutboxMessage), args.Error(1)
}

func (m *OutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

func (m *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) FindValidSession(ctx context.Context, token string) (*entity.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

var (
	_ repository.SeatRepository        = (*SeatRepository)(nil)
	_ repository.ReservationRepository = (*ReservationRepository)(nil)
	_ repository.PaymentRepository     = (*PaymentRepository)(nil)
	_ repository.OutboxRepository      = (*OutboxRepository)(nil)
	_ repository.SessionRepository     = (*SessionRepository)(nil)
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.TxManager             = (*TxManager)(nil)
)
