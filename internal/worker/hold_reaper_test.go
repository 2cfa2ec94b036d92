package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticket-booking/internal/mocks"
	"ticket-booking/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var _ usecase.ReservationService = (*mocks.ReservationService)(nil)

func TestHoldReaper_DrainsFullBatches(t *testing.T) {
	svc := new(mocks.ReservationService)
	reaper := NewHoldReaper(svc, time.Second, zap.NewNop())
	reaper.batchSize = 2

	svc.On("ReleaseExpiredHolds", mock.Anything, 2).Return(2, nil).Twice()
	svc.On("ReleaseExpiredHolds", mock.Anything, 2).Return(1, nil).Once()

	assert.Equal(t, 5, reaper.ReapOnce(context.Background()))
	svc.AssertExpectations(t)
}

func TestHoldReaper_StopsOnError(t *testing.T) {
	svc := new(mocks.ReservationService)
	reaper := NewHoldReaper(svc, time.Second, zap.NewNop())

	svc.On("ReleaseExpiredHolds", mock.Anything, defaultReapBatchSize).Return(0, errors.New("db down")).Once()

	assert.Zero(t, reaper.ReapOnce(context.Background()))
	svc.AssertNumberOfCalls(t, "ReleaseExpiredHolds", 1)
}
