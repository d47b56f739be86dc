package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/internal/scheduling"
)

func TestStoreErrorMapping(t *testing.T) {
	require.Nil(t, storeError(nil, "event"))
	require.ErrorIs(t, storeError(gorm.ErrRecordNotFound, "event"), ErrNotFound)
	require.ErrorIs(t, storeError(repository.ErrStaleRecord, "activity"), ErrActivityStale)
	require.ErrorIs(t, storeError(repository.ErrPendingRequestExists, "request"), ErrConflict)
	require.ErrorIs(t, storeError(fmt.Errorf("dial: %w", driver.ErrBadConn), "event"), ErrTransport)
	require.ErrorIs(t, storeError(context.DeadlineExceeded, "event"), ErrTransport)

	plain := errors.New("boom")
	require.Equal(t, plain, storeError(plain, "event"))
}

func TestRetryReadRetriesTransportOnly(t *testing.T) {
	saved := readRetry
	readRetry.base = time.Millisecond
	readRetry.max = 2 * time.Millisecond
	t.Cleanup(func() { readRetry = saved })

	calls := 0
	value, err := retryRead(context.Background(), "event", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, driver.ErrBadConn
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, value)
	require.Equal(t, 3, calls)

	calls = 0
	_, err = retryRead(context.Background(), "event", func(context.Context) (int, error) {
		calls++
		return 0, driver.ErrBadConn
	})
	require.ErrorIs(t, err, ErrTransport)
	require.Equal(t, readRetry.attempts, calls)

	calls = 0
	_, err = retryRead(context.Background(), "event", func(context.Context) (int, error) {
		calls++
		return 0, gorm.ErrRecordNotFound
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 1, calls)
}

func TestRetryReadStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retryRead(ctx, "event", func(context.Context) (int, error) {
		return 0, driver.ErrBadConn
	})
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidationErrorConflictClassification(t *testing.T) {
	fields := []scheduling.FieldError{{Field: scheduling.FieldEndTime, Reason: "x"}}
	plain := newValidationError(fields)
	require.False(t, errors.Is(plain, ErrConflict))
	require.Contains(t, plain.Error(), "hora_fin: x")

	venue := newValidationError([]scheduling.FieldError{{Field: scheduling.FieldHeadcount, Reason: "y"}})
	venue.conflict = venueViolation(venue.Fields)
	var wrapped error = fmt.Errorf("apply: %w", venue)
	require.True(t, errors.Is(wrapped, ErrConflict))

	var verr *ValidationError
	require.True(t, errors.As(wrapped, &verr))
	require.Len(t, verr.Fields, 1)
}
