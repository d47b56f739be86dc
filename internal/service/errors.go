package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/internal/scheduling"
)

var (
	// ErrNotFound indicates a referenced event, activity, place or notification does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict indicates the stored state moved on under the caller.
	ErrConflict = errors.New("conflict")
	// ErrTransport indicates the backing store timed out or dropped the connection.
	// Reads may be retried; writes must re-check state first.
	ErrTransport = errors.New("store unavailable")
	// ErrForbidden indicates the actor may not act on the resource.
	ErrForbidden = errors.New("forbidden")

	ErrAssignmentAlreadyResolved = fmt.Errorf("%w: assignment request already resolved", ErrConflict)
	ErrActivityStale             = fmt.Errorf("%w: activity changed since it was read", ErrConflict)
	ErrPendingRequestExists      = fmt.Errorf("%w: a pending request already exists for this activity", ErrConflict)
	ErrEventRangeConflict        = fmt.Errorf("%w: existing activities fall outside the new event dates", ErrConflict)
	ErrEventCapacityConflict     = fmt.Errorf("%w: existing activities would exceed their venue capacity", ErrConflict)
	ErrScheduleChanged           = fmt.Errorf("%w: the event's activities changed while it was being updated", ErrConflict)
	ErrEventWithoutOrganizer     = fmt.Errorf("%w: event has no organizer to notify", ErrConflict)

	ErrActorRequired        = errors.New("an authenticated user id is required")
	ErrProposalMissing      = errors.New("notification carries no schedule change proposal")
	ErrNotAssignmentRequest = errors.New("notification is not an assignment request")
	ErrInvalidProposal      = errors.New("invalid schedule change proposal")
)

// ValidationError lists every field-level violation of a draft. When the
// violations stem from venue state that changed under the caller it also
// matches ErrConflict.
type ValidationError struct {
	Fields   []scheduling.FieldError
	conflict bool
}

func newValidationError(fields []scheduling.FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrConflict) see venue-caused failures.
func (e *ValidationError) Is(target error) bool {
	return e.conflict && target == ErrConflict
}

// IsConflict reports whether the violations were caused by concurrent venue changes.
func (e *ValidationError) IsConflict() bool {
	return e.conflict
}

// ActivityConflictError names the stored activities that block an event change.
type ActivityConflictError struct {
	Cause       error
	ActivityIDs []uint
}

func (e *ActivityConflictError) Error() string {
	ids := make([]string, 0, len(e.ActivityIDs))
	for _, id := range e.ActivityIDs {
		ids = append(ids, strconv.FormatUint(uint64(id), 10))
	}
	return fmt.Sprintf("%v (activities %s)", e.Cause, strings.Join(ids, ", "))
}

func (e *ActivityConflictError) Unwrap() error {
	return e.Cause
}

// venueViolation reports whether any violation concerns places or capacity.
func venueViolation(fields []scheduling.FieldError) bool {
	for _, field := range fields {
		if field.Field == scheduling.FieldPlaces || field.Field == scheduling.FieldHeadcount {
			return true
		}
	}
	return false
}

// storeError maps repository and driver failures onto the service error kinds.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, repository.ErrStaleRecord):
		return ErrActivityStale
	case errors.Is(err, repository.ErrPendingRequestExists):
		return ErrPendingRequestExists
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w: %w", what, ErrConflict, err)
	case isTransient(err):
		return fmt.Errorf("%s: %w: %w", what, ErrTransport, err)
	default:
		return err
	}
}

func isTransient(err error) bool {
	if errors.Is(err, ErrTransport) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// readRetry bounds how often idempotent reads are retried on transport errors.
var readRetry = struct {
	attempts int
	base     time.Duration
	max      time.Duration
}{attempts: 3, base: 50 * time.Millisecond, max: 400 * time.Millisecond}

// retryRead runs an idempotent read, retrying transport failures with capped
// exponential backoff. Other errors are returned after mapping.
func retryRead[T any](ctx context.Context, what string, read func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := readRetry.base
	for attempt := 1; ; attempt++ {
		value, err := read(ctx)
		if err == nil {
			return value, nil
		}
		err = storeError(err, what)
		if !errors.Is(err, ErrTransport) || attempt >= readRetry.attempts {
			return zero, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s: %w: %w", what, ErrTransport, ctx.Err())
		case <-timer.C:
		}

		delay *= 2
		if delay > readRetry.max {
			delay = readRetry.max
		}
	}
}

// withStoreTimeout bounds a store round-trip when a timeout is configured.
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
