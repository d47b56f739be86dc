package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrStaleRecord means a conditional write matched no row because the record
// changed since it was read.
var ErrStaleRecord = errors.New("record was modified concurrently")

// ErrPendingRequestExists means the speaker already has an open request for the activity.
var ErrPendingRequestExists = errors.New("a pending assignment request already exists")

// isUniqueViolation reports whether err came from a unique index. Drivers
// opened without TranslateError still surface the raw message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
