package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	ErrDateRangeConflict = errors.New("requested dates conflict with an existing reservation")

	ErrInvalidDateRange = errors.New("end date must not be before start date")

	ErrInvalidDuration = errors.New("reservation is shorter than the minimum duration")

	ErrInvalidOffice = errors.New("office cannot be reserved")

	ErrLockNotAcquired = errors.New("could not acquire office lock")
)
