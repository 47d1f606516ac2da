package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleOffer        = errors.New("stale offer")
	ErrConflict          = errors.New("conflict")
	ErrInvalidArgument   = errors.New("invalid argument")
)

var (
	ErrCapacityExceeded = fmt.Errorf("%w: shipment does not fit the trip", ErrConflict)
	ErrShipmentInOffer  = fmt.Errorf("%w: shipment is used in an offer", ErrConflict)
	ErrDuplicateOffer   = fmt.Errorf("%w: offer already exists for this pair", ErrConflict)
	ErrSameRoute        = fmt.Errorf("%w: origin and destination must differ", ErrInvalidArgument)
	ErrSameSide         = fmt.Errorf("%w: both deals are on the same side", ErrInvalidArgument)
)

// NotFound decorates ErrNotFound with the missing entity.
func NotFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// InvalidArgument decorates ErrInvalidArgument with the offending input.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
