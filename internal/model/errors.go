package model

import (
	"errors"
	"fmt"
)

var (
	ErrTimeParse       = errors.New("time parse error")
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrDelivery        = errors.New("delivery failed")
)

// TimeFormatHint lists the accepted time expressions for user-facing replies.
const TimeFormatHint = "Try formats like '2025-09-01 09:00', 'today 18:30', or 'in 2h'."

// TimeParseError reports an expression that could not be turned into an instant.
type TimeParseError struct {
	Input string
	Hint  string
	Err   error
}

func (e *TimeParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse time %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("parse time %q", e.Input)
}

func (e *TimeParseError) Unwrap() error { return e.Err }

func (e *TimeParseError) Is(target error) bool { return target == ErrTimeParse }

// DeliveryError wraps a notification sink failure.
type DeliveryError struct {
	Kind  string
	Owner int64
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to %d: %v", e.Kind, e.Owner, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }
