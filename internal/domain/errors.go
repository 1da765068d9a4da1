package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrEditConflict   = errors.New("edit conflict")
)

// BusinessRuleError reports a booking request that is well-formed but violates a
// business rule (cutoff window, offer validity, offer applicability).
type BusinessRuleError struct {
	Rule   string
	Detail string
}

func (e *BusinessRuleError) Error() string {
	return e.Detail
}

func NewBusinessRuleError(rule, format string, args ...any) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:   rule,
		Detail: fmt.Sprintf(format, args...),
	}
}

// SeatConflictError identifies the exact seat that is already held by another
// active reservation.
type SeatConflictError struct {
	Row    int
	Number int
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat row %d number %d is already reserved", e.Row, e.Number)
}

// StateConflictError reports an attempted reservation transition that is not in
// the transition table.
type StateConflictError struct {
	Current   ReservationStatus
	Attempted ReservationStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot transition reservation from %s to %s", e.Current, e.Attempted)
}
