package epidemic

import (
	"errors"
	"fmt"

	"github.com/roach88/contagion/internal/contact"
)

// Error is returned for bad input, bad parameters and broken invariants.
//
// Precondition and parameter errors describe the caller's input. Invariant
// errors mean the propagator itself is inconsistent; they are never retried
// and the run that produced them must be discarded.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Individual is the affected individual, if any.
	Individual contact.ID

	// Record is the index of the offending contact record, or -1.
	Record int

	// Moment is the simulated moment at which the error was detected.
	Moment float64
}

// ErrorCode categorizes propagator errors.
type ErrorCode string

const (
	// ErrCodeUnsortedTable indicates records are not sorted by end moment.
	ErrCodeUnsortedTable ErrorCode = "UNSORTED_TABLE"

	// ErrCodeUnknownIndividual indicates a record references an ID outside
	// the initial population.
	ErrCodeUnknownIndividual ErrorCode = "UNKNOWN_INDIVIDUAL"

	// ErrCodeInvalidContact indicates a malformed record (end before start,
	// self-contact, non-finite moment).
	ErrCodeInvalidContact ErrorCode = "INVALID_CONTACT"

	// ErrCodeOverlappingPopulation indicates an ID is both initially
	// susceptible and initially infectious.
	ErrCodeOverlappingPopulation ErrorCode = "OVERLAPPING_POPULATION"

	// ErrCodeInvalidParameter indicates a negative or non-finite rate or
	// duration, or an unknown window mode.
	ErrCodeInvalidParameter ErrorCode = "INVALID_PARAMETER"

	// ErrCodeInvariant indicates an internal consistency failure.
	ErrCodeInvariant ErrorCode = "INVARIANT_VIOLATION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Individual != "" && e.Record >= 0:
		return fmt.Sprintf("%s: %s (individual=%s, record=%d)", e.Code, e.Message, e.Individual, e.Record)
	case e.Individual != "":
		return fmt.Sprintf("%s: %s (individual=%s)", e.Code, e.Message, e.Individual)
	case e.Record >= 0:
		return fmt.Sprintf("%s: %s (record=%d)", e.Code, e.Message, e.Record)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsPreconditionError reports whether err describes an invalid contact
// table or initial population.
func IsPreconditionError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case ErrCodeUnsortedTable, ErrCodeUnknownIndividual, ErrCodeInvalidContact, ErrCodeOverlappingPopulation:
		return true
	}
	return false
}

// IsParameterError reports whether err describes an invalid parameter.
func IsParameterError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeInvalidParameter
}

// IsInvariantError reports whether err describes an internal consistency
// failure.
func IsInvariantError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeInvariant
}

func newParameterError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidParameter, Message: fmt.Sprintf(format, args...), Record: -1}
}

func newInvariantError(id contact.ID, moment float64, format string, args ...any) *Error {
	return &Error{
		Code:       ErrCodeInvariant,
		Message:    fmt.Sprintf(format, args...),
		Individual: id,
		Record:     -1,
		Moment:     moment,
	}
}

// tableError converts a contact.RecordError into a precondition error.
func tableError(re *contact.RecordError) *Error {
	code := ErrCodeInvalidContact
	if re.Reason == contact.ReasonUnsorted {
		code = ErrCodeUnsortedTable
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s-%s [%g, %g]: %s", re.Record.A, re.Record.B, re.Record.Start, re.Record.End, re.Reason),
		Record:  re.Index,
		Moment:  re.Record.End,
	}
}
