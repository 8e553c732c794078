/*
errors.go - Centralized error types for the leave ledger

ERROR CATEGORIES:
  1. Lookup errors - Employee or tenant does not exist
  2. Data-quality errors - Hire date unparseable or in the future
  3. Input errors - Malformed periods, modes, amounts

A missing hire date is deliberately NOT an error: the ledger is simply
empty and the caller shows "no data yet".

USAGE:
  if errors.Is(err, generic.ErrInvalidHireDate) {
      // surface a data-quality message
  }
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEntityNotFound is returned when a referenced employee doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidHireDate is returned when a hire date can't be parsed or lies
	// after the as-of date of the calculation.
	ErrInvalidHireDate = errors.New("invalid hire date")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidCalculationMode is returned for an unknown calculation system.
	ErrInvalidCalculationMode = errors.New("invalid calculation mode")

	// ErrInvalidAmount is returned for non-positive hours or days on intake.
	ErrInvalidAmount = errors.New("invalid amount")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidHireDateError explains why an employee's hire date was rejected.
type InvalidHireDateError struct {
	EmployeeID EmployeeID
	Raw        string
	Reason     string
}

func (e *InvalidHireDateError) Error() string {
	return fmt.Sprintf("invalid hire date %q for employee %s: %s", e.Raw, e.EmployeeID, e.Reason)
}

func (e *InvalidHireDateError) Unwrap() error {
	return ErrInvalidHireDate
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrEntityNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidCalculationMode) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsDataQuality returns true for stored data the ledger refuses to project.
func IsDataQuality(err error) bool {
	return errors.Is(err, ErrInvalidHireDate)
}
