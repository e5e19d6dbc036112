// Package absence provides the absence event model behind every dashboard chart.
package absence

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
	"github.com/absentiahq/absentia/internal/platform/id"
)

// Kind classifies an absence for reporting.
type Kind string

const (
	KindSick     Kind = "sick"
	KindVacation Kind = "vacation"
	KindPersonal Kind = "personal"
	KindUnpaid   Kind = "unpaid"
	KindOther    Kind = "other"
)

var (
	// ErrEmptyEmployeeID indicates an absence without an employee.
	ErrEmptyEmployeeID = apperrors.New(apperrors.CodeAbsenceEmptyEmployeeID, "absence employee id is required")
	// ErrInvalidKind indicates a kind outside the allowed set.
	ErrInvalidKind = apperrors.New(apperrors.CodeAbsenceInvalidKind, "absence kind must be sick, vacation, personal, unpaid, or other")
	// ErrInvalidRange indicates an absence that ends before it starts.
	ErrInvalidRange = apperrors.New(apperrors.CodeAbsenceInvalidRange, "absence must end on or after its start date")
)

// Valid reports whether the kind is one of the allowed values.
func (k Kind) Valid() bool {
	switch k {
	case KindSick, KindVacation, KindPersonal, KindUnpaid, KindOther:
		return true
	}
	return false
}

// Absence records a contiguous run of missed days for one employee.
// Dates are calendar days normalized to UTC midnight; both ends inclusive.
type Absence struct {
	ID         string
	CompanyID  string
	EmployeeID string
	Kind       Kind
	StartsOn   time.Time
	EndsOn     time.Time
	Reason     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Days returns the inclusive length of the absence in calendar days.
func (a Absence) Days() int {
	return int(a.EndsOn.Sub(a.StartsOn).Hours()/24) + 1
}

// CreateInput describes the metadata needed to record an absence.
type CreateInput struct {
	CompanyID  string
	EmployeeID string
	Kind       Kind
	StartsOn   time.Time
	EndsOn     time.Time
	Reason     string
}

// Create validates and builds an absence record from input.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Absence, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	employeeID := strings.TrimSpace(input.EmployeeID)
	if employeeID == "" {
		return Absence{}, ErrEmptyEmployeeID
	}
	if !input.Kind.Valid() {
		return Absence{}, ErrInvalidKind
	}

	startsOn := truncateToDay(input.StartsOn)
	endsOn := truncateToDay(input.EndsOn)
	if endsOn.Before(startsOn) {
		return Absence{}, ErrInvalidRange
	}

	absenceID, err := idGenerator()
	if err != nil {
		return Absence{}, fmt.Errorf("generate absence id: %w", err)
	}

	createdAt := now().UTC()
	return Absence{
		ID:         absenceID,
		CompanyID:  strings.TrimSpace(input.CompanyID),
		EmployeeID: employeeID,
		Kind:       input.Kind,
		StartsOn:   startsOn,
		EndsOn:     endsOn,
		Reason:     strings.TrimSpace(input.Reason),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}, nil
}

func truncateToDay(value time.Time) time.Time {
	utc := value.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
