// Package employee provides the tenant employee model.
package employee

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
	"github.com/absentiahq/absentia/internal/platform/id"
)

var (
	// ErrEmptyName indicates a missing employee name.
	ErrEmptyName = apperrors.New(apperrors.CodeEmployeeEmptyName, "employee name is required")
	// ErrEmptyCompanyID indicates an employee without a tenant.
	ErrEmptyCompanyID = apperrors.New(apperrors.CodeEmployeeEmptyCompanyID, "employee company id is required")
)

// Employee represents a tracked staff member within one company.
type Employee struct {
	ID        string
	CompanyID string
	Name      string
	Email     string
	Position  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput describes the metadata needed to create an employee.
type CreateInput struct {
	CompanyID string
	Name      string
	Email     string
	Position  string
}

// Create validates and builds an employee record from input.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Employee, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	companyID := strings.TrimSpace(input.CompanyID)
	if companyID == "" {
		return Employee{}, ErrEmptyCompanyID
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Employee{}, ErrEmptyName
	}

	employeeID, err := idGenerator()
	if err != nil {
		return Employee{}, fmt.Errorf("generate employee id: %w", err)
	}

	createdAt := now().UTC()
	return Employee{
		ID:        employeeID,
		CompanyID: companyID,
		Name:      name,
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Position:  strings.TrimSpace(input.Position),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}
