// Package company provides the tenant account model.
package company

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
	"github.com/absentiahq/absentia/internal/platform/id"
)

// ErrEmptyName indicates a missing company name.
var ErrEmptyName = apperrors.New(apperrors.CodeCompanyNameEmpty, "company name is required")

// Company represents a tenant account. All employee and absence data is
// partitioned by company.
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput describes the metadata needed to create a company.
type CreateInput struct {
	Name string
}

// Create builds a durable company record from validated input.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Company, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Company{}, ErrEmptyName
	}

	companyID, err := idGenerator()
	if err != nil {
		return Company{}, fmt.Errorf("generate company id: %w", err)
	}

	createdAt := now().UTC()
	return Company{
		ID:        companyID,
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}
