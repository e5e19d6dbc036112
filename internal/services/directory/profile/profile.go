// Package profile defines the tenant-scoped user record.
//
// A profile is distinct from the credential-bearing identity: it joins an
// authenticated subject to exactly one company and carries the display data
// and role the dashboards render.
package profile

import (
	"strings"
	"time"

	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
)

// Role grants a profile its company-level permissions.
type Role string

const (
	// RoleOwner is the company creator with full control.
	RoleOwner Role = "owner"
	// RoleAdministrator manages employees and absences.
	RoleAdministrator Role = "administrator"
	// RoleUser has read-only dashboard access.
	RoleUser Role = "user"
)

var (
	// ErrEmptyUserID indicates a missing subject identifier.
	ErrEmptyUserID = apperrors.New(apperrors.CodeProfileEmptyUserID, "user id is required")
	// ErrEmptyEmail indicates a missing email address.
	ErrEmptyEmail = apperrors.New(apperrors.CodeProfileEmptyEmail, "email is required")
	// ErrInvalidRole indicates a role outside the allowed set.
	ErrInvalidRole = apperrors.New(apperrors.CodeProfileInvalidRole, "role must be owner, administrator, or user")
	// ErrEmptyCompanyID indicates a profile without a tenant.
	ErrEmptyCompanyID = apperrors.New(apperrors.CodeCompanyNotSpecified, "company id is required")
)

// Valid reports whether the role is one of the allowed values.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdministrator, RoleUser:
		return true
	}
	return false
}

// Profile represents a tenant-scoped user record keyed by the external
// subject id. Every profile belongs to exactly one company.
type Profile struct {
	UserID        string
	CompanyID     string
	Email         string
	Name          string
	Role          Role
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Input is the mutable payload used to create a profile.
type Input struct {
	UserID        string
	CompanyID     string
	Email         string
	Name          string
	Role          Role
	EmailVerified bool
}

// NormalizeInput trims strings and lowercases the email before validation.
func NormalizeInput(input Input) Input {
	input.UserID = strings.TrimSpace(input.UserID)
	input.CompanyID = strings.TrimSpace(input.CompanyID)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	return input
}

// New validates and builds a full profile from input.
func New(input Input, now func() time.Time) (Profile, error) {
	normalized := NormalizeInput(input)
	if normalized.UserID == "" {
		return Profile{}, ErrEmptyUserID
	}
	if normalized.CompanyID == "" {
		return Profile{}, ErrEmptyCompanyID
	}
	if normalized.Email == "" {
		return Profile{}, ErrEmptyEmail
	}
	if !normalized.Role.Valid() {
		return Profile{}, ErrInvalidRole
	}

	if now == nil {
		now = time.Now
	}
	createdAt := now().UTC()
	return Profile{
		UserID:        normalized.UserID,
		CompanyID:     normalized.CompanyID,
		Email:         normalized.Email,
		Name:          normalized.Name,
		Role:          normalized.Role,
		EmailVerified: normalized.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}, nil
}
