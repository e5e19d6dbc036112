// Package storage defines persistence contracts for directory data.
//
// These interfaces exist so handlers and business logic can depend on stable
// domain semantics without coupling to SQLite schema details. Tenant-scoped
// stores read the company from the request context and fail closed when it
// is absent.
package storage

import (
	"context"
	"time"

	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
	"github.com/absentiahq/absentia/internal/services/directory/absence"
	"github.com/absentiahq/absentia/internal/services/directory/company"
	"github.com/absentiahq/absentia/internal/services/directory/employee"
	"github.com/absentiahq/absentia/internal/services/directory/profile"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrContextNotEstablished indicates a tenant-scoped query was attempted
// before the tenant context was set. The storage layer raises this before
// touching any data so missing context can never widen a query.
var ErrContextNotEstablished = apperrors.New(apperrors.CodeContextNotEstablished, "tenant context is not established")

// Identity is a credential-bearing auth record, distinct from the tenant
// profile that references it.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdentityStore persists auth identities.
type IdentityStore interface {
	PutIdentity(ctx context.Context, identity Identity) error
	GetIdentity(ctx context.Context, identityID string) (Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (Identity, error)
	DeleteIdentity(ctx context.Context, identityID string) error
}

// Session is a durable authenticated session.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// SessionStore persists sessions.
type SessionStore interface {
	PutSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, sessionID string) (Session, error)
	RevokeSession(ctx context.Context, sessionID string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

// CompanyStore persists tenant accounts. DeleteCompany exists for sign-up
// rollback, before any tenant data references the company.
type CompanyStore interface {
	PutCompany(ctx context.Context, c company.Company) error
	GetCompany(ctx context.Context, companyID string) (company.Company, error)
	DeleteCompany(ctx context.Context, companyID string) error
}

// ProfileStore persists tenant-scoped user records.
//
// GetProfile is deliberately not tenant-guarded: it is the resolution seam
// the context propagator uses before any tenant context exists.
type ProfileStore interface {
	PutProfile(ctx context.Context, p profile.Profile) error
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
	DeleteProfile(ctx context.Context, userID string) error
}

// EmployeePage describes a page of employee records.
type EmployeePage struct {
	Employees     []employee.Employee
	NextPageToken string
}

// EmployeeStore persists employees. All operations are tenant-guarded.
type EmployeeStore interface {
	PutEmployee(ctx context.Context, e employee.Employee) error
	GetEmployee(ctx context.Context, employeeID string) (employee.Employee, error)
	ListEmployees(ctx context.Context, pageSize int, pageToken string) (EmployeePage, error)
}

// AbsencePage describes a page of absence records.
type AbsencePage struct {
	Absences      []absence.Absence
	NextPageToken string
}

// AbsenceStore persists absences. All operations are tenant-guarded.
type AbsenceStore interface {
	PutAbsence(ctx context.Context, a absence.Absence) error
	ListAbsences(ctx context.Context, employeeID string, pageSize int, pageToken string) (AbsencePage, error)
}

// EmployeeAbsenceSummary aggregates absences for one employee.
type EmployeeAbsenceSummary struct {
	EmployeeID   string
	EmployeeName string
	AbsenceCount int64
	TotalDays    int64
}

// CompanyAbsenceStats aggregates absence load across a company.
type CompanyAbsenceStats struct {
	EmployeeCount int64
	AbsenceCount  int64
	TotalDays     int64
}

// SummaryStore provides the read-only aggregates behind dashboard charts.
// All operations are tenant-guarded.
type SummaryStore interface {
	EmployeeAbsenceSummaries(ctx context.Context) ([]EmployeeAbsenceSummary, error)
	// CompanyAbsenceStats returns aggregate counts.
	// When since is nil, counts are for all time.
	CompanyAbsenceStats(ctx context.Context, since *time.Time) (CompanyAbsenceStats, error)
}
