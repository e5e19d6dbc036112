package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
	"github.com/absentiahq/absentia/internal/platform/requestctx"
	sqlitemigrate "github.com/absentiahq/absentia/internal/platform/storage/sqlitemigrate"
	"github.com/absentiahq/absentia/internal/services/directory/absence"
	"github.com/absentiahq/absentia/internal/services/directory/company"
	"github.com/absentiahq/absentia/internal/services/directory/employee"
	"github.com/absentiahq/absentia/internal/services/directory/profile"
	"github.com/absentiahq/absentia/internal/services/directory/storage"
	"github.com/absentiahq/absentia/internal/services/directory/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements directory persistence over SQLite.
//
// A single SQLite file backs identity and tenant state so auth and
// reporting flows share the same transaction and visibility boundaries.
type Store struct {
	sqlDB *sql.DB
}

// DB returns the raw database handle for schema tooling.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Open opens a directory SQLite store and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// tenantCompanyID reads the tenant from context or fails closed.
func tenantCompanyID(ctx context.Context) (string, error) {
	companyID := strings.TrimSpace(requestctx.CompanyIDFromContext(ctx))
	if companyID == "" {
		return "", storage.ErrContextNotEstablished
	}
	return companyID, nil
}

// PutIdentity stores an identity record, updating it when it already exists.
func (s *Store) PutIdentity(ctx context.Context, identity storage.Identity) error {
	identity.ID = strings.TrimSpace(identity.ID)
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	if identity.ID == "" {
		return fmt.Errorf("identity id is required")
	}
	if identity.Email == "" {
		return fmt.Errorf("identity email is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO identities (id, email, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	email = excluded.email,
	password_hash = excluded.password_hash,
	updated_at = excluded.updated_at
`,
		identity.ID,
		identity.Email,
		identity.PasswordHash,
		toMillis(identity.CreatedAt),
		toMillis(identity.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "identities.email") {
			return apperrors.Wrap(apperrors.CodeAuthEmailInUse, "email is already registered", err)
		}
		return fmt.Errorf("put identity: %w", err)
	}
	return nil
}

// GetIdentity returns an identity by id.
func (s *Store) GetIdentity(ctx context.Context, identityID string) (storage.Identity, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, password_hash, created_at, updated_at
FROM identities WHERE id = ?
`, strings.TrimSpace(identityID))
	return scanIdentity(row)
}

// GetIdentityByEmail returns an identity by normalized email.
func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (storage.Identity, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, password_hash, created_at, updated_at
FROM identities WHERE email = ?
`, strings.ToLower(strings.TrimSpace(email)))
	return scanIdentity(row)
}

// DeleteIdentity removes an identity along with its sessions and profile.
// The dependent rows are deleted explicitly so the result does not depend on
// the connection's foreign_keys pragma.
func (s *Store) DeleteIdentity(ctx context.Context, identityID string) error {
	identityID = strings.TrimSpace(identityID)
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete identity: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, identityID); err != nil {
		return fmt.Errorf("delete identity sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, identityID); err != nil {
		return fmt.Errorf("delete identity profile: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, identityID)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete identity rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return tx.Commit()
}

func scanIdentity(row *sql.Row) (storage.Identity, error) {
	var identity storage.Identity
	var createdAt, updatedAt int64
	err := row.Scan(&identity.ID, &identity.Email, &identity.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.Identity{}, storage.ErrNotFound
		}
		return storage.Identity{}, fmt.Errorf("scan identity: %w", err)
	}
	identity.CreatedAt = fromMillis(createdAt)
	identity.UpdatedAt = fromMillis(updatedAt)
	return identity, nil
}

// PutSession stores a session record.
func (s *Store) PutSession(ctx context.Context, session storage.Session) error {
	var revokedAt sql.NullInt64
	if session.RevokedAt != nil {
		revokedAt = sql.NullInt64{Int64: toMillis(*session.RevokedAt), Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (id, user_id, created_at, expires_at, revoked_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	expires_at = excluded.expires_at,
	revoked_at = excluded.revoked_at
`,
		session.ID,
		session.UserID,
		toMillis(session.CreatedAt),
		toMillis(session.ExpiresAt),
		revokedAt,
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession returns a session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (storage.Session, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, created_at, expires_at, revoked_at
FROM sessions WHERE id = ?
`, strings.TrimSpace(sessionID))

	var session storage.Session
	var createdAt, expiresAt int64
	var revokedAt sql.NullInt64
	err := row.Scan(&session.ID, &session.UserID, &createdAt, &expiresAt, &revokedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.Session{}, storage.ErrNotFound
		}
		return storage.Session{}, fmt.Errorf("scan session: %w", err)
	}
	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	if revokedAt.Valid {
		value := fromMillis(revokedAt.Int64)
		session.RevokedAt = &value
	}
	return session, nil
}

// RevokeSession marks a session revoked. Revoking twice is a no-op.
func (s *Store) RevokeSession(ctx context.Context, sessionID string, revokedAt time.Time) error {
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL
`, toMillis(revokedAt), strings.TrimSpace(sessionID))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke session rows: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetSession(ctx, sessionID); getErr != nil {
			return getErr
		}
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry has passed.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now)); err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}

// PutCompany stores a company record.
func (s *Store) PutCompany(ctx context.Context, c company.Company) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO companies (id, name, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	updated_at = excluded.updated_at
`,
		c.ID, c.Name, toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put company: %w", err)
	}
	return nil
}

// GetCompany returns a company by id.
func (s *Store) GetCompany(ctx context.Context, companyID string) (company.Company, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, created_at, updated_at FROM companies WHERE id = ?
`, strings.TrimSpace(companyID))

	var c company.Company
	var createdAt, updatedAt int64
	err := row.Scan(&c.ID, &c.Name, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return company.Company{}, storage.ErrNotFound
		}
		return company.Company{}, fmt.Errorf("scan company: %w", err)
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

// DeleteCompany removes a company record.
func (s *Store) DeleteCompany(ctx context.Context, companyID string) error {
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, strings.TrimSpace(companyID))
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete company rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutProfile stores a tenant profile record.
func (s *Store) PutProfile(ctx context.Context, p profile.Profile) error {
	verified := 0
	if p.EmailVerified {
		verified = 1
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO profiles (user_id, company_id, email, name, role, email_verified, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	email = excluded.email,
	name = excluded.name,
	role = excluded.role,
	email_verified = excluded.email_verified,
	updated_at = excluded.updated_at
`,
		p.UserID, p.CompanyID, p.Email, p.Name, string(p.Role), verified,
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

// GetProfile returns the profile row keyed by the external subject id.
func (s *Store) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT user_id, company_id, email, name, role, email_verified, created_at, updated_at
FROM profiles WHERE user_id = ?
`, strings.TrimSpace(userID))

	var p profile.Profile
	var role string
	var verified int
	var createdAt, updatedAt int64
	err := row.Scan(&p.UserID, &p.CompanyID, &p.Email, &p.Name, &role, &verified, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return profile.Profile{}, storage.ErrNotFound
		}
		return profile.Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	p.Role = profile.Role(role)
	p.EmailVerified = verified != 0
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

// DeleteProfile removes a profile row.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutEmployee stores an employee row for the tenant in context.
func (s *Store) PutEmployee(ctx context.Context, e employee.Employee) error {
	companyID, err := tenantCompanyID(ctx)
	if err != nil {
		return err
	}
	if e.CompanyID != companyID {
		return storage.ErrContextNotEstablished
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO employees (id, company_id, name, email, position, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	email = excluded.email,
	position = excluded.position,
	updated_at = excluded.updated_at
`,
		e.ID, e.CompanyID, e.Name, e.Email, e.Position,
		toMillis(e.CreatedAt), toMillis(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put employee: %w", err)
	}
	return nil
}

// GetEmployee returns an employee visible to the tenant in context.
func (s *Store) GetEmployee(ctx context.Context, employeeID string) (employee.Employee, error) {
	companyID, err := tenantCompanyID(ctx)
	if err != nil {
		return employee.Employee{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, company_id, name, email, position, created_at, updated_at
FROM employees WHERE id = ? AND company_id = ?
`, strings.TrimSpace(employeeID), companyID)

	var e employee.Employee
	var createdAt, updatedAt int64
	err = row.Scan(&e.ID, &e.CompanyID, &e.Name, &e.Email, &e.Position, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return employee.Employee{}, storage.ErrNotFound
		}
		return employee.Employee{}, fmt.Errorf("scan employee: %w", err)
	}
	e.CreatedAt = fromMillis(createdAt)
	e.UpdatedAt = fromMillis(updatedAt)
	return e, nil
}

// ListEmployees pages through the tenant's employees ordered by id.
func (s *Store) ListEmployees(ctx context.Context, pageSize int, pageToken string) (storage.EmployeePage, error) {
	companyID, err := tenantCompanyID(ctx)
	if err != nil {
		return storage.EmployeePage{}, err
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, company_id, name, email, position, created_at, updated_at
FROM employees
WHERE company_id = ? AND id > ?
ORDER BY id
LIMIT ?
`, companyID, strings.TrimSpace(pageToken), pageSize+1)
	if err != nil {
		return storage.EmployeePage{}, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var page storage.EmployeePage
	for rows.Next() {
		var e employee.Employee
		var createdAt, updatedAt int64
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Name, &e.Email, &e.Position, &createdAt, &updatedAt); err != nil {
			return storage.EmployeePage{}, fmt.Errorf("scan employee: %w", err)
		}
		e.CreatedAt = fromMillis(createdAt)
		e.UpdatedAt = fromMillis(updatedAt)
		page.Employees = append(page.Employees, e)
	}
	if err := rows.Err(); err != nil {
		return storage.EmployeePage{}, fmt.Errorf("iterate employees: %w", err)
	}

	if len(page.Employees) > pageSize {
		page.Employees = page.Employees[:pageSize]
		page.NextPageToken = page.Employees[pageSize-1].ID
	}
	return page, nil
}

// PutAbsence stores an absence row for the tenant in context.
func (s *Store) PutAbsence(ctx context.Context, a absence.Absence) error {
	companyID, err := tenantCompanyID(ctx)
	if err != nil {
		return err
	}
	if a.CompanyID != companyID {
		return storage.ErrContextNotEstablished
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO absences (id, company_id, employee_id, kind, starts_on, ends_on, reason, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	kind = excluded.kind,
	starts_on = excluded.starts_on,
	ends_on = excluded.ends_on,
	reason = excluded.reason,
	updated_at = excluded.updated_at
`,
		a.ID, a.CompanyID, a.EmployeeID, string(a.Kind),
		toMillis(a.StartsOn), toMillis(a.EndsOn), a.Reason,
		toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put absence: %w", err)
	}
	return nil
}

// ListAbsences pages through the tenant's absences ordered by id.
// When employeeID is non-empty, results are limited to that employee.
func (s *Store) ListAbsences(ctx context.Context, employeeID string, pageSize int, pageToken string) (storage.AbsencePage, error) {
	companyID, err := tenantCompanyID(ctx)
	if err != nil {
		return storage.AbsencePage{}, err
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	query := `
SELECT id, company_id, employee_id, kind, starts_on, ends_on, reason, created_at, updated_at
FROM absences
WHERE company_id = ? AND id > ?
`
	args := []any{companyID, strings.TrimSpace(pageToken)}
	if employeeID = strings.TrimSpace(employeeID); employeeID != "" {
		query += " AND employee_id = ?"
		args = append(args, employeeID)
	}
	query += " ORDER BY id LIMIT ?"
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.AbsencePage{}, fmt.Errorf("list absences: %w", err)
	}
	defer rows.Close()

	var page storage.AbsencePage
	for rows.Next() {
		var a absence.Absence
		var kind string
		var startsOn, endsOn, createdAt, updatedAt int64
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.EmployeeID, &kind, &startsOn, &endsOn, &a.Reason, &createdAt, &updatedAt); err != nil {
			return storage.AbsencePage{}, fmt.Errorf("scan absence: %w", err)
		}
		a.Kind = absence.Kind(kind)
		a.StartsOn = fromMillis(startsOn)
		a.EndsOn = fromMillis(endsOn)
		a.CreatedAt = fromMillis(createdAt)
		a.UpdatedAt = fromMillis(updatedAt)
		page.Absences = append(page.Absences, a)
	}
	if err := rows.Err(); err != nil {
		return storage.AbsencePage{}, fmt.Errorf("iterate absences: %w", err)
	}

	if len(page.Absences) > pageSize {
		page.Absences = page.Absences[:pageSize]
		page.NextPageToken = page.Absences[pageSize-1].ID
	}
	return page, nil
}

// EmployeeAbsenceSummaries returns per-employee aggregates for the tenant in context.
func (s *Store) EmployeeAbsenceSummaries(ctx context.Context) ([]storage.EmployeeAbsenceSummary, error) {
	companyID, err := tenantCompanyID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT employee_id, employee_name, absence_count, total_days
FROM employee_absence_summary
WHERE company_id = ?
ORDER BY employee_name, employee_id
`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query absence summaries: %w", err)
	}
	defer rows.Close()

	var summaries []storage.EmployeeAbsenceSummary
	for rows.Next() {
		var summary storage.EmployeeAbsenceSummary
		if err := rows.Scan(&summary.EmployeeID, &summary.EmployeeName, &summary.AbsenceCount, &summary.TotalDays); err != nil {
			return nil, fmt.Errorf("scan absence summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate absence summaries: %w", err)
	}
	return summaries, nil
}

// CompanyAbsenceStats returns aggregate counts for the tenant in context.
func (s *Store) CompanyAbsenceStats(ctx context.Context, since *time.Time) (storage.CompanyAbsenceStats, error) {
	companyID, err := tenantCompanyID(ctx)
	if err != nil {
		return storage.CompanyAbsenceStats{}, err
	}

	var stats storage.CompanyAbsenceStats
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM employees WHERE company_id = ?
`, companyID)
	if err := row.Scan(&stats.EmployeeCount); err != nil {
		return storage.CompanyAbsenceStats{}, fmt.Errorf("count employees: %w", err)
	}

	var sinceMillis sql.NullInt64
	if since != nil {
		sinceMillis = sql.NullInt64{Int64: toMillis(*since), Valid: true}
	}
	row = s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM((ends_on - starts_on) / 86400000 + 1), 0)
FROM absences
WHERE company_id = ? AND (?2 IS NULL OR starts_on >= ?2)
`, companyID, sinceMillis)
	if err := row.Scan(&stats.AbsenceCount, &stats.TotalDays); err != nil {
		return storage.CompanyAbsenceStats{}, fmt.Errorf("count absences: %w", err)
	}
	return stats, nil
}

var _ storage.IdentityStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.CompanyStore = (*Store)(nil)
var _ storage.ProfileStore = (*Store)(nil)
var _ storage.EmployeeStore = (*Store)(nil)
var _ storage.AbsenceStore = (*Store)(nil)
var _ storage.SummaryStore = (*Store)(nil)
