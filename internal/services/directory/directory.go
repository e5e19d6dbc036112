package directory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
	"github.com/absentiahq/absentia/internal/platform/id"
	"github.com/absentiahq/absentia/internal/platform/requestctx"
	"github.com/absentiahq/absentia/internal/services/directory/absence"
	"github.com/absentiahq/absentia/internal/services/directory/company"
	"github.com/absentiahq/absentia/internal/services/directory/employee"
	"github.com/absentiahq/absentia/internal/services/directory/profile"
	"github.com/absentiahq/absentia/internal/services/directory/sessionfeed"
	"github.com/absentiahq/absentia/internal/services/directory/storage"
	"github.com/absentiahq/absentia/internal/services/directory/token"
)

var (
	// ErrInvalidCredentials covers both unknown emails and wrong passwords so
	// sign-in cannot be used to probe which addresses exist.
	ErrInvalidCredentials = apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid email or password")
	// ErrSessionExpired indicates an access token whose session is expired,
	// revoked, or gone.
	ErrSessionExpired = apperrors.New(apperrors.CodeSessionExpired, "session is expired or revoked")
	// ErrEmailEmpty indicates a missing email.
	ErrEmailEmpty = apperrors.New(apperrors.CodeAuthEmailEmpty, "email is required")
	// ErrPasswordEmpty indicates a missing password.
	ErrPasswordEmpty = apperrors.New(apperrors.CodeAuthPasswordEmpty, "password is required")
	// ErrCompanyChoice indicates a sign-up that did not name exactly one of an
	// existing company or a new company name.
	ErrCompanyChoice = apperrors.New(apperrors.CodeCompanyNotSpecified, "exactly one of company id or company name is required")
)

// Stores aggregates the persistence interfaces the service depends on.
type Stores struct {
	Identities storage.IdentityStore
	Sessions   storage.SessionStore
	Companies  storage.CompanyStore
	Profiles   storage.ProfileStore
	Employees  storage.EmployeeStore
	Absences   storage.AbsenceStore
	Summaries  storage.SummaryStore
}

// Config carries the dependencies for NewService.
type Config struct {
	Stores Stores
	Tokens *token.Signer
	Feed   *sessionfeed.Feed
	Logger *log.Logger

	// Clock and IDGenerator are injectable for tests.
	Clock       func() time.Time
	IDGenerator func() (string, error)

	// SessionTTL bounds session lifetime. Falls back to the token TTL.
	SessionTTL time.Duration
}

// Service is the directory authority. Construct with NewService.
type Service struct {
	stores      Stores
	tokens      *token.Signer
	feed        *sessionfeed.Feed
	logger      *log.Logger
	clock       func() time.Time
	idGenerator func() (string, error)
	sessionTTL  time.Duration
	tracer      trace.Tracer
}

// NewService validates config and builds a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Stores.Identities == nil || cfg.Stores.Sessions == nil ||
		cfg.Stores.Companies == nil || cfg.Stores.Profiles == nil {
		return nil, fmt.Errorf("identity, session, company, and profile stores are required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token signer is required")
	}
	if cfg.Feed == nil {
		cfg.Feed = sessionfeed.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = id.NewID
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = cfg.Tokens.TTL()
	}
	return &Service{
		stores:      cfg.Stores,
		tokens:      cfg.Tokens,
		feed:        cfg.Feed,
		logger:      cfg.Logger,
		clock:       cfg.Clock,
		idGenerator: cfg.IDGenerator,
		sessionTTL:  cfg.SessionTTL,
		tracer:      otel.Tracer("directory"),
	}, nil
}

// Close releases the session feed.
func (s *Service) Close() {
	s.feed.Close()
}

// OnSessionChanged registers a session-change handler and returns an
// unsubscribe function that is safe to call more than once.
func (s *Service) OnSessionChanged(handler func(sessionfeed.Event)) func() {
	return s.feed.Subscribe(handler)
}

// AuthSession is the result of a successful sign-in or sign-up.
type AuthSession struct {
	AccessToken string
	SessionID   string
	UserID      string
	CompanyID   string
	ExpiresAt   time.Time
}

// SignIn verifies credentials and issues a session with a signed access token.
func (s *Service) SignIn(ctx context.Context, email, password string) (AuthSession, error) {
	ctx, span := s.tracer.Start(ctx, "directory.SignIn")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return AuthSession{}, ErrEmailEmpty
	}
	if password == "" {
		return AuthSession{}, ErrPasswordEmpty
	}

	identity, err := s.stores.Identities.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AuthSession{}, ErrInvalidCredentials
		}
		return AuthSession{}, fmt.Errorf("load identity: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return AuthSession{}, ErrInvalidCredentials
	}

	return s.issueSession(ctx, identity.ID)
}

// issueSession persists a session for userID and signs an access token. The
// company claim is stamped when a profile exists; an identity without a
// profile still signs in and surfaces profile-not-found at resolution time.
func (s *Service) issueSession(ctx context.Context, userID string) (AuthSession, error) {
	sessionID, err := s.idGenerator()
	if err != nil {
		return AuthSession{}, fmt.Errorf("generate session id: %w", err)
	}
	now := s.clock().UTC()
	session := storage.Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.stores.Sessions.PutSession(ctx, session); err != nil {
		return AuthSession{}, fmt.Errorf("persist session: %w", err)
	}

	companyID := ""
	switch record, err := s.stores.Profiles.GetProfile(ctx, userID); {
	case err == nil:
		companyID = record.CompanyID
	case !errors.Is(err, storage.ErrNotFound):
		return AuthSession{}, fmt.Errorf("load profile: %w", err)
	}

	accessToken, err := s.tokens.Sign(userID, companyID, sessionID, now)
	if err != nil {
		return AuthSession{}, err
	}

	s.feed.Publish(sessionfeed.Event{
		Type:      sessionfeed.SignedIn,
		SessionID: sessionID,
		UserID:    userID,
		At:        now,
	})
	return AuthSession{
		AccessToken: accessToken,
		SessionID:   sessionID,
		UserID:      userID,
		CompanyID:   companyID,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// SignUpInput describes a new account. Exactly one of CompanyID or
// CompanyName must be set: joining an existing company grants role user,
// naming a new company creates it and grants role owner.
type SignUpInput struct {
	Email       string
	Password    string
	Name        string
	CompanyID   string
	CompanyName string
}

// SignUp creates an identity, its tenant profile, and an initial session.
//
// Ordering is identity first, then company (when a new one is named), then
// profile. A failure after the identity exists deletes the identity again,
// along with any company created for this sign-up, so a retry starts clean.
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (AuthSession, error) {
	ctx, span := s.tracer.Start(ctx, "directory.SignUp")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return AuthSession{}, ErrEmailEmpty
	}
	if input.Password == "" {
		return AuthSession{}, ErrPasswordEmpty
	}
	companyID := strings.TrimSpace(input.CompanyID)
	companyName := strings.TrimSpace(input.CompanyName)
	if (companyID == "") == (companyName == "") {
		return AuthSession{}, ErrCompanyChoice
	}

	role := profile.RoleUser
	if companyID != "" {
		if _, err := s.stores.Companies.GetCompany(ctx, companyID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return AuthSession{}, apperrors.New(apperrors.CodeNotFound, "company not found")
			}
			return AuthSession{}, fmt.Errorf("load company: %w", err)
		}
	}

	identity, err := s.createIdentity(ctx, email, input.Password)
	if err != nil {
		return AuthSession{}, err
	}

	createdCompanyID := ""
	if companyName != "" {
		created, err := company.Create(company.CreateInput{Name: companyName}, s.clock, s.idGenerator)
		if err != nil {
			s.rollbackIdentity(ctx, identity.ID)
			return AuthSession{}, err
		}
		if err := s.stores.Companies.PutCompany(ctx, created); err != nil {
			s.rollbackIdentity(ctx, identity.ID)
			return AuthSession{}, fmt.Errorf("persist company: %w", err)
		}
		createdCompanyID = created.ID
		companyID = created.ID
		role = profile.RoleOwner
	}

	record, err := profile.New(profile.Input{
		UserID:    identity.ID,
		CompanyID: companyID,
		Email:     email,
		Name:      input.Name,
		Role:      role,
	}, s.clock)
	if err != nil {
		s.rollbackCompany(ctx, createdCompanyID)
		s.rollbackIdentity(ctx, identity.ID)
		return AuthSession{}, err
	}
	if err := s.stores.Profiles.PutProfile(ctx, record); err != nil {
		s.rollbackCompany(ctx, createdCompanyID)
		s.rollbackIdentity(ctx, identity.ID)
		return AuthSession{}, fmt.Errorf("persist profile: %w", err)
	}

	return s.issueSession(ctx, identity.ID)
}

// createIdentity hashes the password and persists the credential record.
func (s *Service) createIdentity(ctx context.Context, email, password string) (storage.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return storage.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	identityID, err := s.idGenerator()
	if err != nil {
		return storage.Identity{}, fmt.Errorf("generate identity id: %w", err)
	}
	now := s.clock().UTC()
	identity := storage.Identity{
		ID:           identityID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.stores.Identities.PutIdentity(ctx, identity); err != nil {
		return storage.Identity{}, err
	}
	return identity, nil
}

// rollbackIdentity undoes a half-finished sign-up. Failure to roll back is
// logged, not returned: the caller already has the primary error.
func (s *Service) rollbackIdentity(ctx context.Context, identityID string) {
	if err := s.stores.Identities.DeleteIdentity(ctx, identityID); err != nil {
		s.logger.Printf("sign-up rollback failed for identity %s: %v", identityID, err)
	}
}

// rollbackCompany removes a company created during a sign-up that later
// failed, so a retry does not leave a duplicate tenant behind.
func (s *Service) rollbackCompany(ctx context.Context, companyID string) {
	if companyID == "" {
		return
	}
	if err := s.stores.Companies.DeleteCompany(ctx, companyID); err != nil {
		s.logger.Printf("sign-up rollback failed for company %s: %v", companyID, err)
	}
}

// DeleteIdentity removes a credential record and, via cascade, its sessions
// and profile.
func (s *Service) DeleteIdentity(ctx context.Context, identityID string) error {
	return s.stores.Identities.DeleteIdentity(ctx, identityID)
}

// CurrentSession validates an access token against its persisted session.
func (s *Service) CurrentSession(ctx context.Context, accessToken string) (AuthSession, error) {
	ctx, span := s.tracer.Start(ctx, "directory.CurrentSession")
	defer span.End()

	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return AuthSession{}, apperrors.Wrap(apperrors.CodeSessionExpired, "access token is not valid", err)
	}
	session, err := s.stores.Sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AuthSession{}, ErrSessionExpired
		}
		return AuthSession{}, fmt.Errorf("load session: %w", err)
	}
	now := s.clock().UTC()
	if session.RevokedAt != nil || !session.ExpiresAt.After(now) {
		return AuthSession{}, ErrSessionExpired
	}
	return AuthSession{
		AccessToken: accessToken,
		SessionID:   session.ID,
		UserID:      session.UserID,
		CompanyID:   claims.CompanyID,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// SignOut revokes the session behind an access token. Unknown, expired, and
// already-revoked sessions all succeed so repeated sign-out is harmless.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := s.tracer.Start(ctx, "directory.SignOut")
	defer span.End()

	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return nil
	}
	now := s.clock().UTC()
	if err := s.stores.Sessions.RevokeSession(ctx, claims.SessionID, now); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("revoke session: %w", err)
	}
	s.feed.Publish(sessionfeed.Event{
		Type:      sessionfeed.SignedOut,
		SessionID: claims.SessionID,
		UserID:    claims.Subject,
		At:        now,
	})
	return nil
}

// GetProfile returns the tenant profile for a user.
func (s *Service) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	return s.stores.Profiles.GetProfile(ctx, userID)
}

// GetCompany returns a company record.
func (s *Service) GetCompany(ctx context.Context, companyID string) (company.Company, error) {
	return s.stores.Companies.GetCompany(ctx, companyID)
}

// CreateCompany creates a tenant account.
func (s *Service) CreateCompany(ctx context.Context, input company.CreateInput) (company.Company, error) {
	created, err := company.Create(input, s.clock, s.idGenerator)
	if err != nil {
		return company.Company{}, err
	}
	if err := s.stores.Companies.PutCompany(ctx, created); err != nil {
		return company.Company{}, fmt.Errorf("persist company: %w", err)
	}
	return created, nil
}

// CreateEmployee records a staff member for the caller's company.
func (s *Service) CreateEmployee(ctx context.Context, input employee.CreateInput) (employee.Employee, error) {
	input.CompanyID = requestctx.CompanyIDFromContext(ctx)
	if input.CompanyID == "" {
		return employee.Employee{}, storage.ErrContextNotEstablished
	}
	created, err := employee.Create(input, s.clock, s.idGenerator)
	if err != nil {
		return employee.Employee{}, err
	}
	if err := s.stores.Employees.PutEmployee(ctx, created); err != nil {
		return employee.Employee{}, fmt.Errorf("persist employee: %w", err)
	}
	return created, nil
}

// ListEmployees pages through the caller's employees.
func (s *Service) ListEmployees(ctx context.Context, pageSize int, pageToken string) (storage.EmployeePage, error) {
	return s.stores.Employees.ListEmployees(ctx, pageSize, pageToken)
}

// RecordAbsence records missed days for one of the caller's employees.
func (s *Service) RecordAbsence(ctx context.Context, input absence.CreateInput) (absence.Absence, error) {
	input.CompanyID = requestctx.CompanyIDFromContext(ctx)
	if input.CompanyID == "" {
		return absence.Absence{}, storage.ErrContextNotEstablished
	}
	if _, err := s.stores.Employees.GetEmployee(ctx, input.EmployeeID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return absence.Absence{}, apperrors.New(apperrors.CodeNotFound, "employee not found")
		}
		return absence.Absence{}, fmt.Errorf("load employee: %w", err)
	}
	created, err := absence.Create(input, s.clock, s.idGenerator)
	if err != nil {
		return absence.Absence{}, err
	}
	if err := s.stores.Absences.PutAbsence(ctx, created); err != nil {
		return absence.Absence{}, fmt.Errorf("persist absence: %w", err)
	}
	return created, nil
}

// ListAbsences pages through absences, optionally filtered to one employee.
func (s *Service) ListAbsences(ctx context.Context, employeeID string, pageSize int, pageToken string) (storage.AbsencePage, error) {
	return s.stores.Absences.ListAbsences(ctx, employeeID, pageSize, pageToken)
}

// EmployeeAbsenceSummaries returns per-employee absence totals.
func (s *Service) EmployeeAbsenceSummaries(ctx context.Context) ([]storage.EmployeeAbsenceSummary, error) {
	return s.stores.Summaries.EmployeeAbsenceSummaries(ctx)
}

// CompanyAbsenceStats returns company-wide absence totals, optionally
// windowed to absences starting at or after since.
func (s *Service) CompanyAbsenceStats(ctx context.Context, since *time.Time) (storage.CompanyAbsenceStats, error) {
	return s.stores.Summaries.CompanyAbsenceStats(ctx, since)
}
