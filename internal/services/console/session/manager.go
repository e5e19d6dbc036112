// Package session manages the console's authenticated session.
//
// The Manager is the frontend's single authority for who is signed in. It
// drives sign-in, sign-up, sign-out, and start-up session restoration against
// the directory, resolves the signed-in user to a tenant profile, and caches
// the result as the ApplicationUser the dashboards render. All transitions
// run through an explicit state machine so the frontend can distinguish "not
// loaded yet" from "signed out".
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
	"github.com/absentiahq/absentia/internal/platform/requestctx"
	"github.com/absentiahq/absentia/internal/platform/timeouts"
	"github.com/absentiahq/absentia/internal/services/directory"
	"github.com/absentiahq/absentia/internal/services/directory/profile"
	"github.com/absentiahq/absentia/internal/services/directory/sessionfeed"
)

// State is the manager's lifecycle state.
type State string

const (
	// StateUninitialized means Start has not run yet.
	StateUninitialized State = "UNINITIALIZED"
	// StateLoading means session restoration or an explicit sign-in is
	// resolving.
	StateLoading State = "LOADING"
	// StateAuthenticated means a user is signed in and resolved.
	StateAuthenticated State = "AUTHENTICATED"
	// StateUnauthenticated means no valid session exists.
	StateUnauthenticated State = "UNAUTHENTICATED"
)

// ErrSignInInFlight rejects a sign-in or sign-up attempted while another
// transition is still running.
var ErrSignInInFlight = apperrors.New(apperrors.CodeAuthSignInInFlight, "another sign-in is already in progress")

// ErrServiceUnavailable indicates the directory did not answer within the
// call timeout.
var ErrServiceUnavailable = apperrors.New(apperrors.CodeServiceUnavailable, "directory did not respond in time")

// User is the resolved application user the dashboards render.
type User struct {
	ID            string
	Email         string
	Name          string
	CompanyID     string
	Role          profile.Role
	EmailVerified bool
}

// Update carries optional field changes for UpdateUser. Nil fields are left
// untouched.
type Update struct {
	Email *string
	Name  *string
}

// Directory is the subset of the directory service the manager calls.
type Directory interface {
	SignIn(ctx context.Context, email, password string) (directory.AuthSession, error)
	SignUp(ctx context.Context, input directory.SignUpInput) (directory.AuthSession, error)
	CurrentSession(ctx context.Context, accessToken string) (directory.AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
	OnSessionChanged(handler func(sessionfeed.Event)) func()
}

// ContextBinder resolves a user to a tenant profile and establishes the
// tenant request context.
type ContextBinder interface {
	Bind(ctx context.Context, userID string) (context.Context, profile.Profile, error)
}

// Config carries the dependencies for NewManager.
type Config struct {
	Directory Directory
	Binder    ContextBinder
	Tokens    TokenStore
	Logger    *log.Logger

	// CallTimeout bounds every directory call. Falls back to the platform
	// default.
	CallTimeout time.Duration
}

// Manager holds the console's session state. Safe for concurrent use.
type Manager struct {
	directory   Directory
	binder      ContextBinder
	tokens      TokenStore
	logger      *log.Logger
	callTimeout time.Duration

	mu          sync.Mutex
	state       State
	priorState  State
	user        *User
	sessionID   string
	accessToken string
	boundCtx    context.Context
	inFlight    bool
	unsubscribe func()
}

// NewManager validates config and builds a Manager in the uninitialized state.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Directory == nil {
		return nil, fmt.Errorf("directory client is required")
	}
	if cfg.Binder == nil {
		return nil, fmt.Errorf("context binder is required")
	}
	if cfg.Tokens == nil {
		cfg.Tokens = NewMemoryTokenStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = timeouts.DirectoryCall
	}
	return &Manager{
		directory:   cfg.Directory,
		binder:      cfg.Binder,
		tokens:      cfg.Tokens,
		logger:      cfg.Logger,
		callTimeout: cfg.CallTimeout,
		state:       StateUninitialized,
		boundCtx:    context.Background(),
	}, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns a copy of the cached user, or nil when signed out.
func (m *Manager) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// Context returns the tenant-bound request context for the signed-in user,
// or the background context when signed out. Tenant-scoped queries made with
// the unbound context fail closed at the storage layer.
func (m *Manager) Context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boundCtx
}

// Start restores any persisted session and subscribes to session changes.
// It must be called once before sign-in or sign-out.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUninitialized {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.state = StateLoading
	m.mu.Unlock()

	m.restore(ctx)

	unsubscribe := m.directory.OnSessionChanged(m.handleSessionEvent)
	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	return nil
}

// Close unsubscribes from session changes. The cached user is left in place.
func (m *Manager) Close() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// restore validates a persisted token and resolves its user. Any failure
// lands in the unauthenticated state; restoration never blocks sign-in.
func (m *Manager) restore(ctx context.Context) {
	accessToken, err := m.tokens.Load()
	if err != nil || accessToken == "" {
		m.setUnauthenticated()
		return
	}

	session, err := m.callCurrentSession(ctx, accessToken)
	if err != nil {
		m.logger.Printf("session restore failed: %v", err)
		m.clearToken()
		m.setUnauthenticated()
		return
	}
	if err := m.adoptSession(ctx, session); err != nil {
		m.logger.Printf("session restore failed: %v", err)
		m.clearToken()
		m.setUnauthenticated()
	}
}

// SignIn authenticates credentials and caches the resolved user.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*User, string, error) {
	if err := m.beginTransition(); err != nil {
		return nil, "", err
	}
	defer m.endTransition()

	session, err := m.callDirectory(ctx, func(ctx context.Context) (directory.AuthSession, error) {
		return m.directory.SignIn(ctx, email, password)
	})
	if err != nil {
		return nil, "", err
	}
	if err := m.adoptSession(ctx, session); err != nil {
		return nil, "", err
	}
	return m.CurrentUser(), session.AccessToken, nil
}

// SignUp registers a new account and caches the resolved user.
func (m *Manager) SignUp(ctx context.Context, input directory.SignUpInput) (*User, string, error) {
	if err := m.beginTransition(); err != nil {
		return nil, "", err
	}
	defer m.endTransition()

	session, err := m.callDirectory(ctx, func(ctx context.Context) (directory.AuthSession, error) {
		return m.directory.SignUp(ctx, input)
	})
	if err != nil {
		return nil, "", err
	}
	if err := m.adoptSession(ctx, session); err != nil {
		return nil, "", err
	}
	return m.CurrentUser(), session.AccessToken, nil
}

// SignOut revokes the current session and clears local state. Calling it
// while signed out is a no-op.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	accessToken := m.accessToken
	m.mu.Unlock()
	if accessToken == "" {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	err := m.directory.SignOut(callCtx, accessToken)
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrServiceUnavailable
	}
	if err != nil {
		return err
	}

	m.clearToken()
	m.setUnauthenticated()
	return nil
}

// UpdateUser merges set fields into the cached user. It is local-only and a
// no-op while signed out.
func (m *Manager) UpdateUser(update Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return
	}
	if update.Email != nil {
		m.user.Email = *update.Email
	}
	if update.Name != nil {
		m.user.Name = *update.Name
	}
}

// adoptSession resolves the session's user and swaps the cache and bound
// context. Context establishment runs for every newly resolved identity; a
// previous binding is never reused.
func (m *Manager) adoptSession(ctx context.Context, session directory.AuthSession) error {
	boundCtx, record, err := m.callBind(ctx, session.UserID)
	if err != nil {
		return err
	}
	if err := m.tokens.Save(session.AccessToken); err != nil {
		m.logger.Printf("persist access token: %v", err)
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	m.sessionID = session.SessionID
	m.accessToken = session.AccessToken
	// Rebase the tenant binding onto a fresh context so it outlives both
	// the caller's context and the call timeout.
	m.boundCtx = rebase(context.Background(), boundCtx)
	m.user = &User{
		ID:            record.UserID,
		Email:         record.Email,
		Name:          record.Name,
		CompanyID:     record.CompanyID,
		Role:          record.Role,
		EmailVerified: record.EmailVerified,
	}
	m.mu.Unlock()
	return nil
}

// handleSessionEvent reflects out-of-band session changes. The feed delivers
// events on a single goroutine in publish order.
func (m *Manager) handleSessionEvent(event sessionfeed.Event) {
	switch event.Type {
	case sessionfeed.SignedOut:
		m.mu.Lock()
		current := m.sessionID
		m.mu.Unlock()
		if current == "" || current != event.SessionID {
			return
		}
		m.clearToken()
		m.setUnauthenticated()
	case sessionfeed.SignedIn:
		m.mu.Lock()
		state := m.state
		m.mu.Unlock()
		if state != StateUnauthenticated {
			return
		}
		// Another surface signed in through the shared token store; pick
		// the session up if the token landed there.
		m.restoreOutOfBand(event)
	}
}

func (m *Manager) restoreOutOfBand(event sessionfeed.Event) {
	accessToken, err := m.tokens.Load()
	if err != nil || accessToken == "" {
		return
	}
	ctx := context.Background()
	session, err := m.callCurrentSession(ctx, accessToken)
	if err != nil || session.SessionID != event.SessionID {
		return
	}
	if err := m.adoptSession(ctx, session); err != nil {
		m.logger.Printf("out-of-band session adopt failed: %v", err)
	}
}

// beginTransition moves the manager into the loading state for an explicit
// sign-in or sign-up attempt. Only one attempt may run at a time.
func (m *Manager) beginTransition() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return ErrSignInInFlight
	}
	if m.state == StateUninitialized || m.state == StateLoading {
		return fmt.Errorf("manager is not started")
	}
	m.inFlight = true
	m.priorState = m.state
	m.state = StateLoading
	return nil
}

// endTransition clears the in-flight guard. An attempt that never reached
// the authenticated state failed; the manager falls back to the state it
// held before the attempt.
func (m *Manager) endTransition() {
	m.mu.Lock()
	if m.state == StateLoading {
		m.state = m.priorState
	}
	m.inFlight = false
	m.mu.Unlock()
}

func (m *Manager) setUnauthenticated() {
	m.mu.Lock()
	m.state = StateUnauthenticated
	m.user = nil
	m.sessionID = ""
	m.accessToken = ""
	m.boundCtx = context.Background()
	m.mu.Unlock()
}

func (m *Manager) clearToken() {
	if err := m.tokens.Clear(); err != nil {
		m.logger.Printf("clear access token: %v", err)
	}
}

// callDirectory runs one directory call under the call timeout, mapping
// deadline expiry to a service-unavailable error.
func (m *Manager) callDirectory(ctx context.Context, call func(context.Context) (directory.AuthSession, error)) (directory.AuthSession, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	session, err := call(callCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		return directory.AuthSession{}, ErrServiceUnavailable
	}
	return session, err
}

func (m *Manager) callCurrentSession(ctx context.Context, accessToken string) (directory.AuthSession, error) {
	return m.callDirectory(ctx, func(ctx context.Context) (directory.AuthSession, error) {
		return m.directory.CurrentSession(ctx, accessToken)
	})
}

func (m *Manager) callBind(ctx context.Context, userID string) (context.Context, profile.Profile, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	boundCtx, record, err := m.binder.Bind(callCtx, userID)
	if errors.Is(err, context.DeadlineExceeded) {
		return ctx, profile.Profile{}, ErrServiceUnavailable
	}
	if err != nil {
		return ctx, profile.Profile{}, err
	}
	return boundCtx, record, nil
}

// rebase copies the tenant pair from bound onto base.
func rebase(base, bound context.Context) context.Context {
	return requestctx.WithTenant(base,
		requestctx.CompanyIDFromContext(bound),
		requestctx.UserIDFromContext(bound))
}
