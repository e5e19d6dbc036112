// Package tenantctx binds authenticated users to their tenant context.
//
// Every authenticated request passes through here exactly once: the user's
// profile is resolved to a company, then the tenant pair is stamped onto the
// request context. Tenant-scoped storage refuses to run queries until that
// stamp is present, so a request that skips this package cannot read or
// write tenant data.
package tenantctx

import (
	"context"
	"errors"
	"fmt"
	"log"

	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
	"github.com/absentiahq/absentia/internal/platform/requestctx"
	"github.com/absentiahq/absentia/internal/services/directory/profile"
	"github.com/absentiahq/absentia/internal/services/directory/storage"
)

// ProfileResolver looks up the tenant profile for an authenticated user.
type ProfileResolver interface {
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
}

// Propagator resolves profiles and establishes tenant context for requests.
type Propagator struct {
	profiles ProfileResolver
	logger   *log.Logger
}

// New creates a Propagator backed by the given profile resolver.
func New(profiles ProfileResolver, logger *log.Logger) *Propagator {
	if logger == nil {
		logger = log.Default()
	}
	return &Propagator{profiles: profiles, logger: logger}
}

// ResolveProfile returns the profile for userID.
//
// A missing profile is reported as a profile-not-found condition rather than
// a generic lookup miss: an authenticated user without a profile is a
// provisioning gap the caller must surface, not retry.
func (p *Propagator) ResolveProfile(ctx context.Context, userID string) (profile.Profile, error) {
	if userID == "" {
		return profile.Profile{}, apperrors.New(apperrors.CodeProfileNotFound, "user id is empty")
	}
	record, err := p.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			p.logger.Printf("no profile for user %s", userID)
			return profile.Profile{}, apperrors.WithMetadata(
				apperrors.CodeProfileNotFound, "profile not found",
				map[string]string{"user_id": userID},
			)
		}
		return profile.Profile{}, fmt.Errorf("resolve profile: %w", err)
	}
	return record, nil
}

// EstablishContext stamps the tenant pair onto ctx.
//
// Both identifiers must be non-empty; establishing a partial context would
// let queries run against the wrong tenant scope.
func (p *Propagator) EstablishContext(ctx context.Context, companyID, userID string) (context.Context, error) {
	if companyID == "" || userID == "" {
		return ctx, apperrors.New(apperrors.CodeContextNotEstablished, "company and user identifiers are required")
	}
	return requestctx.WithTenant(ctx, companyID, userID), nil
}

// Bind resolves the user's profile and establishes tenant context in one
// step. This is the path request middleware uses.
func (p *Propagator) Bind(ctx context.Context, userID string) (context.Context, profile.Profile, error) {
	record, err := p.ResolveProfile(ctx, userID)
	if err != nil {
		return ctx, profile.Profile{}, err
	}
	bound, err := p.EstablishContext(ctx, record.CompanyID, record.UserID)
	if err != nil {
		return ctx, profile.Profile{}, err
	}
	return bound, record, nil
}

// Require reports whether ctx carries an established tenant context.
func Require(ctx context.Context) error {
	if requestctx.CompanyIDFromContext(ctx) == "" || requestctx.UserIDFromContext(ctx) == "" {
		return storage.ErrContextNotEstablished
	}
	return nil
}
