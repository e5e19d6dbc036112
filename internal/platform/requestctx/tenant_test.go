package requestctx

import (
	"context"
	"testing"
)

func TestWithTenantRoundTrip(t *testing.T) {
	ctx := WithTenant(context.Background(), "company-1", "user-1")
	if got := CompanyIDFromContext(ctx); got != "company-1" {
		t.Fatalf("expected company-1, got %q", got)
	}
	if got := UserIDFromContext(ctx); got != "user-1" {
		t.Fatalf("expected user-1, got %q", got)
	}
}

func TestWithTenantNilContext(t *testing.T) {
	ctx := WithTenant(nil, "company-1", "user-1")
	if got := CompanyIDFromContext(ctx); got != "company-1" {
		t.Fatalf("expected company-1, got %q", got)
	}
}

func TestEmptyContextReturnsEmptyValues(t *testing.T) {
	if got := CompanyIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty company id, got %q", got)
	}
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty user id, got %q", got)
	}
	if got := CompanyIDFromContext(nil); got != "" {
		t.Fatalf("expected empty company id for nil context, got %q", got)
	}
}

func TestWithTenantOverwritesPriorValues(t *testing.T) {
	ctx := WithTenant(context.Background(), "company-1", "user-1")
	ctx = WithTenant(ctx, "company-2", "user-2")
	if got := CompanyIDFromContext(ctx); got != "company-2" {
		t.Fatalf("expected company-2, got %q", got)
	}
	if got := UserIDFromContext(ctx); got != "user-2" {
		t.Fatalf("expected user-2, got %q", got)
	}
}
