package seed

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/absentiahq/absentia/internal/platform/requestctx"
	"github.com/absentiahq/absentia/internal/services/directory/storage/sqlite"
)

func TestRunSeedsDemoData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	cfg := Config{
		DBPath:      dbPath,
		TokenSecret: "test-secret",
		Email:       "owner@demo.test",
		Password:    "demo-password",
		CompanyName: "Demo Company",
	}

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	identity, err := store.GetIdentityByEmail(ctx, cfg.Email)
	if err != nil {
		t.Fatalf("expected seeded identity: %v", err)
	}
	record, err := store.GetProfile(ctx, identity.ID)
	if err != nil {
		t.Fatalf("expected seeded profile: %v", err)
	}

	tenantCtx := requestctx.WithTenant(ctx, record.CompanyID, record.UserID)
	page, err := store.ListEmployees(tenantCtx, 50, "")
	if err != nil {
		t.Fatalf("list employees: %v", err)
	}
	if len(page.Employees) != len(demoRoster) {
		t.Fatalf("expected %d employees, got %d", len(demoRoster), len(page.Employees))
	}
	stats, err := store.CompanyAbsenceStats(tenantCtx, nil)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.AbsenceCount == 0 || stats.TotalDays == 0 {
		t.Fatalf("expected seeded absences, got %+v", stats)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	cfg := Config{
		DBPath:      dbPath,
		TokenSecret: "test-secret",
		Email:       "owner@demo.test",
		Password:    "demo-password",
		CompanyName: "Demo Company",
	}

	if err := Run(context.Background(), cfg, nil); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if !strings.Contains(out.String(), "already present") {
		t.Fatalf("expected already-present notice, got:\n%s", out.String())
	}
}
