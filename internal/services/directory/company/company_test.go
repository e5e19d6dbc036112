package company

import (
	"errors"
	"testing"
	"time"
)

func TestCreateTrimsName(t *testing.T) {
	created, err := Create(CreateInput{Name: "  Acme Corp  "}, nil, func() (string, error) { return "company-1", nil })
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	if created.Name != "Acme Corp" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.ID != "company-1" {
		t.Fatalf("expected generated id, got %q", created.ID)
	}
}

func TestCreateRejectsEmptyName(t *testing.T) {
	_, err := Create(CreateInput{Name: "   "}, nil, nil)
	if !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestCreateSetsUTCTimestamps(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	created, err := Create(CreateInput{Name: "Acme"}, func() time.Time { return fixed }, func() (string, error) { return "company-1", nil })
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	if created.CreatedAt.Location() != time.UTC {
		t.Fatal("expected UTC created timestamp")
	}
	if !created.CreatedAt.Equal(fixed) {
		t.Fatalf("expected %v, got %v", fixed, created.CreatedAt)
	}
	if !created.UpdatedAt.Equal(created.CreatedAt) {
		t.Fatal("expected updated to equal created")
	}
}

func TestCreateDefaultsGenerators(t *testing.T) {
	created, err := Create(CreateInput{Name: "Acme"}, nil, nil)
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected non-empty generated id")
	}
}
