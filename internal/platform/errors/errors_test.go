package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	base := New(CodeProfileNotFound, "profile row missing")
	other := New(CodeProfileNotFound, "different message")
	if !errors.Is(base, other) {
		t.Fatal("expected errors with the same code to match")
	}
	mismatch := New(CodeNotFound, "record missing")
	if errors.Is(base, mismatch) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(CodeServiceUnavailable, "directory unreachable", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestGetCode(t *testing.T) {
	err := Wrap(CodeAuthInvalidCredentials, "bad password", fmt.Errorf("bcrypt mismatch"))
	wrapped := fmt.Errorf("sign in: %w", err)
	if got := GetCode(wrapped); got != CodeAuthInvalidCredentials {
		t.Fatalf("expected code %s, got %s", CodeAuthInvalidCredentials, got)
	}
	if got := GetCode(fmt.Errorf("plain")); got != CodeUnknown {
		t.Fatalf("expected %s for plain error, got %s", CodeUnknown, got)
	}
	if got := GetCode(nil); got != CodeUnknown {
		t.Fatalf("expected %s for nil error, got %s", CodeUnknown, got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeAuthInvalidCredentials, http.StatusUnauthorized},
		{CodeProfileNotFound, http.StatusNotFound},
		{CodeContextNotEstablished, http.StatusForbidden},
		{CodeAuthEmailInUse, http.StatusConflict},
		{CodeServiceUnavailable, http.StatusServiceUnavailable},
		{CodeAbsenceInvalidRange, http.StatusBadRequest},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.code, tc.want, got)
		}
	}
}
