package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestErrorCodesAndStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", NewValidationError("bad input", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{"not found", NewNotFound("ticket", nil), "NOT_FOUND", http.StatusNotFound},
		{"unauthorized", NewUnauthorized("nope"), "UNAUTHORIZED", http.StatusUnauthorized},
		{"forbidden", NewForbidden("nope"), "FORBIDDEN", http.StatusForbidden},
		{"conflict", NewConflict("already", nil), "CONFLICT", http.StatusConflict},
		{"internal", NewInternalError(errors.New("boom")), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			if de.Code != tc.code {
				t.Fatalf("code = %s, want %s", de.Code, tc.code)
			}
			if de.HTTPStatus != tc.status {
				t.Fatalf("status = %d, want %d", de.HTTPStatus, tc.status)
			}
		})
	}
}

func TestToDomainErrorMapsNoRowsToNotFound(t *testing.T) {
	de := ToDomainError(fmt.Errorf("query: %w", pgx.ErrNoRows))
	if de.Code != "NOT_FOUND" {
		t.Fatalf("code = %s, want NOT_FOUND", de.Code)
	}
}

func TestToDomainErrorWrapsUnknownAsInternal(t *testing.T) {
	cause := errors.New("connection reset")
	de := ToDomainError(cause)
	if de.Code != "INTERNAL_ERROR" {
		t.Fatalf("code = %s, want INTERNAL_ERROR", de.Code)
	}
	if !errors.Is(de, cause) {
		t.Fatal("wrapped cause lost")
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewConflict("locked", nil))
	if !IsConflict(wrapped) {
		t.Fatal("IsConflict must unwrap")
	}
	if IsValidation(wrapped) {
		t.Fatal("IsValidation false positive")
	}
}

func TestMapErrorNilStaysNil(t *testing.T) {
	if err := MapError(nil); err != nil {
		t.Fatalf("MapError(nil) = %v, want nil", err)
	}
}
