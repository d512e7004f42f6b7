// Package errors tests for error code handling.
package errors

import (
	"errors"
	"fmt"
	"testing"
)

// TestAppErrorMessage verifies error formatting with and without a cause.
func TestAppErrorMessage(t *testing.T) {
	err := New(ErrNotFound, "item missing")
	want := "[NOT_FOUND] item missing"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := Wrap(ErrDatabase, "query failed", errors.New("disk full"))
	want = "[DATABASE_ERROR] query failed: disk full"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}

// TestIs verifies code matching through wrap chains.
func TestIs(t *testing.T) {
	base := New(ErrConstraint, "unique violation")
	wrapped := fmt.Errorf("push failed: %w", base)

	if !Is(wrapped, ErrConstraint) {
		t.Error("Is() should find the code through fmt.Errorf wrapping")
	}
	if Is(wrapped, ErrNotFound) {
		t.Error("Is() should not match a different code")
	}
	if Is(nil, ErrConstraint) {
		t.Error("Is(nil) should be false")
	}
	if Is(errors.New("plain"), ErrConstraint) {
		t.Error("Is() should be false for non-AppError chains")
	}
}

// TestIsNested verifies matching an inner AppError wrapped by another.
func TestIsNested(t *testing.T) {
	inner := New(ErrRemoteUnavailable, "connection refused")
	outer := Wrap(ErrSyncFailed, "sync aborted", inner)

	if !Is(outer, ErrSyncFailed) {
		t.Error("Is() should match the outer code")
	}
	if !Is(outer, ErrRemoteUnavailable) {
		t.Error("Is() should match the inner code")
	}
}

// TestCodeOf verifies code extraction.
func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(ErrSyncInProgress, "busy")); got != ErrSyncInProgress {
		t.Errorf("CodeOf() = %v, want ErrSyncInProgress", got)
	}
	if got := CodeOf(fmt.Errorf("wrap: %w", New(ErrNotFound, "gone"))); got != ErrNotFound {
		t.Errorf("CodeOf() = %v, want ErrNotFound", got)
	}
	if got := CodeOf(errors.New("plain")); got != ErrInternal {
		t.Errorf("CodeOf() = %v, want ErrInternal", got)
	}
}

// TestUnwrap verifies compatibility with the standard errors package.
func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ErrDatabase, "query failed", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}
