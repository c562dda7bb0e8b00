package m3aerrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := m3aerrors.NotFound("entity missing").WithContext("id", "abc")
	wrapped := fmt.Errorf("context: %w", err)

	if !m3aerrors.Is(wrapped, m3aerrors.KindNotFound) {
		t.Error("expected Is to find KindNotFound through fmt.Errorf wrapping")
	}
	if m3aerrors.Is(wrapped, m3aerrors.KindStorageFailure) {
		t.Error("expected Is to reject a mismatched kind")
	}
}

func TestIsRejectsPlainErrors(t *testing.T) {
	if m3aerrors.Is(errors.New("plain"), m3aerrors.KindNotFound) {
		t.Error("expected Is to reject a non-*Error value")
	}
}

func TestStorageFailureCarriesStatementContext(t *testing.T) {
	cause := errors.New("disk full")
	err := m3aerrors.StorageFailure("insertRiverEntry", cause)

	if err.Kind != m3aerrors.KindStorageFailure {
		t.Errorf("expected KindStorageFailure, got %v", err.Kind)
	}
	if err.Context["statement"] != "insertRiverEntry" {
		t.Errorf("expected statement context, got %+v", err.Context)
	}
	if !errors.Is(err, err) {
		t.Error("expected an *Error to equal itself under errors.Is")
	}
	if errors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return the original cause")
	}
}

func TestErrorStringIncludesCauseWhenPresent(t *testing.T) {
	withCause := m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "embed failed", errors.New("timeout"))
	if withCause.Error() == "" {
		t.Fatal("expected a non-empty error string")
	}

	withoutCause := m3aerrors.New(m3aerrors.KindNotFound, "missing")
	if withoutCause.Error() == "" {
		t.Fatal("expected a non-empty error string")
	}
}
