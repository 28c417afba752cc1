package sx

import (
	"errors"
	"testing"
)

func TestSxErrorFormat(t *testing.T) {
	err := newErr(KindUnknownProfile, "profile %q not found", "nope")
	got := err.Error()
	want := `sx: UnknownProfile: profile "nope" not found`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSxErrorIsSentinel(t *testing.T) {
	err := newErr(KindHardDenyViolation, "path in hard-deny set")
	if !errors.Is(err, ErrHardDenyViolation) {
		t.Fatal("expected errors.Is to match ErrHardDenyViolation")
	}
	if errors.Is(err, ErrConfigSchema) {
		t.Fatal("should not match an unrelated sentinel")
	}
}

func TestSxErrorWrapsCause(t *testing.T) {
	cause := errors.New("no such file")
	err := wrapErr(KindSpawnFailure, "sandbox-exec", cause)
	if !errors.Is(err, ErrSpawnFailure) {
		t.Fatal("expected errors.Is to match ErrSpawnFailure")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the wrapped cause")
	}
}
