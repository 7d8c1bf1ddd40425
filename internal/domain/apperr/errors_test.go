package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesCode(t *testing.T) {
	full := New(KindCapacityExceeded, "session_full", "session is full")
	other := New(KindCapacityExceeded, "other_full", "other")

	wrapped := fmt.Errorf("join: %w", full)
	if !errors.Is(wrapped, full) {
		t.Fatalf("expected wrapped error to match sentinel")
	}
	if errors.Is(wrapped, other) {
		t.Fatalf("expected different code not to match")
	}
	if !errors.Is(wrapped, CapacityExceeded) {
		t.Fatalf("expected kind target to match")
	}
	if errors.Is(wrapped, NotFound) {
		t.Fatalf("expected other kind not to match")
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(KindNotFound, "campaign_not_found", "campaign not found"))
	if got := KindOf(err); got != KindNotFound {
		t.Fatalf("expected not_found, got %q", got)
	}
	if got := CodeOf(err); got != "campaign_not_found" {
		t.Fatalf("expected campaign_not_found, got %q", got)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Fatalf("expected unknown kind, got %q", got)
	}
}

func TestWithMessageKeepsIdentity(t *testing.T) {
	base := New(KindInvalidState, "session_terminal", "session is terminal")
	derived := base.WithMessage("session %s is %s", "s-1", "FINISHED")
	if !errors.Is(derived, base) {
		t.Fatalf("expected derived error to match base")
	}
	if derived.Error() != "session s-1 is FINISHED" {
		t.Fatalf("unexpected message %q", derived.Error())
	}
}
