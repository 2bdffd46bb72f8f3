package errkind

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", New(PlanInvalid, "bad plan"), PlanInvalid},
		{"wrapped", fmt.Errorf("outer: %w", New(SelectorMisuse, "both")), SelectorMisuse},
		{"plain", errors.New("boom"), Internal},
		{"wrap helper", Wrap(RollbackWriteFailed, errors.New("disk full"), "writing manifest"), RollbackWriteFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("ctx: %w", New(WorkingTreeDirty, "dirty"))
	if !errors.Is(err, &Error{Kind: WorkingTreeDirty}) {
		t.Error("errors.Is should match on kind")
	}
	if errors.Is(err, &Error{Kind: PlanInvalid}) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(Internal, nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestLine(t *testing.T) {
	err := Wrap(RollbackWriteFailed, errors.New("disk full"), "writing manifest")
	want := "harness: RollbackWriteFailed: writing manifest: disk full"
	if got := Line(err); got != want {
		t.Errorf("Line = %q, want %q", got, want)
	}
	if ExitCode(err) != ExitRuntime {
		t.Errorf("ExitCode = %d", ExitCode(err))
	}
	if ExitCode(nil) != ExitOK {
		t.Error("nil should map to ExitOK")
	}
}
