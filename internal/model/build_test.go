package model

import "testing"

func intp(n int) *int { return &n }

func TestBuildVolume(t *testing.T) {
	b := Build{Width: intp(3), Height: intp(4), Depth: intp(2)}
	if v, ok := b.Volume(); !ok || v != 24 {
		t.Errorf("Volume() = %d, %v; want 24, true", v, ok)
	}

	b.Depth = nil
	if _, ok := b.Volume(); ok {
		t.Error("Volume() should report unset dimensions")
	}
}

func TestDoorEffectiveDepth(t *testing.T) {
	d := Door{}
	if got := d.EffectiveDepth(); got != 1 {
		t.Errorf("unset depth = %d, want 1", got)
	}
	d.DoorDepth = intp(3)
	if got := d.EffectiveDepth(); got != 3 {
		t.Errorf("set depth = %d, want 3", got)
	}
}

func TestStatusString(t *testing.T) {
	for status, want := range map[Status]string{
		StatusPending:   "pending",
		StatusConfirmed: "confirmed",
		StatusDenied:    "denied",
		Status(9):       "unknown",
	} {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
