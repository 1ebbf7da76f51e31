package service

import (
	"testing"
	"time"
)

// TestStaleLockCutoff pins the sweep predicate: only locks strictly older
// than staleLockAge are force-released, and unlocked builds are never
// touched.
func TestStaleLockCutoff(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		locked bool
		age    time.Duration
		want   bool
	}{
		{"fresh lock kept", true, time.Minute, false},
		{"lock at the boundary kept", true, staleLockAge, false},
		{"leaked lock released", true, 10 * time.Minute, true},
		{"unlocked build untouched", false, time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lockedAt := now.Add(-tt.age)
			got := tt.locked && lockedAt.Before(now.Add(-staleLockAge))
			if got != tt.want {
				t.Errorf("released = %v, want %v", got, tt.want)
			}
		})
	}
}
