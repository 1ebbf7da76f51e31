package service

import (
	"testing"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
	"github.com/redstone-squid/Redstone-Squid/internal/repository"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		net  float64
		want string
	}{
		{"well above pass", 7, model.ResultApproved},
		{"exactly at pass", 3, model.ResultApproved},
		{"just under pass", 2.5, model.ResultPending},
		{"zero", 0, model.ResultPending},
		{"just above fail", -2.5, model.ResultPending},
		{"exactly at fail", -3, model.ResultRejected},
		{"well below fail", -9, model.ResultRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.net, DefaultPassThreshold, DefaultFailThreshold)
			if got != tt.want {
				t.Errorf("Decide(%v) = %q, want %q", tt.net, got, tt.want)
			}
		})
	}
}

func TestDecide_CustomThresholds(t *testing.T) {
	if got := Decide(5, 6, -2); got != model.ResultPending {
		t.Errorf("net 5 with pass 6 should stay pending, got %q", got)
	}
	if got := Decide(-2, 6, -2); got != model.ResultRejected {
		t.Errorf("net -2 with fail -2 should reject, got %q", got)
	}
}

func buildSessionParams() repository.OpenSessionParams {
	return repository.OpenSessionParams{
		AuthorID:      1,
		Kind:          model.VoteKindBuild,
		PassThreshold: DefaultPassThreshold,
		FailThreshold: DefaultFailThreshold,
		Emojis:        DefaultEmojis,
		BuildID:       42,
	}
}

func TestValidateOpen(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*repository.OpenSessionParams)
		wantErr bool
	}{
		{"valid build session", func(p *repository.OpenSessionParams) {}, false},
		{"valid delete-log session", func(p *repository.OpenSessionParams) {
			p.Kind = model.VoteKindDeleteLog
			p.BuildID = 0
			p.DeleteLog = &model.DeleteLogVoteSession{TargetMessageID: 1, TargetChannelID: 2, TargetServerID: 3}
		}, false},
		{"zero pass threshold", func(p *repository.OpenSessionParams) { p.PassThreshold = 0 }, true},
		{"positive fail threshold", func(p *repository.OpenSessionParams) { p.FailThreshold = 1 }, true},
		{"build session without build", func(p *repository.OpenSessionParams) { p.BuildID = 0 }, true},
		{"build session with delete-log target", func(p *repository.OpenSessionParams) {
			p.DeleteLog = &model.DeleteLogVoteSession{}
		}, true},
		{"delete-log session without target", func(p *repository.OpenSessionParams) {
			p.Kind = model.VoteKindDeleteLog
			p.BuildID = 0
		}, true},
		{"unknown kind", func(p *repository.OpenSessionParams) { p.Kind = "referendum" }, true},
		{"no emoji options", func(p *repository.OpenSessionParams) { p.Emojis = nil }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := buildSessionParams()
			tt.mutate(&p)
			err := validateOpen(p)
			if tt.wantErr && err == nil {
				t.Error("expected error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDefaultEmojis(t *testing.T) {
	var approve, deny int
	for _, e := range DefaultEmojis {
		switch {
		case e.DefaultMultiplier > 0:
			approve++
		case e.DefaultMultiplier < 0:
			deny++
		default:
			t.Errorf("emoji %s has zero multiplier", e.Emoji)
		}
	}
	if approve != 2 || deny != 2 {
		t.Errorf("got %d approve / %d deny options, want 2/2", approve, deny)
	}
}

// sessionState mirrors the SQL guards the session tables enforce: the
// conditional lock acquisition on open, the (session, user) vote upsert,
// and the open -> closed transition that appends exactly one outbox row.
type sessionState struct {
	buildLocked bool
	status      string
	votes       map[int64]float64 // by user id, last write wins
	events      []string          // outbox rows, by result
}

func newSessionState() *sessionState {
	return &sessionState{status: model.SessionOpen, votes: map[int64]float64{}}
}

// tryLock models UPDATE builds ... WHERE id = $1 AND NOT is_locked.
func (s *sessionState) tryLock() bool {
	if s.buildLocked {
		return false
	}
	s.buildLocked = true
	return true
}

// cast models the ON CONFLICT (vote_session_id, user_id) DO UPDATE upsert.
func (s *sessionState) cast(userID int64, weight float64) {
	s.votes[userID] = weight
}

func (s *sessionState) net() float64 {
	var sum float64
	for _, w := range s.votes {
		sum += w
	}
	return sum
}

// close models UPDATE vote_sessions SET status = 'closed' ... WHERE status
// = 'open'; only the transition unlocks the build and fires the outbox.
func (s *sessionState) close(result string) bool {
	if s.status != model.SessionOpen {
		return false
	}
	s.status = model.SessionClosed
	s.buildLocked = false
	s.events = append(s.events, result)
	return true
}

func TestSessionLock_SecondOpenRejected(t *testing.T) {
	state := newSessionState()

	if !state.tryLock() {
		t.Fatal("first open should acquire the build lock")
	}
	if state.tryLock() {
		t.Error("second open on a locked build should fail, not silently proceed")
	}

	// The losing open must not have taken the lock over, so the first
	// session's close still releases it.
	if !state.close(model.ResultApproved) {
		t.Fatal("first session should close")
	}
	if state.buildLocked {
		t.Error("build should be unlocked after the holding session closes")
	}
}

func TestCastVote_LastVoteWins(t *testing.T) {
	state := newSessionState()

	state.cast(7, 1)
	state.cast(7, -3)
	state.cast(8, 1)

	if len(state.votes) != 2 {
		t.Fatalf("got %d vote rows, want 2 (one per user)", len(state.votes))
	}
	if got := state.votes[7]; got != -3 {
		t.Errorf("user 7: got weight %v, want the later cast -3", got)
	}
	if got := state.net(); got != -2 {
		t.Errorf("net: got %v, want -2", got)
	}
}

func TestCloseSession_FiresOutboxOnce(t *testing.T) {
	state := newSessionState()

	if !state.close(model.ResultApproved) {
		t.Fatal("first close should transition the session")
	}
	if state.close(model.ResultApproved) {
		t.Error("second close should be a no-op")
	}
	if state.close(model.ResultRejected) {
		t.Error("close with a different result should still be a no-op")
	}

	if len(state.events) != 1 {
		t.Fatalf("got %d outbox rows, want exactly 1", len(state.events))
	}
	if state.events[0] != model.ResultApproved {
		t.Errorf("outbox result: got %q, want %q", state.events[0], model.ResultApproved)
	}
}
