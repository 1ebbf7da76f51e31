package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
	"github.com/redstone-squid/Redstone-Squid/internal/repository"
)

var (
	ErrBadThresholds   = errors.New("pass threshold must be positive and fail threshold negative")
	ErrKindTargetMixup = errors.New("session kind and target reference do not match")
)

// Default ballot options: thumbs/checks approve, thumbs-down/crosses deny.
var DefaultEmojis = []model.SessionEmoji{
	{Emoji: "👍", DefaultMultiplier: 1},
	{Emoji: "✅", DefaultMultiplier: 1},
	{Emoji: "👎", DefaultMultiplier: -1},
	{Emoji: "❌", DefaultMultiplier: -1},
}

const (
	DefaultPassThreshold = 3
	DefaultFailThreshold = -3
)

// VoteService runs the weighted threshold voting lifecycle: open, cast,
// tally, close. Tally is a pure read; closing is a separate explicit action
// so callers can layer extra policy (timeouts, quorum) before committing.
type VoteService struct {
	repo         *repository.VoteRepo
	eventChannel string

	// OnVoteCast and OnSessionClosed, when set, fire after the respective
	// commit. They feed Prometheus counters without a package cycle.
	OnVoteCast      func(kind string)
	OnSessionClosed func(result string)
}

func NewVoteService(repo *repository.VoteRepo, eventChannel string) *VoteService {
	return &VoteService{repo: repo, eventChannel: eventChannel}
}

// Decide maps a net weight onto the threshold band: approved at or above
// pass, rejected at or below fail, pending strictly inside the band.
func Decide(net float64, passThreshold, failThreshold int) string {
	if net >= float64(passThreshold) {
		return model.ResultApproved
	}
	if net <= float64(failThreshold) {
		return model.ResultRejected
	}
	return model.ResultPending
}

// validateOpen enforces the session creation invariants up front, so a
// misconfigured session fails at creation rather than at tally time.
func validateOpen(p repository.OpenSessionParams) error {
	if p.PassThreshold <= 0 || p.FailThreshold >= 0 {
		return ErrBadThresholds
	}
	switch p.Kind {
	case model.VoteKindBuild:
		if p.BuildID == 0 || p.DeleteLog != nil {
			return ErrKindTargetMixup
		}
	case model.VoteKindDeleteLog:
		if p.DeleteLog == nil || p.BuildID != 0 {
			return ErrKindTargetMixup
		}
	default:
		return fmt.Errorf("unknown vote session kind: %s", p.Kind)
	}
	if len(p.Emojis) == 0 {
		return errors.New("a vote session needs at least one emoji option")
	}
	return nil
}

// Open creates a session with its emoji options and, for build-change
// sessions, locks the target build until the session resolves.
func (s *VoteService) Open(ctx context.Context, p repository.OpenSessionParams) (int64, error) {
	if err := validateOpen(p); err != nil {
		return 0, err
	}
	return s.repo.CreateSession(ctx, p)
}

// CastVote upserts the user's ballot; the last vote wins. Weight sign and
// magnitude are the caller's: derive them from roles via WeightService and
// the session's emoji multiplier.
func (s *VoteService) CastVote(ctx context.Context, sessionID, userID int64, emoji string, weight float64) error {
	kind, err := s.repo.UpsertVote(ctx, sessionID, userID, emoji, weight)
	if err != nil {
		return err
	}
	if s.OnVoteCast != nil {
		s.OnVoteCast(kind)
	}
	return nil
}

// RetractVote removes the user's ballot from an open session.
func (s *VoteService) RetractVote(ctx context.Context, sessionID, userID int64) error {
	return s.repo.DeleteVote(ctx, sessionID, userID)
}

// EmojiMultiplier exposes a session's declared multiplier for an emoji.
func (s *VoteService) EmojiMultiplier(ctx context.Context, sessionID int64, emoji string) (float64, error) {
	return s.repo.EmojiMultiplier(ctx, sessionID, emoji)
}

// Tally returns the session's net weight and the recommendation it implies.
// It never mutates: closing on a recommendation is the caller's call.
func (s *VoteService) Tally(ctx context.Context, sessionID int64) (net float64, recommendation string, err error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return 0, "", err
	}
	net, err = s.repo.NetWeight(ctx, sessionID)
	if err != nil {
		return 0, "", err
	}
	return net, Decide(net, session.PassThreshold, session.FailThreshold), nil
}

// Close transitions the session open -> closed with the given terminal
// result, unlocking the target build and emitting exactly one outbox event.
// Closing an already-closed session is a no-op (returns false).
func (s *VoteService) Close(ctx context.Context, sessionID int64, result string) (bool, error) {
	switch result {
	case model.ResultApproved, model.ResultRejected, model.ResultCancelled:
	default:
		return false, fmt.Errorf("invalid terminal result: %s", result)
	}
	closed, err := s.repo.CloseSession(ctx, sessionID, result, s.eventChannel)
	if closed && s.OnSessionClosed != nil {
		s.OnSessionClosed(result)
	}
	return closed, err
}

// CloseIfDecided tallies and, when the net weight has crossed a threshold,
// closes with the implied result. Returns the result actually applied, or
// empty when the session stays open.
func (s *VoteService) CloseIfDecided(ctx context.Context, sessionID int64) (string, error) {
	_, recommendation, err := s.Tally(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if recommendation == model.ResultPending {
		return "", nil
	}
	closed, err := s.Close(ctx, sessionID, recommendation)
	if err != nil {
		return "", err
	}
	if !closed {
		return "", nil
	}
	return recommendation, nil
}

// Session loads a session with its associations.
func (s *VoteService) Session(ctx context.Context, sessionID int64) (*model.VoteSession, error) {
	return s.repo.GetSession(ctx, sessionID)
}

// OpenSessions lists all open session ids, oldest first.
func (s *VoteService) OpenSessions(ctx context.Context) ([]int64, error) {
	return s.repo.OpenSessionIDs(ctx)
}
