package model

import (
	"encoding/json"
	"time"
)

// Event types.
const (
	EventVoteSessionClosed = "vote_session_closed"
)

// Aggregate type tags.
const (
	AggregateVoteSession = "vote_session"
)

// Event is one immutable outbox row: a domain event awaiting at-least-once
// pickup by the bot process. processed_at marks completion.
type Event struct {
	ID          int64           `json:"id"`
	Aggregate   string          `json:"aggregate"`
	AggregateID int64           `json:"aggregateId"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"createdAt"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
}

// VoteSessionClosedPayload is the payload of a vote_session_closed event.
type VoteSessionClosedPayload struct {
	Result   string    `json:"result"`
	ClosedAt time.Time `json:"closed_at"`
}
