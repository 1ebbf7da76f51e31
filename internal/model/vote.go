package model

import (
	"encoding/json"
	"time"
)

// Vote session statuses. A session only ever moves open -> closed.
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// Vote session results. Pending while open; set to exactly one of the
// terminal values as part of the open->closed transition.
const (
	ResultPending   = "pending"
	ResultApproved  = "approved"
	ResultRejected  = "rejected"
	ResultCancelled = "cancelled"
)

// Vote session kinds.
const (
	VoteKindBuild     = "build"
	VoteKindDeleteLog = "delete_log"
)

// VoteSession is one open decision: a weighted threshold vote on a
// proposed change.
type VoteSession struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Status        string    `json:"status"`
	Result        string    `json:"result"`
	AuthorID      int64     `json:"authorId"`
	Kind          string    `json:"kind"`
	PassThreshold int       `json:"passThreshold"`
	FailThreshold int       `json:"failThreshold"`

	// Exactly one of these is set, depending on Kind.
	Build     *BuildVoteSession     `json:"build,omitempty"`
	DeleteLog *DeleteLogVoteSession `json:"deleteLog,omitempty"`

	Emojis []SessionEmoji `json:"emojis,omitempty"`
}

// BuildVoteSession associates a build-change session with its target build
// and the pending change-set (a JSON array of [field, old, new] triples).
type BuildVoteSession struct {
	VoteSessionID int64           `json:"voteSessionId"`
	BuildID       int64           `json:"buildId"`
	Changes       json.RawMessage `json:"changes"`
}

// DeleteLogVoteSession associates a delete-log session with the Discord
// message it proposes to clean up. The message may already be gone; the
// session exists to vote on removing its remnants.
type DeleteLogVoteSession struct {
	VoteSessionID   int64 `json:"voteSessionId"`
	TargetMessageID int64 `json:"targetMessageId"`
	TargetChannelID int64 `json:"targetChannelId"`
	TargetServerID  int64 `json:"targetServerId"`
}

// SessionEmoji declares one valid ballot option for a session and the
// default weight multiplier suggested for it.
type SessionEmoji struct {
	VoteSessionID     int64   `json:"voteSessionId"`
	Emoji             string  `json:"emoji"`
	DefaultMultiplier float64 `json:"defaultMultiplier"`
}

// Vote is one (session, user) ballot. A user holds at most one vote per
// session; re-voting overwrites weight and emoji.
type Vote struct {
	VoteSessionID int64     `json:"voteSessionId"`
	UserID        int64     `json:"userId"`
	Weight        float64   `json:"weight"`
	Emoji         string    `json:"emoji"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ChangeEntry is one element of a build-change session's change-set.
// Serialized as a three-element JSON array: [field, old, new].
type ChangeEntry struct {
	Field string
	Old   json.RawMessage
	New   json.RawMessage
}

func (c ChangeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]json.RawMessage{mustRaw(c.Field), c.Old, c.New})
}

func (c *ChangeEntry) UnmarshalJSON(data []byte) error {
	var arr [3]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[0], &c.Field); err != nil {
		return err
	}
	c.Old = arr[1]
	c.New = arr[2]
	return nil
}

func mustRaw(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
