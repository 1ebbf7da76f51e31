package model

import (
	"encoding/json"
	"time"
)

// Status is the submission lifecycle status of a build.
type Status int16

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusDenied
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Build categories. Only Door carries extra attributes today; the others
// exist so new categories can be added without schema surgery.
const (
	CategoryDoor     = "Door"
	CategoryExtender = "Extender"
	CategoryUtility  = "Utility"
	CategoryEntrance = "Entrance"
)

// Build represents a submitted contraption.
type Build struct {
	ID               int64                      `json:"id"`
	Category         string                     `json:"category"`
	SubmissionStatus Status                     `json:"submissionStatus"`
	Width            *int                       `json:"width,omitempty"`
	Height           *int                       `json:"height,omitempty"`
	Depth            *int                       `json:"depth,omitempty"`
	SubmitterID      int64                      `json:"submitterId"`
	ExtraInfo        map[string]json.RawMessage `json:"extraInfo,omitempty"`
	IsLocked         bool                       `json:"isLocked"`
	LockedAt         *time.Time                 `json:"lockedAt,omitempty"`
	SubmissionTime   time.Time                  `json:"submissionTime"`
	EditedTime       time.Time                  `json:"editedTime"`

	// Populated on joined reads.
	Door           *Door   `json:"door,omitempty"`
	TypeIDs        []int32 `json:"typeIds,omitempty"`
	RestrictionIDs []int32 `json:"restrictionIds,omitempty"`
}

// Volume returns width*height*depth, or false if any dimension is unset.
func (b *Build) Volume() (int, bool) {
	if b.Width == nil || b.Height == nil || b.Depth == nil {
		return 0, false
	}
	return *b.Width * *b.Height * *b.Depth, true
}

// Door orientations.
const (
	OrientationDoor     = "Door"
	OrientationSkydoor  = "Skydoor"
	OrientationTrapdoor = "Trapdoor"
)

// Door is the 1:1 extension of a Build with category Door.
type Door struct {
	BuildID     int64  `json:"buildId"`
	Orientation string `json:"orientation"`
	DoorWidth   *int   `json:"doorWidth,omitempty"`
	DoorHeight  *int   `json:"doorHeight,omitempty"`
	DoorDepth   *int   `json:"doorDepth,omitempty"`

	// Timings in game ticks, measured two ways (with and without
	// counting visual-only movement). All optional.
	NormalOpeningTime  *int `json:"normalOpeningTime,omitempty"`
	NormalClosingTime  *int `json:"normalClosingTime,omitempty"`
	VisibleOpeningTime *int `json:"visibleOpeningTime,omitempty"`
	VisibleClosingTime *int `json:"visibleClosingTime,omitempty"`
}

// EffectiveDepth returns the door depth, defaulting to 1 when unset.
func (d *Door) EffectiveDepth() int {
	if d.DoorDepth == nil {
		return 1
	}
	return *d.DoorDepth
}

// User represents a submitter or voter.
type User struct {
	ID        int64     `json:"id"`
	DiscordID *int64    `json:"discordId,omitempty"`
	IGN       string    `json:"ign"`
	CreatedAt time.Time `json:"createdAt"`
}
