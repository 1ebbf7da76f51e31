package model

import (
	"fmt"
	"strings"
)

// RecordKey identifies a single "smallest door" leaderboard slot.
//
// TypeIDs is the exact type-set of the record holder; RestrictionSubset is
// one subset of the holder's restriction tags. Both are sorted ascending —
// the sorted form is the canonical identity of the slot.
type RecordKey struct {
	Orientation       string  `json:"orientation"`
	DoorWidth         int     `json:"doorWidth"`
	DoorHeight        int     `json:"doorHeight"`
	DoorDepth         int     `json:"doorDepth"`
	TypeIDs           []int32 `json:"typeIds"`
	RestrictionSubset []int32 `json:"restrictionSubset"`
}

// String returns the canonical encoding of the key, used for map grouping
// and as the Redis cache key. Sorted id order makes it stable.
func (k RecordKey) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%dx%dx%d:t", k.Orientation, k.DoorWidth, k.DoorHeight, k.DoorDepth)
	for i, id := range k.TypeIDs {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", id)
	}
	sb.WriteString(":r")
	for i, id := range k.RestrictionSubset {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", id)
	}
	return sb.String()
}

// RecordSlot is one derived leaderboard row: the smallest accepted build
// for its key.
type RecordSlot struct {
	RecordKey
	BuildID int64   `json:"buildId"`
	Volume  int     `json:"volume"`
	Title   *string `json:"title,omitempty"`

	// Denormalized names, populated on lookups. Component restriction
	// names are carried separately because titles place them before the
	// dimensions while wiring-placement names come after.
	TypeNames        []string `json:"typeNames,omitempty"`
	RestrictionNames []string `json:"restrictionNames,omitempty"`
	ComponentNames   []string `json:"componentNames,omitempty"`
}

// DoorCandidate is a flattened view of an accepted Door build as seen by
// the record index engine: its slot-key attributes plus its full
// restriction set and volume.
type DoorCandidate struct {
	BuildID        int64
	Volume         int
	Orientation    string
	DoorWidth      int
	DoorHeight     int
	DoorDepth      int
	TypeIDs        []int32 // sorted
	RestrictionIDs []int32 // sorted, full set
}
