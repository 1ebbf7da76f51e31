package model

import "time"

// Type is a shape/pattern tag for a build (e.g. "Regular", "Cave", "Funnel").
type Type struct {
	ID            int32  `json:"id"`
	BuildCategory string `json:"buildCategory"`
	Name          string `json:"name"`
}

// Restriction sub-kinds.
const (
	RestrictionWiringPlacement = "wiring-placement"
	RestrictionComponent       = "component"
	RestrictionMiscellaneous   = "miscellaneous"
)

// Restriction is a build-constraint tag (e.g. "Seamless", "Obsless").
type Restriction struct {
	ID            int32  `json:"id"`
	BuildCategory string `json:"buildCategory"`
	Name          string `json:"name"`
	Kind          string `json:"type"`
}

// RestrictionAlias maps an alternate surface string to a restriction.
type RestrictionAlias struct {
	RestrictionID int32     `json:"restrictionId"`
	Alias         string    `json:"alias"`
	CreatedAt     time.Time `json:"createdAt"`
}
