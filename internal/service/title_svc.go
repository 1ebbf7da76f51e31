package service

import (
	"fmt"
	"strings"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
)

// RecordTitle renders the display title for a record slot, for example
// "Smallest 2x2 Seamless Trapdoor". The word order is fixed: record
// category, component restrictions, door dimensions, wiring-placement
// restrictions, door patterns, orientation. The "Regular" pattern is
// implied and never rendered, and the depth is dropped when it is 1.
func RecordTitle(s *model.RecordSlot) string {
	var b strings.Builder
	b.WriteString("Smallest ")

	for _, name := range s.ComponentNames {
		b.WriteString(name)
		b.WriteByte(' ')
	}

	switch {
	case s.DoorDepth > 1:
		fmt.Fprintf(&b, "%dx%dx%d ", s.DoorWidth, s.DoorHeight, s.DoorDepth)
	default:
		fmt.Fprintf(&b, "%dx%d ", s.DoorWidth, s.DoorHeight)
	}

	for _, name := range s.RestrictionNames {
		b.WriteString(name)
		b.WriteByte(' ')
	}

	for _, name := range s.TypeNames {
		if name == "Regular" {
			continue
		}
		b.WriteString(name)
		b.WriteByte(' ')
	}

	b.WriteString(s.Orientation)
	return b.String()
}
