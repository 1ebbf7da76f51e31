package model

import "testing"

func TestRecordKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  RecordKey
		want string
	}{
		{
			"full key",
			RecordKey{
				Orientation: OrientationDoor, DoorWidth: 2, DoorHeight: 2, DoorDepth: 1,
				TypeIDs: []int32{10, 11}, RestrictionSubset: []int32{1, 2},
			},
			"Door:2x2x1:t10,11:r1,2",
		},
		{
			"empty tag sets",
			RecordKey{Orientation: OrientationTrapdoor, DoorWidth: 4, DoorHeight: 4, DoorDepth: 2},
			"Trapdoor:4x4x2:t:r",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordKeyString_NilAndEmptyAgree(t *testing.T) {
	a := RecordKey{Orientation: OrientationDoor, DoorWidth: 2, DoorHeight: 2, DoorDepth: 1}
	b := a
	b.TypeIDs = []int32{}
	b.RestrictionSubset = []int32{}
	if a.String() != b.String() {
		t.Errorf("nil and empty encode differently: %q vs %q", a.String(), b.String())
	}
}
