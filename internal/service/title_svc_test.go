package service

import (
	"testing"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
)

func slot(orientation string, w, h, d int, typeNames, restrictionNames []string) *model.RecordSlot {
	return &model.RecordSlot{
		RecordKey: model.RecordKey{
			Orientation: orientation,
			DoorWidth:   w,
			DoorHeight:  h,
			DoorDepth:   d,
		},
		TypeNames:        typeNames,
		RestrictionNames: restrictionNames,
	}
}

func TestRecordTitle(t *testing.T) {
	tests := []struct {
		name string
		slot *model.RecordSlot
		want string
	}{
		{
			"plain door",
			slot(model.OrientationDoor, 2, 2, 1, nil, nil),
			"Smallest 2x2 Door",
		},
		{
			"regular pattern omitted",
			slot(model.OrientationDoor, 2, 2, 1, []string{"Regular"}, nil),
			"Smallest 2x2 Door",
		},
		{
			"pattern and restriction",
			slot(model.OrientationTrapdoor, 2, 2, 1, []string{"Seamless"}, []string{"Obsless"}),
			"Smallest 2x2 Obsless Seamless Trapdoor",
		},
		{
			"depth rendered when above one",
			slot(model.OrientationDoor, 4, 4, 2, nil, nil),
			"Smallest 4x4x2 Door",
		},
		{
			"multiple restrictions in order",
			slot(model.OrientationSkydoor, 3, 3, 1, nil, []string{"Flush", "Obsless"}),
			"Smallest 3x3 Flush Obsless Skydoor",
		},
		{
			"component restrictions precede dimensions",
			func() *model.RecordSlot {
				s := slot(model.OrientationDoor, 2, 2, 1, nil, []string{"Flush"})
				s.ComponentNames = []string{"Pistonless"}
				return s
			}(),
			"Smallest Pistonless 2x2 Flush Door",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecordTitle(tt.slot); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
