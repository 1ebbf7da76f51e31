package service

import (
	"math/rand"
	"reflect"
	"slices"
	"testing"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
)

func cand(id int64, volume int, types, restrictions []int32) model.DoorCandidate {
	return model.DoorCandidate{
		BuildID:        id,
		Volume:         volume,
		Orientation:    model.OrientationDoor,
		DoorWidth:      2,
		DoorHeight:     2,
		DoorDepth:      1,
		TypeIDs:        types,
		RestrictionIDs: restrictions,
	}
}

func findSlot(slots []model.RecordSlot, subset []int32) *model.RecordSlot {
	for i := range slots {
		if reflect.DeepEqual(emptySlice(slots[i].RestrictionSubset), emptySlice(subset)) {
			return &slots[i]
		}
	}
	return nil
}

func emptySlice(ids []int32) []int32 {
	if ids == nil {
		return []int32{}
	}
	return ids
}

func TestRestrictionSubsets_EnumeratesAll(t *testing.T) {
	subsets := restrictionSubsets([]int32{1, 2, 3}, DefaultSubsetBound)
	if len(subsets) != 8 {
		t.Fatalf("got %d subsets, want 8", len(subsets))
	}

	// Empty set always included
	hasEmpty := false
	for _, s := range subsets {
		if len(s) == 0 {
			hasEmpty = true
		}
	}
	if !hasEmpty {
		t.Error("empty subset missing")
	}

	// Each subset preserves sorted order
	for _, s := range subsets {
		if !slices.IsSorted(s) {
			t.Errorf("subset %v not sorted", s)
		}
	}
}

func TestRestrictionSubsets_BoundCapsSize(t *testing.T) {
	subsets := restrictionSubsets([]int32{1, 2, 3, 4}, 2)
	// C(4,0) + C(4,1) + C(4,2) = 1 + 4 + 6
	if len(subsets) != 11 {
		t.Fatalf("got %d subsets, want 11", len(subsets))
	}
	for _, s := range subsets {
		if len(s) > 2 {
			t.Errorf("subset %v exceeds bound", s)
		}
	}
}

func TestRestrictionSubsets_NoRestrictions(t *testing.T) {
	subsets := restrictionSubsets(nil, DefaultSubsetBound)
	if len(subsets) != 1 || len(subsets[0]) != 0 {
		t.Fatalf("got %v, want just the empty subset", subsets)
	}
}

func TestBeats(t *testing.T) {
	tests := []struct {
		name       string
		aVol, bVol int
		aID, bID   int64
		want       bool
	}{
		{"smaller volume wins", 80, 100, 9, 1, true},
		{"larger volume loses", 100, 80, 1, 9, false},
		{"tie goes to lower id", 100, 100, 1, 9, true},
		{"tie against lower id loses", 100, 100, 9, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := beats(tt.aVol, tt.aID, tt.bVol, tt.bID); got != tt.want {
				t.Errorf("beats(%d,%d,%d,%d) = %v, want %v", tt.aVol, tt.aID, tt.bVol, tt.bID, got, tt.want)
			}
		})
	}
}

func TestComputeRecords_SubsetExpansion(t *testing.T) {
	// One build with two restrictions competes in all four subset slots.
	slots := computeRecords([]model.DoorCandidate{
		cand(1, 100, []int32{10}, []int32{1, 2}),
	}, DefaultSubsetBound)

	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}
	for _, s := range slots {
		if s.BuildID != 1 || s.Volume != 100 {
			t.Errorf("slot %s held by %d/%d, want 1/100", s.RecordKey.String(), s.BuildID, s.Volume)
		}
	}
}

func TestComputeRecords_SmallerBuildTakesSharedSlots(t *testing.T) {
	// Build 2 is smaller and restricted to {1}: it takes the {} and {1}
	// slots but cannot contest {2} or {1,2}.
	slots := computeRecords([]model.DoorCandidate{
		cand(1, 100, []int32{10}, []int32{1, 2}),
		cand(2, 80, []int32{10}, []int32{1}),
	}, DefaultSubsetBound)

	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}

	for _, tt := range []struct {
		subset []int32
		wantID int64
	}{
		{nil, 2},
		{[]int32{1}, 2},
		{[]int32{2}, 1},
		{[]int32{1, 2}, 1},
	} {
		s := findSlot(slots, tt.subset)
		if s == nil {
			t.Fatalf("no slot for subset %v", tt.subset)
		}
		if s.BuildID != tt.wantID {
			t.Errorf("subset %v held by build %d, want %d", tt.subset, s.BuildID, tt.wantID)
		}
	}
}

func TestComputeRecords_VolumeTieGoesToLowerID(t *testing.T) {
	slots := computeRecords([]model.DoorCandidate{
		cand(7, 100, nil, nil),
		cand(3, 100, nil, nil),
	}, DefaultSubsetBound)

	if len(slots) != 1 {
		t.Fatalf("got %d slots, want 1", len(slots))
	}
	if slots[0].BuildID != 3 {
		t.Errorf("tie held by build %d, want 3", slots[0].BuildID)
	}
}

func TestComputeRecords_DifferentTypeSetsAreSeparateSlots(t *testing.T) {
	slots := computeRecords([]model.DoorCandidate{
		cand(1, 100, []int32{10}, nil),
		cand(2, 80, []int32{11}, nil),
	}, DefaultSubsetBound)

	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2 (exact type-set match, no subsets)", len(slots))
	}
}

func TestComputeRecords_DeterministicOrder(t *testing.T) {
	cands := []model.DoorCandidate{
		cand(1, 100, []int32{10}, []int32{1, 2}),
		cand(2, 80, []int32{10}, []int32{1}),
		cand(3, 90, []int32{11}, []int32{2, 3}),
	}
	first := computeRecords(cands, DefaultSubsetBound)

	shuffled := slices.Clone(cands)
	slices.Reverse(shuffled)
	second := computeRecords(shuffled, DefaultSubsetBound)

	if !reflect.DeepEqual(first, second) {
		t.Error("output differs across input orderings")
	}
}

// TestDeletedHolderSlotsRecontested checks the delete path: when the
// current record holder is removed, every slot it held must flip to the
// surviving runner-up, and the result must match a from-scratch rebuild.
// Held keys are captured before the holder leaves the candidate set and
// recontested after, the same ordering the transactional path uses.
func TestDeletedHolderSlotsRecontested(t *testing.T) {
	bound := DefaultSubsetBound
	key := slotKeys(cand(1, 25, []int32{10}, nil), bound)[0]

	cands := []model.DoorCandidate{
		cand(1, 25, []int32{10}, nil),
		cand(2, 36, []int32{10}, nil),
	}
	slots := map[string]model.RecordSlot{}
	applyChange(slots, cands, 1, bound)
	applyChange(slots, cands, 2, bound)
	if s := slots[key.String()]; s.BuildID != 1 {
		t.Fatalf("setup: slot held by build %d, want 1", s.BuildID)
	}

	survivors := cands[1:]
	applyChange(slots, survivors, 1, bound)

	s, ok := slots[key.String()]
	if !ok {
		t.Fatalf("slot %s left empty after holder deletion", key.String())
	}
	if s.BuildID != 2 || s.Volume != 36 {
		t.Errorf("got build %d volume %d, want survivor 2/36", s.BuildID, s.Volume)
	}

	want := computeRecords(survivors, bound)
	got := make([]model.RecordSlot, 0, len(slots))
	for _, s := range slots {
		got = append(got, s)
	}
	slices.SortFunc(got, func(a, b model.RecordSlot) int {
		ka, kb := a.RecordKey.String(), b.RecordKey.String()
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return 0
	})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("after deletion:\n got: %v\nwant: %v", got, want)
	}
}

// TestSmallerSubmissionTakesRecord walks the full lifecycle of a record
// slot through the incremental path: a first build claims it, a smaller
// later build takes it over, and a regression of the smaller build hands
// it back.
func TestSmallerSubmissionTakesRecord(t *testing.T) {
	bound := DefaultSubsetBound
	key := slotKeys(cand(1, 36, []int32{10}, nil), bound)[0]

	cands := []model.DoorCandidate{cand(1, 36, []int32{10}, nil)}
	slots := map[string]model.RecordSlot{}
	applyChange(slots, cands, 1, bound)
	if s := slots[key.String()]; s.BuildID != 1 || s.Volume != 36 {
		t.Fatalf("after first submission: got build %d volume %d", s.BuildID, s.Volume)
	}

	cands = append(cands, cand(2, 25, []int32{10}, nil))
	applyChange(slots, cands, 2, bound)
	if s := slots[key.String()]; s.BuildID != 2 || s.Volume != 25 {
		t.Fatalf("after smaller submission: got build %d volume %d", s.BuildID, s.Volume)
	}

	// Build 2 grows past build 1; the retract path must restore build 1.
	cands[1].Volume = 49
	applyChange(slots, cands, 2, bound)
	if s := slots[key.String()]; s.BuildID != 1 || s.Volume != 36 {
		t.Fatalf("after regression: got build %d volume %d", s.BuildID, s.Volume)
	}
}

// eligibleFor reports whether a candidate competes in a slot key: door
// shape and type set must match exactly, and the candidate's restrictions
// must cover the key's subset.
func eligibleFor(c model.DoorCandidate, key model.RecordKey) bool {
	if c.Orientation != key.Orientation ||
		c.DoorWidth != key.DoorWidth || c.DoorHeight != key.DoorHeight || c.DoorDepth != key.DoorDepth {
		return false
	}
	if !reflect.DeepEqual(emptySlice(c.TypeIDs), emptySlice(key.TypeIDs)) {
		return false
	}
	for _, id := range key.RestrictionSubset {
		if !slices.Contains(c.RestrictionIDs, id) {
			return false
		}
	}
	return true
}

// applyChange mirrors the incremental retract-then-insert path over an
// in-memory slot map, the same two phases the transactional engine runs.
func applyChange(slots map[string]model.RecordSlot, cands []model.DoorCandidate, changed int64, bound int) {
	var freed []model.RecordKey
	for ks, s := range slots {
		if s.BuildID == changed {
			freed = append(freed, s.RecordKey)
			delete(slots, ks)
		}
	}

	for _, key := range freed {
		var best *model.DoorCandidate
		for i := range cands {
			c := &cands[i]
			if !eligibleFor(*c, key) {
				continue
			}
			if best == nil || beats(c.Volume, c.BuildID, best.Volume, best.BuildID) {
				best = c
			}
		}
		if best != nil {
			slots[key.String()] = model.RecordSlot{RecordKey: key, BuildID: best.BuildID, Volume: best.Volume}
		}
	}

	for i := range cands {
		if cands[i].BuildID != changed {
			continue
		}
		for _, key := range slotKeys(cands[i], bound) {
			cur, ok := slots[key.String()]
			if !ok || beats(cands[i].Volume, cands[i].BuildID, cur.Volume, cur.BuildID) {
				slots[key.String()] = model.RecordSlot{RecordKey: key, BuildID: cands[i].BuildID, Volume: cands[i].Volume}
			}
		}
	}
}

// TestIncrementalMatchesRebuild drives a random sequence of build
// additions, removals and edits through the incremental path and checks
// the slot map against a from-scratch recomputation after every step.
func TestIncrementalMatchesRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	bound := 3

	slots := make(map[string]model.RecordSlot)
	var cands []model.DoorCandidate
	nextID := int64(1)

	randomCand := func(id int64) model.DoorCandidate {
		types := [][]int32{nil, {10}, {10, 11}}[rng.Intn(3)]
		all := []int32{1, 2, 3, 4}
		var restrictions []int32
		for _, r := range all {
			if rng.Intn(2) == 0 {
				restrictions = append(restrictions, r)
			}
		}
		return cand(id, 50+rng.Intn(10)*10, types, restrictions)
	}

	for step := 0; step < 200; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(cands) == 0: // add
			c := randomCand(nextID)
			nextID++
			cands = append(cands, c)
			applyChange(slots, cands, c.BuildID, bound)
		case op == 1: // remove
			i := rng.Intn(len(cands))
			removed := cands[i].BuildID
			cands = append(cands[:i], cands[i+1:]...)
			applyChange(slots, cands, removed, bound)
		default: // edit in place
			i := rng.Intn(len(cands))
			cands[i] = randomCand(cands[i].BuildID)
			applyChange(slots, cands, cands[i].BuildID, bound)
		}

		want := computeRecords(cands, bound)
		got := make([]model.RecordSlot, 0, len(slots))
		for _, s := range slots {
			got = append(got, s)
		}
		slices.SortFunc(got, func(a, b model.RecordSlot) int {
			ka, kb := a.RecordKey.String(), b.RecordKey.String()
			switch {
			case ka < kb:
				return -1
			case ka > kb:
				return 1
			}
			return 0
		})
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("step %d: incremental state diverged from recomputation\ngot:  %v\nwant: %v", step, got, want)
		}
	}
}
