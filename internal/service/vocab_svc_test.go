package service

import (
	"reflect"
	"testing"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
)

func testVocab() *VocabService {
	regular := model.Type{ID: 10, Name: "Regular"}
	seamless := model.Type{ID: 11, Name: "Seamless"}
	obsless := model.Restriction{ID: 1, Name: "Obsless", Kind: model.RestrictionWiringPlacement}
	return &VocabService{
		typesByName: map[string]model.Type{"regular": regular, "seamless": seamless},
		typesByID:   map[int32]model.Type{10: regular, 11: seamless},
		restrictionsByID: map[int32]model.Restriction{
			1: obsless,
		},
		restrictionByName: map[string]model.Restriction{
			"obsless":      obsless,
			"obsidianless": obsless, // alias
		},
	}
}

func TestResolveTypes(t *testing.T) {
	v := testVocab()

	ids, err := v.ResolveTypes([]string{"Seamless", "REGULAR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ids, []int32{10, 11}) {
		t.Errorf("got %v, want sorted [10 11]", ids)
	}

	if _, err := v.ResolveTypes([]string{"floppy"}); err == nil {
		t.Error("unknown type should be an error")
	}
}

func TestResolveRestrictions_AliasesWork(t *testing.T) {
	v := testVocab()

	for _, name := range []string{"Obsless", "obsidianless"} {
		ids, err := v.ResolveRestrictions([]string{name})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !reflect.DeepEqual(ids, []int32{1}) {
			t.Errorf("%s: got %v, want [1]", name, ids)
		}
	}

	if _, err := v.ResolveRestrictions([]string{"nope"}); err == nil {
		t.Error("unknown restriction should be an error")
	}
}
