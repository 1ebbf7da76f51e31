package model

import (
	"encoding/json"
	"testing"
)

func TestChangeEntryJSON(t *testing.T) {
	entry := ChangeEntry{
		Field: "width",
		Old:   json.RawMessage("3"),
		New:   json.RawMessage("2"),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(data), `["width",3,2]`; got != want {
		t.Errorf("encoded as %s, want %s", got, want)
	}

	var back ChangeEntry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Field != "width" || string(back.Old) != "3" || string(back.New) != "2" {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestChangeEntryJSON_NullOld(t *testing.T) {
	var entry ChangeEntry
	if err := json.Unmarshal([]byte(`["submission_status",null,1]`), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Field != "submission_status" {
		t.Errorf("field = %q", entry.Field)
	}
	if string(entry.New) != "1" {
		t.Errorf("new = %s", entry.New)
	}
}

func TestChangeEntryJSON_RejectsWrongShape(t *testing.T) {
	var entry ChangeEntry
	if err := json.Unmarshal([]byte(`{"field":"width"}`), &entry); err == nil {
		t.Error("object form should not decode")
	}
}
