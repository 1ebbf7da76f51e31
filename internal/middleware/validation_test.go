package middleware

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateOrientation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"door", "Door", "Door", false},
		{"lowercase normalized", "trapdoor", "Trapdoor", false},
		{"uppercase normalized", "SKYDOOR", "Skydoor", false},
		{"trims whitespace", "  Door  ", "Door", false},
		{"empty", "", "", true},
		{"unknown", "Window", "", true},
		{"sql injection", "Door'; DROP--", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateOrientation(tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateDimension(t *testing.T) {
	if errMsg := ValidateDimension(4, "width"); errMsg != "" {
		t.Errorf("unexpected error: %s", errMsg)
	}
	if errMsg := ValidateDimension(0, "width"); errMsg == "" {
		t.Error("expected error for zero")
	}
	if errMsg := ValidateDimension(-3, "height"); errMsg == "" {
		t.Error("expected error for negative")
	}
	if errMsg := ValidateDimension(MaxDimension+1, "depth"); errMsg == "" {
		t.Error("expected error above range")
	}
	if errMsg := ValidateDimension(MaxDimension, "depth"); errMsg != "" {
		t.Errorf("unexpected error at boundary: %s", errMsg)
	}
}

func TestValidateTagNames(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"single", "Seamless", []string{"Seamless"}, false},
		{"multiple trimmed", " Seamless , Obsless ", []string{"Seamless", "Obsless"}, false},
		{"drops empty parts", "Seamless,,Obsless,", []string{"Seamless", "Obsless"}, false},
		{"spaces inside names", "Only Wiring,Full Flush", []string{"Only Wiring", "Full Flush"}, false},
		{"invalid chars", "Seam<less>", nil, true},
		{"sql injection", "x'; DROP--", nil, true},
		{"too long name", strings.Repeat("a", MaxTagNameLen+1), nil, true},
		{"too many names", strings.Repeat("a,", MaxTagListLen+1), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateTagNames(tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api/sessions/42", "/api/sessions/:sessionId"},
		{"/api/records", "/api/records"},
		{"/health/live", "/health/live"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.in); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
