package id

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	if len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Errorf("expected canonical UUID, got %s", id)
	}

	id2 := Generate()
	if id == id2 {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{Generate(), true},
		{"3f2b8c1e-6a4d-4f7e-9b2a-1c5d8e7f6a90", true},
		{"", false},
		{"../etc/passwd", false},
		{"3f2b8c1e6a4d4f7e9b2a1c5d8e7f6a90", false},
		{"{3f2b8c1e-6a4d-4f7e-9b2a-1c5d8e7f6a90}", false},
		{"zzzzzzzz-6a4d-4f7e-9b2a-1c5d8e7f6a90", false},
	}

	for _, tt := range tests {
		if got := Valid(tt.input); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
