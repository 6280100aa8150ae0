package model

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		expected bool
	}{
		{StatusActive, StatusClaimed, true},
		{StatusActive, StatusArchived, true},
		{StatusClaimed, StatusReturned, true},
		{StatusClaimed, StatusArchived, true},
		{StatusReturned, StatusArchived, true},
		// Backwards and skipping moves are illegal.
		{StatusActive, StatusReturned, false},
		{StatusClaimed, StatusActive, false},
		{StatusReturned, StatusActive, false},
		{StatusReturned, StatusClaimed, false},
		// Archived is terminal.
		{StatusArchived, StatusActive, false},
		{StatusArchived, StatusClaimed, false},
		{StatusArchived, StatusReturned, false},
		// No self-transitions.
		{StatusActive, StatusActive, false},
		// Unknown states fail closed.
		{"unknown", StatusArchived, false},
	}

	for _, tt := range tests {
		got := CanTransition(tt.from, tt.to)
		if got != tt.expected {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.expected)
		}
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		if !ValidCategory(c) {
			t.Errorf("expected %q to be valid", c)
		}
	}
	for _, c := range []string{"", "gadgets", "Electronics"} {
		if ValidCategory(c) {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}

func TestOppositeType(t *testing.T) {
	if OppositeType(TypeLost) != TypeFound {
		t.Error("expected opposite of lost to be found")
	}
	if OppositeType(TypeFound) != TypeLost {
		t.Error("expected opposite of found to be lost")
	}
}
