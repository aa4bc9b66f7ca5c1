package ui

import "testing"

func TestDetermineLayoutMode(t *testing.T) {
	if got := DetermineLayoutMode(140, 30); got != LayoutWide {
		t.Fatalf("expected wide, got %v", got)
	}
	if got := DetermineLayoutMode(100, 30); got != LayoutMedium {
		t.Fatalf("expected medium, got %v", got)
	}
	if got := DetermineLayoutMode(50, 30); got != LayoutTooSmall {
		t.Fatalf("expected too-small, got %v", got)
	}
	if got := DetermineLayoutMode(100, 12); got != LayoutTooSmall {
		t.Fatalf("expected too-small by height, got %v", got)
	}
}

func TestSplitWidths(t *testing.T) {
	side, main := splitWidths(120, LayoutWide)
	if side != 40 || main != 79 {
		t.Fatalf("unexpected wide split %d/%d", side, main)
	}
	side, main = splitWidths(90, LayoutMedium)
	if side != 0 || main != 90 {
		t.Fatalf("expected no side panel in medium layout, got %d/%d", side, main)
	}
}
