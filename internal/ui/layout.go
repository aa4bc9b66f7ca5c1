package ui

func DetermineLayoutMode(cols, rows int) LayoutMode {
	if cols < 60 || rows < 18 {
		return LayoutTooSmall
	}
	if cols >= 110 && rows >= 28 {
		return LayoutWide
	}
	return LayoutMedium
}

// splitWidths divides cols between a side panel and the main panel.
func splitWidths(cols int, layout LayoutMode) (side, main int) {
	if layout != LayoutWide {
		return 0, cols
	}
	side = cols / 3
	if side > 40 {
		side = 40
	}
	return side, cols - side - 1
}
