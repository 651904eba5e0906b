package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MaskIndex addresses one mask in a scan's mask collection. The collection is
// a 2D cell grid and the roles of its columns are dataset conventions, e.g.
// column 2 holds the ground-truth envelope and column 9 a candidate
// automated segmentation.
type MaskIndex struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

// String renders the index as "row,col"
func (m MaskIndex) String() string {
	return fmt.Sprintf("%d,%d", m.Row, m.Col)
}

// ParseMaskIndex parses "row,col" or a bare column (row 0)
func ParseMaskIndex(s string) (MaskIndex, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	var idx MaskIndex
	switch len(parts) {
	case 1:
		col, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return idx, fmt.Errorf("invalid mask index %q: %w", s, err)
		}
		idx.Col = col
	case 2:
		row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return idx, fmt.Errorf("invalid mask row in %q: %w", s, err)
		}
		col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return idx, fmt.Errorf("invalid mask column in %q: %w", s, err)
		}
		idx.Row, idx.Col = row, col
	default:
		return idx, fmt.Errorf("invalid mask index %q: expected row,col", s)
	}
	if idx.Row < 0 || idx.Col < 0 {
		return idx, fmt.Errorf("invalid mask index %q: negative", s)
	}
	return idx, nil
}
