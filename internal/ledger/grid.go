package ledger

import (
	"fmt"

	"github.com/Veraticus/spendmail/internal/model"
)

// Window returns numCols cells of r starting at the 1-based column
// startCol, padding with empty strings past the end of r.
func Window(r model.Row, startCol, numCols int) model.Row {
	out := make(model.Row, numCols)
	for i := range out {
		if j := startCol - 1 + i; j < len(r) {
			out[i] = r[j]
		}
	}
	return out
}

// Overlay writes cells into r starting at the 1-based column startCol,
// growing r as needed, and returns the result.
func Overlay(r model.Row, startCol int, cells model.Row) model.Row {
	need := startCol - 1 + len(cells)
	out := make(model.Row, max(len(r), need))
	copy(out, r)
	copy(out[startCol-1:], cells)
	return out
}

// Width returns the index of the last non-empty cell of r, 1-based.
func Width(r model.Row) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] != "" {
			return i + 1
		}
	}
	return 0
}

// CheckRange validates 1-based coordinates for a range operation.
func CheckRange(startRow, startCol, numRows, numCols int) error {
	if startRow < 1 || startCol < 1 {
		return fmt.Errorf("range must start at row and column 1 or later, got (%d,%d)", startRow, startCol)
	}
	if numRows < 0 || numCols < 0 {
		return fmt.Errorf("range size cannot be negative, got %dx%d", numRows, numCols)
	}
	return nil
}
