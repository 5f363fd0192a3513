package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		want string
		col  int
	}{
		{col: 1, want: "A"},
		{col: 10, want: "J"},
		{col: 26, want: "Z"},
		{col: 27, want: "AA"},
		{col: 52, want: "AZ"},
		{col: 703, want: "AAA"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, columnLetter(tt.col), "column %d", tt.col)
	}
}

func TestRangeRef(t *testing.T) {
	assert.Equal(t, "'Sheet1'!A2:I10", rangeRef("Sheet1", 2, 1, 9, 9))
	assert.Equal(t, "'Amit''s'!C3", cellRef("Amit's", 3, 3))
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "Debit", cellString("Debit"))
	assert.Equal(t, "1250", cellString(1250.0))
	assert.Equal(t, "0.1", cellString(0.1))
	assert.Equal(t, "true", cellString(true))
}
