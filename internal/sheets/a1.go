package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/spendmail/internal/model"
)

// columnLetter converts a 1-based column index to its A1 letters.
func columnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// quoteTitle quotes a sheet title for use in A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// cellRef returns the A1 reference of a single cell.
func cellRef(title string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", quoteTitle(title), columnLetter(col), row)
}

// rangeRef returns the A1 reference of a numRows by numCols block.
func rangeRef(title string, startRow, startCol, numRows, numCols int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", quoteTitle(title),
		columnLetter(startCol), startRow,
		columnLetter(startCol+numCols-1), startRow+numRows-1)
}

// cellString renders a value returned by the API as a ledger cell.
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func toRows(values [][]any) []model.Row {
	rows := make([]model.Row, len(values))
	for i, vals := range values {
		row := make(model.Row, len(vals))
		for j, v := range vals {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows
}

// toValues converts rows written from the 1-based startCol. With literal
// set, text columns get a leading apostrophe so user-entered parsing keeps
// them as strings.
func toValues(rows []model.Row, startCol int, literal bool) [][]any {
	values := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(row))
		for j, cell := range row {
			if literal && cell != "" && model.IsTextColumn(startCol-1+j) {
				cell = "'" + cell
			}
			vals[j] = cell
		}
		values[i] = vals
	}
	return values
}
