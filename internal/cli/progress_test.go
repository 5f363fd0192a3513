package cli

import (
	"bytes"
	"testing"

	"github.com/Veraticus/spendmail/internal/extract"
	"github.com/stretchr/testify/assert"
)

var _ extract.Progress = (*Progress)(nil)

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out)

	p.Advance()
	p.Finish()
	assert.Empty(t, out.String())

	p.Start("icici", 3)
	for range 3 {
		p.Advance()
	}
	p.Finish()

	assert.Contains(t, out.String(), "icici")
	assert.Contains(t, out.String(), "3/3")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Job", "Status"}, [][]string{
		{"extract", "succeeded"},
		{"merge"},
	})

	assert.Contains(t, out, "Job")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "merge")
}
