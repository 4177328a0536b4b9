package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_WithIcon(t *testing.T) {
	var buf strings.Builder
	w := New(&buf)

	w.Status("▶", "starting")
	assert.Equal(t, "▶ starting\n", buf.String())
}

func TestStatus_WithoutIcon(t *testing.T) {
	var buf strings.Builder
	w := New(&buf)

	w.Status("", "detail line")
	assert.Equal(t, "   detail line\n", buf.String())
}

func TestWarningf(t *testing.T) {
	var buf strings.Builder
	w := New(&buf)

	w.Warningf("source %s degraded", "leaf")
	assert.Contains(t, buf.String(), "source leaf degraded")
}

func TestTable_AlignsColumns(t *testing.T) {
	var buf strings.Builder
	w := New(&buf)

	w.Table(
		[]string{"TUPLE", "GT", "pred"},
		[][]string{
			{"a", "a_gt.png", "a_pred.png"},
			{"b_gt", "b_gt.png", "-"},
		},
	)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 4) // header, separator, two rows
	assert.Contains(t, lines[0], "TUPLE")
	assert.Contains(t, lines[1], "-----")
	// Columns align: "GT" header and "a_gt.png" cell start at the same offset.
	assert.Equal(t, strings.Index(lines[0], "GT"), strings.Index(lines[2], "a_gt.png"))
}

func TestTable_IgnoresANSIWidth(t *testing.T) {
	var buf strings.Builder
	w := New(&buf)

	styled := "\x1b[1ma\x1b[0m"
	w.Table([]string{"X", "Y"}, [][]string{{styled, "z"}})

	// Styled "a" counts as one column, so "z" lands right after padding.
	lines := strings.Split(buf.String(), "\n")
	assert.Contains(t, lines[2], styled)
}

func TestCellWidth(t *testing.T) {
	assert.Equal(t, 3, cellWidth("abc"))
	assert.Equal(t, 1, cellWidth("\x1b[31mx\x1b[0m"))
	assert.Equal(t, 2, cellWidth("ab\x1b[0m"))
}
