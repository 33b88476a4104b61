package ast

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

// Print renders a module back to source-like text, one procedure per
// paragraph. It exists for diagnostics and for the round-trip testable
// property of spec §8 (primitive forms are printed by
// prim.ProcBody.String; this prints the surface form for error context).
func Print(m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s\n\n", m.Path)
	for _, p := range m.Procs {
		b.WriteString(p.String())
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// CaretLine renders a caret ("^") under the given column of a source
// line for diagnostic display. Source identifiers may contain wide
// (double-column) runes; DisplayWidth accounts for that so the caret
// lines up under terminals that render wide runes as two cells.
func CaretLine(line string, col int) string {
	w := DisplayWidth(line, col)
	return strings.Repeat(" ", w) + "^"
}

// DisplayWidth returns the terminal column width of the first n runes of
// line, treating East-Asian-wide runes as occupying two columns.
func DisplayWidth(line string, n int) int {
	cols := 0
	count := 0
	for _, r := range line {
		if count >= n {
			break
		}
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			cols += 2
		default:
			cols++
		}
		count++
	}
	return cols
}
