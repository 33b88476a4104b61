package ast

import (
	"strings"
	"testing"
)

func TestPrintModule(t *testing.T) {
	mod := &Module{
		Path: "list",
		Procs: []*ProcDecl{
			{
				Name:        "length",
				Determinism: DetDet,
				Params: []*Param{
					{Name: "xs", Flow: FlowIn, Type: TypeExpr{Name: "list"}},
					{Name: "n", Flow: FlowOut, Type: TypeExpr{Name: "int"}},
				},
				Body: []Stmt{&Nop{}},
			},
		},
	}

	out := Print(mod)
	if !strings.Contains(out, "module list") {
		t.Fatalf("expected module header, got %q", out)
	}
	if !strings.Contains(out, "length") {
		t.Fatalf("expected procedure name in output, got %q", out)
	}
}

func TestDisplayWidthASCII(t *testing.T) {
	if w := DisplayWidth("hello", 3); w != 3 {
		t.Fatalf("expected width 3 for ASCII prefix, got %d", w)
	}
}

func TestDisplayWidthWide(t *testing.T) {
	// Fullwidth 'Ａ' (U+FF21) occupies two display columns.
	line := "Ａb"
	if w := DisplayWidth(line, 1); w != 2 {
		t.Fatalf("expected width 2 for a single wide rune, got %d", w)
	}
}

func TestCaretLineAlignsUnderASCII(t *testing.T) {
	got := CaretLine("abcdef", 3)
	want := "   ^"
	if got != want {
		t.Fatalf("CaretLine(%q, 3) = %q, want %q", "abcdef", got, want)
	}
}
