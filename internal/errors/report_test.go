package errors

import (
	"strings"
	"testing"

	"github.com/wybe-lang/wybec/internal/ast"
)

func TestReportCaretAlignsUnderColumn(t *testing.T) {
	rep := New(MC001, "modecheck", "test of unbound variable x", ast.Pos{Line: 3, Column: 5})

	line := "    test(x)"
	caret := rep.Caret(line)

	if !strings.HasSuffix(caret, "^") {
		t.Fatalf("expected a trailing caret, got %q", caret)
	}
	if len(caret)-1 != 5 {
		t.Fatalf("expected the caret indented to column 5, got indent %d in %q", len(caret)-1, caret)
	}
}

func TestReportCaretEmptyWithoutSpan(t *testing.T) {
	rep := &Report{Schema: SchemaVersion, Code: MC001, Phase: "modecheck", Message: "no span"}
	if got := rep.Caret("anything"); got != "" {
		t.Fatalf("expected empty caret for a spanless report, got %q", got)
	}
}
