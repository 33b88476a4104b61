package modecheck

import (
	"testing"

	"github.com/wybe-lang/wybec/internal/ast"
	"github.com/wybe-lang/wybec/internal/types"
)

// fakeLookup is a minimal Lookup for unit tests: a fixed set of
// candidates per (module, name).
type fakeLookup struct {
	byName map[string][]Candidate
}

func (f *fakeLookup) Candidates(module, name string) []Candidate {
	return f.byName[name]
}

func TestBindingStateSequencing(t *testing.T) {
	s0 := Bound("x")
	s1 := s0.WithBound("y")
	if !s1.IsBound("x") || !s1.IsBound("y") {
		t.Fatalf("expected both x and y bound, got %v", s1.SortedVars())
	}
}

func TestJoinIntersectsBoundVars(t *testing.T) {
	a := Bound("x", "y")
	b := Bound("x", "z")
	j := Join(a, b)
	if j.IsBound("y") || j.IsBound("z") {
		t.Fatalf("join should only keep variables bound on every path, got %v", j.SortedVars())
	}
	if !j.IsBound("x") {
		t.Fatal("join should keep x, bound on both paths")
	}
}

func TestLoopJoinNoBreaksIsImpossible(t *testing.T) {
	out := LoopJoin(nil)
	if out.Kind != Impossible {
		t.Fatalf("loop with no breaks should join to Impossible, got %v", out.Kind)
	}
}

func TestCheckProcSimpleCall(t *testing.T) {
	lookup := &fakeLookup{byName: map[string][]Candidate{
		"add1": {{
			CalleeID:    1,
			ParamTypes:  []types.TypeSpec{types.Int, types.Int},
			ParamFlows:  []types.FlowDirection{types.In, types.Out},
			Determinism: types.Det,
		}},
	}}

	proc := &ast.ProcDecl{
		Name:        "foo",
		Determinism: ast.DetDet,
		Params: []*ast.Param{
			{Name: "x", Flow: ast.FlowIn},
			{Name: "y", Flow: ast.FlowOut},
		},
		Body: []ast.Stmt{
			&ast.Call{
				Name: "add1",
				Args: []ast.Arg{
					&ast.VarArg{Name: "x"},
					&ast.VarArg{Name: "y"},
				},
			},
		},
	}

	checker := NewChecker(lookup)
	result := checker.CheckProc(proc)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Calls) != 1 {
		t.Fatalf("expected one resolved call, got %d", len(result.Calls))
	}
	if result.Calls[0].Args[1].Flow != types.Out {
		t.Fatalf("expected y to resolve to Out, got %v", result.Calls[0].Args[1].Flow)
	}
	if !result.FinalState.IsBound("y") {
		t.Fatalf("expected y bound after call, got %v", result.FinalState.SortedVars())
	}
}

func TestCheckProcUndefinedFlowReportsError(t *testing.T) {
	lookup := &fakeLookup{byName: map[string][]Candidate{
		"needsInput": {{
			CalleeID:    2,
			ParamTypes:  []types.TypeSpec{types.Int},
			ParamFlows:  []types.FlowDirection{types.In},
			Determinism: types.Det,
		}},
	}}

	proc := &ast.ProcDecl{
		Name:        "bar",
		Determinism: ast.DetDet,
		Body: []ast.Stmt{
			&ast.Call{
				Name: "needsInput",
				Args: []ast.Arg{&ast.VarArg{Name: "never_bound"}},
			},
		},
	}

	checker := NewChecker(lookup)
	result := checker.CheckProc(proc)
	if len(result.Errors) == 0 {
		t.Fatal("expected an undefined-flow error for an input that is never bound")
	}
}

func TestSemiDetInDetContextIsError(t *testing.T) {
	lookup := &fakeLookup{byName: map[string][]Candidate{
		"mayFail": {{
			CalleeID:    3,
			ParamTypes:  []types.TypeSpec{},
			ParamFlows:  []types.FlowDirection{},
			Determinism: types.SemiDet,
		}},
	}}

	proc := &ast.ProcDecl{
		Name:        "det_caller",
		Determinism: ast.DetDet,
		Body: []ast.Stmt{
			&ast.Call{Name: "mayFail"},
		},
	}

	checker := NewChecker(lookup)
	result := checker.CheckProc(proc)
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for a semidet call in a det context")
	}
}
