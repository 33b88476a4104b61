package unbranch

import (
	"testing"

	"github.com/wybe-lang/wybec/internal/ast"
	"github.com/wybe-lang/wybec/internal/modecheck"
	"github.com/wybe-lang/wybec/internal/prim"
)

func TestUnbranchFlatCallSequence(t *testing.T) {
	counter := 0
	resolved := map[*ast.Call]*modecheck.ResolvedCall{}
	u := NewUnbrancher("m", "proc", &counter, resolved)

	call := &ast.Call{Name: "foo", Args: []ast.Arg{&ast.VarArg{Name: "x"}}}
	b := NewBuilder()
	if err := u.Unbranch(b, []ast.Stmt{call}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.Body().Prims) != 1 {
		t.Fatalf("expected one primitive, got %d", len(b.Body().Prims))
	}
	if _, ok := b.Body().Fork.(prim.NoFork); !ok {
		t.Fatalf("expected NoFork terminal, got %T", b.Body().Fork)
	}
}

func TestUnbranchCondProducesTerminalFork(t *testing.T) {
	counter := 0
	resolved := map[*ast.Call]*modecheck.ResolvedCall{}
	u := NewUnbrancher("m", "proc", &counter, resolved)

	cond := &ast.Cond{
		Condition: &ast.TestBool{Var: "b"},
		Then:      []ast.Stmt{&ast.Call{Name: "onTrue"}},
		Else:      []ast.Stmt{&ast.Call{Name: "onFalse"}},
	}
	b := NewBuilder()
	if err := u.Unbranch(b, []ast.Stmt{cond}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fork, ok := b.Body().Fork.(*prim.PrimFork)
	if !ok {
		t.Fatalf("expected a terminal PrimFork, got %T", b.Body().Fork)
	}
	if fork.SwitchVar != "b" {
		t.Fatalf("expected fork on variable b, got %s", fork.SwitchVar)
	}
	if len(fork.Branches) != 2 {
		t.Fatalf("expected two branches, got %d", len(fork.Branches))
	}
}

func TestUnbranchLoopLiftsNextAndBreak(t *testing.T) {
	counter := 0
	resolved := map[*ast.Call]*modecheck.ResolvedCall{}
	u := NewUnbrancher("m", "proc", &counter, resolved)

	loop := &ast.Loop{
		Body: []ast.Stmt{
			&ast.Cond{
				Condition: &ast.TestBool{Var: "done"},
				Then:      []ast.Stmt{&ast.Break{}},
				Else:      []ast.Stmt{&ast.Call{Name: "step"}, &ast.Next{}},
			},
		},
	}
	b := NewBuilder()
	if err := u.Unbranch(b, []ast.Stmt{loop}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.Lifted()) != 2 {
		t.Fatalf("expected two lifted procedures (next, brk), got %d", len(u.Lifted()))
	}
	if len(b.Body().Prims) != 1 {
		t.Fatalf("expected the loop site to reduce to a single call, got %d prims", len(b.Body().Prims))
	}
	call, ok := b.Body().Prims[0].Prim.(*prim.PrimCall)
	if !ok {
		t.Fatalf("expected a PrimCall at the loop site, got %T", b.Body().Prims[0].Prim)
	}
	if call.Spec.Name != u.Lifted()[1].Name {
		t.Fatalf("expected the loop site to call the lifted 'next' procedure %s, got %s", u.Lifted()[1].Name, call.Spec.Name)
	}
}

// TestUnbranchCondLiftsLongContinuation exercises spec §4.2.2's
// continuation lifting: a tail following the conditional longer than
// the threshold is lifted into one fresh procedure called from both
// branches, rather than duplicated inline into each.
func TestUnbranchCondLiftsLongContinuation(t *testing.T) {
	counter := 0
	resolved := map[*ast.Call]*modecheck.ResolvedCall{}
	u := NewUnbrancher("m", "proc", &counter, resolved)
	u.WithContinuationThreshold(1)

	cond := &ast.Cond{
		Condition: &ast.TestBool{Var: "b"},
		Then:      []ast.Stmt{&ast.Call{Name: "onTrue"}},
		Else:      []ast.Stmt{&ast.Call{Name: "onFalse"}},
	}
	tail := []ast.Stmt{
		&ast.Call{Name: "after1"},
		&ast.Call{Name: "after2"},
	}
	b := NewBuilder()
	if err := u.unbranchTest(b, cond, tail); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(u.Lifted()) != 1 {
		t.Fatalf("expected one lifted continuation procedure, got %d", len(u.Lifted()))
	}
	contName := u.Lifted()[0].Name
	if len(u.Lifted()[0].Body.Prims) != 2 {
		t.Fatalf("expected the lifted continuation to hold both tail calls, got %d prims", len(u.Lifted()[0].Body.Prims))
	}

	fork, ok := b.Body().Fork.(*prim.PrimFork)
	if !ok {
		t.Fatalf("expected a terminal PrimFork, got %T", b.Body().Fork)
	}
	for i, branch := range fork.Branches {
		if len(branch.Prims) != 2 {
			t.Fatalf("branch %d: expected the branch's own call plus a call to the lifted continuation, got %d prims", i, len(branch.Prims))
		}
		call, ok := branch.Prims[1].Prim.(*prim.PrimCall)
		if !ok || call.Spec.Name != contName {
			t.Fatalf("branch %d: expected a trailing call to the lifted continuation %s, got %#v", i, contName, branch.Prims[1].Prim)
		}
	}
}

func TestBuilderPanicsOnEmitAfterFork(t *testing.T) {
	b := NewBuilder()
	b.BeginFork("v", nil, false, 2)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic emitting after a fork has begun")
		}
	}()
	b.Emit(&prim.PrimCall{})
}
