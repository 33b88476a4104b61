package prim

import (
	"testing"

	"github.com/wybe-lang/wybec/internal/types"
)

func TestProcBodyAppendAndString(t *testing.T) {
	b := NewProcBody()
	b.Append(&PrimCall{
		Spec: ProcSpecRef{Module: "list", Name: "cons", ID: 1},
		Args: []PrimArg{
			&ArgVar{Name: "h", Flow: types.In},
			&ArgVar{Name: "t", Flow: types.In},
			&ArgVar{Name: "r", Flow: types.Out},
		},
	})
	got := b.String()
	want := "call list.cons#1(in h, in t, out r)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestProcBodyAppendAfterForkPanics(t *testing.T) {
	b := NewProcBody()
	b.Fork = &PrimFork{SwitchVar: "v"}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic appending after a terminal fork")
		}
	}()
	b.Append(&PrimCall{})
}

// TestProcBodyStringRoundTrips exercises spec §8's round-trip property
// on a forked body: re-rendering the same ProcBody value always
// produces the identical dump, including its terminal fork's branches.
func TestProcBodyStringRoundTrips(t *testing.T) {
	then := NewProcBody()
	then.Append(&PrimForeign{Lang: "llvm", Op: "move", Args: []PrimArg{&ArgInt{Value: 1}, &ArgVar{Name: "r", Flow: types.Out}}})
	els := NewProcBody()
	els.Append(&PrimForeign{Lang: "llvm", Op: "move", Args: []PrimArg{&ArgInt{Value: 0}, &ArgVar{Name: "r", Flow: types.Out}}})

	b := NewProcBody()
	b.Append(&PrimCall{Spec: ProcSpecRef{Module: "m", Name: "cond", ID: 1}, Args: []PrimArg{&ArgVar{Name: "x", Flow: types.In}}})
	b.Fork = &PrimFork{SwitchVar: "x", Branches: []*ProcBody{then, els}}

	first := b.String()
	second := b.String()
	if first != second {
		t.Fatalf("ProcBody.String() is not stable across calls: %q vs %q", first, second)
	}
	if first == "" {
		t.Fatal("expected a non-empty dump")
	}
}

func TestOutputsAndInputs(t *testing.T) {
	call := &PrimCall{
		Spec: ProcSpecRef{Name: "add"},
		Args: []PrimArg{
			&ArgVar{Name: "a", Flow: types.In},
			&ArgVar{Name: "b", Flow: types.In},
			&ArgVar{Name: "c", Flow: types.Out},
		},
	}
	outs := call.Outputs()
	if len(outs) != 1 || outs[0].Name != "c" {
		t.Fatalf("expected single output c, got %v", outs)
	}
	ins := call.Inputs()
	if len(ins) != 2 {
		t.Fatalf("expected two inputs, got %d", len(ins))
	}
}
