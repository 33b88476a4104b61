package lastcall

import (
	"testing"

	"github.com/wybe-lang/wybec/internal/prim"
	"github.com/wybe-lang/wybec/internal/types"
)

func outVar(name string) *prim.ArgVar {
	return &prim.ArgVar{Name: name, Type: types.Int, Flow: types.Out}
}

func inVar(name string) *prim.ArgVar {
	return &prim.ArgVar{Name: name, Type: types.Int, Flow: types.In}
}

// mutateArgs builds the 7-argument lpvm mutate argument list of spec
// §4.1.6: mutate(addr, new-addr, offset, destructive, size, start, value).
// Tests only care about addr/offset/value, so the rest are placeholders.
func mutateArgs(structure prim.PrimArg, output *prim.ArgVar, offset int64, value prim.PrimArg) []prim.PrimArg {
	return []prim.PrimArg{
		structure, output, &prim.ArgInt{Value: offset},
		&prim.ArgInt{Value: 1}, &prim.ArgInt{Value: 8}, &prim.ArgInt{Value: 0},
		value,
	}
}

// TestAnalyzeRewritesListReverseTail mirrors spec §8 scenario 5: a
// recursive list-reverse whose leaf is
//
//	recurse(t, acc')
//	acc' := cons(h, acc)   -- an lpvm mutate writing the 'rest' field
//
// should become a call with its second output promoted to
// OutByReference, and the mutate's value argument marked TakeReference.
func TestAnalyzeRewritesListReverseTail(t *testing.T) {
	self := prim.ProcSpecRef{Module: "list", Name: "reverse", ID: 1}

	recurse := &prim.PrimCall{
		Spec: self,
		Args: []prim.PrimArg{inVar("t"), outVar("acc2")},
	}
	mutate := &prim.PrimForeign{
		Lang: "lpvm", Op: "mutate",
		Args: mutateArgs(inVar("acc"), outVar("accPrime"), 1, inVar("acc2")),
	}

	body := prim.NewProcBody()
	body.Prims = []prim.Placed{
		{Prim: recurse},
		{Prim: mutate},
	}

	out := Analyze(self, body)
	if !out.Changed {
		t.Fatalf("expected the leaf to be rewritten")
	}
	if !out.OutByReferenceParams["acc2"] {
		t.Fatalf("expected acc2 to be promoted to OutByReference")
	}

	gotCall := body.Prims[0].Prim.(*prim.PrimCall)
	if gotCall.Args[1].(*prim.ArgVar).Flow != types.OutByReference {
		t.Fatalf("expected the recursive call's second output to become OutByReference, got %v", gotCall.Args[1])
	}
	gotMutate := body.Prims[1].Prim.(*prim.PrimForeign)
	if gotMutate.Args[6].(*prim.ArgVar).Flow != types.TakeReference {
		t.Fatalf("expected the mutate's value argument to become TakeReference, got %v", gotMutate.Args[6])
	}
}

func TestAnalyzeIgnoresNonRecursiveLastCall(t *testing.T) {
	self := prim.ProcSpecRef{Module: "list", Name: "reverse", ID: 1}
	other := prim.ProcSpecRef{Module: "list", Name: "helper", ID: 2}

	call := &prim.PrimCall{Spec: other, Args: []prim.PrimArg{inVar("x")}}
	body := prim.NewProcBody()
	body.Prims = []prim.Placed{{Prim: call}}

	out := Analyze(self, body)
	if out.Changed {
		t.Fatalf("expected no rewrite when the last call isn't self-recursive")
	}
}

func TestAnalyzeRejectsAliasingOffsets(t *testing.T) {
	self := prim.ProcSpecRef{Module: "list", Name: "reverse", ID: 1}

	recurse := &prim.PrimCall{Spec: self, Args: []prim.PrimArg{outVar("r1"), outVar("r2")}}
	m1 := &prim.PrimForeign{Lang: "lpvm", Op: "mutate", Args: mutateArgs(inVar("s"), outVar("s1"), 0, inVar("r1"))}
	m2 := &prim.PrimForeign{Lang: "lpvm", Op: "mutate", Args: mutateArgs(inVar("s"), outVar("s2"), 0, inVar("r2"))}

	body := prim.NewProcBody()
	body.Prims = []prim.Placed{{Prim: recurse}, {Prim: m1}, {Prim: m2}}

	out := Analyze(self, body)
	if out.Changed {
		t.Fatalf("expected the aliasing-offset tail to be rejected")
	}
}

type fakeParamFlows map[prim.ProcSpecRef][]types.FlowDirection

func (f fakeParamFlows) ParamFlow(spec prim.ProcSpecRef, index int) (types.FlowDirection, bool) {
	flows, ok := f[spec]
	if !ok || index >= len(flows) {
		return types.Unknown, false
	}
	return flows[index], true
}

func TestFixupCoercesOutToOutByReference(t *testing.T) {
	callee := prim.ProcSpecRef{Module: "list", Name: "cons", ID: 3}
	call := &prim.PrimCall{Spec: callee, Args: []prim.PrimArg{inVar("h"), outVar("tail")}}
	body := prim.NewProcBody()
	body.Prims = []prim.Placed{{Prim: call}}

	params := fakeParamFlows{callee: {types.In, types.OutByReference}}
	Fixup(body, params)

	got := body.Prims[0].Prim.(*prim.PrimCall).Args[1].(*prim.ArgVar)
	if got.Flow != types.OutByReference {
		t.Fatalf("expected the argument to be coerced to OutByReference, got %v", got.Flow)
	}
}
