// Package lastcall implements spec §4.4: Last-Call/Tail-Call-Modulo-Cons
// analysis. It runs after internal/build has produced a fused, finalized
// ProcBody for every procedure in a bottom-up SCC order, hoisting
// post-recursive-call destructive writes into by-reference outputs so a
// self-recursive call that is followed only by a chain of `lpvm mutate`
// writes becomes a true tail call.
package lastcall

import (
	"github.com/wybe-lang/wybec/internal/prim"
	"github.com/wybe-lang/wybec/internal/types"
)

// ParamFlows answers, for a given procedure and parameter index, whether
// that parameter has already been converted to OutByReference — needed
// by the step 7 fixup, which must see other procedures' decisions. It
// mirrors internal/modecheck.Lookup's role: a narrow interface so this
// package never needs to import internal/procspec.
type ParamFlows interface {
	ParamFlow(spec prim.ProcSpecRef, index int) (types.FlowDirection, bool)
}

// Outcome is the result of analysing one procedure's body.
type Outcome struct {
	Body *prim.ProcBody
	// OutByReferenceParams names the parameters (by the ArgVar name used
	// for that output at the call site) that step 5 promoted.
	OutByReferenceParams map[string]bool
	Changed              bool
}

// Analyze implements spec §4.4 steps 1-5 for one procedure: every leaf of
// self's body is inspected for a final recursive call followed solely by
// a non-aliasing chain of structure-field mutates fed by that call's
// outputs.
func Analyze(self prim.ProcSpecRef, body *prim.ProcBody) *Outcome {
	out := &Outcome{Body: body, OutByReferenceParams: map[string]bool{}}
	for _, leaf := range leaves(body) {
		analyzeLeaf(self, leaf, out)
	}
	return out
}

func leaves(b *prim.ProcBody) []*prim.ProcBody {
	if _, ok := b.Fork.(prim.NoFork); ok {
		return []*prim.ProcBody{b}
	}
	fork := b.Fork.(*prim.PrimFork)
	var out []*prim.ProcBody
	for _, br := range fork.Branches {
		out = append(out, leaves(br)...)
	}
	return out
}

// lastCallIndex returns the index of the final PrimCall in prims that
// targets self, or -1 if there is none (step 1-2).
func lastCallIndex(prims []prim.Placed, self prim.ProcSpecRef) int {
	idx := -1
	for i, p := range prims {
		if call, ok := p.Prim.(*prim.PrimCall); ok && call.Spec == self {
			idx = i
		}
	}
	return idx
}

func analyzeLeaf(self prim.ProcSpecRef, leaf *prim.ProcBody, out *Outcome) {
	idx := lastCallIndex(leaf.Prims, self)
	if idx < 0 {
		return
	}
	lastCall := leaf.Prims[idx].Prim.(*prim.PrimCall)
	before := leaf.Prims[:idx]
	after := leaf.Prims[idx+1:]

	callOutputs := outputNames(lastCall.Outputs())
	hoistable, tail := partitionAfter(after, callOutputs)

	chains, ok := validateMutateChains(tail, callOutputs)
	if !ok {
		return
	}

	for _, c := range chains {
		c.mutate.Args[c.valueIndex] = takeReference(c.value)
		out.OutByReferenceParams[c.valueSourceVar] = true
		promoteCallOutput(lastCall, c.valueSourceVar)
	}

	rebuilt := make([]prim.Placed, 0, len(leaf.Prims))
	rebuilt = append(rebuilt, before...)
	rebuilt = append(rebuilt, hoistable...)
	rebuilt = append(rebuilt, prim.Placed{Prim: lastCall})
	rebuilt = append(rebuilt, tail...)
	leaf.Prims = rebuilt
	out.Changed = true
}

func outputNames(outs []*prim.ArgVar) map[string]bool {
	m := make(map[string]bool, len(outs))
	for _, o := range outs {
		m[o.Name] = true
	}
	return m
}

// partitionAfter implements step 3: statements that read none of the
// recursive call's outputs and touch no global may be hoisted above it;
// everything else stays in the tail, in original order.
func partitionAfter(after []prim.Placed, callOutputs map[string]bool) (hoistable, tail []prim.Placed) {
	for _, p := range after {
		if dependsOnAny(p.Prim, callOutputs) || touchesGlobal(p.Prim) {
			tail = append(tail, p)
			continue
		}
		hoistable = append(hoistable, p)
	}
	return hoistable, tail
}

func dependsOnAny(p prim.Primitive, names map[string]bool) bool {
	for _, in := range p.Inputs() {
		if v, ok := in.(*prim.ArgVar); ok && names[v.Name] {
			return true
		}
	}
	return false
}

func touchesGlobal(p prim.Primitive) bool {
	for _, in := range p.Inputs() {
		if _, ok := in.(*prim.ArgGlobal); ok {
			return true
		}
	}
	return false
}

type mutateChain struct {
	mutate         *prim.PrimForeign
	valueIndex     int
	value          prim.PrimArg
	valueSourceVar string
	structureVar   string
	offset         int64
}

// validateMutateChains implements step 4: the tail must consist solely
// of `lpvm mutate` instructions whose value comes from a recursive
// call's output, whose structure/offset pairs never collide (a
// non-aliasing chain), and whose structure input isn't itself produced
// by the recursive call or by another chain in this same tail.
func validateMutateChains(tail []prim.Placed, callOutputs map[string]bool) ([]mutateChain, bool) {
	seenOffsets := map[string]bool{}
	chainOutputs := map[string]bool{}
	var chains []mutateChain
	for _, p := range tail {
		f, ok := p.Prim.(*prim.PrimForeign)
		if !ok || f.Lang != "lpvm" || f.Op != "mutate" {
			return nil, false
		}
		// lpvm mutate(addr, new-addr, offset, destructive, size, start, value)
		// per spec §4.1.6; the chain cares about the structure (addr), the
		// offset, and the value being written.
		if len(f.Args) != 7 {
			return nil, false
		}
		structure, offsetArg, value := f.Args[0], f.Args[2], f.Args[6]

		valueVar, ok := value.(*prim.ArgVar)
		if !ok || !callOutputs[valueVar.Name] {
			return nil, false
		}
		structVar, ok := structure.(*prim.ArgVar)
		if !ok {
			return nil, false
		}
		if callOutputs[structVar.Name] || chainOutputs[structVar.Name] {
			return nil, false // structure input produced by the call or another chain
		}
		offLit, ok := offsetArg.(*prim.ArgInt)
		if !ok {
			return nil, false
		}
		key := structVar.Name + "#" + offLit.String()
		if seenOffsets[key] {
			return nil, false // two writes sharing an offset: not non-aliasing
		}
		seenOffsets[key] = true

		for _, o := range f.Outputs() {
			chainOutputs[o.Name] = true
		}
		chains = append(chains, mutateChain{
			mutate: f, valueIndex: 6, value: value,
			valueSourceVar: valueVar.Name, structureVar: structVar.Name, offset: offLit.Value,
		})
	}
	return chains, len(chains) > 0
}

func takeReference(a prim.PrimArg) prim.PrimArg {
	if v, ok := a.(*prim.ArgVar); ok {
		clone := *v
		clone.Flow = types.TakeReference
		return &clone
	}
	return a
}

// promoteCallOutput flips the matching output argument of call to
// OutByReference (step 5).
func promoteCallOutput(call *prim.PrimCall, varName string) {
	for _, a := range call.Args {
		if v, ok := a.(*prim.ArgVar); ok && v.Name == varName && v.Flow.IsOutput() {
			v.Flow = types.OutByReference
		}
	}
}

// PromoteSingleUseMutates implements step 6: independent of recursion,
// any call whose output is already OutByReference and whose single
// subsequent use is a mutate gets that mutate's value argument
// converted to TakeReference too, writing the output directly into the
// destination field.
func PromoteSingleUseMutates(body *prim.ProcBody) {
	promoteSingleUseInBody(body)
}

func promoteSingleUseInBody(body *prim.ProcBody) {
	for i, p := range body.Prims {
		call, ok := p.Prim.(*prim.PrimCall)
		if !ok {
			continue
		}
		for _, out := range call.Outputs() {
			if out.Flow != types.OutByReference {
				continue
			}
			if i+1 >= len(body.Prims) {
				continue
			}
			next, ok := body.Prims[i+1].Prim.(*prim.PrimForeign)
			if !ok || next.Lang != "lpvm" || next.Op != "mutate" || len(next.Args) != 7 {
				continue
			}
			if v, ok := next.Args[6].(*prim.ArgVar); ok && v.Name == out.Name && usedOnceAfter(body.Prims, i+1, out.Name) {
				next.Args[6] = takeReference(v)
			}
		}
	}
	switch f := body.Fork.(type) {
	case *prim.PrimFork:
		for _, br := range f.Branches {
			promoteSingleUseInBody(br)
		}
	}
}

func usedOnceAfter(prims []prim.Placed, from int, name string) bool {
	count := 0
	for _, p := range prims[from:] {
		for _, in := range p.Prim.Inputs() {
			if v, ok := in.(*prim.ArgVar); ok && v.Name == name {
				count++
			}
		}
	}
	return count == 1
}

// Fixup implements step 7: coerce call arguments to OutByReference
// wherever the callee's declared parameter is OutByReference but the
// actual argument at this call site is still plain Out.
func Fixup(body *prim.ProcBody, params ParamFlows) {
	fixupBody(body, params)
}

func fixupBody(body *prim.ProcBody, params ParamFlows) {
	for _, p := range body.Prims {
		call, ok := p.Prim.(*prim.PrimCall)
		if !ok {
			continue
		}
		for i, a := range call.Args {
			v, ok := a.(*prim.ArgVar)
			if !ok || v.Flow != types.Out {
				continue
			}
			if want, ok := params.ParamFlow(call.Spec, i); ok && want == types.OutByReference {
				v.Flow = types.OutByReference
			}
		}
	}
	switch f := body.Fork.(type) {
	case *prim.PrimFork:
		for _, br := range f.Branches {
			fixupBody(br, params)
		}
	}
}
