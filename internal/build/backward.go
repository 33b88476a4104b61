package build

import "github.com/wybe-lang/wybec/internal/prim"

// Finalize implements spec §4.3.6: a backward liveness pass over the
// already-built, fused ProcBody that drops dead moves and other pure
// instructions whose outputs are never used, and marks each surviving
// input variable reference with LastUse the first time it is seen
// scanning backward (i.e. its true last use scanning forward).
//
// liveOutputs are the procedure's own output parameter names, which
// are live at every return point regardless of what the fork decided.
func Finalize(body *prim.ProcBody, liveOutputs []string) *prim.ProcBody {
	live := newVarSet(liveOutputs...)
	finalizeBody(body, live)
	return body
}

// finalizeBody mutates body in place and returns the set of variables
// live immediately *before* it runs (i.e. the set the caller must fold
// into its own live-after set).
func finalizeBody(body *prim.ProcBody, liveAfterFork varSet) varSet {
	switch f := body.Fork.(type) {
	case *prim.PrimFork:
		merged := newVarSet()
		for _, br := range f.Branches {
			before := finalizeBody(br, liveAfterFork.clone())
			merged.union(before)
		}
		merged.add(f.SwitchVar)
		liveAfterFork = merged
	case prim.NoFork:
		// liveAfterFork already holds the procedure's own outputs
	}

	live := liveAfterFork
	kept := make([]prim.Placed, 0, len(body.Prims))
	for i := len(body.Prims) - 1; i >= 0; i-- {
		p := body.Prims[i]
		outs := p.Prim.Outputs()
		anyLive := false
		for _, o := range outs {
			if live.has(o.Name) {
				anyLive = true
			}
		}
		if len(outs) > 0 && !anyLive && isDroppable(p.Prim) {
			continue // dead move / dead pure instruction, spec §4.3.6
		}
		for _, o := range outs {
			live.remove(o.Name)
		}
		for _, in := range p.Prim.Inputs() {
			if v, ok := in.(*prim.ArgVar); ok {
				if !live.has(v.Name) {
					v.LastUse = true
					live.add(v.Name)
				}
			}
		}
		kept = append(kept, p)
	}
	// kept was built in reverse; restore forward order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	body.Prims = kept
	return live
}

func isDroppable(p prim.Primitive) bool {
	f, ok := p.(*prim.PrimForeign)
	if !ok {
		return false // calls may have effects; never dropped by liveness alone
	}
	switch f.Op {
	case "store", "alloc", "mutate":
		return false
	default:
		return true
	}
}

type varSet map[string]bool

func newVarSet(names ...string) varSet {
	s := make(varSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

func (s varSet) has(name string) bool { return s[name] }
func (s varSet) add(name string)      { s[name] = true }
func (s varSet) remove(name string)   { delete(s, name) }
func (s varSet) union(other varSet) {
	for k := range other {
		s[k] = true
	}
}
func (s varSet) clone() varSet {
	out := make(varSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}
