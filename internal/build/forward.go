// Package build implements spec §4.3: the body builder. A forward pass
// accumulates primitives while applying copy propagation, constant
// folding, common-subexpression elimination (via a recorded-calls
// table with inverse/commuted equivalence forms), loaded-global
// caching, and fork fusion; a backward pass then eliminates dead
// instructions and marks last uses.
package build

import (
	"fmt"
	"strings"

	"github.com/wybe-lang/wybec/internal/prim"
)

// State is the forward-pass state of spec §4.3.1, threaded explicitly
// through every Append call rather than held in package globals (spec
// §5/§9: per-procedure state, no global mutable state).
type State struct {
	body          *prim.ProcBody
	subst         map[string]prim.PrimArg // variable -> proven-equal PrimArg (rhs of a move)
	outputRename  map[string]string       // variable -> output-parameter name it should fold to
	recorded      map[string][]prim.PrimArg
	loadedGlobals map[string]prim.PrimArg
	blockDefined  map[string]bool
	counter       *int

	// enableCSE and enableFold gate the recorded-calls table and Fold,
	// respectively, letting a config.Profile (spec §2) turn either pass
	// off without touching call sites; both default on in NewState.
	enableCSE  bool
	enableFold bool
}

// NewState creates an empty forward-pass state writing into a fresh
// ProcBody, with every optimisation enabled.
func NewState(counter *int) *State {
	return &State{
		body:          prim.NewProcBody(),
		subst:         make(map[string]prim.PrimArg),
		outputRename:  make(map[string]string),
		recorded:      make(map[string][]prim.PrimArg),
		loadedGlobals: make(map[string]prim.PrimArg),
		blockDefined:  make(map[string]bool),
		counter:       counter,
		enableCSE:     true,
		enableFold:    true,
	}
}

// WithOptimisations overrides which forward-pass optimisations are
// active, for a config.Profile (spec §2) that disables CSE or constant
// folding.
func (s *State) WithOptimisations(enableCSE, enableFold bool) *State {
	s.enableCSE = enableCSE
	s.enableFold = enableFold
	return s
}

// Body returns the ProcBody accumulated so far.
func (s *State) Body() *prim.ProcBody { return s.body }

// rewriteArg applies the current substitution to one argument (spec
// §4.3.2 step 1).
func (s *State) rewriteArg(a prim.PrimArg) prim.PrimArg {
	v, ok := a.(*prim.ArgVar)
	if !ok {
		return a
	}
	if sub, ok := s.subst[v.Name]; ok {
		return sub
	}
	return a
}

func (s *State) rewriteArgs(args []prim.PrimArg) []prim.PrimArg {
	out := make([]prim.PrimArg, len(args))
	for i, a := range args {
		out[i] = s.rewriteArg(a)
	}
	return out
}

// Append implements the instruction-rewrite pipeline of spec §4.3.2:
// rewrite inputs through the substitution, recognise moves and
// global load/store, look the canonicalised instruction up in the
// recorded-calls table (CSE), and otherwise emit it (recording pure
// instructions for future CSE hits, including their equivalence forms).
func (s *State) Append(p prim.Primitive) {
	switch v := p.(type) {
	case *prim.PrimForeign:
		s.appendForeign(v)
	case *prim.PrimCall:
		s.appendCall(v)
	case *prim.PrimHigher:
		rewritten := &prim.PrimHigher{Closure: s.rewriteArg(v.Closure), Args: s.rewriteArgs(v.Args)}
		s.emit(rewritten)
	default:
		s.emit(p)
	}
}

func (s *State) appendCall(c *prim.PrimCall) {
	rewritten := &prim.PrimCall{Spec: c.Spec, Args: s.rewriteArgs(c.Args)}
	s.emit(rewritten)
}

func (s *State) appendForeign(f *prim.PrimForeign) {
	args := s.rewriteArgs(f.Args)

	if f.Lang == "llvm" && f.Op == "move" && len(args) == 2 {
		if dst, ok := args[1].(*prim.ArgVar); ok {
			s.subst[dst.Name] = args[0]
			s.blockDefined[dst.Name] = true
		}
		s.emit(&prim.PrimForeign{Lang: f.Lang, Op: f.Op, Flags: f.Flags, Args: args})
		return
	}

	if f.Lang == "lpvm" && f.Op == "load" && len(args) == 2 {
		if g, ok := args[0].(*prim.ArgGlobal); ok {
			if cached, ok := s.loadedGlobals[g.Name]; ok {
				if dst, ok := args[1].(*prim.ArgVar); ok {
					s.subst[dst.Name] = cached
					s.blockDefined[dst.Name] = true
				}
				s.emit(&prim.PrimForeign{Lang: "llvm", Op: "move", Args: []prim.PrimArg{cached, args[1]}})
				return
			}
			if dst, ok := args[1].(*prim.ArgVar); ok {
				s.loadedGlobals[g.Name] = dst
			}
		}
	}

	if f.Lang == "lpvm" && f.Op == "store" && len(args) == 2 {
		if g, ok := args[0].(*prim.ArgGlobal); ok {
			if cur, ok := s.loadedGlobals[g.Name]; ok && canonicalEqual(cur, args[1]) {
				return // value already equals what's stored; drop the redundant store
			}
			s.loadedGlobals[g.Name] = args[1]
		}
	}

	if s.enableFold {
		if folded, ok := Fold(f, args); ok {
			s.appendForeign(folded)
			return
		}
	}

	if s.enableCSE {
		if cached, ok := s.lookupRecorded(f, args); ok {
			s.emitMovesFromRecorded(f, args, cached)
			return
		}
	}

	rewritten := &prim.PrimForeign{Lang: f.Lang, Op: f.Op, Flags: f.Flags, Args: args}
	s.emit(rewritten)

	if s.enableCSE && isPure(f) && !hasGlobalFlow(f) {
		s.record(rewritten)
	}
}

func (s *State) emit(p prim.Primitive) {
	s.body.Append(p)
	for _, o := range p.Outputs() {
		s.blockDefined[o.Name] = true
	}
}

// canonicalKey strips ArgFlowType, last-use marks, and type-level noise
// from an instruction so that two structurally-identical-up-to-those-
// details instructions hash the same (spec §4.3.2 step 4).
func canonicalKey(lang, op string, args []prim.PrimArg) string {
	var b strings.Builder
	b.WriteString(lang)
	b.WriteByte(' ')
	b.WriteString(op)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(canonicalArg(a))
	}
	return b.String()
}

func canonicalArg(a prim.PrimArg) string {
	if v, ok := a.(*prim.ArgVar); ok {
		return "$" + v.Name // drop flow/flowtype/last-use: identity is the name only
	}
	return a.String()
}

func canonicalEqual(a, b prim.PrimArg) bool {
	return canonicalArg(a) == canonicalArg(b)
}

// lookupRecorded keys purely on operation and *input* arguments: two
// instructions that differ only in which variable receives the result
// are the same computation, and a hit substitutes the recorded output
// in place of recomputing it.
func (s *State) lookupRecorded(f *prim.PrimForeign, args []prim.PrimArg) ([]prim.PrimArg, bool) {
	key := canonicalKey(f.Lang, f.Op, onlyInputs(args))
	out, ok := s.recorded[key]
	return out, ok
}

// record stores f under its own canonical form and every equivalence
// form registered for its operation (spec §4.3.4).
func (s *State) record(f *prim.PrimForeign) {
	outs := f.Outputs()
	outArgs := make([]prim.PrimArg, len(outs))
	for i, o := range outs {
		outArgs[i] = o
	}
	s.recorded[canonicalKey(f.Lang, f.Op, onlyInputs(f.Args))] = outArgs
	for _, eq := range Equivalences(f) {
		s.recorded[canonicalKey(eq.Lang, eq.Op, onlyInputs(eq.Args))] = eq.Outputs
	}
}

// onlyInputs drops output-flow ArgVars, so the recorded-calls table
// keys purely on what an instruction reads, not where it writes.
func onlyInputs(args []prim.PrimArg) []prim.PrimArg {
	var out []prim.PrimArg
	for _, a := range args {
		if v, ok := a.(*prim.ArgVar); ok && v.Flow.IsOutput() {
			continue
		}
		out = append(out, a)
	}
	return out
}

// emitMovesFromRecorded emits a move from each recorded output to the
// corresponding output of the current instruction instead of the
// instruction itself (spec §4.3.2 step 4 / §8 property 6, CSE
// soundness).
func (s *State) emitMovesFromRecorded(f *prim.PrimForeign, args, recordedOutputs []prim.PrimArg) {
	curOutputs := f.Outputs()
	for i, cur := range curOutputs {
		if i >= len(recordedOutputs) {
			break
		}
		s.subst[cur.Name] = recordedOutputs[i]
		s.emit(&prim.PrimForeign{Lang: "llvm", Op: "move", Args: []prim.PrimArg{recordedOutputs[i], cur}})
	}
}

func isPure(f *prim.PrimForeign) bool {
	switch f.Op {
	case "store", "alloc", "mutate":
		return false
	default:
		return true
	}
}

func hasGlobalFlow(f *prim.PrimForeign) bool {
	for _, a := range f.Args {
		if _, ok := a.(*prim.ArgGlobal); ok {
			return true
		}
	}
	return false
}

func (s *State) freshVar(prefix string, ty interface{}) string {
	*s.counter++
	return fmt.Sprintf("%s%d", prefix, *s.counter)
}

// Rebuild runs the whole forward pass of spec §4.3.1-§4.3.5 over an
// unbranched ProcBody: every placed primitive is re-appended through a
// fresh State (triggering substitution, folding, and CSE), and each
// fork branch continues from a clone of the state reached at the fork
// point (branches share the prefix's knowledge but never leak into
// each other or the parent).
func Rebuild(body *prim.ProcBody, counter *int) *prim.ProcBody {
	return NewState(counter).runBody(body)
}

// RebuildWithOptions is Rebuild with CSE and constant folding toggled
// per a config.Profile.
func RebuildWithOptions(body *prim.ProcBody, counter *int, enableCSE, enableFold bool) *prim.ProcBody {
	return NewState(counter).WithOptimisations(enableCSE, enableFold).runBody(body)
}

func (s *State) runBody(body *prim.ProcBody) *prim.ProcBody {
	for _, p := range body.Prims {
		s.Append(p.Prim)
	}
	switch f := body.Fork.(type) {
	case *prim.PrimFork:
		s.buildFork(f)
	}
	return s.body
}

// buildFork implements spec §4.3.5's fork-fusion mechanism. If the
// switch variable already has a known constant substitution, the
// branch it selects is the only one that can ever be taken, so the
// fork itself is elided (inner-fork elision: a fork fused into its
// outer branch never reaches here with an unknown switch variable).
// Otherwise every branch is built from a clone extended with
// `switchVar = branch index` (unless that variable is already bound),
// and on completion any variable constant with the same value across
// every branch is promoted into the parent's own substitution — the
// "fork constant" that lets a later, nested buildFork on that variable
// take the elision path above instead of emitting a real branch.
func (s *State) buildFork(f *prim.PrimFork) {
	resolved := s.rewriteSwitchVar(f.SwitchVar)

	if known, ok := constIntValue(s.subst[resolved]); ok {
		idx := clampBranch(int(known), len(f.Branches))
		taken := s.branchState(resolved, idx).runBody(f.Branches[idx])
		s.body.Prims = append(s.body.Prims, taken.Prims...)
		s.body.Fork = taken.Fork
		return
	}

	branchStates := make([]*State, len(f.Branches))
	branches := make([]*prim.ProcBody, len(f.Branches))
	for i, br := range f.Branches {
		branchStates[i] = s.branchState(resolved, i)
		branches[i] = branchStates[i].runBody(br)
	}
	for name, val := range commonConstants(branchStates) {
		s.subst[name] = val
	}
	s.body.Fork = &prim.PrimFork{SwitchVar: resolved, Type: f.Type, LastUse: f.LastUse, Branches: branches}
}

// branchState clones s for entry into the given branch of a fork on
// switchVar, extending the substitution with switchVar = branch (spec
// §4.3.5 step 2) unless the variable is already known.
func (s *State) branchState(switchVar string, branch int) *State {
	child := s.clone()
	if _, ok := child.subst[switchVar]; !ok {
		child.subst[switchVar] = &prim.ArgInt{Value: int64(branch)}
	}
	return child
}

// commonConstants finds the variables that ended up bound to the same
// integer constant in every one of states (spec §4.3.5 step 3's
// "fork constants"), for promotion into the parent's substitution.
func commonConstants(states []*State) map[string]prim.PrimArg {
	if len(states) == 0 {
		return nil
	}
	shared := make(map[string]prim.PrimArg)
	for name, val := range states[0].subst {
		if lit, ok := val.(*prim.ArgInt); ok {
			shared[name] = lit
		}
	}
	for _, st := range states[1:] {
		for name, val := range shared {
			lit := val.(*prim.ArgInt)
			other, ok := st.subst[name].(*prim.ArgInt)
			if !ok || other.Value != lit.Value {
				delete(shared, name)
			}
		}
	}
	return shared
}

func constIntValue(a prim.PrimArg) (int64, bool) {
	lit, ok := a.(*prim.ArgInt)
	if !ok {
		return 0, false
	}
	return lit.Value, true
}

func clampBranch(idx, n int) int {
	if idx < 0 || idx >= n {
		return 0
	}
	return idx
}

func (s *State) rewriteSwitchVar(name string) string {
	if sub, ok := s.subst[name]; ok {
		if v, ok := sub.(*prim.ArgVar); ok {
			return v.Name
		}
	}
	return name
}

// clone produces a per-branch State that inherits the parent's
// knowledge at the fork point but accumulates into its own fresh
// ProcBody and cannot mutate the parent's or a sibling's tables.
func (s *State) clone() *State {
	return &State{
		body:          prim.NewProcBody(),
		subst:         cloneArgMap(s.subst),
		outputRename:  cloneStringMap(s.outputRename),
		recorded:      cloneArgSliceMap(s.recorded),
		loadedGlobals: cloneArgMap(s.loadedGlobals),
		blockDefined:  cloneBoolMap(s.blockDefined),
		counter:       s.counter,
		enableCSE:     s.enableCSE,
		enableFold:    s.enableFold,
	}
}

func cloneArgMap(m map[string]prim.PrimArg) map[string]prim.PrimArg {
	out := make(map[string]prim.PrimArg, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneArgSliceMap(m map[string][]prim.PrimArg) map[string][]prim.PrimArg {
	out := make(map[string][]prim.PrimArg, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
