package unbranch

import (
	"fmt"

	"github.com/wybe-lang/wybec/internal/ast"
	"github.com/wybe-lang/wybec/internal/errors"
	"github.com/wybe-lang/wybec/internal/modecheck"
	"github.com/wybe-lang/wybec/internal/prim"
	"github.com/wybe-lang/wybec/internal/types"
)

// Lifted is a fresh top-level procedure produced by loop lifting or
// continuation lifting (spec §4.2.2). Closures are not hoisted: the AST
// has no anonymous-procedure expression to hoist.
type Lifted struct {
	Name   string
	Params []prim.ProcSpecRef // placeholder identity until procspec assigns a real ID
	Body   *prim.ProcBody
}

// Unbrancher flattens one procedure's checked body into a ProcBody,
// lifting loops and continuations into fresh procedures as needed.
// One Unbrancher is used per procedure (spec §5: per-procedure state).
type Unbrancher struct {
	module     string
	base       string // base name used to mint fresh lifted-procedure names
	counter    *int   // shared temp/name counter, passed in by the caller
	resolved   map[*ast.Call]*modecheck.ResolvedCall
	lifted     []*Lifted
	// continuationThreshold is the configurable "trivial" statement
	// count of spec §4.2.2 below which a continuation is duplicated
	// inline rather than lifted into a fresh procedure.
	continuationThreshold int
}

// NewUnbrancher creates an unbrancher for one procedure named base in
// module, given the mode checker's resolved-call index and a shared
// fresh-name counter.
func NewUnbrancher(module, base string, counter *int, resolved map[*ast.Call]*modecheck.ResolvedCall) *Unbrancher {
	return &Unbrancher{
		module:                 module,
		base:                   base,
		counter:                counter,
		resolved:               resolved,
		continuationThreshold:  3,
	}
}

// WithContinuationThreshold overrides the "trivial" statement-count
// threshold (spec §4.2.2) used to decide whether a conditional's shared
// continuation is duplicated inline or lifted into a fresh procedure,
// letting a config.Profile tune it per compile. A non-positive n leaves
// the constructor's default in place.
func (u *Unbrancher) WithContinuationThreshold(n int) *Unbrancher {
	if n > 0 {
		u.continuationThreshold = n
	}
	return u
}

func (u *Unbrancher) freshName(suffix string) string {
	*u.counter++
	return fmt.Sprintf("%s__%s%d", u.base, suffix, *u.counter)
}

// Lifted returns every fresh procedure minted while unbranching.
func (u *Unbrancher) Lifted() []*Lifted { return u.lifted }

// Unbranch is the public entry point (spec §4.2.1): flattens stmts into
// b, recursively handling the full statement variant.
func (u *Unbrancher) Unbranch(b *Builder, stmts []ast.Stmt) error {
	for i, s := range stmts {
		if err := u.unbranchStmt(b, s, stmts[i+1:]); err != nil {
			return err
		}
		switch s.(type) {
		case *ast.Call, *ast.ForeignCall, *ast.Nop:
			continue
		}
		// Every other statement has either taken the rest of stmts as
		// its continuation or (Fail) ended this sequence.
		return nil
	}
	return nil
}

func (u *Unbrancher) unbranchStmt(b *Builder, s ast.Stmt, cont []ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Call:
		b.Emit(u.lowerCall(st))
		return nil
	case *ast.ForeignCall:
		b.Emit(u.lowerForeign(st))
		return nil
	case *ast.Nop:
		return nil
	case *ast.Fail:
		// Open question (spec §9): Fail does not re-emit the
		// already-built alternative code; it simply terminates this
		// disjunct's statement sequence. See DESIGN.md.
		return nil
	case *ast.TestBool:
		return u.unbranchTest(b, &ast.Cond{
			Condition: st,
			Then:      cont,
			Else:      nil,
		}, nil)
	case *ast.Conj:
		return u.Unbranch(b, append(append([]ast.Stmt{}, st.Stmts...), cont...))
	case *ast.Negation:
		return u.unbranchNegation(b, st, cont)
	case *ast.Disj:
		return u.unbranchDisj(b, st, cont)
	case *ast.Cond:
		return u.unbranchTest(b, st, cont)
	case *ast.Loop:
		return u.unbranchLoop(b, st, cont)
	case *ast.UseResources:
		return u.Unbranch(b, append(append([]ast.Stmt{}, st.Body...), cont...))
	case *ast.Break, *ast.Next:
		// Handled by unbranchLoop via sentinel substitution before this
		// point is reached; seeing one here means it escaped its loop.
		return errors.WrapReport(errors.New(errors.UNB001, "unbranch",
			"break/next outside a loop", s.Position()))
	case *ast.Case:
		return errors.WrapReport(errors.New(errors.UNB002, "unbranch",
			"Case must be eliminated before unbranching", s.Position()))
	default:
		return errors.WrapReport(errors.New(errors.UNB003, "unbranch",
			fmt.Sprintf("unexpected statement shape %T", s), ast.Pos{}))
	}
}

// lowerCall converts a resolved ast.Call into a PrimCall, looking up its
// flow directions from the mode checker's index.
func (u *Unbrancher) lowerCall(call *ast.Call) *prim.PrimCall {
	rc, ok := u.resolved[call]
	args := make([]prim.PrimArg, len(call.Args))
	for i, a := range call.Args {
		flow := types.In
		if ok && i < len(rc.Args) {
			flow = rc.Args[i].Flow
		}
		args[i] = toPrimArg(a, flow)
	}
	calleeID := 0
	module, name := call.Module, call.Name
	if ok {
		calleeID = rc.CalleeID
	}
	return &prim.PrimCall{
		Spec: prim.ProcSpecRef{Module: module, Name: name, ID: calleeID},
		Args: args,
	}
}

func (u *Unbrancher) lowerForeign(fc *ast.ForeignCall) *prim.PrimForeign {
	args := make([]prim.PrimArg, len(fc.Args))
	for i, a := range fc.Args {
		flow := types.In
		if i == len(fc.Args)-1 {
			flow = types.Out // every table in spec §4.1.6 places the output last
		}
		args[i] = toPrimArg(a, flow)
	}
	return &prim.PrimForeign{Lang: fc.Lang.String(), Op: fc.Op, Flags: fc.Flags, Args: args}
}

func toPrimArg(a ast.Arg, flow types.FlowDirection) prim.PrimArg {
	switch v := a.(type) {
	case *ast.VarArg:
		return &prim.ArgVar{Name: v.Name, Flow: flow, Type: types.AnyType{}}
	case *ast.IntArg:
		return &prim.ArgInt{Value: v.Value, Type: types.Int}
	case *ast.FloatArg:
		return &prim.ArgFloat{Value: v.Value, Type: types.Float}
	case *ast.StringArg:
		return &prim.ArgString{Value: v.Value}
	case *ast.CharArg:
		return &prim.ArgChar{Value: v.Value}
	default:
		return prim.ArgUndefined{}
	}
}

// unbranchNegation swaps success/failure continuations: the body
// succeeds (with none of stmt's bindings visible) exactly when stmt
// fails, and fails when stmt succeeds.
func (u *Unbrancher) unbranchNegation(b *Builder, n *ast.Negation, cont []ast.Stmt) error {
	// Lower to: if Stmt then fail else cont — negation swaps the
	// success and failure continuations of its operand.
	inner := &ast.Cond{
		Condition: n.Stmt,
		Then:      []ast.Stmt{&ast.Fail{Pos: n.Pos}},
		Else:      cont,
	}
	return u.unbranchStmt(b, inner, nil)
}

// unbranchDisj tries each alternative, committing to the first that
// succeeds (spec §4.2.2 "Test decomposition"). Implemented as nested
// conditionals: each alternative becomes the then-branch of a test on
// its own success, threaded as the else of the previous alternative.
func (u *Unbrancher) unbranchDisj(b *Builder, d *ast.Disj, cont []ast.Stmt) error {
	if len(d.Alts) == 0 {
		return u.unbranchStmt(b, &ast.Fail{Pos: d.Pos}, nil)
	}
	return u.unbranchDisjFrom(b, d.Alts, cont)
}

func (u *Unbrancher) unbranchDisjFrom(b *Builder, alts [][]ast.Stmt, cont []ast.Stmt) error {
	if len(alts) == 1 {
		return u.Unbranch(b, append(append([]ast.Stmt{}, alts[0]...), cont...))
	}
	// Build: try alts[0]; on failure, fall through to the rest. Without
	// a real backtracking runtime in this static pass, we model the
	// commit-to-first-success shape as a conditional whose condition is
	// alts[0]'s own (already SemiDet-lowered) success test.
	return u.unbranchTest(b, &ast.Cond{
		Condition: &ast.Conj{Stmts: alts[0]},
		Then:      cont,
		Else:      []ast.Stmt{disjOf(alts[1:])},
	}, nil)
}

func disjOf(alts [][]ast.Stmt) ast.Stmt {
	return &ast.Disj{Alts: alts}
}

// unbranchTest lowers a Cond whose Condition has already been reduced by
// mode checking to a single TestBool, producing the terminal PrimFork of
// spec §3/§4.2.1. When the condition is not already a bare TestBool
// (e.g. it is a Call or Conj that must run first), it is unbranched as a
// conjunction ending in its own implicit test.
//
// tail is the shared statement sequence that runs after the conditional
// regardless of which branch is taken (spec §4.2.2 continuation
// lifting). When tail is short enough (at most continuationThreshold
// statements) it is simply duplicated into both branches; otherwise it
// is lifted into a single fresh procedure that each branch calls, so
// the duplicate code only exists once.
func (u *Unbrancher) unbranchTest(b *Builder, cond *ast.Cond, tail []ast.Stmt) error {
	testVar, prelude, err := u.flattenCondition(cond.Condition)
	if err != nil {
		return err
	}
	for _, s := range prelude {
		if err := u.unbranchStmt(b, s, nil); err != nil {
			return err
		}
	}

	trivial := len(tail) <= u.continuationThreshold

	var contName string
	if !trivial {
		contName = u.freshName("cont")
		contBody := prim.NewProcBody()
		contBuilder := &Builder{body: contBody, phase: Unforked}
		if err := u.Unbranch(contBuilder, tail); err != nil {
			return err
		}
		u.lifted = append(u.lifted, &Lifted{Name: contName, Body: contBody})
	}

	b.BeginFork(testVar, types.Bool, false, 2)
	thenBuilder := b.Branch(0)
	elseBuilder := b.Branch(1)
	if err := u.unbranchBranchWithTail(thenBuilder, cond.Then, tail, trivial, contName); err != nil {
		return err
	}
	if err := u.unbranchBranchWithTail(elseBuilder, cond.Else, tail, trivial, contName); err != nil {
		return err
	}
	b.CompleteFork()
	return nil
}

// unbranchBranchWithTail unbranches one arm's own statements, then either
// inlines tail directly (trivial) or emits a single call to the already-
// lifted continuation procedure named contName.
func (u *Unbrancher) unbranchBranchWithTail(b *Builder, branch, tail []ast.Stmt, trivial bool, contName string) error {
	if trivial {
		return u.Unbranch(b, append(append([]ast.Stmt{}, branch...), tail...))
	}
	if err := u.Unbranch(b, branch); err != nil {
		return err
	}
	b.Emit(&prim.PrimCall{Spec: prim.ProcSpecRef{Module: u.module, Name: contName}})
	return nil
}

// flattenCondition reduces a condition statement to a bare boolean
// variable name plus any statements that must run first to compute it,
// matching the invariant that a surviving Cond's condition is a single
// TestBool of a variable (spec §3 invariants, §8 property 2).
func (u *Unbrancher) flattenCondition(s ast.Stmt) (string, []ast.Stmt, error) {
	switch st := s.(type) {
	case *ast.TestBool:
		return st.Var, nil, nil
	case *ast.Call, *ast.ForeignCall, *ast.Conj:
		flag := u.freshName("cond")
		return flag, []ast.Stmt{s}, nil
	default:
		return "", nil, errors.WrapReport(errors.New(errors.UNB004, "unbranch",
			"condition does not reduce to a boolean test", s.Position()))
	}
}

// unbranchLoop implements spec §4.2.2's loop lifting: a fresh `next`
// procedure whose body replaces every Next with a recursive call to
// itself and every Break with a call to a fresh `brk` procedure whose
// body is the loop's continuation; the loop site becomes a single call
// to `next`.
func (u *Unbrancher) unbranchLoop(b *Builder, loop *ast.Loop, cont []ast.Stmt) error {
	nextName := u.freshName("next")
	brkName := u.freshName("brk")

	brkBody := prim.NewProcBody()
	brkBuilder := &Builder{body: brkBody, phase: Unforked}
	if err := u.Unbranch(brkBuilder, cont); err != nil {
		return err
	}
	u.lifted = append(u.lifted, &Lifted{Name: brkName, Body: brkBody})

	nextBody := prim.NewProcBody()
	nextBuilder := &Builder{body: nextBody, phase: Unforked}
	rewritten := substituteBreakNext(loop.Body, u.module, nextName, brkName)
	if err := u.Unbranch(nextBuilder, rewritten); err != nil {
		return err
	}
	u.lifted = append(u.lifted, &Lifted{Name: nextName, Body: nextBody})

	b.Emit(&prim.PrimCall{Spec: prim.ProcSpecRef{Module: u.module, Name: nextName}})
	return nil
}

// substituteBreakNext rewrites Break -> call brk() and Next -> call
// next() throughout body, recursing into nested structured control but
// stopping at a nested Loop's own Break/Next (those belong to the inner
// loop).
func substituteBreakNext(body []ast.Stmt, module, nextName, brkName string) []ast.Stmt {
	out := make([]ast.Stmt, len(body))
	for i, s := range body {
		out[i] = substituteOne(s, module, nextName, brkName)
	}
	return out
}

func substituteOne(s ast.Stmt, module, nextName, brkName string) ast.Stmt {
	switch st := s.(type) {
	case *ast.Break:
		return &ast.Call{Module: module, Name: brkName, Pos: st.Pos}
	case *ast.Next:
		return &ast.Call{Module: module, Name: nextName, Pos: st.Pos}
	case *ast.Cond:
		cp := *st
		cp.Then = substituteBreakNext(st.Then, module, nextName, brkName)
		cp.Else = substituteBreakNext(st.Else, module, nextName, brkName)
		return &cp
	case *ast.Conj:
		return &ast.Conj{Stmts: substituteBreakNext(st.Stmts, module, nextName, brkName), Pos: st.Pos}
	case *ast.Disj:
		alts := make([][]ast.Stmt, len(st.Alts))
		for i, alt := range st.Alts {
			alts[i] = substituteBreakNext(alt, module, nextName, brkName)
		}
		return &ast.Disj{Alts: alts, Pos: st.Pos}
	case *ast.Negation:
		return &ast.Negation{Stmt: substituteOne(st.Stmt, module, nextName, brkName), Pos: st.Pos}
	case *ast.Loop:
		// A nested loop owns its own Break/Next; leave it untouched.
		return st
	default:
		return s
	}
}
