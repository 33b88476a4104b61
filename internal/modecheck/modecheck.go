package modecheck

import (
	"fmt"
	"sort"

	"github.com/wybe-lang/wybec/internal/ast"
	"github.com/wybe-lang/wybec/internal/errors"
	"github.com/wybe-lang/wybec/internal/types"
)

// ResolvedArg is one call argument after mode resolution: the original
// AST argument plus its resolved flow direction and flow type.
type ResolvedArg struct {
	Arg      ast.Arg
	Flow     types.FlowDirection
	FlowType types.ArgFlowType
}

// ResolvedCall is a Call rewritten with resolved flow directions, ready
// for the unbrancher. Orig points back at the source Call so that later
// passes (internal/unbranch) can zip this information back onto the
// statement tree they walk independently.
type ResolvedCall struct {
	Orig        *ast.Call
	Module      string
	Name        string
	CalleeID    int
	Args        []ResolvedArg
	Determinism types.Determinism
}

// delayedCall is an entry in the mode checker's worklist: a call whose
// inputs are not yet all bound, waiting on the named variables.
type delayedCall struct {
	call    *ast.Call
	await   map[string]bool
	resume  func(State) (State, error)
}

// Checker type- and mode-checks one procedure at a time (spec §4.1.1) in
// a single traversal: argument types are looked up or given fresh type
// variables as each call's modes are resolved; there is no separate
// inference pass before mode checking. It is not safe for concurrent use (spec §5: checking one
// procedure is single-threaded).
type Checker struct {
	lookup  Lookup
	typing  *types.Typing
	errors  []error
	delayed []*delayedCall
	calls   []*ResolvedCall
	ctxDet  types.Determinism
	onBreak func(State) // set while checking a Loop body; receives each Break's state
}

// NewChecker creates a checker bound to a candidate lookup (the SCC
// driver's procedure table).
func NewChecker(lookup Lookup) *Checker {
	return &Checker{
		lookup: lookup,
		typing: types.NewTyping(),
		ctxDet: types.SemiDet, // most permissive context unless the proc declares Det
	}
}

// Result is everything CheckProc produces for one procedure.
type Result struct {
	Calls       []*ResolvedCall
	FinalState  State
	Determinism types.Determinism
	Errors      []error
}

// CheckProc type- and mode-checks a procedure's body in one traversal
// (spec §4.1.1). A procedure whose declared determinism is Det rejects
// any SemiDet call in its body (spec §4.2.4 / Determinism.AtMost).
func (c *Checker) CheckProc(proc *ast.ProcDecl) *Result {
	if proc.Determinism == ast.DetDet {
		c.ctxDet = types.Det
	}

	initial := Bound(boundParamNames(proc)...)
	final, err := c.checkStmts(proc.Body, initial)
	if err != nil {
		c.errors = append(c.errors, err)
	}

	c.drainRemaining()

	det := types.Det
	if final.Kind == Possible {
		det = types.SemiDet
	} else if final.Kind == Failing {
		det = types.Failure
	} else if final.Kind == Impossible {
		det = types.Terminal
	}

	allErrors := append(append([]error{}, c.typing.Errors...), c.errors...)
	return &Result{
		Calls:       c.calls,
		FinalState:  final,
		Determinism: det,
		Errors:      allErrors,
	}
}

// ByCall indexes the resolved calls by the *ast.Call they originated
// from, so that internal/unbranch can walk the same statement tree and
// look up each call's resolved flow directions independently.
func (r *Result) ByCall() map[*ast.Call]*ResolvedCall {
	m := make(map[*ast.Call]*ResolvedCall, len(r.Calls))
	for _, c := range r.Calls {
		m[c.Orig] = c
	}
	return m
}

func boundParamNames(proc *ast.ProcDecl) []string {
	var names []string
	for _, p := range proc.Params {
		if p.Flow == ast.FlowIn {
			names = append(names, p.Name)
		}
	}
	return names
}

// checkStmts folds checkStmt over a sequence, threading binding state
// sequentially (spec §4.1.3 "Sequencing").
func (c *Checker) checkStmts(stmts []ast.Stmt, state State) (State, error) {
	for _, s := range stmts {
		var err error
		state, err = c.checkStmt(s, state)
		if err != nil {
			return state, err
		}
	}
	return state, nil
}

func (c *Checker) checkStmt(s ast.Stmt, state State) (State, error) {
	switch st := s.(type) {
	case *ast.Call:
		return c.checkCall(st, state)
	case *ast.ForeignCall:
		return c.checkForeignCall(st, state)
	case *ast.TestBool:
		if !state.IsBound(st.Var) {
			return state, errors.WrapReport(errors.New(errors.MC001, "modecheck",
				fmt.Sprintf("test of unbound variable %s", st.Var), st.Pos))
		}
		return State{Kind: Possible, Vars: state.Vars}, nil
	case *ast.Conj:
		return c.checkStmts(st.Stmts, state)
	case *ast.Disj:
		return c.checkDisj(st, state)
	case *ast.Negation:
		inner, err := c.checkStmt(st.Stmt, state)
		if err != nil {
			return state, err
		}
		// Negation swaps success/failure: whatever the inner statement
		// bound is not visible afterwards.
		switch inner.Kind {
		case Succeeding:
			return FailingState(), nil
		case Failing:
			return State{Kind: Succeeding, Vars: state.Vars}, nil
		default:
			return State{Kind: Possible, Vars: state.Vars}, nil
		}
	case *ast.Cond:
		return c.checkCond(st, state)
	case *ast.Loop:
		return c.checkLoop(st, state)
	case *ast.UseResources:
		return c.checkStmts(st.Body, state)
	case *ast.Nop:
		return state, nil
	case *ast.Fail:
		return FailingState(), nil
	case *ast.Break:
		if c.onBreak != nil {
			c.onBreak(state)
		}
		return ImpossibleState(), nil
	case *ast.Next:
		return ImpossibleState(), nil
	case *ast.Case:
		return state, errors.WrapReport(errors.New(errors.MC002, "modecheck",
			"Case must be eliminated before mode checking", st.Pos))
	default:
		return state, errors.WrapReport(errors.New(errors.MC003, "modecheck",
			fmt.Sprintf("unexpected statement shape %T", s), ast.Pos{}))
	}
}

func (c *Checker) checkDisj(d *ast.Disj, state State) (State, error) {
	var joined State
	first := true
	for _, alt := range d.Alts {
		s, err := c.checkStmts(alt, state)
		if err != nil {
			return state, err
		}
		if first {
			joined = s
			first = false
		} else {
			joined = Join(joined, s)
		}
	}
	d.ExitVars = joined.SortedVars()
	return joined, nil
}

func (c *Checker) checkCond(cond *ast.Cond, state State) (State, error) {
	condState, err := c.checkStmt(cond.Condition, state)
	if err != nil {
		return state, err
	}
	cond.CondVars = condState.SortedVars()

	thenIn := State{Kind: Succeeding, Vars: condState.Vars}
	thenOut, err := c.checkStmts(cond.Then, thenIn)
	if err != nil {
		return state, err
	}
	elseOut, err := c.checkStmts(cond.Else, state)
	if err != nil {
		return state, err
	}
	joined := Join(thenOut, elseOut)
	cond.ExitVars = joined.SortedVars()
	return joined, nil
}

func (c *Checker) checkLoop(loop *ast.Loop, state State) (State, error) {
	var breaks []State
	saveBreak := c.onBreak
	c.onBreak = func(s State) { breaks = append(breaks, s) }
	defer func() { c.onBreak = saveBreak }()

	if _, err := c.checkStmts(loop.Body, state); err != nil {
		return state, err
	}
	out := LoopJoin(breaks)
	loop.ExitVars = out.SortedVars()
	return out, nil
}

func (c *Checker) checkForeignCall(fc *ast.ForeignCall, state State) (State, error) {
	argTypes := make([]types.TypeSpec, len(fc.Args))
	for i, a := range fc.Args {
		argTypes[i] = c.argType(a)
	}
	if err := CheckForeign(fc, argTypes); err != nil {
		return state, err
	}
	// Conservatively, the last argument of an lpvm/llvm instruction is
	// its output in every operation table of spec §4.1.6.
	out := state
	if len(fc.Args) > 0 {
		if v, ok := fc.Args[len(fc.Args)-1].(*ast.VarArg); ok {
			out = state.WithBound(v.Name)
		}
	}
	return out, nil
}

func (c *Checker) checkCall(call *ast.Call, state State) (State, error) {
	argTypes := make([]types.TypeSpec, len(call.Args))
	argVars := make([]string, len(call.Args))
	for i, a := range call.Args {
		argTypes[i] = c.argType(a)
		if v, ok := a.(*ast.VarArg); ok {
			argVars[i] = v.Name
		}
	}

	cand, alt, err := ResolveOverload(c.lookup, call.Module, call.Name, argVars, argTypes, c.ctxDet, call.Pos)
	if err != nil {
		return state, err
	}
	if alt != nil {
		c.typing.Alts = append(c.typing.Alts, alt)
		// Heuristically proceed with the first candidate's shape so
		// checking of the rest of the body is not blocked; final
		// commitment happens via typing.SetType's alternative-narrowing
		// once enough later bindings accumulate.
		cand = &Candidate{CalleeID: -1, ParamTypes: alt.Tuples[0], Determinism: types.Det}
	}

	if !cand.Determinism.AtMost(c.ctxDet) {
		return state, errors.WrapReport(errors.New(errors.MC004, "modecheck",
			fmt.Sprintf("semidet call %s.%s in deterministic context", call.Module, call.Name), call.Pos))
	}

	return c.resolveCallModes(call, cand, state)
}

// resolveCallModes implements spec §4.1.5: classify each argument's
// actual mode, reject input-not-available, accept an exact match, or
// delay the call until its unknown-flow arguments become available.
func (c *Checker) resolveCallModes(call *ast.Call, cand *Candidate, state State) (State, error) {
	resolved := make([]ResolvedArg, len(call.Args))
	out := state
	var awaiting map[string]bool

	for i, a := range call.Args {
		declaredFlow := types.Unknown
		if i < len(cand.ParamFlows) {
			declaredFlow = cand.ParamFlows[i]
		} else if i < len(cand.ParamTypes) {
			declaredFlow = types.In
		} else {
			// Promoted trailing success-flag output (spec §4.1.4 step 2).
			declaredFlow = types.Out
		}

		v, isVar := a.(*ast.VarArg)
		switch {
		case !isVar:
			if declaredFlow.IsOutput() {
				return state, errors.WrapReport(errors.New(errors.MC005, "modecheck",
					"literal argument cannot be bound as output", a.Position()))
			}
			resolved[i] = ResolvedArg{Arg: a, Flow: types.In, FlowType: types.Ordinary}
		case declaredFlow == types.In:
			if !out.IsBound(v.Name) {
				if awaiting == nil {
					awaiting = map[string]bool{}
				}
				awaiting[v.Name] = true
			}
			resolved[i] = ResolvedArg{Arg: a, Flow: types.In, FlowType: types.Ordinary}
		case declaredFlow.IsOutput():
			out = out.WithBound(v.Name)
			resolved[i] = ResolvedArg{Arg: a, Flow: declaredFlow, FlowType: types.Ordinary}
		default: // Unknown: commit-able as either direction (spec §4.1.5 delayable match)
			if out.IsBound(v.Name) {
				resolved[i] = ResolvedArg{Arg: a, Flow: types.In, FlowType: types.Ordinary}
			} else {
				out = out.WithBound(v.Name)
				resolved[i] = ResolvedArg{Arg: a, Flow: types.Out, FlowType: types.Ordinary}
			}
		}
	}

	rc := &ResolvedCall{
		Orig:        call,
		Module:      call.Module,
		Name:        call.Name,
		CalleeID:    cand.CalleeID,
		Args:        resolved,
		Determinism: cand.Determinism,
	}

	if len(awaiting) > 0 {
		c.delayed = append(c.delayed, &delayedCall{
			call:  call,
			await: awaiting,
			resume: func(s State) (State, error) {
				c.calls = append(c.calls, rc)
				return out, nil
			},
		})
		return out, nil
	}

	c.calls = append(c.calls, rc)
	c.drainWorklist(out)
	return out, nil
}

// drainWorklist scans the delayed-call worklist for entries whose
// awaited variables are now all bound (spec §4.1.5/§9 "Delayed
// statements during mode check").
func (c *Checker) drainWorklist(state State) {
	remaining := c.delayed[:0]
	for _, d := range c.delayed {
		ready := true
		for v := range d.await {
			if !state.IsBound(v) {
				ready = false
				break
			}
		}
		if ready {
			_, _ = d.resume(state)
		} else {
			remaining = append(remaining, d)
		}
	}
	c.delayed = remaining
}

// drainRemaining reports an undefined-flow error for every call still
// stuck in the worklist once the procedure body has been fully scanned
// (spec §4.1.5 "No match -> undefined-flow error").
func (c *Checker) drainRemaining() {
	sort.Slice(c.delayed, func(i, j int) bool {
		return c.delayed[i].call.Pos.Line < c.delayed[j].call.Pos.Line
	})
	for _, d := range c.delayed {
		vars := make([]string, 0, len(d.await))
		for v := range d.await {
			vars = append(vars, v)
		}
		sort.Strings(vars)
		c.errors = append(c.errors, errors.WrapReport(errors.New(errors.MC006, "modecheck",
			fmt.Sprintf("undefined flow for %s.%s: awaiting %v", d.call.Module, d.call.Name, vars), d.call.Pos)))
	}
	c.delayed = nil
}

func (c *Checker) argType(a ast.Arg) types.TypeSpec {
	switch v := a.(type) {
	case *ast.VarArg:
		if t, ok := c.typing.TypeOf(v.Name); ok {
			return t
		}
		fresh := types.FreshTypeVar()
		_ = c.typing.SetType(v.Name, fresh)
		return fresh
	case *ast.IntArg:
		return types.Int
	case *ast.FloatArg:
		return types.Float
	case *ast.StringArg:
		return types.String
	case *ast.CharArg:
		return types.Char
	default:
		return types.AnyType{}
	}
}
