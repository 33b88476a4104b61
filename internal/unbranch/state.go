// Package unbranch implements spec §4.2: transformation of structured
// control (conditionals, loops, conjunctions, disjunctions, negations,
// break/continue) into flat ProcBody sequences whose only branching
// primitive is a terminal PrimFork. It consumes internal/modecheck's
// resolved calls and produces internal/prim ProcBody values.
package unbranch

import (
	"github.com/wybe-lang/wybec/internal/prim"
	"github.com/wybe-lang/wybec/internal/types"
)

// Phase is the unbrancher's per-procedure state machine of spec §4.2.3.
type Phase int

const (
	Unforked Phase = iota
	Forked
	InBranch
	Completed
)

// Builder accumulates one ProcBody under construction, enforcing the
// state machine: statements may only be appended while Unforked;
// BeginFork opens a fork, Branch(i) hands out a builder for each of its
// branches, and CompleteFork closes it. Builders are per-procedure and not reused across
// procedures, matching spec §5 (per-procedure private state).
type Builder struct {
	body  *prim.ProcBody
	phase Phase
}

// NewBuilder creates an empty, Unforked builder.
func NewBuilder() *Builder {
	return &Builder{body: prim.NewProcBody(), phase: Unforked}
}

// Emit appends a primitive while Unforked. It is a programmer error to
// call Emit once the builder has entered Forked/Completed phase.
func (b *Builder) Emit(p prim.Primitive) {
	if b.phase != Unforked {
		panic("unbranch: cannot emit a statement once forking has begun")
	}
	b.body.Append(p)
}

// BeginFork starts a terminal fork on switchVar with nBranches branches,
// transitioning Unforked -> Forked.
func (b *Builder) BeginFork(switchVar string, ty types.TypeSpec, lastUse bool, nBranches int) {
	if b.phase != Unforked {
		panic("unbranch: a body may only fork once")
	}
	branches := make([]*prim.ProcBody, nBranches)
	for i := range branches {
		branches[i] = prim.NewProcBody()
	}
	fork := &prim.PrimFork{SwitchVar: switchVar, Type: ty, LastUse: lastUse, Branches: branches}
	b.body.Fork = fork
	b.phase = Forked
}

// Branch returns a Builder for branch index i of the current fork, for
// recursive construction of that branch's own body. Each branch is
// itself Unforked until its own (possibly absent) nested fork begins.
func (b *Builder) Branch(i int) *Builder {
	if b.phase != Forked {
		panic("unbranch: Branch called outside an active fork")
	}
	fork := b.body.Fork.(*prim.PrimFork)
	return &Builder{body: fork.Branches[i], phase: Unforked}
}

// CompleteFork closes a fork, transitioning Forked -> Completed. After
// this, Emit and BeginFork on b both panic (spec §4.2.3: "an attempt to
// emit a statement into a completed fork is a programmer error").
func (b *Builder) CompleteFork() {
	if b.phase != Forked {
		panic("unbranch: CompleteFork called without an active fork")
	}
	b.phase = Completed
}

// Body returns the ProcBody built so far.
func (b *Builder) Body() *prim.ProcBody { return b.body }
