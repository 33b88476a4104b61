// Package prim defines the post-unbranching data model of spec §3: the
// Primitive variant (PrimCall/PrimHigher/PrimForeign), PrimArg variants,
// and ProcBody (a flat sequence of placed primitives plus a terminal
// Fork). Nothing in this package nests expressions — every argument is
// atomic by construction, mirroring internal/core's ANF discipline in
// the teacher but flattened one level further: there is no Let, only a
// sequence.
package prim

import (
	"fmt"
	"strings"

	"github.com/wybe-lang/wybec/internal/types"
)

// PrimArg is the closed variant of spec §3's PrimArg list.
type PrimArg interface {
	String() string
	primArg()
}

// ArgVar is a variable reference argument: its current type, flow
// direction, flow type, and whether the backward pass has proven this is
// its last use on the current path (spec §4.3.6).
type ArgVar struct {
	Name     string
	Type     types.TypeSpec
	Flow     types.FlowDirection
	FlowType types.ArgFlowType
	LastUse  bool
}

func (a *ArgVar) primArg() {}
func (a *ArgVar) String() string {
	last := ""
	if a.LastUse {
		last = "!"
	}
	return fmt.Sprintf("%s%s%s", a.Flow, a.Name, last)
}

// ArgInt is an integer literal argument.
type ArgInt struct {
	Value int64
	Type  types.TypeSpec
}

func (a *ArgInt) primArg()        {}
func (a *ArgInt) String() string  { return fmt.Sprintf("%d", a.Value) }

// ArgFloat is a floating literal argument.
type ArgFloat struct {
	Value float64
	Type  types.TypeSpec
}

func (a *ArgFloat) primArg()       {}
func (a *ArgFloat) String() string { return fmt.Sprintf("%g", a.Value) }

// ArgString is a string literal argument; Raw preserves the source
// representation for diagnostics (escaped vs. raw form).
type ArgString struct {
	Value string
	Raw   string
}

func (a *ArgString) primArg()       {}
func (a *ArgString) String() string { return fmt.Sprintf("%q", a.Value) }

// ArgChar is a character literal argument.
type ArgChar struct {
	Value rune
}

func (a *ArgChar) primArg()       {}
func (a *ArgChar) String() string { return fmt.Sprintf("%q", a.Value) }

// ArgProcRef references a procedure (for higher-order calls and closure
// construction), carrying any already-captured arguments.
type ArgProcRef struct {
	Spec     ProcSpecRef
	Captured []PrimArg
	Type     types.TypeSpec
}

func (a *ArgProcRef) primArg() {}
func (a *ArgProcRef) String() string {
	caps := make([]string, len(a.Captured))
	for i, c := range a.Captured {
		caps[i] = c.String()
	}
	return fmt.Sprintf("&%s[%s]", a.Spec, strings.Join(caps, ","))
}

// ProcSpecRef is a lightweight reference to a ProcSpec (module, name, ID)
// used inside PrimArg/Primitive without importing internal/procspec,
// which would create an import cycle (procspec consumes prim's output).
type ProcSpecRef struct {
	Module string
	Name   string
	ID     int
}

func (p ProcSpecRef) String() string { return fmt.Sprintf("%s.%s#%d", p.Module, p.Name, p.ID) }

// ArgGlobal references a global identifier (used by lpvm load/store).
type ArgGlobal struct {
	Name string
	Type types.TypeSpec
}

func (a *ArgGlobal) primArg()       {}
func (a *ArgGlobal) String() string { return "@" + a.Name }

// ArgUnneeded is a placeholder for an output whose value is never used,
// standing in the argument slot so primitive arity stays stable. No pass
// in this module produces it; the builder keeps dead outputs as they are.
type ArgUnneeded struct{}

func (ArgUnneeded) primArg()       {}
func (ArgUnneeded) String() string { return "_" }

// ArgUndefined marks an argument whose value is not known; the
// unbrancher produces it for a source argument of a kind it does not
// lower.
type ArgUndefined struct{}

func (ArgUndefined) primArg()       {}
func (ArgUndefined) String() string { return "<undef>" }

// Primitive is the closed post-unbranching instruction variant.
type Primitive interface {
	String() string
	primitive()
	Outputs() []*ArgVar
	Inputs() []PrimArg
}

// PrimCall invokes another procedure by ProcSpec.
type PrimCall struct {
	Spec ProcSpecRef
	Args []PrimArg
}

func (p *PrimCall) primitive() {}
func (p *PrimCall) String() string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("call %s(%s)", p.Spec, strings.Join(args, ", "))
}
func (p *PrimCall) Outputs() []*ArgVar { return outputVars(p.Args) }
func (p *PrimCall) Inputs() []PrimArg  { return inputArgs(p.Args) }

// PrimHigher invokes a closure value held in a variable.
type PrimHigher struct {
	Closure PrimArg
	Args    []PrimArg
}

func (p *PrimHigher) primitive() {}
func (p *PrimHigher) String() string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("callhigher %s(%s)", p.Closure, strings.Join(args, ", "))
}
func (p *PrimHigher) Outputs() []*ArgVar { return outputVars(p.Args) }
func (p *PrimHigher) Inputs() []PrimArg  { return append(inputArgs([]PrimArg{p.Closure}), inputArgs(p.Args)...) }

// PrimForeign is a low-level instruction: language tag, operation name,
// flags, and arguments.
type PrimForeign struct {
	Lang  string // "llvm", "lpvm", "c"
	Op    string
	Flags []string
	Args  []PrimArg
}

func (p *PrimForeign) primitive() {}
func (p *PrimForeign) String() string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = a.String()
	}
	flags := ""
	if len(p.Flags) > 0 {
		flags = "[" + strings.Join(p.Flags, ",") + "]"
	}
	return fmt.Sprintf("%s %s%s(%s)", p.Lang, p.Op, flags, strings.Join(args, ", "))
}
func (p *PrimForeign) Outputs() []*ArgVar { return outputVars(p.Args) }
func (p *PrimForeign) Inputs() []PrimArg  { return inputArgs(p.Args) }

func outputVars(args []PrimArg) []*ArgVar {
	var out []*ArgVar
	for _, a := range args {
		if v, ok := a.(*ArgVar); ok && v.Flow.IsOutput() {
			out = append(out, v)
		}
	}
	return out
}

func inputArgs(args []PrimArg) []PrimArg {
	var out []PrimArg
	for _, a := range args {
		if v, ok := a.(*ArgVar); ok {
			if v.Flow.IsOutput() {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// Placed is one primitive instruction placed in a ProcBody.
type Placed struct {
	Prim Primitive
}

// Fork is the terminal branching primitive (spec §3): either NoFork, or
// a PrimFork switching on an integer-valued variable.
type Fork interface {
	fork()
}

// NoFork marks a ProcBody with no further branching: execution simply
// falls off the end of Prims.
type NoFork struct{}

func (NoFork) fork() {}

// PrimFork is a terminal multi-way branch on SwitchVar's integer value;
// branches are indexed by that value and never rejoin.
type PrimFork struct {
	SwitchVar string
	Type      types.TypeSpec
	LastUse   bool
	Branches  []*ProcBody
}

func (*PrimFork) fork() {}

// ProcBody is the post-unbranching representation of one procedure's (or
// lifted procedure's) implementation: an ordered sequence of placed
// primitives followed by a terminal fork.
type ProcBody struct {
	Prims []Placed
	Fork  Fork
}

// NewProcBody creates an empty, unforked body.
func NewProcBody() *ProcBody {
	return &ProcBody{Fork: NoFork{}}
}

// Append adds one primitive to the end of the body. It is a programmer
// error to append to a body whose Fork is already a completed PrimFork
// (spec §4.2.3: "an attempt to emit a statement into a completed fork is
// a programmer error").
func (b *ProcBody) Append(p Primitive) {
	if _, ok := b.Fork.(NoFork); !ok {
		panic("prim: cannot append a statement after a terminal fork")
	}
	b.Prims = append(b.Prims, Placed{Prim: p})
}

// String renders a ProcBody for diagnostics, dumps and the round-trip test.
func (b *ProcBody) String() string {
	var parts []string
	for _, p := range b.Prims {
		parts = append(parts, p.Prim.String())
	}
	switch f := b.Fork.(type) {
	case NoFork:
		// nothing to add
	case *PrimFork:
		branches := make([]string, len(f.Branches))
		for i, br := range f.Branches {
			branches[i] = fmt.Sprintf("[%d] %s", i, br.String())
		}
		parts = append(parts, fmt.Sprintf("fork %s { %s }", f.SwitchVar, strings.Join(branches, " ")))
	}
	return strings.Join(parts, "; ")
}
