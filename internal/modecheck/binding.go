// Package modecheck implements spec §4.1: flow-sensitive type and mode
// checking. It consumes internal/ast and internal/types, and produces
// statements rewritten with resolved flow directions plus a per-procedure
// error list (internal/errors). Procedures with errors do not proceed to
// internal/unbranch (spec §7).
package modecheck

import "sort"

// Kind distinguishes the four elements of the binding-state lattice of
// spec §4.1.3.
type Kind int

const (
	Impossible Kind = iota // unreachable
	Failing                // reachable, cannot succeed
	Succeeding             // definitely succeeds, binding Vars
	Possible               // may succeed (binding Vars) or may fail
)

// State is one element of the binding-state lattice: a Kind plus the set
// of variables known bound along the path(s) it summarises.
type State struct {
	Kind Kind
	Vars map[string]bool
}

// Bound creates a Succeeding state binding exactly vars.
func Bound(vars ...string) State {
	s := State{Kind: Succeeding, Vars: make(map[string]bool, len(vars))}
	for _, v := range vars {
		s.Vars[v] = true
	}
	return s
}

// ImpossibleState is the unreachable bottom element.
func ImpossibleState() State { return State{Kind: Impossible} }

// FailingState is reachable but can never bind anything further.
func FailingState() State { return State{Kind: Failing} }

// IsBound reports whether name is known bound in s.
func (s State) IsBound(name string) bool {
	return s.Vars != nil && s.Vars[name]
}

// WithBound returns a copy of s with name added to its bound set; the
// Kind is unchanged (binding a variable does not change reachability).
func (s State) WithBound(name string) State {
	ns := State{Kind: s.Kind, Vars: make(map[string]bool, len(s.Vars)+1)}
	for v := range s.Vars {
		ns.Vars[v] = true
	}
	ns.Vars[name] = true
	return ns
}

// Join computes the lattice join (⊔) of two states, used when the two
// states summarise alternative ways of reaching the same program point
// (e.g. disjunction branches): variables bound on BOTH alternatives
// remain known bound (set intersection, per spec §4.1.3); reachability
// keeps the kind both alternatives share, and is Possible when they
// differ.
func Join(a, b State) State {
	if a.Kind == Impossible {
		return b
	}
	if b.Kind == Impossible {
		return a
	}
	kind := joinKind(a.Kind, b.Kind)
	vars := intersect(a.Vars, b.Vars)
	return State{Kind: kind, Vars: vars}
}

// Meet computes the lattice meet (⊓), used for sequential composition:
// a statement's ending state becomes the next statement's starting
// state, and a bound variable from either step remains bound (set
// union).
func Meet(a, b State) State {
	if a.Kind == Impossible || b.Kind == Impossible {
		return ImpossibleState()
	}
	kind := meetKind(a.Kind, b.Kind)
	vars := union(a.Vars, b.Vars)
	return State{Kind: kind, Vars: vars}
}

// rank orders Kind from least to most certain, used by joinKind.
func rank(k Kind) int {
	switch k {
	case Impossible:
		return 0
	case Failing:
		return 1
	case Possible:
		return 2
	case Succeeding:
		return 3
	}
	return -1
}

func joinKind(a, b Kind) Kind {
	// A join summarises "control may have taken either path": an
	// unreachable (rank 0) side leaves the other side's kind, equal kinds
	// stay as they are, and any other mix may or may not succeed.
	if rank(a) == 0 {
		return b
	}
	if rank(b) == 0 {
		return a
	}
	if a == b {
		return a
	}
	return Possible
}

func meetKind(a, b Kind) Kind {
	if a == Failing || b == Failing {
		return Failing
	}
	if a == Possible || b == Possible {
		return Possible
	}
	return Det2(a, b)
}

// Det2 folds two Succeeding/Terminal-ish kinds into Succeeding (both
// sequential statements succeeded deterministically).
func Det2(a, b Kind) Kind {
	if a == Succeeding && b == Succeeding {
		return Succeeding
	}
	return Possible
}

func intersect(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func union(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

// SortedVars returns the bound variable set in sorted order, for
// deterministic diagnostics and golden-file output.
func (s State) SortedVars() []string {
	vs := make([]string, 0, len(s.Vars))
	for v := range s.Vars {
		vs = append(vs, v)
	}
	sort.Strings(vs)
	return vs
}

// LoopJoin folds the binding states of every Break inside a loop body
// into the state visible after the loop; a loop with no breaks can never
// exit normally and therefore yields Impossible (spec §4.1.3).
func LoopJoin(breaks []State) State {
	if len(breaks) == 0 {
		return ImpossibleState()
	}
	acc := breaks[0]
	for _, s := range breaks[1:] {
		acc = Join(acc, s)
	}
	return acc
}
