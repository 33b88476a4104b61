package types

// Typing is the per-procedure state threaded through type inference
// (spec §4.1.2): variable types, type-variable bindings, and a list of
// unresolved overloaded calls (Alternatives) awaiting further narrowing.
type Typing struct {
	vars   map[string]TypeSpec
	tyvars *Bindings
	Alts   []*Alternative
	Errors []error
}

// NewTyping creates an empty typing state.
func NewTyping() *Typing {
	return &Typing{
		vars:   make(map[string]TypeSpec),
		tyvars: NewBindings(),
	}
}

// TypeOf returns a variable's current type, resolving through
// type-variable bindings to a fixed point.
func (t *Typing) TypeOf(name string) (TypeSpec, bool) {
	ty, ok := t.vars[name]
	if !ok {
		return nil, false
	}
	return t.tyvars.Resolve(ty), true
}

// SetType assigns a variable's type, creating the binding if new or
// unifying with the existing one otherwise.
func (t *Typing) SetType(name string, ty TypeSpec) error {
	existing, ok := t.vars[name]
	if !ok {
		t.vars[name] = ty
		t.notifyAlternatives(name)
		return nil
	}
	unified, err := Unify(t.tyvars, existing, ty)
	if err != nil {
		return err
	}
	t.vars[name] = unified
	t.notifyAlternatives(name)
	return nil
}

// notifyAlternatives re-filters every pending Alternative that mentions
// name, resolving singletons and reporting empty sets as errors.
func (t *Typing) notifyAlternatives(name string) {
	remaining := t.Alts[:0]
	for _, alt := range t.Alts {
		if !alt.mentions(name) {
			remaining = append(remaining, alt)
			continue
		}
		alt.filter(t)
		switch {
		case len(alt.Tuples) == 0:
			t.Errors = append(t.Errors, &NoMatchError{Call: alt.Label})
		case len(alt.Tuples) == 1:
			alt.commit(t)
		default:
			remaining = append(remaining, alt)
		}
	}
	t.Alts = remaining
}

// Alternative records one unresolved overloaded call site: the
// variables whose types are still ambiguous, and the tuples of types
// still jointly consistent with some candidate overload.
type Alternative struct {
	Label     string   // human-readable call description, for diagnostics
	Vars      []string // variable-bearing argument names, in order
	Tuples    [][]TypeSpec
	Candidate []int // index into Tuples -> originating candidate, for final commit bookkeeping
}

func (a *Alternative) mentions(name string) bool {
	for _, v := range a.Vars {
		if v == name {
			return true
		}
	}
	return false
}

// filter drops tuples that are no longer compatible with the typing's
// current knowledge of each variable.
func (a *Alternative) filter(t *Typing) {
	var kept []([]TypeSpec)
	var keptCand []int
	for i, tup := range a.Tuples {
		ok := true
		for j, v := range a.Vars {
			known, has := t.TypeOf(v)
			if !has {
				continue
			}
			if !Compatible(known, tup[j]) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, tup)
			if a.Candidate != nil {
				keptCand = append(keptCand, a.Candidate[i])
			}
		}
	}
	a.Tuples = kept
	if a.Candidate != nil {
		a.Candidate = keptCand
	}
}

// commit assigns each variable its singleton resolved type once only one
// tuple remains.
func (a *Alternative) commit(t *Typing) {
	tup := a.Tuples[0]
	for i, v := range a.Vars {
		_ = t.SetType(v, tup[i])
	}
}

// NoMatchError reports that every candidate overload was eliminated by
// unification failures.
type NoMatchError struct {
	Call string
}

func (e *NoMatchError) Error() string {
	return "no matching overload for " + e.Call
}
