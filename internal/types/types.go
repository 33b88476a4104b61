// Package types implements the data model of spec §3/§4.1: TypeSpec, the
// Determinism lattice, flow directions, and Hindley-Milner-style
// unification over TypeSpec trees. It deliberately carries no notion of
// binding state or overload resolution — those live in internal/modecheck,
// which consumes this package's unifier.
package types

import (
	"fmt"
	"strings"
)

// TypeSpec is the closed variant described in spec §3. Every concrete
// kind implements the marker method typeSpec() so switches over
// TypeSpec stay exhaustive without a separate Kind tag.
type TypeSpec interface {
	String() string
	typeSpec()
}

// Named is a type with a module-qualified name and a (possibly empty)
// list of type-parameter TypeSpecs, e.g. list(int) or map(string, T).
type Named struct {
	Module string
	Name   string
	Params []TypeSpec
}

func (n *Named) typeSpec() {}
func (n *Named) String() string {
	if len(n.Params) == 0 {
		return qualify(n.Module, n.Name)
	}
	parts := make([]string, len(n.Params))
	for i, p := range n.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", qualify(n.Module, n.Name), strings.Join(parts, ", "))
}

func qualify(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}

// TypeVar is an as-yet-unresolved type variable.
type TypeVar struct {
	Name string
}

func (v *TypeVar) typeSpec()      {}
func (v *TypeVar) String() string { return v.Name }

// AnyType is the unknown/unconstrained type: compatible with everything,
// equal to nothing but itself.
type AnyType struct{}

func (AnyType) typeSpec()      {}
func (AnyType) String() string { return "any" }

// InvalidType marks a type that failed to resolve; it unifies with
// anything (absorbing further errors) so that one mistake does not
// cascade into a flood of unrelated ones.
type InvalidType struct{}

func (InvalidType) typeSpec()      {}
func (InvalidType) String() string { return "<invalid>" }

// Modifier flags a higher-order type's call-time behaviour.
type Modifier struct {
	Det      Determinism
	Pure     bool
	Inlined  bool
}

// TypeFlow pairs a parameter's type with its flow direction, used inside
// a HigherOrder type to describe a closure/procedure-valued parameter's
// own signature.
type TypeFlow struct {
	Type TypeSpec
	Flow FlowDirection
}

// HigherOrder is a procedure- or closure-valued type: a modifier set plus
// an ordered list of type-flows describing each of its own parameters.
type HigherOrder struct {
	Modifier Modifier
	Flows    []TypeFlow
}

func (h *HigherOrder) typeSpec() {}
func (h *HigherOrder) String() string {
	parts := make([]string, len(h.Flows))
	for i, f := range h.Flows {
		parts[i] = fmt.Sprintf("%s%s", f.Flow, f.Type)
	}
	return fmt.Sprintf("%s(%s)", h.Modifier.Det, strings.Join(parts, ", "))
}

// Compatible reports whether two TypeSpecs could denote the same type:
// Any and type variables are compatible with anything; Invalid is
// compatible with anything (it never blocks a match); otherwise the two
// must have the same structural shape (same Named module/name/arity,
// matching higher-order flow arity) with element-wise compatibility.
func Compatible(a, b TypeSpec) bool {
	if isAny(a) || isAny(b) || isInvalid(a) || isInvalid(b) {
		return true
	}
	switch at := a.(type) {
	case *TypeVar:
		return true
	case *Named:
		bt, ok := b.(*Named)
		if !ok {
			if _, isVar := b.(*TypeVar); isVar {
				return true
			}
			return false
		}
		if at.Module != bt.Module || at.Name != bt.Name || len(at.Params) != len(bt.Params) {
			return false
		}
		for i := range at.Params {
			if !Compatible(at.Params[i], bt.Params[i]) {
				return false
			}
		}
		return true
	case *HigherOrder:
		bt, ok := b.(*HigherOrder)
		if !ok {
			if _, isVar := b.(*TypeVar); isVar {
				return true
			}
			return false
		}
		if len(at.Flows) != len(bt.Flows) {
			return false
		}
		for i := range at.Flows {
			if !Compatible(at.Flows[i].Type, bt.Flows[i].Type) {
				return false
			}
		}
		return true
	default:
		if _, isVar := b.(*TypeVar); isVar {
			return true
		}
		return false
	}
}

func isAny(t TypeSpec) bool {
	_, ok := t.(AnyType)
	return ok
}

func isInvalid(t TypeSpec) bool {
	_, ok := t.(InvalidType)
	return ok
}

// Equal reports whether two TypeSpecs match exactly (no Any/tyvar
// leniency, unlike Compatible).
func Equal(a, b TypeSpec) bool {
	switch at := a.(type) {
	case *TypeVar:
		bt, ok := b.(*TypeVar)
		return ok && at.Name == bt.Name
	case AnyType:
		_, ok := b.(AnyType)
		return ok
	case InvalidType:
		_, ok := b.(InvalidType)
		return ok
	case *Named:
		bt, ok := b.(*Named)
		if !ok || at.Module != bt.Module || at.Name != bt.Name || len(at.Params) != len(bt.Params) {
			return false
		}
		for i := range at.Params {
			if !Equal(at.Params[i], bt.Params[i]) {
				return false
			}
		}
		return true
	case *HigherOrder:
		bt, ok := b.(*HigherOrder)
		if !ok || len(at.Flows) != len(bt.Flows) {
			return false
		}
		for i := range at.Flows {
			if at.Flows[i].Flow != bt.Flows[i].Flow || !Equal(at.Flows[i].Type, bt.Flows[i].Type) {
				return false
			}
		}
		return at.Modifier == bt.Modifier
	default:
		return false
	}
}

// Common built-in named types.
var (
	Int    = &Named{Name: "int"}
	Float  = &Named{Name: "float"}
	Bool   = &Named{Name: "bool"}
	String = &Named{Name: "string"}
	Char   = &Named{Name: "char"}
)

var typeVarCounter int

// FreshTypeVar mints a new, globally-unique type variable name. Counter
// resets are the caller's responsibility (typically once per module
// compilation run); uniqueness across one run is all unification needs.
func FreshTypeVar() *TypeVar {
	typeVarCounter++
	return &TypeVar{Name: fmt.Sprintf("T%d", typeVarCounter)}
}
