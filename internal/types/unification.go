package types

import "fmt"

// Bindings maps type-variable names to the TypeSpec they have been
// unified with. Lookups follow the chain to a fixed point and compress
// the path, matching spec §4.1.2's "follow transitive type-variable
// bindings to a fixed point and compress the path".
type Bindings struct {
	m map[string]TypeSpec
}

// NewBindings creates an empty binding set.
func NewBindings() *Bindings {
	return &Bindings{m: make(map[string]TypeSpec)}
}

// Resolve follows t through the binding chain to a fixed point,
// compressing intermediate type-variable links as it goes.
func (b *Bindings) Resolve(t TypeSpec) TypeSpec {
	v, ok := t.(*TypeVar)
	if !ok {
		return t
	}
	var chain []*TypeVar
	cur := v
	for {
		next, ok := b.m[cur.Name]
		if !ok {
			break
		}
		nv, isVar := next.(*TypeVar)
		if !isVar {
			for _, c := range chain {
				b.m[c.Name] = next
			}
			return next
		}
		chain = append(chain, cur)
		cur = nv
	}
	for _, c := range chain {
		b.m[c.Name] = cur
	}
	return cur
}

// Bind records name ↦ t.
func (b *Bindings) Bind(name string, t TypeSpec) {
	b.m[name] = t
}

// Unify attempts to unify a and b, recording any new type-variable
// bindings into b. Rules from spec §4.1.2:
//
//	identical        -> identical
//	Invalid with X    -> Invalid
//	Any unifies into the other
//	type variable     -> binds to the other
//	otherwise         -> same module/name/arity, element-wise unify
func Unify(b *Bindings, a, y TypeSpec) (TypeSpec, error) {
	a = b.Resolve(a)
	y = b.Resolve(y)

	if Equal(a, y) {
		return a, nil
	}
	if isInvalid(a) || isInvalid(y) {
		return InvalidType{}, nil
	}
	if isAny(a) {
		return y, nil
	}
	if isAny(y) {
		return a, nil
	}
	if av, ok := a.(*TypeVar); ok {
		b.Bind(av.Name, y)
		return y, nil
	}
	if yv, ok := y.(*TypeVar); ok {
		b.Bind(yv.Name, a)
		return a, nil
	}

	switch at := a.(type) {
	case *Named:
		yt, ok := y.(*Named)
		if !ok || at.Module != yt.Module || at.Name != yt.Name || len(at.Params) != len(yt.Params) {
			return nil, &UnifyError{A: a, B: y}
		}
		params := make([]TypeSpec, len(at.Params))
		for i := range at.Params {
			p, err := Unify(b, at.Params[i], yt.Params[i])
			if err != nil {
				return nil, err
			}
			params[i] = p
		}
		return &Named{Module: at.Module, Name: at.Name, Params: params}, nil
	case *HigherOrder:
		yt, ok := y.(*HigherOrder)
		if !ok || len(at.Flows) != len(yt.Flows) || at.Modifier != yt.Modifier {
			return nil, &UnifyError{A: a, B: y}
		}
		flows := make([]TypeFlow, len(at.Flows))
		for i := range at.Flows {
			if at.Flows[i].Flow != yt.Flows[i].Flow {
				return nil, &UnifyError{A: a, B: y}
			}
			ft, err := Unify(b, at.Flows[i].Type, yt.Flows[i].Type)
			if err != nil {
				return nil, err
			}
			flows[i] = TypeFlow{Type: ft, Flow: at.Flows[i].Flow}
		}
		return &HigherOrder{Modifier: at.Modifier, Flows: flows}, nil
	default:
		return nil, &UnifyError{A: a, B: y}
	}
}

// UnifyError reports a failed unification between two incompatible
// types.
type UnifyError struct {
	A, B TypeSpec
}

func (e *UnifyError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s", e.A, e.B)
}
