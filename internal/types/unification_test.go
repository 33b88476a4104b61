package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnifyIdentical(t *testing.T) {
	b := NewBindings()
	got, err := Unify(b, Int, Int)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Equal(got, Int) {
		t.Fatalf("expected int, got %s", got)
	}
}

func TestUnifyAnyAbsorbs(t *testing.T) {
	b := NewBindings()
	got, err := Unify(b, AnyType{}, Bool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Equal(got, Bool) {
		t.Fatalf("expected bool, got %s", got)
	}
}

func TestUnifyInvalidPropagates(t *testing.T) {
	b := NewBindings()
	got, err := Unify(b, InvalidType{}, Int)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.(InvalidType); !ok {
		t.Fatalf("expected invalid type, got %s", got)
	}
}

func TestUnifyTypeVarBinds(t *testing.T) {
	b := NewBindings()
	v := &TypeVar{Name: "T1"}
	got, err := Unify(b, v, Float)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Equal(got, Float) {
		t.Fatalf("expected float, got %s", got)
	}
	if resolved := b.Resolve(v); !Equal(resolved, Float) {
		t.Fatalf("expected T1 resolved to float, got %s", resolved)
	}
}

func TestUnifyMismatchErrors(t *testing.T) {
	b := NewBindings()
	if _, err := Unify(b, Int, Bool); err == nil {
		t.Fatal("expected unification error for int vs bool")
	}
}

func TestUnifyNestedNamed(t *testing.T) {
	b := NewBindings()
	v := &TypeVar{Name: "E"}
	listT := &Named{Name: "list", Params: []TypeSpec{v}}
	listInt := &Named{Name: "list", Params: []TypeSpec{Int}}
	got, err := Unify(b, listT, listInt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &Named{Name: "list", Params: []TypeSpec{Int}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unify mismatch (-want +got):\n%s", diff)
	}
}

func TestCompatibleAnyAndTypeVar(t *testing.T) {
	if !Compatible(AnyType{}, Int) {
		t.Fatal("Any should be compatible with int")
	}
	if !Compatible(&TypeVar{Name: "X"}, Bool) {
		t.Fatal("type variable should be compatible with bool")
	}
	if Compatible(Int, Bool) {
		t.Fatal("int and bool should not be compatible")
	}
}
