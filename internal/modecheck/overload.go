package modecheck

import (
	"fmt"

	"github.com/wybe-lang/wybec/internal/ast"
	"github.com/wybe-lang/wybec/internal/errors"
	"github.com/wybe-lang/wybec/internal/types"
)

// Candidate is one procedure signature eligible for a given call name,
// as seen by overload resolution. CalleeID is the ProcSpec numeric ID
// the caller should pin the call to once this candidate is chosen.
type Candidate struct {
	CalleeID    int
	ParamTypes  []types.TypeSpec
	ParamFlows  []types.FlowDirection
	Determinism types.Determinism
	Resources   []string // resource names this candidate reads/writes
}

// Lookup resolves the set of candidate procedures visible for a call by
// module-qualified name; it is implemented by the SCC driver (internal/
// procspec) so that modecheck itself never depends on the procedure
// table's concrete representation.
type Lookup interface {
	Candidates(module, name string) []Candidate
}

// ResolveOverload implements spec §4.1.4 steps 1-4: enumerate candidates,
// filter by arity (with the SemiDet/Det trailing-bool special cases),
// filter by element-wise type compatibility, and either commit a unique
// survivor or record an Alternative for later narrowing.
func ResolveOverload(lookup Lookup, module, name string, argVars []string, argTypes []types.TypeSpec, contextDet types.Determinism, pos ast.Pos) (*Candidate, *types.Alternative, error) {
	candidates := lookup.Candidates(module, name)
	if len(candidates) == 0 {
		return nil, nil, errors.WrapReport(errors.New(errors.MC007, "modecheck",
			fmt.Sprintf("call to unknown procedure %s.%s/%d", module, name, len(argTypes)), pos))
	}

	var survivors []Candidate
	var tuples [][]types.TypeSpec

	for _, c := range candidates {
		params, ok := matchArity(c, len(argTypes))
		if !ok {
			continue
		}
		if !elementwiseCompatible(params, argTypes) {
			continue
		}
		survivors = append(survivors, c)
		tuples = append(tuples, params)
	}

	if len(survivors) == 0 {
		return nil, nil, errors.WrapReport(errors.New(errors.MC008, "modecheck",
			fmt.Sprintf("no matching overload for %s.%s/%d", module, name, len(argTypes)), pos))
	}
	if len(survivors) == 1 {
		return &survivors[0], nil, nil
	}

	alt := &types.Alternative{
		Label:  fmt.Sprintf("%s.%s/%d", module, name, len(argTypes)),
		Vars:   argVars,
		Tuples: tuples,
	}
	return nil, alt, nil
}

// matchArity handles the arity check of spec §4.1.4 step 2: a candidate
// matches a call with exactly its declared arity, and a Det candidate
// also matches a call that supplies one extra trailing argument, which is
// checked against a synthesized bool success flag (Det promoted to
// SemiDet). The calling context's determinism is not consulted. It
// returns the parameter types to check against, padded with that bool
// when the promotion applies.
func matchArity(c Candidate, nargs int) ([]types.TypeSpec, bool) {
	if len(c.ParamTypes) == nargs {
		return c.ParamTypes, true
	}
	// Det procedure called with one extra trailing arg: promote to
	// SemiDet by appending an implicit bool success-flag parameter.
	if c.Determinism == types.Det && len(c.ParamTypes)+1 == nargs {
		return append(append([]types.TypeSpec{}, c.ParamTypes...), types.Bool), true
	}
	return nil, false
}

func elementwiseCompatible(params, args []types.TypeSpec) bool {
	if len(params) != len(args) {
		return false
	}
	for i := range params {
		if !types.Compatible(params[i], args[i]) {
			return false
		}
	}
	return true
}
