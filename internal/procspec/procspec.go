// Package procspec owns procedure identity and the per-module
// implementation table: it assigns each ast.ProcDecl a stable ProcSpec,
// tracks the evolving ProcDef (parameter types/flows, determinism, and
// eventually a built primitive body) as the pipeline's passes refine it,
// and drives compilation bottom-up over the call graph's strongly
// connected components, per spec §5 ("the module implementation table
// is updated by one pass at a time").
package procspec

import (
	"fmt"

	"github.com/wybe-lang/wybec/internal/ast"
	"github.com/wybe-lang/wybec/internal/modecheck"
	"github.com/wybe-lang/wybec/internal/prim"
	"github.com/wybe-lang/wybec/internal/types"
)

// ProcSpec is a procedure's stable identity: its source prototype plus
// the numeric ID overload resolution and lowering pin calls to.
type ProcSpec struct {
	ID     int
	Module string
	Name   string
	Decl   *ast.ProcDecl
}

func (p *ProcSpec) Ref() prim.ProcSpecRef {
	return prim.ProcSpecRef{Module: p.Module, Name: p.Name, ID: p.ID}
}

// ProcDef is everything the pipeline knows about one procedure at a
// given point in compilation. Early on (right after registration) only
// Spec, ParamTypes and ParamFlows are populated from the declaration;
// Determinism and Body are filled in once mode checking, unbranching,
// building, and TCMC have all run.
type ProcDef struct {
	Spec        *ProcSpec
	ParamTypes  []types.TypeSpec
	ParamFlows  []types.FlowDirection
	Determinism types.Determinism
	Body        *prim.ProcBody
}

// Table is the module implementation table of spec §5: one overload set
// per (module, name), keyed by declaration order within that name. It
// implements modecheck.Lookup and lastcall.ParamFlows so that those
// packages never need to import procspec themselves.
type Table struct {
	byModuleName map[string][]*ProcDef
	byRef        map[prim.ProcSpecRef]*ProcDef
	nextID       int
}

func NewTable() *Table {
	return &Table{byModuleName: make(map[string][]*ProcDef), byRef: make(map[prim.ProcSpecRef]*ProcDef)}
}

func key(module, name string) string { return module + "." + name }

// Register assigns decl a fresh ProcSpec and a conservative ProcDef
// built from its declared prototype, so that recursive and
// forward-referencing calls within the same SCC resolve during mode
// checking before the SCC's own bodies have been fully checked.
func (t *Table) Register(decl *ast.ProcDecl) *ProcSpec {
	t.nextID++
	spec := &ProcSpec{ID: t.nextID, Module: decl.Module, Name: decl.Name, Decl: decl}
	def := &ProcDef{
		Spec:        spec,
		ParamTypes:  declaredParamTypes(decl),
		ParamFlows:  declaredParamFlows(decl),
		Determinism: declaredDeterminism(decl),
	}
	k := key(decl.Module, decl.Name)
	t.byModuleName[k] = append(t.byModuleName[k], def)
	t.byRef[spec.Ref()] = def
	return spec
}

func (t *Table) Def(ref prim.ProcSpecRef) (*ProcDef, bool) {
	d, ok := t.byRef[ref]
	return d, ok
}

// All returns every registered definition, ordered by ProcSpec ID, for
// callers (cmd/wybec's dump/explore subcommands) that need to walk the
// whole table rather than look up one procedure at a time.
func (t *Table) All() []*ProcDef {
	out := make([]*ProcDef, 0, len(t.byRef))
	for _, d := range t.byRef {
		out = append(out, d)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Spec.ID > out[j].Spec.ID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Update replaces the stored definition's dynamic fields once a pass has
// produced a refined result; Spec and ParamTypes are stable from
// registration (spec §5: identity never changes after assignment).
func (t *Table) Update(ref prim.ProcSpecRef, flows []types.FlowDirection, det types.Determinism, body *prim.ProcBody) {
	def, ok := t.byRef[ref]
	if !ok {
		return
	}
	def.ParamFlows = flows
	def.Determinism = det
	def.Body = body
}

// Candidates implements modecheck.Lookup.
func (t *Table) Candidates(module, name string) []modecheck.Candidate {
	defs := t.byModuleName[key(module, name)]
	out := make([]modecheck.Candidate, len(defs))
	for i, d := range defs {
		out[i] = modecheck.Candidate{
			CalleeID:    d.Spec.ID,
			ParamTypes:  d.ParamTypes,
			ParamFlows:  d.ParamFlows,
			Determinism: d.Determinism,
		}
	}
	return out
}

// ParamFlow implements internal/lastcall.ParamFlows.
func (t *Table) ParamFlow(spec prim.ProcSpecRef, index int) (types.FlowDirection, bool) {
	def, ok := t.byRef[spec]
	if !ok || index >= len(def.ParamFlows) {
		return types.Unknown, false
	}
	return def.ParamFlows[index], true
}

func declaredParamTypes(decl *ast.ProcDecl) []types.TypeSpec {
	out := make([]types.TypeSpec, len(decl.Params))
	for i, p := range decl.Params {
		out[i] = resolveDeclaredType(p.Type)
	}
	return out
}

func resolveDeclaredType(te ast.TypeExpr) types.TypeSpec {
	if te.Name == "" {
		return types.AnyType{}
	}
	switch te.Name {
	case "int":
		return types.Int
	case "float":
		return types.Float
	case "bool":
		return types.Bool
	case "string":
		return types.String
	case "char":
		return types.Char
	default:
		return &types.Named{Module: te.Module, Name: te.Name, Params: resolveDeclaredTypeArgs(te.Args)}
	}
}

func resolveDeclaredTypeArgs(args []ast.TypeExpr) []types.TypeSpec {
	if len(args) == 0 {
		return nil
	}
	out := make([]types.TypeSpec, len(args))
	for i, a := range args {
		out[i] = resolveDeclaredType(a)
	}
	return out
}

func declaredParamFlows(decl *ast.ProcDecl) []types.FlowDirection {
	out := make([]types.FlowDirection, len(decl.Params))
	for i, p := range decl.Params {
		switch p.Flow {
		case ast.FlowIn:
			out[i] = types.In
		case ast.FlowOut:
			out[i] = types.Out
		default:
			out[i] = types.Unknown
		}
	}
	return out
}

func declaredDeterminism(decl *ast.ProcDecl) types.Determinism {
	switch decl.Determinism {
	case ast.DetTerminal:
		return types.Terminal
	case ast.DetFailure:
		return types.Failure
	case ast.DetDet:
		return types.Det
	case ast.DetSemiDet:
		return types.SemiDet
	default:
		return types.Det
	}
}

func (t *Table) String() string {
	return fmt.Sprintf("procspec.Table{%d procedures}", len(t.byRef))
}
