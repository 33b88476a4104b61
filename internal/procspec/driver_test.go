package procspec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wybe-lang/wybec/internal/ast"
	"github.com/wybe-lang/wybec/internal/prim"
)

func intType() ast.TypeExpr { return ast.TypeExpr{Name: "int"} }

func varArg(name string) *ast.VarArg { return &ast.VarArg{Name: name} }

// incDecl is `det inc(in x:int, out y:int) { foreign llvm add(x, 1, y) }`.
func incDecl() *ast.ProcDecl {
	return &ast.ProcDecl{
		Module:      "m",
		Name:        "inc",
		Determinism: ast.DetDet,
		Params: []*ast.Param{
			{Name: "x", Type: intType(), Flow: ast.FlowIn},
			{Name: "y", Type: intType(), Flow: ast.FlowOut},
		},
		Body: []ast.Stmt{
			&ast.ForeignCall{
				Lang: ast.LangLLVM, Op: "add",
				Args: []ast.Arg{varArg("x"), &ast.IntArg{Value: 1}, varArg("y")},
			},
		},
	}
}

// incTwiceDecl is `det incTwice(in x:int, out z:int) { inc(x, y); inc(y, z) }`,
// exercising the SCC driver's callee-before-caller ordering: inc must be
// fully checked before incTwice's calls to it can resolve.
func incTwiceDecl() *ast.ProcDecl {
	return &ast.ProcDecl{
		Module:      "m",
		Name:        "incTwice",
		Determinism: ast.DetDet,
		Params: []*ast.Param{
			{Name: "x", Type: intType(), Flow: ast.FlowIn},
			{Name: "z", Type: intType(), Flow: ast.FlowOut},
		},
		Body: []ast.Stmt{
			&ast.Call{Module: "m", Name: "inc", Args: []ast.Arg{varArg("x"), varArg("y")}},
			&ast.Call{Module: "m", Name: "inc", Args: []ast.Arg{varArg("y"), varArg("z")}},
		},
	}
}

func defOf(t *testing.T, d *Driver, module, name string) *ProcDef {
	t.Helper()
	var id int
	for _, cand := range d.Table.Candidates(module, name) {
		id = cand.CalleeID
	}
	require.NotZero(t, id, "no candidate registered for %s.%s", module, name)
	def, ok := d.Table.Def(prim.ProcSpecRef{Module: module, Name: name, ID: id})
	require.True(t, ok)
	return def
}

func TestCompileModuleChainedForeignCalls(t *testing.T) {
	mod := &ast.Module{Path: "m", Procs: []*ast.ProcDecl{incDecl(), incTwiceDecl()}}

	d := NewDriver()
	lifted, errs := d.CompileModule(mod)
	require.Empty(t, errs)
	require.Empty(t, lifted, "neither procedure has a loop or disjunction to lift")

	incDef := defOf(t, d, "m", "inc")
	require.NotNil(t, incDef.Body)
	require.Len(t, incDef.Body.Prims, 1)
	f, ok := incDef.Body.Prims[0].Prim.(*prim.PrimForeign)
	require.True(t, ok, "inc's body should still hold the unfolded add, got %T", incDef.Body.Prims[0].Prim)
	require.Equal(t, "add", f.Op)

	twiceDef := defOf(t, d, "m", "incTwice")
	require.NotNil(t, twiceDef.Body)
	require.Len(t, twiceDef.Body.Prims, 2)
	for _, p := range twiceDef.Body.Prims {
		call, ok := p.Prim.(*prim.PrimCall)
		require.True(t, ok, "expected a call to inc, got %T", p.Prim)
		require.Equal(t, "inc", call.Spec.Name)
		require.Equal(t, incDef.Spec.ID, call.Spec.ID)
	}
}

// badDecl calls a procedure that never binds its declared input, which
// the mode checker's worklist should report as an undefined-flow error
// (spec §4.1.5) rather than CompileModule silently dropping the body.
func badDecl() *ast.ProcDecl {
	return &ast.ProcDecl{
		Module:      "m",
		Name:        "broken",
		Determinism: ast.DetDet,
		Params: []*ast.Param{
			{Name: "z", Type: intType(), Flow: ast.FlowOut},
		},
		Body: []ast.Stmt{
			&ast.Call{Module: "m", Name: "inc", Args: []ast.Arg{varArg("neverBound"), varArg("z")}},
		},
	}
}

func TestCompileModuleReportsUndefinedFlow(t *testing.T) {
	mod := &ast.Module{Path: "m", Procs: []*ast.ProcDecl{incDecl(), badDecl()}}

	d := NewDriver()
	_, errs := d.CompileModule(mod)
	require.NotEmpty(t, errs, "calling inc with an unbound input should fail mode checking")
}
