// Package fixtures supplies a small set of hand-built ast.Module values
// for cmd/wybec to drive: source scanning/parsing for the language this
// middle-end compiles is explicitly out of scope, so the CLI and REPL
// inspect named fixtures instead of files of concrete syntax.
package fixtures

import "github.com/wybe-lang/wybec/internal/ast"

func intType() ast.TypeExpr { return ast.TypeExpr{Name: "int"} }

func v(name string) *ast.VarArg { return &ast.VarArg{Name: name} }

// incModule defines `det inc(in x:int, out y:int) { foreign llvm add(x, 1, y) }`.
func incModule() *ast.Module {
	return &ast.Module{
		Path: "m",
		Procs: []*ast.ProcDecl{{
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
					Args: []ast.Arg{v("x"), &ast.IntArg{Value: 1}, v("y")},
				},
			},
		}},
	}
}

// incTwiceModule chains two calls to inc, exercising the SCC driver's
// callee-before-caller ordering (spec §5).
func incTwiceModule() *ast.Module {
	mod := incModule()
	mod.Procs = append(mod.Procs, &ast.ProcDecl{
		Module:      "m",
		Name:        "incTwice",
		Determinism: ast.DetDet,
		Params: []*ast.Param{
			{Name: "x", Type: intType(), Flow: ast.FlowIn},
			{Name: "z", Type: intType(), Flow: ast.FlowOut},
		},
		Body: []ast.Stmt{
			&ast.Call{Module: "m", Name: "inc", Args: []ast.Arg{v("x"), v("y")}},
			&ast.Call{Module: "m", Name: "inc", Args: []ast.Arg{v("y"), v("z")}},
		},
	})
	return mod
}

// absModule defines a conditional: `semidet abs(in x:int, out y:int) { if
// lt(x, 0) then { neg(x, y) } else { copy(x, y) } }`, exercising
// unbranching's Cond lowering and fork generation.
func absModule() *ast.Module {
	return &ast.Module{
		Path: "m",
		Procs: []*ast.ProcDecl{
			{
				Module:      "m",
				Name:        "lt",
				Determinism: ast.DetSemiDet,
				Params: []*ast.Param{
					{Name: "a", Type: intType(), Flow: ast.FlowIn},
					{Name: "b", Type: intType(), Flow: ast.FlowIn},
				},
				Body: []ast.Stmt{
					&ast.ForeignCall{Lang: ast.LangLLVM, Op: "icmp_slt",
						Args: []ast.Arg{v("a"), v("b"), v("$result")}},
				},
			},
			{
				Module:      "m",
				Name:        "neg",
				Determinism: ast.DetDet,
				Params: []*ast.Param{
					{Name: "x", Type: intType(), Flow: ast.FlowIn},
					{Name: "y", Type: intType(), Flow: ast.FlowOut},
				},
				Body: []ast.Stmt{
					&ast.ForeignCall{Lang: ast.LangLLVM, Op: "sub",
						Args: []ast.Arg{&ast.IntArg{Value: 0}, v("x"), v("y")}},
				},
			},
			{
				Module:      "m",
				Name:        "copy",
				Determinism: ast.DetDet,
				Params: []*ast.Param{
					{Name: "x", Type: intType(), Flow: ast.FlowIn},
					{Name: "y", Type: intType(), Flow: ast.FlowOut},
				},
				Body: []ast.Stmt{
					&ast.ForeignCall{Lang: ast.LangLPVM, Op: "cast",
						Args: []ast.Arg{v("x"), v("y")}},
				},
			},
			// abs is SemiDet so its body can call the SemiDet test lt
			// without violating Determinism.AtMost (spec §4.2.4); a
			// procedure only gets the stricter Det context if it
			// declares itself Det.
			{
				Module:      "m",
				Name:        "abs",
				Determinism: ast.DetSemiDet,
				Params: []*ast.Param{
					{Name: "x", Type: intType(), Flow: ast.FlowIn},
					{Name: "y", Type: intType(), Flow: ast.FlowOut},
				},
				Body: []ast.Stmt{
					&ast.Cond{
						Condition: &ast.Call{Module: "m", Name: "lt",
							Args: []ast.Arg{v("x"), &ast.IntArg{Value: 0}}},
						Then: []ast.Stmt{&ast.Call{Module: "m", Name: "neg", Args: []ast.Arg{v("x"), v("y")}}},
						Else: []ast.Stmt{&ast.Call{Module: "m", Name: "copy", Args: []ast.Arg{v("x"), v("y")}}},
					},
				},
			},
		},
	}
}

// countDownModule defines a loop that decrements x to zero, exercising
// unbranching's loop lifting and ExitVars computation.
func countDownModule() *ast.Module {
	return &ast.Module{
		Path: "m",
		Procs: []*ast.ProcDecl{
			{
				Module:      "m",
				Name:        "dec",
				Determinism: ast.DetDet,
				Params: []*ast.Param{
					{Name: "x", Type: intType(), Flow: ast.FlowIn},
					{Name: "y", Type: intType(), Flow: ast.FlowOut},
				},
				Body: []ast.Stmt{
					&ast.ForeignCall{Lang: ast.LangLLVM, Op: "sub",
						Args: []ast.Arg{v("x"), &ast.IntArg{Value: 1}, v("y")}},
				},
			},
			{
				Module:      "m",
				Name:        "isZero",
				Determinism: ast.DetSemiDet,
				Params: []*ast.Param{
					{Name: "x", Type: intType(), Flow: ast.FlowIn},
				},
				Body: []ast.Stmt{
					&ast.ForeignCall{Lang: ast.LangLLVM, Op: "icmp_eq",
						Args: []ast.Arg{v("x"), &ast.IntArg{Value: 0}, v("$result")}},
				},
			},
			// countDown is SemiDet for the same reason abs is: its loop
			// condition calls the SemiDet test isZero.
			{
				Module:      "m",
				Name:        "countDown",
				Determinism: ast.DetSemiDet,
				Params: []*ast.Param{
					{Name: "start", Type: intType(), Flow: ast.FlowIn},
				},
				Body: []ast.Stmt{
					&ast.Loop{
						Body: []ast.Stmt{
							&ast.Cond{
								Condition: &ast.Call{Module: "m", Name: "isZero", Args: []ast.Arg{v("start")}},
								Then:      []ast.Stmt{&ast.Break{}},
								Else: []ast.Stmt{
									&ast.Call{Module: "m", Name: "dec", Args: []ast.Arg{v("start"), v("start")}},
								},
							},
						},
					},
				},
			},
		},
	}
}

var registry = map[string]func() *ast.Module{
	"inc":        incModule,
	"inc_twice":  incTwiceModule,
	"abs":        absModule,
	"count_down": countDownModule,
}

// Get returns a fresh copy of the named fixture module.
func Get(name string) (*ast.Module, bool) {
	build, ok := registry[name]
	if !ok {
		return nil, false
	}
	return build(), true
}

// Names lists every registered fixture name, sorted for stable CLI help
// text.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
