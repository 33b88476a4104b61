package procspec

import (
	"fmt"

	"github.com/wybe-lang/wybec/internal/ast"
	"github.com/wybe-lang/wybec/internal/build"
	"github.com/wybe-lang/wybec/internal/config"
	"github.com/wybe-lang/wybec/internal/errors"
	"github.com/wybe-lang/wybec/internal/lastcall"
	"github.com/wybe-lang/wybec/internal/modecheck"
	"github.com/wybe-lang/wybec/internal/prim"
	"github.com/wybe-lang/wybec/internal/types"
	"github.com/wybe-lang/wybec/internal/unbranch"
)

// defaultMaxFixedPointIterations bounds the per-SCC re-checking loop of
// spec §5: a mutually recursive group's parameter flows can only
// improve (Unknown -> resolved, Out -> OutByReference) a finite number
// of times before stabilizing, so a fixed cap both documents the
// expectation and guards against a modelling bug spinning forever. A
// config.Profile's MaxFixedPointIterations overrides it when set.
const defaultMaxFixedPointIterations = 8

// Driver compiles one module bottom-up: it registers every procedure's
// identity up front (so recursive and SCC-mutual calls resolve), then
// processes each strongly connected component of the call graph in the
// order internal/procspec/scc.go returns — callees before callers —
// re-running mode checking, unbranching, building and TCMC within an
// SCC until its members' parameter flows stop changing. Every pass it
// drives is tuned by a config.Profile (spec §2): thresholds and pass
// toggles are data read once at driver construction, not compiled-in
// constants.
type Driver struct {
	Table   *Table
	counter int
	profile config.Profile
}

// NewDriver creates a driver running spec §2's default profile (every
// optimisation on).
func NewDriver() *Driver {
	return NewDriverWithProfile(config.Default())
}

// NewDriverWithProfile creates a driver whose unbranch/build/last-call
// passes are tuned by profile.
func NewDriverWithProfile(profile config.Profile) *Driver {
	return &Driver{Table: NewTable(), profile: profile}
}

func (d *Driver) maxFixedPointIterations() int {
	if d.profile.MaxFixedPointIterations > 0 {
		return d.profile.MaxFixedPointIterations
	}
	return defaultMaxFixedPointIterations
}

// CompileModule implements spec §5's module-level compilation order.
func (d *Driver) CompileModule(mod *ast.Module) ([]*unbranch.Lifted, []error) {
	declByKey := make(map[string]*ast.ProcDecl, len(mod.Procs))
	for _, decl := range mod.Procs {
		d.Table.Register(decl)
		declByKey[key(decl.Module, decl.Name)] = decl
	}

	graph := newCallGraph()
	for _, decl := range mod.Procs {
		k := key(decl.Module, decl.Name)
		graph.addNode(k)
		for _, callee := range calledProcs(decl) {
			graph.addEdge(k, callee)
		}
	}

	var errs []error
	var lifted []*unbranch.Lifted
	for _, scc := range graph.sccs() {
		sccLifted, sccErrs := d.compileSCC(scc, declByKey)
		lifted = append(lifted, sccLifted...)
		errs = append(errs, sccErrs...)
	}
	return lifted, errs
}

func (d *Driver) compileSCC(scc []string, declByKey map[string]*ast.ProcDecl) ([]*unbranch.Lifted, []error) {
	var decls []*ast.ProcDecl
	for _, k := range scc {
		if decl, ok := declByKey[k]; ok {
			decls = append(decls, decl)
		}
	}
	if len(decls) == 0 {
		return nil, nil
	}

	var errs []error
	var lifted []*unbranch.Lifted

	prevSignatures := d.signaturesOf(decls)
	for iter := 0; iter < d.maxFixedPointIterations(); iter++ {
		lifted = lifted[:0]
		errs = errs[:0]
		for _, decl := range decls {
			l, declErrs := d.compileOne(decl)
			lifted = append(lifted, l...)
			errs = append(errs, declErrs...)
		}
		cur := d.signaturesOf(decls)
		if cur == prevSignatures {
			break
		}
		prevSignatures = cur
	}
	return lifted, errs
}

// signaturesOf renders every member's current parameter flows into one
// comparable string, so the SCC loop can detect that the fixed point of
// spec §4.4 step 7 (Fixup propagating OutByReference through mutually
// recursive callers) has been reached.
func (d *Driver) signaturesOf(decls []*ast.ProcDecl) string {
	s := ""
	for _, decl := range decls {
		def, ok := d.Table.Def(prim.ProcSpecRef{Module: decl.Module, Name: decl.Name, ID: d.idOf(decl)})
		if !ok {
			continue
		}
		for _, f := range def.ParamFlows {
			s += f.String() + ","
		}
		s += ";"
	}
	return s
}

func (d *Driver) idOf(decl *ast.ProcDecl) int {
	for _, def := range d.Table.byModuleName[key(decl.Module, decl.Name)] {
		if def.Spec.Decl == decl {
			return def.Spec.ID
		}
	}
	return 0
}

// compileOne runs the full per-procedure pipeline of spec §4.1-§4.4 and
// records the result back into the implementation table.
func (d *Driver) compileOne(decl *ast.ProcDecl) ([]*unbranch.Lifted, []error) {
	spec := d.specOf(decl)
	if spec == nil {
		return nil, []error{errors.WrapReport(errors.New(errors.PS001, "procspec",
			fmt.Sprintf("%s.%s was never registered", decl.Module, decl.Name), decl.Pos))}
	}

	checker := modecheck.NewChecker(d.Table)
	result := checker.CheckProc(decl)
	if len(result.Errors) > 0 {
		return nil, result.Errors
	}

	u := unbranch.NewUnbrancher(decl.Module, decl.Name, &d.counter, result.ByCall())
	u.WithContinuationThreshold(d.profile.ContinuationLiftThreshold)
	builder := unbranch.NewBuilder()
	if err := u.Unbranch(builder, decl.Body); err != nil {
		return nil, []error{err}
	}

	built := build.RebuildWithOptions(builder.Body(), &d.counter, d.profile.EnableCSE, d.profile.EnableConstantFolding)
	if d.profile.EnableForkFusion {
		built = build.FuseForks(built)
	}

	outputNames := declaredOutputNames(decl)
	build.Finalize(built, outputNames)

	outByReference := map[string]bool{}
	if d.profile.EnableLastCall {
		tcmc := lastcall.Analyze(spec.Ref(), built)
		lastcall.PromoteSingleUseMutates(built)
		lastcall.Fixup(built, d.Table)
		outByReference = tcmc.OutByReferenceParams
	}

	flows := mergeOutByReference(declaredParamFlows(decl), decl, outByReference)
	d.Table.Update(spec.Ref(), flows, result.Determinism, built)

	return u.Lifted(), nil
}

func (d *Driver) specOf(decl *ast.ProcDecl) *ProcSpec {
	for _, def := range d.Table.byModuleName[key(decl.Module, decl.Name)] {
		if def.Spec.Decl == decl {
			return def.Spec
		}
	}
	return nil
}

func declaredOutputNames(decl *ast.ProcDecl) []string {
	var out []string
	for _, p := range decl.Params {
		if p.Flow == ast.FlowOut {
			out = append(out, p.Name)
		}
	}
	return out
}

// mergeOutByReference folds the names TCMC promoted (by the ArgVar name
// used at call sites, which for an output parameter is the parameter's
// own name at its defining procedure) into that parameter's declared
// flow.
func mergeOutByReference(flows []types.FlowDirection, decl *ast.ProcDecl, promoted map[string]bool) []types.FlowDirection {
	for i, p := range decl.Params {
		if promoted[p.Name] {
			flows[i] = types.OutByReference
		}
	}
	return flows
}

// calledProcs collects the module-qualified names every ast.Call in
// decl's body refers to, resolving an unqualified call to decl's own
// module (spec §5 call-graph construction for SCC ordering).
func calledProcs(decl *ast.ProcDecl) []string {
	var out []string
	walkCalls(decl.Body, func(c *ast.Call) {
		module := c.Module
		if module == "" {
			module = decl.Module
		}
		out = append(out, key(module, c.Name))
	})
	return out
}

func walkCalls(stmts []ast.Stmt, visit func(*ast.Call)) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.Call:
			visit(st)
		case *ast.Conj:
			walkCalls(st.Stmts, visit)
		case *ast.Disj:
			for _, alt := range st.Alts {
				walkCalls(alt, visit)
			}
		case *ast.Negation:
			walkCalls([]ast.Stmt{st.Stmt}, visit)
		case *ast.Cond:
			walkCalls([]ast.Stmt{st.Condition}, visit)
			walkCalls(st.Then, visit)
			walkCalls(st.Else, visit)
		case *ast.Loop:
			walkCalls(st.Body, visit)
		case *ast.UseResources:
			walkCalls(st.Body, visit)
		case *ast.Case:
			for _, b := range st.Branches {
				walkCalls(b.Body, visit)
			}
		}
	}
}
