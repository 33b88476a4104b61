package build

import (
	"github.com/wybe-lang/wybec/internal/prim"
	"github.com/wybe-lang/wybec/internal/types"
)

// equivForm is an alternative instruction shape that is guaranteed to
// compute the same outputs as the instruction it was derived from, so
// the recorded-calls table can serve a CSE hit for the forms as well
// as the original.
type equivForm struct {
	Lang    string
	Op      string
	Args    []prim.PrimArg
	Outputs []prim.PrimArg
}

var commutative = map[string]bool{
	"add": true, "mul": true, "and": true, "or": true, "xor": true,
	"icmp_eq": true, "icmp_ne": true,
}

// swappedComparison maps a comparison op to the op that holds when its
// operands are swapped (a < b  <=>  b > a).
var swappedComparison = map[string]string{
	"icmp_slt": "icmp_sgt",
	"icmp_sgt": "icmp_slt",
	"icmp_sle": "icmp_sge",
	"icmp_sge": "icmp_sle",
}

// Equivalences implements spec §4.3.4: beyond the instruction's own
// canonical form, record the forms that are provably equal to it so a
// later occurrence of any of them also hits the recorded-calls table.
func Equivalences(f *prim.PrimForeign) []equivForm {
	if f.Lang != "llvm" || len(f.Args) != 3 {
		return nil
	}
	lhs, rhs, dst := f.Args[0], f.Args[1], f.Args[2]
	outs := f.Outputs()
	outArgs := make([]prim.PrimArg, len(outs))
	for i, o := range outs {
		outArgs[i] = o
	}

	var forms []equivForm
	if commutative[f.Op] {
		forms = append(forms, equivForm{Lang: "llvm", Op: f.Op, Args: []prim.PrimArg{rhs, lhs, dst}, Outputs: outArgs})
	}
	if inv, ok := swappedComparison[f.Op]; ok {
		forms = append(forms, equivForm{Lang: "llvm", Op: inv, Args: []prim.PrimArg{rhs, lhs, dst}, Outputs: outArgs})
	}
	if f.Op == "add" {
		// c = a + b also gives a = c - b and b = c - a.
		if dv, ok := dst.(*prim.ArgVar); ok {
			sum := *dv
			sum.Flow = types.In
			sum.LastUse = false
			forms = append(forms,
				equivForm{Lang: "llvm", Op: "sub", Args: []prim.PrimArg{&sum, rhs}, Outputs: []prim.PrimArg{lhs}},
				equivForm{Lang: "llvm", Op: "sub", Args: []prim.PrimArg{&sum, lhs}, Outputs: []prim.PrimArg{rhs}})
		}
	}
	return forms
}
