package build

import "github.com/wybe-lang/wybec/internal/prim"

// Fold implements spec §4.3.3: constant folding for llvm arithmetic/
// comparison instructions, plus the identity- and annihilator-law
// rewrites (x+0, x*1, x*0, x-x, ...) that apply even when only one
// operand is a known constant. It returns a replacement instruction (a
// move, or the folded constant's move) and true when a rewrite applies.
func Fold(f *prim.PrimForeign, args []prim.PrimArg) (*prim.PrimForeign, bool) {
	if f.Lang != "llvm" || len(args) != 3 {
		return nil, false
	}
	lhs, lok := constInt(args[0])
	rhs, rok := constInt(args[1])
	dst := args[2]

	if lok && rok {
		if v, ok := evalConstInt(f.Op, lhs, rhs); ok {
			return &prim.PrimForeign{Lang: "llvm", Op: "move", Args: []prim.PrimArg{&prim.ArgInt{Value: v}, dst}}, true
		}
	}

	switch f.Op {
	case "add":
		if rok && rhs == 0 {
			return moveTo(args[0], dst), true
		}
		if lok && lhs == 0 {
			return moveTo(args[1], dst), true
		}
	case "sub":
		if rok && rhs == 0 {
			return moveTo(args[0], dst), true
		}
		if sameVar(args[0], args[1]) {
			return &prim.PrimForeign{Lang: "llvm", Op: "move", Args: []prim.PrimArg{&prim.ArgInt{Value: 0}, dst}}, true
		}
	case "mul":
		if rok && rhs == 1 {
			return moveTo(args[0], dst), true
		}
		if lok && lhs == 1 {
			return moveTo(args[1], dst), true
		}
		if (rok && rhs == 0) || (lok && lhs == 0) {
			return &prim.PrimForeign{Lang: "llvm", Op: "move", Args: []prim.PrimArg{&prim.ArgInt{Value: 0}, dst}}, true
		}
	case "and":
		if rok && rhs == -1 {
			return moveTo(args[0], dst), true
		}
		if (rok && rhs == 0) || (lok && lhs == 0) {
			return &prim.PrimForeign{Lang: "llvm", Op: "move", Args: []prim.PrimArg{&prim.ArgInt{Value: 0}, dst}}, true
		}
	case "or":
		if rok && rhs == 0 {
			return moveTo(args[0], dst), true
		}
		if lok && lhs == 0 {
			return moveTo(args[1], dst), true
		}
	}
	return nil, false
}

func moveTo(src, dst prim.PrimArg) *prim.PrimForeign {
	return &prim.PrimForeign{Lang: "llvm", Op: "move", Args: []prim.PrimArg{src, dst}}
}

func sameVar(a, b prim.PrimArg) bool {
	va, ok1 := a.(*prim.ArgVar)
	vb, ok2 := b.(*prim.ArgVar)
	return ok1 && ok2 && va.Name == vb.Name
}

func constInt(a prim.PrimArg) (int64, bool) {
	if i, ok := a.(*prim.ArgInt); ok {
		return i.Value, true
	}
	return 0, false
}

func evalConstInt(op string, l, r int64) (int64, bool) {
	switch op {
	case "add":
		return l + r, true
	case "sub":
		return l - r, true
	case "mul":
		return l * r, true
	case "and":
		return l & r, true
	case "or":
		return l | r, true
	case "xor":
		return l ^ r, true
	case "icmp_eq":
		return boolInt(l == r), true
	case "icmp_ne":
		return boolInt(l != r), true
	case "icmp_slt":
		return boolInt(l < r), true
	case "icmp_sle":
		return boolInt(l <= r), true
	case "icmp_sgt":
		return boolInt(l > r), true
	case "icmp_sge":
		return boolInt(l >= r), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
