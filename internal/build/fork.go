package build

import "github.com/wybe-lang/wybec/internal/prim"

// FuseForks is a post-pass complementing State.buildFork's constant-
// substitution fusion (forward.go, spec §4.3.5): once every branch of
// a terminal fork has been built, a fork whose branches all continue
// identically regardless of which value the switch variable took is
// replaced by that shared continuation directly, eliminating a
// redundant branch entirely even when no branch narrowed down to a
// provable constant. Nested forks are fused bottom-up so an inner
// fusion can expose an outer one.
func FuseForks(body *prim.ProcBody) *prim.ProcBody {
	fork, ok := body.Fork.(*prim.PrimFork)
	if !ok {
		return body
	}
	for _, br := range fork.Branches {
		*br = *FuseForks(br)
	}
	if shared, ok := identicalBranches(fork.Branches); ok {
		body.Prims = append(append([]prim.Placed{}, body.Prims...), shared.Prims...)
		body.Fork = shared.Fork
	}
	return body
}

// identicalBranches reports whether every branch renders identically,
// meaning the switch decided nothing observable.
func identicalBranches(branches []*prim.ProcBody) (*prim.ProcBody, bool) {
	if len(branches) == 0 {
		return nil, false
	}
	want := branches[0].String()
	for _, b := range branches[1:] {
		if b.String() != want {
			return nil, false
		}
	}
	return branches[0], true
}
