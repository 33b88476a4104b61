package procspec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSCCsLinearChainIsBottomUp(t *testing.T) {
	g := newCallGraph()
	g.addEdge("a", "b")
	g.addEdge("b", "c")
	g.addNode("c")

	sccs := g.sccs()
	require.Len(t, sccs, 3)

	pos := map[string]int{}
	for i, scc := range sccs {
		require.Len(t, scc, 1)
		pos[scc[0]] = i
	}
	require.Less(t, pos["c"], pos["b"], "c calls nothing and must be finalized before b")
	require.Less(t, pos["b"], pos["a"], "b must be finalized before a, which calls it")
}

func TestSCCsGroupsMutualRecursion(t *testing.T) {
	g := newCallGraph()
	g.addEdge("f", "g")
	g.addEdge("g", "f")
	g.addEdge("f", "leaf")

	sccs := g.sccs()
	require.Len(t, sccs, 2)

	var mutual, leafSCC []string
	for _, scc := range sccs {
		if len(scc) == 2 {
			mutual = scc
		} else {
			leafSCC = scc
		}
	}
	require.ElementsMatch(t, []string{"f", "g"}, mutual)
	require.Equal(t, []string{"leaf"}, leafSCC)
}
