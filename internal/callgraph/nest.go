package callgraph

import (
	"fmt"

	"github.com/zboralski/lattice"

	"unweave/internal/structure"
)

// LoopNest builds a lattice.Graph of the loop and switch nesting of a
// structured function. The function is the root; every loop header and
// switch head is a node under its innermost enclosing construct.
func LoopNest(g *structure.Graph) *lattice.Graph {
	root := g.Func().Name
	lg := &lattice.Graph{Nodes: []string{root}}

	order := g.Order()
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if !isConstruct(n) {
			continue
		}

		caller := root
		if p := nestParent(n); p != nil {
			caller = nestLabel(p)
		}

		lg.Nodes = append(lg.Nodes, nestLabel(n))
		lg.Edges = append(lg.Edges, lattice.Edge{Caller: caller, Callee: nestLabel(n)})
	}

	lg.Dedup()
	return lg
}

func isConstruct(n *structure.Node) bool {
	return n.IsLoopHeader() || n.CondType() == structure.Case
}

func nestParent(n *structure.Node) *structure.Node {
	l, c := n.LoopHead(), n.CaseHead()
	switch {
	case c == nil:
		return l
	case l == nil, c == l, c.LoopHead() == l:
		return c
	default:
		return l
	}
}

func nestLabel(n *structure.Node) string {
	if n.IsLoopHeader() {
		return fmt.Sprintf("%v loop %v", n.LoopType(), n.Name())
	}
	return fmt.Sprintf("switch %v", n.Name())
}
