package structure

// postDominate computes the immediate post-dominator of every reachable
// block. Returns and blocks that never reach one are joined under the
// virtual exit; the reverse graph is walked from there.
func (g *Graph) postDominate() {
	exit := g.exit
	exit.preds = exit.preds[:0]

	for _, n := range g.order {
		n.immPDom = nil
		n.exitLink = false

		if len(n.succs) == 0 {
			exit.preds = append(exit.preds, n)
		}
	}

	g.setRevOrder()

	exit.immPDom = exit

	for changed := true; changed; {
		changed = false

		// reverse post-order of the reverse graph, exit excluded
		for i := len(g.revOrder) - 2; i >= 0; i-- {
			n := g.revOrder[i]

			var ipd *Node

			for _, s := range n.succs {
				ipd = g.commonPDom(ipd, s)
			}

			if n.exitLink || len(n.succs) == 0 {
				ipd = g.commonPDom(ipd, exit)
			}

			if ipd != n.immPDom {
				n.immPDom = ipd
				changed = true
			}
		}
	}

	exit.immPDom = nil
}

// commonPDom returns the nearest common post-dominator of cur and s.
// s is ignored until it has a post-dominator itself.
func (g *Graph) commonPDom(cur, s *Node) *Node {
	if s.revOrd < 0 || s.immPDom == nil {
		return cur
	}

	if cur == nil {
		return s
	}

	for cur != s {
		for cur.revOrd < s.revOrd {
			cur = cur.immPDom
		}

		for s.revOrd < cur.revOrd {
			s = s.immPDom
		}
	}

	return cur
}

// setRevOrder numbers the reverse graph in post-order starting at the
// virtual exit. Regions that cannot reach a return get an extra exit
// edge from their deepest node until every reachable block is numbered.
func (g *Graph) setRevOrder() {
	gen := g.nextGen()
	g.revOrder = g.revOrder[:0]

	for _, n := range g.order {
		n.revOrd = -1
	}

	g.exit.revOrd = -1

	walk := func(root *Node) {
		root.mark = gen
		stack := []frame{{n: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			n := top.n

			if top.i < len(n.preds) {
				p := n.preds[top.i]
				top.i++

				if p.mark != gen {
					p.mark = gen
					stack = append(stack, frame{n: p})
				}

				continue
			}

			n.revOrd = len(g.revOrder)
			g.revOrder = append(g.revOrder, n)

			stack = stack[:len(stack)-1]
		}
	}

	for {
		g.revOrder = g.revOrder[:0]
		walk(g.exit)

		// g.order is post-order: the first unnumbered node is the deepest
		var stray *Node

		for _, n := range g.order {
			if n.mark != gen {
				stray = n
				break
			}
		}

		if stray == nil {
			return
		}

		stray.exitLink = true
		g.exit.preds = append(g.exit.preds, stray)
		gen = g.nextGen()
	}
}
