package structure

// frame is one level of an explicit DFS stack: the node and the index
// of the next successor to explore.
type frame struct {
	n *Node
	i int
}

// timestamp runs the forward and reverse-children walks from entry over
// the current generation and returns its nodes in forward post-order.
// On the block graph it also builds in-edges and collects dead blocks.
func (g *Graph) timestamp(entry *Node, blocks bool) []*Node {
	if blocks {
		for _, n := range g.nodes {
			n.preds = n.preds[:0]
		}
	}

	order := g.setLoopStamps(entry, blocks)
	g.setRevLoopStamps(entry)

	if blocks {
		g.order = order
		g.dead = g.dead[:0]

		for _, n := range g.nodes {
			n.reachable = n.ord >= 0

			if !n.reachable {
				g.dead = append(g.dead, n)
			}
		}
	}

	return order
}

// setLoopStamps gives every node reachable from entry its forward
// (entry, exit) timestamps and post-order index.
func (g *Graph) setLoopStamps(entry *Node, inEdges bool) []*Node {
	gen := g.nextGen()
	time := 1

	var order []*Node

	entry.mark = gen
	entry.stamps[0] = time

	stack := []frame{{n: entry}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		n := top.n

		if top.i < len(n.succs) {
			s := n.succs[top.i]
			top.i++

			if inEdges {
				s.preds = append(s.preds, n)
			}

			if s.mark != gen {
				s.mark = gen
				time++
				s.stamps[0] = time
				stack = append(stack, frame{n: s})
			}

			continue
		}

		time++
		n.stamps[1] = time
		n.ord = len(order)
		order = append(order, n)

		stack = stack[:len(stack)-1]
	}

	return order
}

// setRevLoopStamps is setLoopStamps with successors visited last to first.
func (g *Graph) setRevLoopStamps(entry *Node) {
	gen := g.nextGen()
	time := 1

	entry.mark = gen
	entry.revStamps[0] = time

	stack := []frame{{n: entry}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		n := top.n

		if top.i < len(n.succs) {
			s := n.succs[len(n.succs)-1-top.i]
			top.i++

			if s.mark != gen {
				s.mark = gen
				time++
				s.revStamps[0] = time
				stack = append(stack, frame{n: s})
			}

			continue
		}

		time++
		n.revStamps[1] = time

		stack = stack[:len(stack)-1]
	}
}
