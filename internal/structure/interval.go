package structure

// intervals partitions one generation into maximal single-entry regions.
// nodes is the generation in forward post-order; each returned interval
// starts with its header.
func (g *Graph) intervals(entry *Node, nodes []*Node) [][]*Node {
	owner := make(map[*Node]int, len(nodes))
	queued := map[*Node]bool{entry: true}
	headers := []*Node{entry}

	var out [][]*Node

	for len(headers) > 0 {
		h := headers[0]
		headers = headers[1:]

		if _, ok := owner[h]; ok {
			continue
		}

		idx := len(out)
		iv := []*Node{h}
		owner[h] = idx

		for grown := true; grown; {
			grown = false

			for i := len(nodes) - 1; i >= 0; i-- {
				n := nodes[i]

				if n == entry {
					continue
				}

				if _, ok := owner[n]; ok {
					continue
				}

				if !allPredsIn(n, owner, idx) {
					continue
				}

				owner[n] = idx
				iv = append(iv, n)
				grown = true
			}
		}

		for i := len(nodes) - 1; i >= 0; i-- {
			n := nodes[i]

			if _, ok := owner[n]; ok || queued[n] {
				continue
			}

			for _, p := range n.preds {
				if j, ok := owner[p]; ok && j == idx {
					queued[n] = true
					headers = append(headers, n)

					break
				}
			}
		}

		out = append(out, iv)
	}

	return out
}

func allPredsIn(n *Node, owner map[*Node]int, idx int) bool {
	if len(n.preds) == 0 {
		return false
	}

	for _, p := range n.preds {
		if j, ok := owner[p]; !ok || j != idx {
			return false
		}
	}

	return true
}

// reduce collapses every interval into one aggregate node and links the
// aggregates by the edges that cross interval boundaries. It returns the
// new generation's entry.
func (g *Graph) reduce(entry *Node, ivs [][]*Node) *Node {
	arena := make([]Node, len(ivs))
	g.gens = append(g.gens, arena)

	nodes := make([]*Node, len(ivs))

	for i, iv := range ivs {
		arena[i].initAggregate(g.nextID, iv)
		g.nextID++
		nodes[i] = &arena[i]
	}

	for _, agg := range nodes {
		for _, m := range agg.members {
			for _, s := range m.succs {
				if s.interval == agg || s.interval == nil {
					continue
				}

				agg.addEdgeTo(s.interval)
				s.interval.addEdgeFrom(agg)
			}
		}
	}

	g.reductions++

	return entry.interval
}
