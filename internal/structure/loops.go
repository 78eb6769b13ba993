package structure

// classifyLoops closes the loops whose back edges sit inside one of the
// intervals of the current generation. Headers found are returned and
// appended to g.loops.
func (g *Graph) classifyLoops(ivs [][]*Node) []*Node {
	var found []*Node

	for _, iv := range ivs {
		h := iv[0]
		hb := h.headNode()

		if hb.latch != nil {
			continue
		}

		var cands []*Node

		for _, x := range iv {
			if !x.hasEdgeTo(h) || !x.HasBackEdgeTo(h) {
				continue
			}

			for _, b := range x.baseNodes() {
				if b.hasEdgeTo(hb) && b.HasBackEdgeTo(hb) {
					cands = append(cands, b)
				}
			}
		}

		latch := pickLatch(hb, cands)
		if latch == nil {
			continue
		}

		g.markLoop(hb, latch)
		found = append(found, hb)
	}

	g.loops = append(g.loops, found...)

	return found
}

// residueLoops closes the remaining back edges of a graph that stopped
// reducing. Nodes are taken in post-order so inner loops come first.
// Only forward-tree back edges count here; the reverse walk would make
// both entries of an irreducible cycle a header.
func (g *Graph) residueLoops() []*Node {
	var found []*Node

	for _, n := range g.order {
		if n.latch != nil {
			continue
		}

		var cands []*Node

		for _, p := range n.preds {
			if p.reachable && p.backTo(n) {
				cands = append(cands, p)
			}
		}

		latch := pickLatch(n, cands)
		if latch == nil {
			continue
		}

		g.markLoop(n, latch)
		found = append(found, n)
	}

	g.loops = append(g.loops, found...)

	return found
}

// pickLatch chooses among the back-edge sources of h. A source in the
// same enclosing loop as h wins, then one that closes no other loop,
// then the deepest (lowest post-order index).
func pickLatch(h *Node, cands []*Node) *Node {
	var best *Node

	for _, c := range cands {
		if best == nil || latchBetter(h, c, best) {
			best = c
		}
	}

	return best
}

func latchBetter(h, a, b *Node) bool {
	as, bs := a.loopHead == h.loopHead, b.loopHead == h.loopHead
	if as != bs {
		return as
	}

	af, bf := !a.isLatch(), !b.isLatch()
	if af != bf {
		return af
	}

	return a.ord < b.ord
}

func (g *Graph) markLoop(h, latch *Node) {
	h.latch = latch

	if latch.latchOf == nil {
		latch.latchOf = h
	}

	// A two-way latch's branch is the loop test. An n-way latch stays a case.
	if latch != h && latch.typ == TwoWay && latch.sType == Cond {
		latch.sType = Seq
		latch.cType = CondNone
		latch.condFollow = nil
	}

	if h.sType == Cond {
		h.cType = CondNone
		h.condFollow = nil
		h.classified = false
	}

	h.sType = Loop

	for _, n := range g.order {
		if n == h || !n.inLoop(h) {
			continue
		}

		h.body = append(h.body, n)

		if n.loopHead == nil && !h.nestedIn(n) {
			n.loopHead = h
		}
	}

	g.setLoopType(h)
	g.setLoopFollow(h)
}

func (g *Graph) setLoopType(h *Node) {
	latch := h.latch
	branch := h.typ == TwoWay || h.typ == NWay

	switch {
	case latch.typ == TwoWay:
		if branch && h != latch {
			h.sType = LoopCond
		}

		h.setLoopType(PostTested)
	case h.typ == TwoWay && !(h.Then().inLoop(h) && h.Else().inLoop(h)):
		h.setLoopType(PreTested)
	default:
		if branch {
			h.sType = LoopCond
		}

		h.setLoopType(Endless)
	}
}

func (g *Graph) setLoopFollow(h *Node) {
	latch := h.latch

	switch h.lType {
	case PreTested:
		if h.Then().inLoop(h) {
			h.loopFollow = h.Else()
		} else {
			h.loopFollow = h.Then()
		}
	case PostTested:
		s := latch.Then()
		if s == h {
			s = latch.Else()
		}

		if !s.inLoop(h) {
			h.loopFollow = s
		} else {
			h.loopFollow = g.exitFollow(h)
		}
	case Endless:
		h.loopFollow = g.exitFollow(h)
	}
}

// exitFollow picks the follow of a loop without a single test edge.
// With several exit targets the first one outside the loop on the
// post-dominator chain of h wins; failing that, the highest in post-order.
func (g *Graph) exitFollow(h *Node) *Node {
	var exits []*Node

	add := func(n *Node) {
		for _, s := range n.succs {
			if s.inLoop(h) || containsNode(exits, s) {
				continue
			}

			exits = append(exits, s)
		}
	}

	add(h)

	for _, n := range h.body {
		add(n)
	}

	switch len(exits) {
	case 0:
		return nil
	case 1:
		return exits[0]
	}

	for p := h.ImmPDom(); p != nil; p = p.ImmPDom() {
		if p.inLoop(h) {
			continue
		}

		if containsNode(exits, p) {
			return p
		}

		break
	}

	best := exits[0]

	for _, e := range exits[1:] {
		if e.ord > best.ord {
			best = e
		}
	}

	return best
}

func containsNode(list []*Node, n *Node) bool {
	for _, x := range list {
		if x == n {
			return true
		}
	}

	return false
}

// nestedIn reports whether l is n or encloses it. Overlapping loops of an
// irreducible region must not become each other's parent.
func (n *Node) nestedIn(l *Node) bool {
	for x := n; x != nil; x = x.loopHead {
		if x == l {
			return true
		}
	}

	return false
}

// backTo is HasBackEdgeTo restricted to the forward walk.
func (n *Node) backTo(dest *Node) bool {
	return dest == n || (dest.stamps[0] < n.stamps[0] && n.stamps[1] < dest.stamps[1])
}
