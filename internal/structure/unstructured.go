package structure

// classifyEscapes tags every out-edge that leaves the structure of its
// source and marks the two-way conditionals that own such an edge.
// N-way sources are exempt: their arms are case labels.
func (g *Graph) classifyEscapes() {
	g.tagCases()

	for _, u := range g.order {
		if u.typ == NWay {
			continue
		}

		u.esc = make([]Escape, len(u.succs))

		for i, v := range u.succs {
			u.esc[i] = edgeEscape(u, v)
		}

		u.tagUnstructured()
	}
}

// tagCases sets caseHead on the nodes of every switch region. Nested
// switches are visited first and keep their own members.
func (g *Graph) tagCases() {
	for _, s := range g.order {
		if s.typ == NWay {
			g.tagCase(s)
		}
	}
}

func (g *Graph) tagCase(head *Node) {
	gen := g.nextGen()
	follow := head.condFollow
	l := head.innermostLoop()
	if l == head {
		l = head.loopHead
	}

	head.mark = gen
	stack := []*Node{head}

	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		next := x.succs

		if x != head {
			if x.caseHead != nil || inCase(head, x) {
				continue
			}

			x.caseHead = head

			if x.typ == NWay {
				next = nil

				if x.condFollow != nil {
					next = []*Node{x.condFollow}
				}
			}
		}

		for _, s := range next {
			if s == follow || s.mark == gen || x.HasBackEdgeTo(s) {
				continue
			}

			if l != nil && !s.inLoop(l) {
				continue
			}

			s.mark = gen
			stack = append(stack, s)
		}
	}
}

func edgeEscape(u, v *Node) Escape {
	var loops []*Node

	var left []*Node

	for l := u.innermostLoop(); l != nil; l = l.loopHead {
		if v.inLoop(l) {
			break
		}

		left = append(left, l)
	}

	if len(left) > 1 || (len(left) == 1 && v != left[0].loopFollow) {
		loops = append(loops, left...)
	}

	for l := v.innermostLoop(); l != nil; l = l.loopHead {
		if u.inLoop(l) {
			break
		}

		if v != l {
			loops = append(loops, l)
		}
	}

	if v.latch != nil && u.backTo(v) && !u.inLoop(v) && !containsNode(loops, v) {
		loops = append(loops, v)
	}

	switch {
	case len(loops) != 0:
		return Escape{Kind: JumpInOutLoop, Loops: loops}
	case v.latch == nil && u.backTo(v):
		return Escape{Kind: JumpInOutLoop}
	case v.caseHead != nil && !inCase(u, v.caseHead):
		return Escape{Kind: JumpIntoCase}
	}

	return Escape{}
}

func inCase(u, s *Node) bool {
	for c := u; c != nil; c = c.caseHead {
		if c == s {
			return true
		}
	}

	return false
}

// tagUnstructured marks a two-way conditional with an escaping arm. The
// escaping arm becomes a goto and the other arm is the follow.
func (n *Node) tagUnstructured() {
	if n.typ != TwoWay || (n.sType != Cond && n.sType != LoopCond) || n.cType == Case {
		return
	}

	thenEsc, elseEsc := n.esc[0].Kind, n.esc[1].Kind

	switch {
	case thenEsc != Structured && elseEsc != Structured:
		n.setUnstructType(thenEsc)
	case thenEsc != Structured:
		n.setUnstructType(thenEsc)
		n.condFollow = n.Else()
		n.setCondType(IfThen)
	case elseEsc != Structured:
		n.setUnstructType(elseEsc)
		n.condFollow = n.Then()
		n.setCondType(IfElse)
	}
}
