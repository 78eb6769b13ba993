package structure

// classifyConds resolves the conditionals whose innermost loop was
// closed in this round: the headers themselves and their direct members.
func (g *Graph) classifyConds(loops []*Node) {
	for _, h := range loops {
		g.classifyCond(h)

		for _, n := range h.body {
			if n.loopHead == h {
				g.classifyCond(n)
			}
		}
	}
}

// classifyRemaining resolves every conditional still unclassified, outermost first.
func (g *Graph) classifyRemaining() {
	for i := len(g.order) - 1; i >= 0; i-- {
		g.classifyCond(g.order[i])
	}
}

func (g *Graph) classifyCond(n *Node) {
	if n.classified {
		return
	}

	n.classified = true

	switch n.typ {
	case NWay:
		n.condFollow = n.ImmPDom()

		if n.sType == LoopCond {
			n.setCondType(Case)
		} else if n.sType == Seq {
			n.setStructType(Cond)
		}
	case TwoWay:
		if n.sType == Loop {
			return // the branch is the loop test
		}

		if n.isLatch() && n.sType == Seq {
			return
		}

		n.condFollow = g.resolveFollow(n)

		if n.sType == LoopCond {
			n.deriveCondType()
			return
		}

		n.setStructType(Cond)
	}
}

// resolveFollow picks the node where both arms of n meet. Inside a loop
// an arm that leaves the loop or jumps back to a header is a jump, and
// the other arm becomes the follow.
func (g *Graph) resolveFollow(n *Node) *Node {
	pd := n.ImmPDom()

	l := n.innermostLoop()
	if l == nil {
		return pd
	}

	thenJump := isJumpArm(l, n, n.Then())
	elseJump := isJumpArm(l, n, n.Else())

	switch {
	case thenJump && elseJump:
		return nil
	case thenJump:
		return n.Else()
	case elseJump:
		return n.Then()
	}

	if pd != nil && pd != l && pd.inLoop(l) {
		return pd
	}

	return nil
}

func isJumpArm(l, n, arm *Node) bool {
	return !arm.inLoop(l) || n.HasBackEdgeTo(arm)
}
