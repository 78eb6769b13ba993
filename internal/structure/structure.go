// Package structure recovers high-level control flow from a function's
// basic-block graph: loops with their headers, latches and follows,
// two-way and n-way conditionals with their follows, and the edges that
// cannot be expressed without a goto.
//
// The engine follows the derived-sequence method. Each round partitions
// the current graph into intervals, closes the loops found inside them,
// resolves their conditionals and collapses every interval into one
// node, until a single node remains or no interval grows.
package structure

import (
	"context"

	"tlog.app/go/tlog"
)

type phase uint8

const (
	phaseTimestamp phase = iota
	phasePostDominate
	phaseClassifyLoops
	phaseClassifyConds
	phaseReduce
)

// Structure builds the node table for fn and structures it.
func Structure(ctx context.Context, fn *Func) (*Graph, error) {
	g, err := NewGraph(fn)
	if err != nil {
		return nil, err
	}

	g.Run(ctx)

	return g, nil
}

// Run structures the graph. A graph that already finished is left as is.
func (g *Graph) Run(ctx context.Context) {
	if g.state != Running {
		return
	}

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "structure", "func", g.fn.Name, "blocks", len(g.nodes))
	defer func() {
		tr.Finish("state", g.state, "generations", g.Generations(), "reductions", g.reductions, "loops", len(g.loops))
	}()

	entry := g.entry

	var (
		cur   []*Node
		ivs   [][]*Node
		found []*Node
	)

	for p := phaseTimestamp; g.state == Running; {
		switch p {
		case phaseTimestamp:
			cur = g.timestamp(entry, g.round == 0)

			if g.round == 0 && len(g.dead) != 0 {
				tr.Printw("unreachable blocks", "count", len(g.dead), "first", g.dead[0])
			}

			p = phasePostDominate
		case phasePostDominate:
			if g.round == 0 {
				g.postDominate()
			}

			p = phaseClassifyLoops
		case phaseClassifyLoops:
			ivs = g.intervals(entry, cur)
			found = g.classifyLoops(ivs)

			p = phaseClassifyConds
		case phaseClassifyConds:
			g.classifyConds(found)

			if tr.If("structure_round") {
				tr.Printw("round", "round", g.round, "nodes", len(cur), "intervals", len(ivs), "loops", len(found))
			}

			p = phaseReduce
		case phaseReduce:
			switch {
			case len(cur) == 1:
				g.finish(tr, FullyStructured)
			case len(ivs) == len(cur) || (g.maxRounds > 0 && g.round+1 >= g.maxRounds):
				found = g.residueLoops()
				g.classifyConds(found)

				tr.Printw("irreducible", "round", g.round, "nodes", len(cur), "residue_loops", len(found))

				g.finish(tr, IrreducibleResidue)
			default:
				entry = g.reduce(entry, ivs)
				g.round++

				p = phaseTimestamp
			}
		}
	}
}

func (g *Graph) finish(tr tlog.Span, state State) {
	g.classifyRemaining()
	g.classifyEscapes()

	g.state = state

	if !tr.If("structure_nodes") {
		return
	}

	for i := len(g.order) - 1; i >= 0; i-- {
		n := g.order[i]

		tr.Printw("node", "node", n, "type", n.typ, "struct", n.sType, "cond", n.cType, "loop", n.lType,
			"unstruct", n.usType, "loop_head", n.loopHead, "latch", n.latch, "case_head", n.caseHead,
			"cond_follow", n.condFollow, "loop_follow", n.loopFollow, "ipdom", n.ImmPDom())
	}
}
