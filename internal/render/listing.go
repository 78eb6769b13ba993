package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"unweave/internal/structure"
)

// Listing writes one line per reachable node in reverse post-order,
// indented by loop depth, then the escaping edges and unreachable blocks.
func Listing(w io.Writer, g *structure.Graph) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "func %s: %v, %d reductions, %d loops\n", g.Func().Name, g.State(), g.Reductions(), len(g.Loops()))

	order := g.Order()
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]

		ipdom := "-"
		if p := n.ImmPDom(); p != nil {
			ipdom = p.Name()
		}

		fmt.Fprintf(tw, "%s%s\t%v\t%s\tipdom %s\n", strings.Repeat("  ", depth(n)), n.Name(), n.StructType(), shapeTag(n), ipdom)
	}

	var gotos []string
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		for j, s := range n.Succs() {
			esc := n.Escape(j)
			if esc.Kind == structure.Structured {
				continue
			}

			line := fmt.Sprintf("goto %v -> %v\t%v", n, s, esc.Kind)
			if len(esc.Loops) != 0 {
				line += fmt.Sprintf("\tloops %v", esc.Loops)
			}
			gotos = append(gotos, line)
		}
	}

	if len(gotos) != 0 {
		fmt.Fprintln(tw)
		for _, l := range gotos {
			fmt.Fprintln(tw, l)
		}
	}

	if dead := g.Dead(); len(dead) != 0 {
		fmt.Fprintf(tw, "\nunreachable: %v\n", dead)
	}

	return tw.Flush()
}

// depth is the number of loops enclosing n, a header counting its own loop.
func depth(n *structure.Node) int {
	d := 0
	if n.IsLoopHeader() {
		d++
	}
	for h := n.LoopHead(); h != nil; h = h.LoopHead() {
		d++
	}
	return d
}
