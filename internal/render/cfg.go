package render

import (
	"fmt"
	"strings"

	"unweave/internal/disasm"
	"unweave/internal/structure"
)

// StructDOT renders a structured function as DOT. Nodes are filled by
// structural class, loops are drawn as nested clusters, back edges are
// dashed and unstructured edges are red and labelled goto.
// dcfg, when given, supplies instruction text; its block i must be node i.
func StructDOT(g *structure.Graph, dcfg *disasm.FuncCFG, t Theme) string {
	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	b.WriteString("  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	b.WriteString("  labelloc=t;\n  labeljust=l;\n")
	fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s (%v)</font>>;\n",
		t.TextColor, dotEscape(g.Func().Name), g.State())
	b.WriteByte('\n')

	w := &dotWriter{b: &b, g: g, dcfg: dcfg, t: t}

	for _, n := range g.Nodes() {
		if !n.IsLoopHeader() && (n.LoopHead() == nil || !n.Reachable()) {
			w.node(n, "  ")
		}
	}

	for _, h := range g.Loops() {
		if h.LoopHead() == nil {
			w.cluster(h, "  ")
		}
	}
	b.WriteByte('\n')

	for _, n := range g.Nodes() {
		w.edges(n)
	}

	b.WriteString("}\n")
	return b.String()
}

type dotWriter struct {
	b    *strings.Builder
	g    *structure.Graph
	dcfg *disasm.FuncCFG
	t    Theme
}

func (w *dotWriter) cluster(h *structure.Node, indent string) {
	fmt.Fprintf(w.b, "%ssubgraph cluster_%d {\n", indent, h.ID())
	fmt.Fprintf(w.b, "%s  color=%q; style=rounded; penwidth=0.6;\n", indent, w.t.ClusterBorder)
	fmt.Fprintf(w.b, "%s  label=<<font point-size=\"7\" color=\"%s\">%v loop</font>>;\n", indent, w.t.ClusterLabel, h.LoopType())

	w.node(h, indent+"  ")

	for _, n := range h.Body() {
		if n.LoopHead() != h {
			continue
		}
		if n.IsLoopHeader() {
			w.cluster(n, indent+"  ")
		} else {
			w.node(n, indent+"  ")
		}
	}

	fmt.Fprintf(w.b, "%s}\n", indent)
}

func (w *dotWriter) node(n *structure.Node, indent string) {
	lines := []string{"<b>" + dotEscape(n.Name()) + "</b>"}
	if tag := shapeTag(n); tag != "" {
		lines = append(lines, "<i>"+dotEscape(tag)+"</i>")
	}

	if w.dcfg != nil && n.ID() < len(w.dcfg.Blocks) {
		blk := w.dcfg.Blocks[n.ID()]
		var insts []string
		for i := blk.Start; i < blk.End && i < len(w.dcfg.Insts); i++ {
			inst := w.dcfg.Insts[i]
			insts = append(insts, dotEscape(fmt.Sprintf("0x%x: %s", inst.Addr, inst.Text)))
		}
		lines = append(lines, truncLines(insts, 12)...)
	}

	label := strings.Join(lines, "<br align=\"left\"/>") + "<br align=\"left\"/>"

	var attrs string
	if fill := w.fill(n); fill != "" {
		attrs = fmt.Sprintf(", fillcolor=%q", fill)
	}
	if n == w.g.Entry() {
		attrs += fmt.Sprintf(", penwidth=1.5, color=%q", w.t.EdgeTrue)
	}

	fmt.Fprintf(w.b, "%sbb%d [label=<%s>%s];\n", indent, n.ID(), label, attrs)
}

func (w *dotWriter) fill(n *structure.Node) string {
	switch {
	case !n.Reachable():
		return w.t.DeadFill
	case n.StructType() == structure.LoopCond:
		return w.t.LoopCondFill
	case n.StructType() == structure.Loop:
		return w.t.LoopFill
	case n.CondType() == structure.Case:
		return w.t.CaseFill
	case n.StructType() == structure.Cond:
		return w.t.CondFill
	}
	return ""
}

func (w *dotWriter) edges(n *structure.Node) {
	from := fmt.Sprintf("bb%d", n.ID())

	for i, s := range n.Succs() {
		to := fmt.Sprintf("bb%d", s.ID())
		esc := n.Escape(i)

		switch {
		case esc.Kind != structure.Structured:
			fmt.Fprintf(w.b, "  %s -> %s [color=%q, penwidth=1.2, label=<<font point-size=\"7\" color=\"%s\">goto</font>>];\n",
				from, to, w.t.EdgeEscape, w.t.EdgeEscape)
		case s.IsLoopHeader() && s.LatchNode() == n:
			fmt.Fprintf(w.b, "  %s -> %s [color=%q, style=dashed, constraint=false];\n", from, to, w.t.EdgeBack)
		case n.Type() == structure.TwoWay && i == 0:
			fmt.Fprintf(w.b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">T</font>>];\n",
				from, to, w.t.EdgeTrue, w.t.EdgeTrue)
		case n.Type() == structure.TwoWay:
			fmt.Fprintf(w.b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">F</font>>];\n",
				from, to, w.t.EdgeFalse, w.t.EdgeFalse)
		default:
			fmt.Fprintf(w.b, "  %s -> %s [color=%q];\n", from, to, w.t.EdgeDirect)
		}
	}
}

// shapeTag is the one-line structural summary of a node, "" for plain sequence nodes.
func shapeTag(n *structure.Node) string {
	var parts []string

	if n.IsLoopHeader() {
		p := fmt.Sprintf("%v loop, latch %v", n.LoopType(), n.LatchNode())
		if f := n.LoopFollow(); f != nil {
			p += fmt.Sprintf(", follow %v", f)
		}
		parts = append(parts, p)
	}

	if n.CondType() != structure.CondNone {
		p := n.CondType().String()
		if f := n.CondFollow(); f != nil {
			p += fmt.Sprintf(", follow %v", f)
		}
		parts = append(parts, p)
	}

	if u := n.UnstructType(); u != structure.Structured {
		parts = append(parts, u.String())
	}

	return strings.Join(parts, "; ")
}
