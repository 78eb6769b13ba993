// Package callgraph converts between the decoder's CFGs, lattice graphs and
// the structuring engine's input, and builds lattice graphs of call and
// loop nesting.
package callgraph

import (
	"fmt"

	"github.com/zboralski/lattice"

	"unweave/internal/disasm"
)

// Symbols names function entry addresses. Unknown targets render as sub_<addr>.
type Symbols map[uint64]string

func (s Symbols) name(addr uint64) string {
	if n, ok := s[addr]; ok {
		return n
	}
	return fmt.Sprintf("sub_%x", addr)
}

// BuildCallGraph constructs a lattice.Graph from decoded functions.
// Each function becomes a node, each BL site an edge. BLR sites are
// skipped: their targets are unknown.
func BuildCallGraph(funcs []*disasm.FuncCFG, syms Symbols) *lattice.Graph {
	g := &lattice.Graph{}
	for _, f := range funcs {
		g.Nodes = append(g.Nodes, f.Name)
		for _, b := range f.Blocks {
			for _, c := range b.Calls {
				if c.Reg >= 0 {
					continue
				}
				g.Edges = append(g.Edges, lattice.Edge{
					Caller: f.Name,
					Callee: syms.name(c.Target),
				})
			}
		}
	}
	g.Dedup()
	return g
}
