package structure

import (
	"tlog.app/go/errors"
)

// State is the progress of a structuring run.
type State uint8

const (
	Running State = iota
	FullyStructured
	IrreducibleResidue
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case FullyStructured:
		return "fully-structured"
	case IrreducibleResidue:
		return "irreducible-residue"
	default:
		return "State(?)"
	}
}

// Graph is the per-function node table. It owns every node created for
// one structuring run: one node per block, the virtual exit and the
// aggregates of each reduction round.
type Graph struct {
	fn *Func

	arena []Node  // blocks, then the virtual exit
	nodes []*Node // block nodes, index == block index
	entry *Node
	exit  *Node

	order    []*Node // forward post-order of reachable block nodes
	revOrder []*Node // post-order of the reverse graph from the exit
	dead     []*Node

	gens   [][]Node // aggregates per reduction round
	nextID int
	gen    uint32

	loops      []*Node // headers, innermost first
	maxRounds  int
	round      int
	reductions int
	state      State
}

// NewGraph builds the node table for fn. Blocks map 1:1 to nodes.
func NewGraph(fn *Func) (*Graph, error) {
	if err := fn.Validate(); err != nil {
		return nil, errors.Wrap(err, "func %v", fn.Name)
	}

	g := &Graph{
		fn:     fn,
		arena:  make([]Node, len(fn.Blocks)+1),
		nodes:  make([]*Node, len(fn.Blocks)),
		nextID: len(fn.Blocks) + 1,
	}

	for i := range fn.Blocks {
		g.arena[i].init(i, &fn.Blocks[i])
		g.nodes[i] = &g.arena[i]
	}

	g.exit = &g.arena[len(fn.Blocks)]
	*g.exit = Node{
		id:      len(fn.Blocks),
		typ:     Return,
		virtual: true,
		ord:     -1,
		revOrd:  -1,
	}

	for i, b := range fn.Blocks {
		n := g.nodes[i]

		for _, s := range b.Succs {
			n.addEdgeTo(g.nodes[s])
		}

		if n.typ == NWay && len(n.succs) < 2 {
			n.typ = Fall
		}
	}

	g.entry = g.nodes[fn.Entry]

	return g, nil
}

func (g *Graph) nextGen() uint32 {
	g.gen++
	return g.gen
}

func (g *Graph) Func() *Func { return g.fn }

func (g *Graph) Entry() *Node { return g.entry }

// Nodes returns the block nodes, indexed like Func.Blocks.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Node returns the node of block i.
func (g *Graph) Node(i int) *Node { return g.nodes[i] }

// Order returns reachable block nodes in forward post-order.
func (g *Graph) Order() []*Node { return g.order }

// Dead returns the blocks unreachable from the entry.
func (g *Graph) Dead() []*Node { return g.dead }

// Loops returns loop headers in discovery order, innermost first.
func (g *Graph) Loops() []*Node { return g.loops }

func (g *Graph) State() State { return g.state }

// Reductions is the number of rounds that collapsed the graph.
func (g *Graph) Reductions() int { return g.reductions }

// Generations is the number of derived graphs built, the block graph included.
func (g *Graph) Generations() int { return len(g.gens) + 1 }

// SetMaxRounds caps the number of reduction rounds. A graph still not
// collapsed after n rounds is finished as an irreducible residue.
// Zero means no cap.
func (g *Graph) SetMaxRounds(n int) { g.maxRounds = n }

// Result summarises a finished run.
type Result struct {
	State  State
	Rounds int
	Nodes  []*Node
	Dead   []*Node
	Loops  []*Node
}

func (g *Graph) Result() Result {
	return Result{
		State:  g.state,
		Rounds: g.round + 1,
		Nodes:  g.nodes,
		Dead:   g.dead,
		Loops:  g.loops,
	}
}
