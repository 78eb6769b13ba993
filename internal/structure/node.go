package structure

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

// BlockType is the terminator kind of a basic block.
type BlockType uint8

const (
	Fall     BlockType = iota // falls through to its single successor
	TwoWay                    // conditional branch: Succs[0] taken, Succs[1] fallthrough
	NWay                      // multi-way branch (switch / jump table)
	Jump                      // unconditional jump
	Return                    // leaves the function
	Interval                  // synthetic aggregate built during reduction
)

func (t BlockType) String() string {
	switch t {
	case Fall:
		return "fall"
	case TwoWay:
		return "twoway"
	case NWay:
		return "nway"
	case Jump:
		return "jump"
	case Return:
		return "ret"
	case Interval:
		return "interval"
	default:
		return fmt.Sprintf("BlockType(%d)", uint8(t))
	}
}

// StructType is the structural class assigned to a node.
type StructType uint8

const (
	Seq StructType = iota
	Cond
	Loop
	LoopCond // loop header that is also a conditional header
)

func (s StructType) String() string {
	switch s {
	case Seq:
		return "seq"
	case Cond:
		return "cond"
	case Loop:
		return "loop"
	case LoopCond:
		return "loopcond"
	default:
		return fmt.Sprintf("StructType(%d)", uint8(s))
	}
}

// CondType is the shape of a conditional header.
type CondType uint8

const (
	CondNone   CondType = iota
	IfThen              // only a then clause: Else target is the follow
	IfElse              // only an else clause: Then target is the follow
	IfThenElse          // both clauses
	Case                // n-way header
)

func (c CondType) String() string {
	switch c {
	case CondNone:
		return "none"
	case IfThen:
		return "if-then"
	case IfElse:
		return "if-else"
	case IfThenElse:
		return "if-then-else"
	case Case:
		return "case"
	default:
		return fmt.Sprintf("CondType(%d)", uint8(c))
	}
}

// LoopType is the kind of a loop header.
type LoopType uint8

const (
	LoopNone LoopType = iota
	PreTested
	PostTested
	Endless
)

func (l LoopType) String() string {
	switch l {
	case LoopNone:
		return "none"
	case PreTested:
		return "pre-tested"
	case PostTested:
		return "post-tested"
	case Endless:
		return "endless"
	default:
		return fmt.Sprintf("LoopType(%d)", uint8(l))
	}
}

// UnstructType tags control transfers that cannot be expressed structurally.
type UnstructType uint8

const (
	Structured UnstructType = iota
	JumpInOutLoop
	JumpIntoCase
)

func (u UnstructType) String() string {
	switch u {
	case Structured:
		return "structured"
	case JumpInOutLoop:
		return "jump-in/out-of-loop"
	case JumpIntoCase:
		return "jump-into-case"
	default:
		return fmt.Sprintf("UnstructType(%d)", uint8(u))
	}
}

// Escape describes how an out-edge violates the computed nesting.
// Loops lists every loop header the edge leaves, or enters
// other than through its header.
type Escape struct {
	Kind  UnstructType
	Loops []*Node
}

// Node is one basic block, or an aggregate of a previous generation's
// nodes during interval reduction. All nodes of a function live in the
// Graph that created them; the relational links below never own.
type Node struct {
	id    int
	block *Block
	typ   BlockType

	succs []*Node
	preds []*Node
	esc   []Escape

	sType  StructType
	cType  CondType
	lType  LoopType
	usType UnstructType

	immPDom    *Node
	loopHead   *Node
	caseHead   *Node
	condFollow *Node
	loopFollow *Node
	latch      *Node
	latchOf    *Node // header of the loop this node closes

	// loop body of a header, excluding the header itself
	body []*Node

	// reduction
	interval *Node   // aggregate of the next generation holding this node
	members  []*Node // aggregates: nodes of the previous generation
	base     []*Node // aggregates: basic-block nodes covered
	head     *Node   // aggregates: basic-block node at the interval header

	stamps    [2]int
	revStamps [2]int
	ord       int
	revOrd    int

	mark       uint32
	reachable  bool
	virtual    bool // the unified exit
	exitLink   bool // extra edge to the virtual exit for nodes that never return
	classified bool
}

func (n *Node) init(id int, b *Block) {
	if b == nil {
		panic(errors.New("structure: node %d: nil block at %v", id, loc.Caller(1)))
	}

	*n = Node{
		id:        id,
		block:     b,
		typ:       b.Kind,
		ord:       -1,
		revOrd:    -1,
		stamps:    [2]int{-1, -1},
		revStamps: [2]int{-1, -1},
	}
}

func (n *Node) initAggregate(id int, members []*Node) {
	*n = Node{
		id:        id,
		typ:       Interval,
		members:   members,
		ord:       -1,
		revOrd:    -1,
		stamps:    [2]int{-1, -1},
		revStamps: [2]int{-1, -1},
	}

	n.head = members[0].headNode()

	for _, m := range members {
		m.interval = n
		n.base = append(n.base, m.baseNodes()...)
	}
}

// addEdgeTo adds an edge to dest. Adding an existing edge is a no-op,
// except that a two-way node gaining a duplicate target degenerates to Fall.
func (n *Node) addEdgeTo(dest *Node) {
	if n.hasEdgeTo(dest) {
		if n.typ == TwoWay {
			n.typ = Fall
		}

		return
	}

	n.succs = append(n.succs, dest)
}

// addEdgeFrom records src as a predecessor. Only aggregates need it:
// basic-block in-edges are built by the forward timestamping walk.
func (n *Node) addEdgeFrom(src *Node) {
	for _, p := range n.preds {
		if p == src {
			return
		}
	}

	n.preds = append(n.preds, src)
}

func (n *Node) hasEdgeTo(dest *Node) bool {
	for _, s := range n.succs {
		if s == dest {
			return true
		}
	}

	return false
}

// IsAncestorOf reports whether n is a proper DFS ancestor of other
// under either the forward or the reverse-children timestamps.
func (n *Node) IsAncestorOf(other *Node) bool {
	return (n.stamps[0] < other.stamps[0] && n.stamps[1] > other.stamps[1]) ||
		(n.revStamps[0] < other.revStamps[0] && n.revStamps[1] > other.revStamps[1])
}

// HasBackEdgeTo reports whether an edge from n to dest closes a cycle.
func (n *Node) HasBackEdgeTo(dest *Node) bool {
	return dest == n || dest.IsAncestorOf(n)
}

// inLoop reports whether n lies inside the loop headed by h,
// using the loop-stamp intersection with h's latch.
func (n *Node) inLoop(h *Node) bool {
	latch := h.latch
	if latch == nil {
		return false
	}

	if n == h || n == latch {
		return true
	}

	return (h.stamps[0] < n.stamps[0] && n.stamps[1] < h.stamps[1] &&
		n.stamps[0] < latch.stamps[0] && latch.stamps[1] < n.stamps[1]) ||
		(h.revStamps[0] < n.revStamps[0] && n.revStamps[1] < h.revStamps[1] &&
			n.revStamps[0] < latch.revStamps[0] && latch.revStamps[1] < n.revStamps[1])
}

// innermostLoop is the header of the innermost loop containing n.
func (n *Node) innermostLoop() *Node {
	if n.latch != nil {
		return n
	}

	return n.loopHead
}

func (n *Node) isLatch() bool {
	return n.latchOf != nil
}

func (n *Node) headNode() *Node {
	if n.typ == Interval {
		return n.head
	}

	return n
}

func (n *Node) baseNodes() []*Node {
	if n.typ == Interval {
		return n.base
	}

	return []*Node{n}
}

// setStructType sets the structural class. For Cond the shape is derived
// from the follow, which must already be resolved.
func (n *Node) setStructType(s StructType) {
	n.sType = s

	if s == Cond {
		n.deriveCondType()
	}
}

func (n *Node) deriveCondType() {
	switch {
	case n.typ == NWay:
		n.cType = Case
	case n.Else() == n.condFollow:
		n.cType = IfThen
	case n.Then() == n.condFollow:
		n.cType = IfElse
	default:
		n.cType = IfThenElse
	}
}

func (n *Node) setCondType(c CondType) {
	if n.sType != Cond && n.sType != LoopCond {
		n.assertf("cond type %v on %v node", c, n.sType)
	}

	n.cType = c
}

// setLoopType sets the loop kind. Pre-tested loops and single-block
// post-tested loops are plain Loop headers, never LoopCond.
func (n *Node) setLoopType(l LoopType) {
	if n.sType != Loop && n.sType != LoopCond {
		n.assertf("loop type %v on %v node", l, n.sType)
	}

	n.lType = l

	if l == PreTested || (l == PostTested && n == n.latch) {
		n.sType = Loop
	}
}

func (n *Node) setUnstructType(u UnstructType) {
	if (n.sType != Cond && n.sType != LoopCond) || n.cType == Case {
		n.assertf("unstructured type %v on %v/%v node", u, n.sType, n.cType)
	}

	n.usType = u
}

func (n *Node) assertf(format string, args ...interface{}) {
	panic(errors.New("structure: node %v: %v at %v", n, fmt.Sprintf(format, args...), loc.Caller(2)))
}

// ID is the block index, or a fresh id for aggregates and the virtual exit.
func (n *Node) ID() int { return n.id }

// Block is the basic block the node wraps; nil for aggregates and the virtual exit.
func (n *Node) Block() *Block { return n.block }

func (n *Node) Type() BlockType { return n.typ }

func (n *Node) Succs() []*Node { return n.succs }

func (n *Node) Preds() []*Node { return n.preds }

// Then is the taken target of a two-way node.
func (n *Node) Then() *Node { return n.succs[0] }

// Else is the fallthrough target of a two-way node.
func (n *Node) Else() *Node { return n.succs[1] }

func (n *Node) StructType() StructType { return n.sType }

func (n *Node) CondType() CondType { return n.cType }

func (n *Node) LoopType() LoopType { return n.lType }

func (n *Node) UnstructType() UnstructType { return n.usType }

// LoopHead is the header of the innermost loop n belongs to.
// For a loop header it is the enclosing loop's header.
func (n *Node) LoopHead() *Node { return n.loopHead }

func (n *Node) LatchNode() *Node { return n.latch }

func (n *Node) CaseHead() *Node { return n.caseHead }

func (n *Node) CondFollow() *Node { return n.condFollow }

func (n *Node) LoopFollow() *Node { return n.loopFollow }

// ImmPDom is the immediate post-dominator; nil when it is the virtual exit.
func (n *Node) ImmPDom() *Node {
	if n.immPDom != nil && n.immPDom.virtual {
		return nil
	}

	return n.immPDom
}

// IsLoopHeader reports whether some loop was closed on n.
func (n *Node) IsLoopHeader() bool { return n.latch != nil }

// Body lists the loop members of a header, excluding the header.
func (n *Node) Body() []*Node { return n.body }

// Escape returns the tag of the i-th out-edge.
func (n *Node) Escape(i int) Escape {
	if i >= len(n.esc) {
		return Escape{}
	}

	return n.esc[i]
}

// Order is the forward post-order index.
func (n *Node) Order() int { return n.ord }

// RevOrder is the post-order index in the reverse graph.
func (n *Node) RevOrder() int { return n.revOrd }

// Stamps returns the forward and reverse DFS intervals.
func (n *Node) Stamps() (fwd, rev [2]int) { return n.stamps, n.revStamps }

// Reachable reports whether the node is reachable from the entry.
func (n *Node) Reachable() bool { return n.reachable }

func (n *Node) Name() string {
	if n.block != nil && n.block.Name != "" {
		return n.block.Name
	}

	switch {
	case n.typ == Interval:
		return fmt.Sprintf("I%d", n.id)
	case n.virtual:
		return "exit"
	}

	return fmt.Sprintf("bb%d", n.id)
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}

	return n.Name()
}
