package disasm

import (
	"fmt"
	"sort"
)

// BlockKind is how a basic block ends.
type BlockKind uint8

const (
	KindFall BlockKind = iota // no branch: falls into the next block
	KindCond                  // conditional branch: taken, then fallthrough
	KindJump                  // unconditional branch inside the function
	KindRet                   // RET, BR, or a branch leaving the function
)

func (k BlockKind) String() string {
	switch k {
	case KindFall:
		return "fall"
	case KindCond:
		return "cond"
	case KindJump:
		return "jump"
	case KindRet:
		return "ret"
	default:
		return fmt.Sprintf("BlockKind(%d)", uint8(k))
	}
}

// BasicBlock represents a sequence of instructions with a single entry point.
type BasicBlock struct {
	ID      int
	Start   int // index into FuncCFG.Insts (inclusive)
	End     int // index into FuncCFG.Insts (exclusive)
	Kind    BlockKind
	Succs   []Succ // successor edges
	Calls   []Call
	IsEntry bool
	IsTerm  bool // leaves the function
}

// Succ describes a control-flow successor edge.
type Succ struct {
	BlockID int
	Cond    string // "" = unconditional, "T" = taken/true, "F" = fallthrough/false
}

// FuncCFG is a per-function control flow graph.
type FuncCFG struct {
	Name   string
	Blocks []BasicBlock
	Insts  []Inst
}

// BuildCFG constructs a control flow graph from a function's instruction stream.
//  1. Leaders: index 0, in-range branch targets, instructions after terminators.
//  2. Blocks: instructions partitioned at leaders.
//  3. Successors and kind from each block's last instruction.
//
// A conditional branch whose target is outside the function keeps only its
// fallthrough and becomes a fall block. The last block falling off the end
// of the code is terminal.
func BuildCFG(name string, insts []Inst) FuncCFG {
	if len(insts) == 0 {
		return FuncCFG{Name: name, Insts: insts}
	}

	funcStart := insts[0].Addr
	funcEnd := insts[len(insts)-1].Addr + 4

	addrToIdx := make(map[uint64]int, len(insts))
	for i, inst := range insts {
		addrToIdx[inst.Addr] = i
	}

	inRange := func(target uint64) (int, bool) {
		if target < funcStart || target >= funcEnd {
			return 0, false
		}
		idx, ok := addrToIdx[target]
		return idx, ok
	}

	// Pass 1: leaders.
	leaders := map[int]bool{0: true}

	for i, inst := range insts {
		bi := DecodeBranch(inst.Raw, inst.Addr)
		if bi == nil {
			continue
		}
		if i+1 < len(insts) {
			leaders[i+1] = true
		}
		if bi.IsRet || bi.Indirect {
			continue
		}
		if idx, ok := inRange(bi.Target); ok {
			leaders[idx] = true
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	// Pass 2: partition.
	blocks := make([]BasicBlock, len(sorted))
	leaderToBlock := make(map[int]int, len(sorted))
	for i, start := range sorted {
		end := len(insts)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		blocks[i] = BasicBlock{
			ID:      i,
			Start:   start,
			End:     end,
			IsEntry: start == 0,
		}
		leaderToBlock[start] = i
	}

	// Pass 3: successors, kinds and call sites.
	for i := range blocks {
		blk := &blocks[i]

		for idx := blk.Start; idx < blk.End; idx++ {
			if c, ok := DecodeCall(insts[idx].Raw, insts[idx].Addr); ok {
				c.Index = idx
				blk.Calls = append(blk.Calls, c)
			}
		}

		last := insts[blk.End-1]
		bi := DecodeBranch(last.Raw, last.Addr)
		next, hasNext := leaderToBlock[blk.End]

		target := -1
		if bi != nil && !bi.IsRet && !bi.Indirect {
			if idx, ok := inRange(bi.Target); ok {
				target = leaderToBlock[idx]
			}
		}

		switch {
		case bi == nil && hasNext:
			blk.Kind = KindFall
			blk.Succs = []Succ{{BlockID: next}}
		case bi == nil, bi.IsRet, bi.Indirect:
			blk.Kind = KindRet
			blk.IsTerm = true
		case bi.Cond && target >= 0 && hasNext:
			blk.Kind = KindCond
			blk.Succs = []Succ{{BlockID: target, Cond: "T"}, {BlockID: next, Cond: "F"}}
		case bi.Cond && hasNext:
			blk.Kind = KindFall
			blk.Succs = []Succ{{BlockID: next, Cond: "F"}}
		case bi.Cond && target >= 0:
			blk.Kind = KindJump
			blk.Succs = []Succ{{BlockID: target, Cond: "T"}}
		case !bi.Cond && target >= 0:
			blk.Kind = KindJump
			blk.Succs = []Succ{{BlockID: target}}
		default:
			blk.Kind = KindRet
			blk.IsTerm = true
		}
	}

	return FuncCFG{
		Name:   name,
		Blocks: blocks,
		Insts:  insts,
	}
}

// BlockAnnotator labels the first instruction of every block with its
// id and kind, for Format.
func BlockAnnotator(cfg *FuncCFG) Annotator {
	starts := make(map[uint64]string, len(cfg.Blocks))
	for _, b := range cfg.Blocks {
		starts[cfg.Insts[b.Start].Addr] = fmt.Sprintf("bb%d %v", b.ID, b.Kind)
	}

	return func(inst Inst) string {
		return starts[inst.Addr]
	}
}
