package callgraph

import (
	"fmt"

	"github.com/zboralski/lattice"
	"tlog.app/go/errors"

	"unweave/internal/disasm"
	"unweave/internal/structure"
)

// ToLattice maps a disasm.FuncCFG to a lattice.FuncCFG.
// Call sites become block calls named through syms; BLR sites are named
// by register.
func ToLattice(dcfg *disasm.FuncCFG, syms Symbols) *lattice.FuncCFG {
	lcfg := &lattice.FuncCFG{Name: dcfg.Name}
	for _, db := range dcfg.Blocks {
		lb := &lattice.BasicBlock{
			ID:    db.ID,
			Start: db.Start,
			End:   db.End,
			Term:  db.IsTerm,
		}

		for _, ds := range db.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: ds.BlockID,
				Cond:    ds.Cond,
			})
		}

		for _, c := range db.Calls {
			callee := fmt.Sprintf("X%d", c.Reg)
			if c.Reg < 0 {
				callee = syms.name(c.Target)
			}
			lb.Calls = append(lb.Calls, lattice.CallSite{
				Offset: c.Index,
				Callee: callee,
			})
		}

		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}

// BuildCFG collects the lattice form of every function.
func BuildCFG(funcs []*disasm.FuncCFG, syms Symbols) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, f := range funcs {
		cg.Funcs = append(cg.Funcs, ToLattice(f, syms))
	}
	return cg
}

// FromDisasm builds the structuring input for a decoded function.
// Block i of the result is block i of dcfg; the entry is block 0.
func FromDisasm(dcfg *disasm.FuncCFG) *structure.Func {
	fn := &structure.Func{Name: dcfg.Name, Blocks: make([]structure.Block, len(dcfg.Blocks))}

	for i, db := range dcfg.Blocks {
		b := &fn.Blocks[i]
		b.ID = db.ID
		b.Name = fmt.Sprintf("bb%d", db.ID)

		if db.Start < len(dcfg.Insts) {
			b.Name = fmt.Sprintf("bb%d_%x", db.ID, dcfg.Insts[db.Start].Addr)
		}

		switch db.Kind {
		case disasm.KindFall:
			b.Kind = structure.Fall
		case disasm.KindCond:
			b.Kind = structure.TwoWay
		case disasm.KindJump:
			b.Kind = structure.Jump
		case disasm.KindRet:
			b.Kind = structure.Return
		}

		for _, s := range db.Succs {
			b.Succs = append(b.Succs, s.BlockID)
		}
	}

	return fn
}

// FromLattice builds the structuring input from a lattice CFG, which
// carries no terminator kinds: they are inferred from the successor
// edges. A "T"/"F" pair is a two-way branch with the taken edge first;
// more than two successors form an n-way branch.
func FromLattice(lcfg *lattice.FuncCFG) (*structure.Func, error) {
	fn := &structure.Func{Name: lcfg.Name, Blocks: make([]structure.Block, len(lcfg.Blocks))}

	index := make(map[int]int, len(lcfg.Blocks))
	for i, lb := range lcfg.Blocks {
		if _, dup := index[lb.ID]; dup {
			return nil, errors.New("func %v: duplicate block id %d", lcfg.Name, lb.ID)
		}
		index[lb.ID] = i
	}

	for i, lb := range lcfg.Blocks {
		b := &fn.Blocks[i]
		b.ID = lb.ID
		b.Name = fmt.Sprintf("bb%d", lb.ID)

		succs := lb.Succs
		if len(succs) == 2 && succs[0].Cond == "F" && succs[1].Cond == "T" {
			succs = []lattice.Successor{succs[1], succs[0]}
		}

		for _, s := range succs {
			j, ok := index[s.BlockID]
			if !ok {
				return nil, errors.Wrap(structure.ErrBadSucc, "func %v: block %d: succ %d", lcfg.Name, lb.ID, s.BlockID)
			}
			b.Succs = append(b.Succs, j)
		}

		switch n := len(succs); {
		case n == 0:
			b.Kind = structure.Return
		case n == 1 && succs[0].Cond == "":
			b.Kind = structure.Jump
		case n == 1:
			b.Kind = structure.Fall
		case n == 2:
			b.Kind = structure.TwoWay
		default:
			b.Kind = structure.NWay
		}
	}

	return fn, nil
}
