package structure

import (
	"tlog.app/go/errors"
)

// Block is one basic block of the input CFG.
type Block struct {
	ID    int    // caller's identifier (block number, address, ...)
	Name  string // optional label
	Kind  BlockType
	Succs []int // indices into Func.Blocks; for TwoWay: taken, then fallthrough
}

// Func is the CFG of one function as supplied by the CFG reconstruction stage.
type Func struct {
	Name   string
	Entry  int
	Blocks []Block
}

var (
	ErrNoBlocks = errors.New("no blocks")
	ErrBadEntry = errors.New("entry out of range")
	ErrBadSucc  = errors.New("successor out of range")
	ErrBadArity = errors.New("successor count does not match terminator")
)

// Validate checks that f is a well-formed CFG.
func (f *Func) Validate() error {
	if len(f.Blocks) == 0 {
		return ErrNoBlocks
	}

	if f.Entry < 0 || f.Entry >= len(f.Blocks) {
		return errors.Wrap(ErrBadEntry, "entry %d of %d", f.Entry, len(f.Blocks))
	}

	for i, b := range f.Blocks {
		for _, s := range b.Succs {
			if s < 0 || s >= len(f.Blocks) {
				return errors.Wrap(ErrBadSucc, "block %d: succ %d", i, s)
			}
		}

		var ok bool

		switch b.Kind {
		case Fall, Jump:
			ok = len(b.Succs) == 1
		case TwoWay:
			ok = len(b.Succs) == 2
		case NWay:
			ok = len(b.Succs) >= 1
		case Return:
			ok = len(b.Succs) == 0
		}

		if !ok {
			return errors.Wrap(ErrBadArity, "block %d: %v with %d succs", i, b.Kind, len(b.Succs))
		}
	}

	return nil
}
