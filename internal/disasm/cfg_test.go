package disasm

import "testing"

// makeInst creates a synthetic Inst at the given address with raw encoding.
func makeInst(addr uint64, raw uint32) Inst {
	return Inst{Addr: addr, Raw: raw, Size: 4}
}

func TestBuildCFG_Linear(t *testing.T) {
	// Three NOPs, no branches: one block.
	insts := []Inst{
		makeInst(0x1000, 0xD503201F), // NOP
		makeInst(0x1004, 0xD503201F), // NOP
		makeInst(0x1008, 0xD65F03C0), // RET
	}
	cfg := BuildCFG("linear", insts)
	if len(cfg.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(cfg.Blocks))
	}
	blk := cfg.Blocks[0]
	if blk.Start != 0 || blk.End != 3 {
		t.Errorf("block range = [%d,%d), want [0,3)", blk.Start, blk.End)
	}
	if !blk.IsTerm {
		t.Error("block should be terminal (RET)")
	}
	if len(blk.Succs) != 0 {
		t.Errorf("succs = %d, want 0", len(blk.Succs))
	}
}

func TestBuildCFG_ConditionalBranch(t *testing.T) {
	// B.EQ to +0x10 (forward to addr 0x1010), then fallthrough.
	//   0x1000: B.EQ #0x10  → target 0x1010
	//   0x1004: NOP          (fallthrough)
	//   0x1008: RET
	//   0x100C: NOP
	//   0x1010: RET          (branch target)
	beq := uint32(0x54000000 | (4 << 5)) // imm19 = 4 → offset = 0x10
	insts := []Inst{
		makeInst(0x1000, beq),        // B.EQ → 0x1010
		makeInst(0x1004, 0xD503201F), // NOP
		makeInst(0x1008, 0xD65F03C0), // RET
		makeInst(0x100C, 0xD503201F), // NOP
		makeInst(0x1010, 0xD65F03C0), // RET (branch target)
	}
	cfg := BuildCFG("cond", insts)

	// Leaders: 0 (entry), 1 (after B.EQ), 3 (after RET at idx 2), 4 (target 0x1010)
	// Block 0: insts[0:1] = B.EQ
	// Block 1: insts[1:3] = NOP, RET
	// Block 2: insts[3:4] = NOP (dead code after RET)
	// Block 3: insts[4:5] = RET (branch target)

	if len(cfg.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(cfg.Blocks))
	}

	// Block 0 should have T and F successors.
	b0 := cfg.Blocks[0]
	if len(b0.Succs) != 2 {
		t.Fatalf("block 0 succs = %d, want 2", len(b0.Succs))
	}
	// T should point to block 3 (target 0x1010), F to block 1 (fallthrough).
	var hasT, hasF bool
	for _, s := range b0.Succs {
		if s.Cond == "T" && s.BlockID == 3 {
			hasT = true
		}
		if s.Cond == "F" && s.BlockID == 1 {
			hasF = true
		}
	}
	if !hasT {
		t.Errorf("block 0 missing T→block3, succs=%+v", b0.Succs)
	}
	if !hasF {
		t.Errorf("block 0 missing F→block1, succs=%+v", b0.Succs)
	}

	// Block 1 should be terminal (contains RET).
	b1 := cfg.Blocks[1]
	if !b1.IsTerm {
		t.Error("block 1 should be terminal (RET)")
	}

	// Block 3 should be terminal.
	b3 := cfg.Blocks[3]
	if !b3.IsTerm {
		t.Error("block 3 should be terminal (RET)")
	}
}

func TestBuildCFG_UnconditionalBranch(t *testing.T) {
	// B to +0x8 (skip one instruction).
	//   0x2000: B #0x8     → target 0x2008
	//   0x2004: NOP         (dead code)
	//   0x2008: RET         (branch target)
	b := uint32(0x14000000 | 2) // imm26=2 → offset=8
	insts := []Inst{
		makeInst(0x2000, b),          // B → 0x2008
		makeInst(0x2004, 0xD503201F), // NOP
		makeInst(0x2008, 0xD65F03C0), // RET
	}
	cfg := BuildCFG("uncond", insts)

	// Leaders: 0 (entry), 1 (after B), 2 (target of B)
	if len(cfg.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(cfg.Blocks))
	}

	// Block 0 has one unconditional successor → block 2.
	b0 := cfg.Blocks[0]
	if len(b0.Succs) != 1 {
		t.Fatalf("block 0 succs = %d, want 1", len(b0.Succs))
	}
	if b0.Succs[0].BlockID != 2 || b0.Succs[0].Cond != "" {
		t.Errorf("block 0 succ = {%d, %q}, want {2, \"\"}", b0.Succs[0].BlockID, b0.Succs[0].Cond)
	}
}

func TestBuildCFG_Empty(t *testing.T) {
	cfg := BuildCFG("empty", nil)
	if len(cfg.Blocks) != 0 {
		t.Errorf("blocks = %d, want 0", len(cfg.Blocks))
	}
}

func TestBuildCFG_Kinds(t *testing.T) {
	// A counted loop with a call in the body.
	//   0x3000: NOP
	//   0x3004: BL #0x100           (call, not a terminator)
	//   0x3008: CBNZ W1, #-0x4      → 0x3004
	//   0x300C: BR X16
	cbnz := uint32(0x35000000 | (0x7FFFF << 5) | 1)
	insts := []Inst{
		makeInst(0x3000, 0xD503201F),
		makeInst(0x3004, 0x94000040),
		makeInst(0x3008, cbnz),
		makeInst(0x300C, 0xD61F0200),
	}
	cfg := BuildCFG("loop", insts)

	// Leaders: 0, 1 (CBNZ target), 3 (after CBNZ)
	if len(cfg.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(cfg.Blocks))
	}

	want := []BlockKind{KindFall, KindCond, KindRet}
	for i, k := range want {
		if cfg.Blocks[i].Kind != k {
			t.Errorf("block %d kind = %v, want %v", i, cfg.Blocks[i].Kind, k)
		}
	}

	b1 := cfg.Blocks[1]
	if len(b1.Succs) != 2 || b1.Succs[0] != (Succ{BlockID: 1, Cond: "T"}) || b1.Succs[1] != (Succ{BlockID: 2, Cond: "F"}) {
		t.Errorf("block 1 succs = %+v", b1.Succs)
	}
	if len(b1.Calls) != 1 || b1.Calls[0].Index != 1 || b1.Calls[0].Target != 0x3104 {
		t.Errorf("block 1 calls = %+v", b1.Calls)
	}

	if !cfg.Blocks[2].IsTerm {
		t.Error("BR block should be terminal")
	}
}

func TestBuildCFG_BranchOutside(t *testing.T) {
	//   0x4000: B.NE #0x1000       → outside
	//   0x4004: B #0x2000          → outside (tail call)
	bne := uint32(0x54000001 | (0x400 << 5))
	insts := []Inst{
		makeInst(0x4000, bne),
		makeInst(0x4004, 0x14000800),
	}
	cfg := BuildCFG("tail", insts)

	if len(cfg.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(cfg.Blocks))
	}
	if cfg.Blocks[0].Kind != KindFall || len(cfg.Blocks[0].Succs) != 1 {
		t.Errorf("block 0 = %v %+v, want fall with one succ", cfg.Blocks[0].Kind, cfg.Blocks[0].Succs)
	}
	if cfg.Blocks[1].Kind != KindRet || !cfg.Blocks[1].IsTerm {
		t.Errorf("block 1 = %v term=%v, want terminal ret", cfg.Blocks[1].Kind, cfg.Blocks[1].IsTerm)
	}
}

func TestBlockAnnotator(t *testing.T) {
	b := uint32(0x14000000 | 2)
	insts := []Inst{
		makeInst(0x2000, b),
		makeInst(0x2004, 0xD503201F),
		makeInst(0x2008, 0xD65F03C0),
	}
	cfg := BuildCFG("ann", insts)
	ann := BlockAnnotator(&cfg)

	if got := ann(insts[0]); got != "bb0 jump" {
		t.Errorf("annotation = %q, want %q", got, "bb0 jump")
	}
	if got := ann(insts[2]); got != "bb2 ret" {
		t.Errorf("annotation = %q, want %q", got, "bb2 ret")
	}
}
