package disasm

// ARM64 control-transfer decoding from raw 32-bit encodings.
// Branches end basic blocks; calls (BL/BLR) do not.

// BranchInfo describes a decoded block terminator.
type BranchInfo struct {
	Target   uint64 // absolute target address (0 for RET and BR)
	Cond     bool   // conditional: has a fallthrough
	IsRet    bool   // RET
	Indirect bool   // BR Xn: register jump, target unknown
	Reg      int    // register for BR
	Op       string
}

// pcRel is one PC-relative branch encoding.
type pcRel struct {
	mask, val uint32
	shift     uint // bit position of the immediate
	bits      int  // immediate width
	cond      bool
	op        string
}

var pcRels = []pcRel{
	{0xFC000000, 0x14000000, 0, 26, false, "b"},
	{0xFF000010, 0x54000000, 5, 19, true, "b.cond"},
	{0x7F000000, 0x34000000, 5, 19, true, "cbz"},
	{0x7F000000, 0x35000000, 5, 19, true, "cbnz"},
	{0x7F000000, 0x36000000, 5, 14, true, "tbz"},
	{0x7F000000, 0x37000000, 5, 14, true, "tbnz"},
}

// DecodeBranch decodes a block terminator at pc.
// Returns nil if raw is not a branch, BR or RET.
func DecodeBranch(raw uint32, pc uint64) *BranchInfo {
	// RET {Xn}
	if raw&0xFFFFFC1F == 0xD65F0000 {
		return &BranchInfo{IsRet: true, Op: "ret"}
	}

	// BR Xn
	if raw&0xFFFFFC1F == 0xD61F0000 {
		return &BranchInfo{Indirect: true, Reg: int((raw >> 5) & 0x1F), Op: "br"}
	}

	for _, e := range pcRels {
		if raw&e.mask != e.val {
			continue
		}

		imm := (raw >> e.shift) & (1<<e.bits - 1)
		off := int64(signExtend(imm, e.bits)) * 4

		return &BranchInfo{Target: uint64(int64(pc) + off), Cond: e.cond, Op: e.op}
	}

	return nil
}

// Call is a call site found in a block.
type Call struct {
	Index  int    // instruction index in the function
	Target uint64 // BL target; 0 for BLR
	Reg    int    // BLR register; -1 for BL
}

// DecodeCall decodes BL and BLR. Calls return to the next instruction
// and so never end a block.
func DecodeCall(raw uint32, pc uint64) (Call, bool) {
	if raw&0xFC000000 == 0x94000000 {
		off := int64(signExtend(raw&0x03FFFFFF, 26)) * 4
		return Call{Target: uint64(int64(pc) + off), Reg: -1}, true
	}

	if raw&0xFFFFFC1F == 0xD63F0000 {
		return Call{Reg: int((raw >> 5) & 0x1F)}, true
	}

	return Call{}, false
}

// signExtend sign-extends a bits-wide value to int32.
func signExtend(val uint32, bits int) int32 {
	sign := uint32(1) << (bits - 1)
	mask := sign - 1
	if val&sign != 0 {
		return int32(val | ^mask)
	}
	return int32(val & mask)
}
