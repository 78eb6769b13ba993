// Package disasm decodes raw ARM64 code and splits it into basic blocks.
package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
)

// Inst is a decoded ARM64 instruction with address and raw bytes.
type Inst struct {
	Addr     uint64
	Raw      uint32
	Size     int // always 4 for ARM64
	Mnemonic string
	Operands string
	Text     string // full disassembly line
}

// SymbolLookup resolves an address to a symbolic name. Returns ("", false) if unknown.
type SymbolLookup func(addr uint64) (name string, ok bool)

// Annotator returns an optional inline comment for an instruction.
type Annotator func(inst Inst) string

// Options controls disassembly behavior.
type Options struct {
	BaseAddr uint64 // VA of the first byte in Data
	MaxSteps int    // maximum instructions to decode; 0 = 10M
}

const defaultMaxSteps = 10_000_000

func (o Options) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

// Disassemble decodes ARM64 instructions from a byte region, up to
// MaxSteps or the last whole word. Undecodable words become .word.
func Disassemble(data []byte, opts Options) []Inst {
	n := min(len(data)/4, opts.effectiveMax())

	result := make([]Inst, 0, n)
	for i := 0; i < n; i++ {
		word := data[i*4 : i*4+4]
		inst := Inst{
			Addr: opts.BaseAddr + uint64(i*4),
			Raw:  binary.LittleEndian.Uint32(word),
			Size: 4,
		}

		if d, err := arm64asm.Decode(word); err == nil {
			inst.Text = d.String()
			inst.Mnemonic, inst.Operands, _ = strings.Cut(inst.Text, " ")
		} else {
			inst.Mnemonic = ".word"
			inst.Operands = fmt.Sprintf("0x%08x", inst.Raw)
			inst.Text = inst.Mnemonic + " " + inst.Operands
		}

		result = append(result, inst)
	}
	return result
}

// Format renders instructions as stable text, one per line:
// <addr>  <hex bytes>  <disasm>  ; <comment>
// A symbol name wins over annotators; otherwise the first non-empty
// annotation is used.
func Format(insts []Inst, lookup SymbolLookup, annotators ...Annotator) string {
	var b strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&b, "0x%08x  %02x %02x %02x %02x  %s", inst.Addr,
			byte(inst.Raw), byte(inst.Raw>>8), byte(inst.Raw>>16), byte(inst.Raw>>24), inst.Text)

		if c := comment(inst, lookup, annotators); c != "" {
			fmt.Fprintf(&b, "  ; %s", c)
		}

		b.WriteByte('\n')
	}
	return b.String()
}

func comment(inst Inst, lookup SymbolLookup, annotators []Annotator) string {
	if lookup != nil {
		if name, ok := lookup(inst.Addr); ok {
			return "<" + name + ">"
		}
	}
	for _, ann := range annotators {
		if s := ann(inst); s != "" {
			return s
		}
	}
	return ""
}
