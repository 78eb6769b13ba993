package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zboralski/lattice"

	"unweave/internal/disasm"
	"unweave/internal/structure"
)

// escape is a loop whose body jumps straight to the return.
func escape(t *testing.T) *structure.Graph {
	t.Helper()

	g, err := structure.Structure(context.Background(), &structure.Func{Name: "escape", Blocks: []structure.Block{
		{Kind: structure.Fall, Succs: []int{1}},
		{Kind: structure.Fall, Succs: []int{2}},
		{Kind: structure.TwoWay, Succs: []int{5, 3}},
		{Kind: structure.TwoWay, Succs: []int{1, 4}},
		{Kind: structure.TwoWay, Succs: []int{0, 6}},
		{Kind: structure.Fall, Succs: []int{6}},
		{Kind: structure.Return},
	}})
	require.NoError(t, err)

	return g
}

func TestNewFuncReport(t *testing.T) {
	r := NewFuncReport(escape(t))

	assert.Equal(t, "escape", r.Name)
	assert.Equal(t, "fully-structured", r.State)
	assert.Equal(t, 7, r.Blocks)
	assert.Equal(t, []string{"bb1", "bb0"}, r.Loops)
	assert.Empty(t, r.Dead)
	assert.Equal(t, 1, r.Gotos)
	require.Len(t, r.Nodes, 7)

	a := r.Nodes[2]
	assert.Equal(t, "cond", a.Struct)
	assert.Equal(t, "if-then", a.Cond)
	assert.Equal(t, "bb3", a.CondFollow)
	assert.Equal(t, "jump-in/out-of-loop", a.Unstruct)
	assert.Equal(t, []GotoReport{{To: "bb5", Kind: "jump-in/out-of-loop", Loops: []string{"bb1", "bb0"}}}, a.Gotos)

	h := r.Nodes[0]
	assert.Equal(t, "post-tested", h.Loop)
	assert.Equal(t, "bb4", h.Latch)
	assert.Equal(t, "bb6", h.LoopFollow)
	assert.Empty(t, h.LoopHead)

	assert.Equal(t, "bb0", r.Nodes[1].LoopHead)
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	r := NewFuncReport(escape(t))

	require.NoError(t, WriteReport(dir, r))
	require.NoError(t, WriteFuncReport(dir, "pkg/escape", r))

	for _, p := range []string{"structure.json", "reports/pkg/escape.json"} {
		data, err := os.ReadFile(filepath.Join(dir, p))
		require.NoError(t, err)

		var back FuncReport
		require.NoError(t, json.Unmarshal(data, &back), p)
		assert.Equal(t, *r, back, p)
	}
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteSummary(dir, &Summary{Funcs: 3, Structured: 2, Failed: 1, Errors: []string{"bad: no blocks"}}))

	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"failed": 1`)
	assert.Contains(t, string(data), `"bad: no blocks"`)
}

func TestWriteDOTAndASM(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteDOT(filepath.Join(dir, "dot"), "f", "digraph f {}\n"))

	data, err := os.ReadFile(filepath.Join(dir, "dot", "f.dot"))
	require.NoError(t, err)
	assert.Equal(t, "digraph f {}\n", string(data))

	insts := disasm.Disassemble([]byte{0xc0, 0x03, 0x5f, 0xd6}, disasm.Options{BaseAddr: 0x1000})
	require.NoError(t, WriteASM(dir, "f", insts, nil))

	data, err = os.ReadFile(filepath.Join(dir, "asm", "f.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "0x00001000")
}

func TestSymbolsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	syms := []SymbolEntry{{Address: 0x1000, Name: "main", Size: 16}, {Address: 0x2000, Name: "leaf"}}

	require.NoError(t, WriteSymbols(dir, syms))

	back, err := ReadSymbols(filepath.Join(dir, "symbols.json"))
	require.NoError(t, err)
	assert.Equal(t, syms, back)

	_, err = ReadSymbols(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCFGRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cg := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{{
		Name: "f",
		Blocks: []*lattice.BasicBlock{
			{ID: 0, Start: 0, End: 2, Succs: []lattice.Successor{{BlockID: 1, Cond: "T"}, {BlockID: 0, Cond: "F"}}},
			{ID: 1, Start: 2, End: 3, Term: true},
		},
	}}}

	require.NoError(t, WriteCFG(dir, cg))

	back, err := ReadCFG(filepath.Join(dir, "cfg.json"))
	require.NoError(t, err)
	require.Len(t, back.Funcs, 1)
	assert.Equal(t, "f", back.Funcs[0].Name)
	require.Len(t, back.Funcs[0].Blocks, 2)
	assert.Equal(t, cg.Funcs[0].Blocks[0].Succs, back.Funcs[0].Blocks[0].Succs)
	assert.True(t, back.Funcs[0].Blocks[1].Term)
}
