package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unweave/internal/structure"
)

// nested is two nested loops where the inner body jumps out of both.
func nested(t *testing.T) *structure.Graph {
	t.Helper()

	g, err := structure.Structure(context.Background(), &structure.Func{Name: "nested", Blocks: []structure.Block{
		{Kind: structure.Fall, Succs: []int{1}},
		{Kind: structure.Fall, Succs: []int{2}},
		{Kind: structure.TwoWay, Succs: []int{5, 3}},
		{Kind: structure.TwoWay, Succs: []int{1, 4}},
		{Kind: structure.TwoWay, Succs: []int{0, 6}},
		{Kind: structure.Fall, Succs: []int{6}},
		{Kind: structure.Return},
		{Kind: structure.Jump, Succs: []int{6}}, // unreachable
	}})
	require.NoError(t, err)

	return g
}

func TestStructDOT(t *testing.T) {
	g := nested(t)

	dot := StructDOT(g, nil, NASA)

	assert.True(t, strings.HasPrefix(dot, "digraph cfg {"))
	assert.Contains(t, dot, "subgraph cluster_0 {")
	assert.Contains(t, dot, "subgraph cluster_1 {")
	assert.Contains(t, dot, "bb2 -> bb5 [color=\""+NASA.EdgeEscape+"\"")
	assert.Contains(t, dot, "bb3 -> bb1 [color=\""+NASA.EdgeBack+"\", style=dashed")
	assert.Contains(t, dot, "fillcolor=\""+NASA.DeadFill+"\"")

	// inner cluster is nested in the outer one
	outer := strings.Index(dot, "subgraph cluster_0")
	inner := strings.Index(dot, "subgraph cluster_1")
	assert.Less(t, outer, inner)

	for i := 0; i < 8; i++ {
		assert.Equal(t, 1, strings.Count(dot, fmt.Sprintf("  bb%d [label=", i)), "node %d drawn once", i)
	}
}

func TestListing(t *testing.T) {
	g := nested(t)

	var buf bytes.Buffer
	require.NoError(t, Listing(&buf, g))

	out := buf.String()
	assert.Contains(t, out, "func nested: fully-structured, 2 reductions, 2 loops")
	assert.Contains(t, out, "goto bb2 -> bb5")
	assert.Contains(t, out, "jump-in/out-of-loop")
	assert.Contains(t, out, "unreachable: [bb7]")
	assert.Contains(t, out, "post-tested loop, latch bb4, follow bb6")
}

func TestThemeByName(t *testing.T) {
	th, ok := ThemeByName("")
	assert.True(t, ok)
	assert.Equal(t, NASA, th)

	th, ok = ThemeByName("Night")
	assert.True(t, ok)
	assert.Equal(t, Night, th)

	_, ok = ThemeByName("sepia")
	assert.False(t, ok)
}

func TestTruncLines(t *testing.T) {
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = "x"
	}

	got := truncLines(lines, 12)
	assert.Len(t, got, 13)
	assert.Equal(t, "... (8 more)", got[6])

	assert.Equal(t, lines[:3], truncLines(lines[:3], 12))
}
