package output

import (
	"unweave/internal/structure"
)

// FuncReport is the JSON form of one structured function.
type FuncReport struct {
	Name   string       `json:"name"`
	State  string       `json:"state"`
	Rounds int          `json:"rounds"`
	Blocks int          `json:"blocks"`
	Loops  []string     `json:"loops,omitempty"`
	Dead   []string     `json:"dead,omitempty"`
	Gotos  int          `json:"gotos"`
	Nodes  []NodeReport `json:"nodes"`
}

// NodeReport is one block with its classification. Links are node names.
type NodeReport struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Struct     string `json:"struct"`
	Cond       string `json:"cond,omitempty"`
	Loop       string `json:"loop,omitempty"`
	Unstruct   string `json:"unstruct,omitempty"`
	LoopHead   string `json:"loop_head,omitempty"`
	Latch      string `json:"latch,omitempty"`
	CaseHead   string `json:"case_head,omitempty"`
	CondFollow string `json:"cond_follow,omitempty"`
	LoopFollow string `json:"loop_follow,omitempty"`
	ImmPDom    string `json:"ipdom,omitempty"`
	Reachable  bool   `json:"reachable"`

	Gotos []GotoReport `json:"gotos,omitempty"`
}

// GotoReport is an out-edge that escapes the structure.
type GotoReport struct {
	To    string   `json:"to"`
	Kind  string   `json:"kind"`
	Loops []string `json:"loops,omitempty"`
}

// Summary is the batch-wide outcome.
type Summary struct {
	Funcs      int64    `json:"funcs"`
	Structured int64    `json:"structured"`
	Residue    int64    `json:"residue"`
	Failed     int64    `json:"failed"`
	Loops      int64    `json:"loops"`
	Gotos      int64    `json:"gotos"`
	Errors     []string `json:"errors,omitempty"`
}

// NewFuncReport captures the classification of a finished graph.
func NewFuncReport(g *structure.Graph) *FuncReport {
	res := g.Result()

	r := &FuncReport{
		Name:   g.Func().Name,
		State:  res.State.String(),
		Rounds: res.Rounds,
		Blocks: len(res.Nodes),
		Loops:  names(res.Loops),
		Dead:   names(res.Dead),
	}

	for _, n := range res.Nodes {
		nr := NodeReport{
			ID:         n.ID(),
			Name:       n.Name(),
			Type:       n.Type().String(),
			Struct:     n.StructType().String(),
			LoopHead:   name(n.LoopHead()),
			Latch:      name(n.LatchNode()),
			CaseHead:   name(n.CaseHead()),
			CondFollow: name(n.CondFollow()),
			LoopFollow: name(n.LoopFollow()),
			ImmPDom:    name(n.ImmPDom()),
			Reachable:  n.Reachable(),
		}

		if c := n.CondType(); c != structure.CondNone {
			nr.Cond = c.String()
		}
		if l := n.LoopType(); l != structure.LoopNone {
			nr.Loop = l.String()
		}
		if u := n.UnstructType(); u != structure.Structured {
			nr.Unstruct = u.String()
		}

		for i, s := range n.Succs() {
			esc := n.Escape(i)
			if esc.Kind == structure.Structured {
				continue
			}

			nr.Gotos = append(nr.Gotos, GotoReport{
				To:    s.Name(),
				Kind:  esc.Kind.String(),
				Loops: names(esc.Loops),
			})
		}

		r.Gotos += len(nr.Gotos)
		r.Nodes = append(r.Nodes, nr)
	}

	return r
}

func name(n *structure.Node) string {
	if n == nil {
		return ""
	}

	return n.Name()
}

func names(ns []*structure.Node) []string {
	if len(ns) == 0 {
		return nil
	}

	r := make([]string, len(ns))
	for i, n := range ns {
		r[i] = n.Name()
	}

	return r
}
