package render

import "strings"

// Theme holds colors for structured CFG rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Node fills by structural class.
	LoopFill     string
	LoopCondFill string
	CondFill     string
	CaseFill     string
	DeadFill     string

	// Edge colors.
	EdgeTrue   string // taken arm of a two-way branch
	EdgeFalse  string // fallthrough arm
	EdgeDirect string
	EdgeBack   string // loop back edges
	EdgeEscape string // goto: unstructured edges

	ClusterBorder string // loop cluster border
	ClusterLabel  string
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	LoopFill:     "#E3F2FD", // blue 50
	LoopCondFill: "#E8EAF6", // indigo 50
	CondFill:     "#FFF8E1", // amber 50
	CaseFill:     "#E0F2F1", // teal 50
	DeadFill:     "#ECEFF1", // blue-gray 50

	EdgeTrue:   "#0B3D91", // NASA blue
	EdgeFalse:  "#9E9E9E",
	EdgeDirect: "#424242",
	EdgeBack:   "#00695C",
	EdgeEscape: "#FC3D21", // NASA red

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}

// Night is a dark variant for terminals and dark viewers.
var Night = Theme{
	Background: "#121212",
	NodeFill:   "#1E1E1E",
	NodeBorder: "#B0BEC5",
	TextColor:  "#ECEFF1",

	LoopFill:     "#0D47A1",
	LoopCondFill: "#1A237E",
	CondFill:     "#5D4037",
	CaseFill:     "#004D40",
	DeadFill:     "#263238",

	EdgeTrue:   "#64B5F6",
	EdgeFalse:  "#757575",
	EdgeDirect: "#B0BEC5",
	EdgeBack:   "#4DB6AC",
	EdgeEscape: "#FF5252",

	ClusterBorder: "#455A64",
	ClusterLabel:  "#90A4AE",
}

// ThemeByName returns a named theme. The empty name is NASA.
func ThemeByName(name string) (Theme, bool) {
	switch strings.ToLower(name) {
	case "", "nasa":
		return NASA, true
	case "night", "dark":
		return Night, true
	}
	return Theme{}, false
}
