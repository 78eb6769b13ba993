package output

import (
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"
	"github.com/zboralski/lattice"
	"tlog.app/go/errors"
)

// SymbolEntry represents a named code address.
type SymbolEntry struct {
	Address uint64 `json:"address"`
	Name    string `json:"name"`
	Size    uint64 `json:"size,omitempty"`
}

// WriteSymbols writes symbols to symbols.json.
func WriteSymbols(dir string, symbols []SymbolEntry) error {
	return writeJSON(filepath.Join(dir, "symbols.json"), symbols)
}

// ReadSymbols reads a symbols.json file.
func ReadSymbols(path string) ([]SymbolEntry, error) {
	var syms []SymbolEntry

	if err := readJSON(path, &syms); err != nil {
		return nil, err
	}

	return syms, nil
}

// WriteCFG writes the lattice form of the decoded CFGs to cfg.json.
func WriteCFG(dir string, cg *lattice.CFGGraph) error {
	return writeJSON(filepath.Join(dir, "cfg.json"), cg)
}

// ReadCFG reads a lattice CFG written by WriteCFG.
func ReadCFG(path string) (*lattice.CFGGraph, error) {
	var cg lattice.CFGGraph

	if err := readJSON(path, &cg); err != nil {
		return nil, err
	}

	return &cg, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read %s", path)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "decode %s", path)
	}

	return nil
}
