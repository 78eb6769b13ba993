// Package output writes structuring results to files.
package output

import (
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"
	"tlog.app/go/errors"

	"unweave/internal/disasm"
)

// WriteReport writes one function's report to structure.json.
func WriteReport(dir string, r *FuncReport) error {
	return writeJSON(filepath.Join(dir, "structure.json"), r)
}

// WriteFuncReport writes a batch member's report to reports/<name>.json.
// name may contain path separators for directory grouping.
func WriteFuncReport(dir, name string, r *FuncReport) error {
	return writeJSON(filepath.Join(dir, "reports", name+".json"), r)
}

// WriteSummary writes the batch summary to summary.json.
func WriteSummary(dir string, s *Summary) error {
	return writeJSON(filepath.Join(dir, "summary.json"), s)
}

// WriteDOT writes a Graphviz source to <name>.dot.
func WriteDOT(dir, name, dot string) error {
	return writeFile(filepath.Join(dir, name+".dot"), []byte(dot))
}

// WriteASM writes disassembled instructions to asm/<name>.txt.
// name may contain path separators for directory grouping.
func WriteASM(dir string, name string, insts []disasm.Inst, lookup disasm.SymbolLookup, annotators ...disasm.Annotator) error {
	text := disasm.Format(insts, lookup, annotators...)
	return writeFile(filepath.Join(dir, "asm", name+".txt"), []byte(text))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "mkdir %s", filepath.Dir(path))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "write %s", path)
	}

	return nil
}

func writeJSON(path string, v any) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "mkdir %s", filepath.Dir(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create %s", path)
	}
	defer func() {
		if e := f.Close(); err == nil && e != nil {
			err = errors.Wrap(e, "close %s", path)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode %s", path)
	}

	return nil
}
