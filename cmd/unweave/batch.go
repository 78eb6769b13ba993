package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lrender "github.com/zboralski/lattice/render"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"unweave/internal/callgraph"
	"unweave/internal/disasm"
	"unweave/internal/elfx"
	"unweave/internal/output"
	"unweave/internal/pipeline"
	"unweave/internal/render"
)

// batchAct structures many functions: the per-function code files of a
// directory, or the function symbols of an ELF file.
func batchAct(c *cli.Command) (err error) {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	cfg, theme, err := loadConfig(c)
	if err != nil {
		return err
	}

	if v := c.Int("workers"); v != 0 {
		cfg.Workers = v
	}
	if v := c.Int("min-blocks"); v != 0 {
		cfg.MinBlocks = v
	}

	dir, elfPath := c.String("dir"), c.String("elf")

	var (
		srcs []source
		syms callgraph.Symbols
	)

	switch {
	case elfPath != "":
		srcs, syms, err = elfSources(elfPath)
	case dir != "":
		srcs, syms, err = binSources(dir, cfg.BaseAddr)
	default:
		return errors.New("--dir or --elf is required")
	}
	if err != nil {
		return err
	}

	outDir := c.String("out")

	tlog.Printw("batch", "dir", dir, "elf", elfPath, "funcs", len(srcs), "symbols", len(syms))

	var (
		jobs    []pipeline.Job
		dcfgs   []*disasm.FuncCFG
		skipped int
	)

	for _, src := range srcs {
		dcfg, err := decodeCode(src.code, src.name, src.base, cfg.MaxSteps)
		if err != nil {
			tlog.Printw("skip", "func", src.name, "err", err)
			skipped++
			continue
		}

		dcfgs = append(dcfgs, dcfg)

		if len(dcfg.Blocks) < cfg.MinBlocks {
			skipped++
			continue
		}

		jobs = append(jobs, pipeline.Job{Name: src.name, Func: callgraph.FromDisasm(dcfg)})
	}

	byName := make(map[string]*disasm.FuncCFG, len(dcfgs))
	for _, d := range dcfgs {
		byName[d.Name] = d
	}

	res, st, runErr := pipeline.Run(ctx, jobs, pipeline.Options{Workers: cfg.Workers, MaxRounds: cfg.MaxRounds})

	sum := &output.Summary{
		Funcs:      st.Funcs.Load(),
		Structured: st.Structured.Load(),
		Residue:    st.Residue.Load(),
		Failed:     st.Failed.Load(),
		Loops:      st.Loops.Load(),
		Gotos:      st.Gotos.Load(),
	}

	for _, r := range res {
		if r.Err != nil {
			sum.Errors = append(sum.Errors, r.Err.Error())
			continue
		}

		if err := output.WriteFuncReport(outDir, r.Name, output.NewFuncReport(r.Graph)); err != nil {
			return err
		}

		dotDir := filepath.Join(outDir, "dot")
		if err := output.WriteDOT(dotDir, r.Name, render.StructDOT(r.Graph, byName[r.Name], theme)); err != nil {
			return err
		}

		if c.Bool("svg") {
			dotPath := filepath.Join(dotDir, r.Name+".dot")
			if err := runDot(dotPath, filepath.Join(dotDir, r.Name+".svg"), "svg"); err != nil {
				tlog.Printw("svg failed", "dot", dotPath, "err", err)
			}
		}
	}

	if err := output.WriteCFG(outDir, callgraph.BuildCFG(dcfgs, syms)); err != nil {
		return err
	}

	cg := callgraph.BuildCallGraph(dcfgs, syms)
	if err := output.WriteDOT(outDir, "callgraph", lrender.DOT(cg, "callgraph")); err != nil {
		return err
	}

	if err := output.WriteSummary(outDir, sum); err != nil {
		return err
	}

	tlog.Printw("batch done", "funcs", sum.Funcs, "structured", sum.Structured, "residue", sum.Residue,
		"failed", sum.Failed, "skipped", skipped, "loops", sum.Loops, "gotos", sum.Gotos, "callgraph_edges", len(cg.Edges))

	if runErr != nil && sum.Failed == int64(len(jobs)) {
		return errors.Wrap(runErr, "all functions failed")
	}

	return nil
}

// source is the code of one function.
type source struct {
	name string
	base uint64
	code []byte
}

// binSources reads <dir>/<name>.bin files. An optional <dir>/symbols.json
// gives each function's load address and names call targets; files it
// does not list load at base.
func binSources(dir string, base uint64) ([]source, callgraph.Symbols, error) {
	bins, err := collectBins(dir)
	if err != nil {
		return nil, nil, err
	}

	syms, addrs, err := loadSymbols(filepath.Join(dir, "symbols.json"))
	if err != nil {
		return nil, nil, err
	}

	srcs := make([]source, 0, len(bins))

	for _, name := range bins {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)+".bin"))
		if err != nil {
			return nil, nil, errors.Wrap(err, "read code")
		}

		src := source{name: name, base: base, code: data}
		if a, ok := addrs[name]; ok {
			src.base = a
		}

		srcs = append(srcs, src)
	}

	return srcs, syms, nil
}

// elfSources reads every sized function symbol of an ELF file.
func elfSources(path string) ([]source, callgraph.Symbols, error) {
	ef, err := elfx.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "elf %v", path)
	}
	defer ef.Close()

	funcs, err := ef.Funcs()
	if err != nil {
		return nil, nil, errors.Wrap(err, "elf %v", path)
	}

	srcs := make([]source, 0, len(funcs))
	syms := make(callgraph.Symbols, len(funcs))

	for _, fn := range funcs {
		code, err := ef.Code(fn)
		if err != nil {
			return nil, nil, errors.Wrap(err, "func %v", fn.Name)
		}

		srcs = append(srcs, source{name: fn.Name, base: fn.Addr, code: code})
		syms[fn.Addr] = fn.Name
	}

	return srcs, syms, nil
}

// collectBins lists the .bin files under dir as slash-separated names
// relative to dir, without the extension, sorted.
func collectBins(dir string) ([]string, error) {
	var names []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || filepath.Ext(path) != ".bin" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		names = append(names, filepath.ToSlash(strings.TrimSuffix(rel, ".bin")))

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk %v", dir)
	}

	sort.Strings(names)

	return names, nil
}

// loadSymbols reads an optional symbols file. It returns call target
// names by address and load addresses by name.
func loadSymbols(path string) (callgraph.Symbols, map[string]uint64, error) {
	entries, err := output.ReadSymbols(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	syms := make(callgraph.Symbols, len(entries))
	addrs := make(map[string]uint64, len(entries))

	for _, e := range entries {
		syms[e.Address] = e.Name
		addrs[e.Name] = e.Address
	}

	return syms, addrs, nil
}
