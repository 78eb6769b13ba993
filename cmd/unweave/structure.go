package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"
	lrender "github.com/zboralski/lattice/render"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"unweave/internal/callgraph"
	"unweave/internal/config"
	"unweave/internal/disasm"
	"unweave/internal/elfx"
	"unweave/internal/output"
	"unweave/internal/render"
	"unweave/internal/structure"
)

func structureAct(c *cli.Command) (err error) {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	cfg, theme, err := loadConfig(c)
	if err != nil {
		return err
	}

	if len(c.Args) == 0 {
		return errors.New("no input files")
	}

	var ef *elfx.File

	if p := c.String("elf"); p != "" {
		ef, err = elfx.Open(p)
		if err != nil {
			return errors.Wrap(err, "elf %v", p)
		}

		defer ef.Close()
	}

	for _, a := range c.Args {
		var dcfg *disasm.FuncCFG

		name := funcName(a)

		switch {
		case ef != nil:
			name = a
			dcfg, err = decodeSymbol(ef, a, cfg.MaxSteps)
		default:
			if n := c.String("name"); n != "" && len(c.Args) == 1 {
				name = n
			}

			dcfg, err = decodeFile(a, name, cfg.BaseAddr, cfg.MaxSteps)
		}
		if err != nil {
			return err
		}

		g, err := structureFunc(ctx, callgraph.FromDisasm(dcfg), cfg)
		if err != nil {
			return err
		}

		if c.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			if err := enc.Encode(output.NewFuncReport(g)); err != nil {
				return errors.Wrap(err, "encode report")
			}
		} else if err := render.Listing(os.Stdout, g); err != nil {
			return errors.Wrap(err, "listing")
		}

		if out := c.String("out"); out != "" {
			dir := filepath.Join(out, sanitizeFilename(name))

			if err := writeArtifacts(dir, g, dcfg, theme, c.Bool("svg")); err != nil {
				return errors.Wrap(err, "func %v", name)
			}

			tlog.Printw("wrote", "func", name, "dir", dir)
		}
	}

	return nil
}

func dotAct(c *cli.Command) (err error) {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	cfg, theme, err := loadConfig(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		dcfg, err := decodeFile(a, funcName(a), cfg.BaseAddr, cfg.MaxSteps)
		if err != nil {
			return err
		}

		g, err := structureFunc(ctx, callgraph.FromDisasm(dcfg), cfg)
		if err != nil {
			return err
		}

		fmt.Print(render.StructDOT(g, dcfg, theme))
	}

	return nil
}

// cfgAct structures functions supplied in lattice form, as written by
// structure --out.
func cfgAct(c *cli.Command) (err error) {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	cfg, theme, err := loadConfig(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		cg, err := output.ReadCFG(a)
		if err != nil {
			return err
		}

		for _, lf := range cg.Funcs {
			fn, err := callgraph.FromLattice(lf)
			if err != nil {
				return err
			}

			g, err := structureFunc(ctx, fn, cfg)
			if err != nil {
				return err
			}

			if err := render.Listing(os.Stdout, g); err != nil {
				return errors.Wrap(err, "listing")
			}

			out := c.String("out")
			if out == "" {
				continue
			}

			dir := filepath.Join(out, sanitizeFilename(lf.Name))

			if err := output.WriteReport(dir, output.NewFuncReport(g)); err != nil {
				return err
			}

			if err := output.WriteDOT(dir, "struct", render.StructDOT(g, nil, theme)); err != nil {
				return err
			}
		}
	}

	return nil
}

// loadConfig reads the config file and applies the flags that are set.
func loadConfig(c *cli.Command) (cfg config.Config, theme render.Theme, err error) {
	cfg, err = config.Load(c.String("config"))
	if err != nil {
		return
	}

	if s := c.String("base"); s != "" {
		cfg.BaseAddr, err = strconv.ParseUint(s, 0, 64)
		if err != nil {
			return cfg, theme, errors.Wrap(err, "parse --base")
		}
	}

	if v := c.Int("max-steps"); v != 0 {
		cfg.MaxSteps = v
	}
	if v := c.Int("max-rounds"); v != 0 {
		cfg.MaxRounds = v
	}
	if v := c.String("theme"); v != "" {
		cfg.Theme = v
	}

	if err = cfg.Validate(); err != nil {
		return cfg, theme, errors.Wrap(err, "flags")
	}

	theme, ok := render.ThemeByName(cfg.Theme)
	if !ok {
		return cfg, theme, errors.New("unknown theme %q", cfg.Theme)
	}

	return cfg, theme, nil
}

// decodeFile decodes a raw ARM64 code file and builds its CFG.
func decodeFile(path, name string, base uint64, maxSteps int) (*disasm.FuncCFG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read code")
	}

	return decodeCode(data, name, base, maxSteps)
}

// decodeSymbol decodes the function named sym from an ELF file.
func decodeSymbol(ef *elfx.File, sym string, maxSteps int) (*disasm.FuncCFG, error) {
	fn, err := ef.Symbol(sym)
	if err != nil {
		return nil, err
	}

	data, err := ef.Code(fn)
	if err != nil {
		return nil, err
	}

	return decodeCode(data, sym, fn.Addr, maxSteps)
}

func decodeCode(data []byte, name string, base uint64, maxSteps int) (*disasm.FuncCFG, error) {
	if len(data) < 4 {
		return nil, errors.New("%v: no instructions (%d bytes)", name, len(data))
	}

	insts := disasm.Disassemble(data, disasm.Options{BaseAddr: base, MaxSteps: maxSteps})
	dcfg := disasm.BuildCFG(name, insts)

	return &dcfg, nil
}

func structureFunc(ctx context.Context, fn *structure.Func, cfg config.Config) (*structure.Graph, error) {
	g, err := structure.NewGraph(fn)
	if err != nil {
		return nil, err
	}

	g.SetMaxRounds(cfg.MaxRounds)
	g.Run(ctx)

	return g, nil
}

// writeArtifacts writes everything known about one function into dir:
// the JSON report, the annotated listing, the lattice CFG and three DOT
// views (plain CFG, structured CFG, loop nesting).
func writeArtifacts(dir string, g *structure.Graph, dcfg *disasm.FuncCFG, theme render.Theme, svg bool) error {
	if err := output.WriteReport(dir, output.NewFuncReport(g)); err != nil {
		return err
	}

	if err := output.WriteASM(dir, sanitizeFilename(dcfg.Name), dcfg.Insts, nil, disasm.BlockAnnotator(dcfg)); err != nil {
		return err
	}

	cg := callgraph.BuildCFG([]*disasm.FuncCFG{dcfg}, nil)

	if err := output.WriteCFG(dir, cg); err != nil {
		return err
	}

	dots := []struct {
		name string
		dot  string
	}{
		{"cfg", lrender.DOTCFG(cg, dcfg.Name)},
		{"struct", render.StructDOT(g, dcfg, theme)},
		{"nest", lrender.DOT(callgraph.LoopNest(g), dcfg.Name+" loop nest")},
	}

	for _, d := range dots {
		if err := output.WriteDOT(dir, d.name, d.dot); err != nil {
			return err
		}

		if !svg {
			continue
		}

		dotPath := filepath.Join(dir, d.name+".dot")
		if err := runDot(dotPath, filepath.Join(dir, d.name+".svg"), "svg"); err != nil {
			tlog.Printw("svg failed", "dot", dotPath, "err", err)
		}
	}

	return nil
}

// runDot invokes graphviz dot to produce the given format.
func runDot(dotPath, outPath, format string) error {
	cmd := exec.Command("dot", "-T"+format, "-o", outPath, dotPath)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// funcName derives a function name from a code file path.
func funcName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func sanitizeFilename(name string) string {
	r := strings.NewReplacer(
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)

	s := r.Replace(name)
	if len(s) > 200 {
		s = s[:200]
	}

	return s
}
