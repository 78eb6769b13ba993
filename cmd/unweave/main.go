package main

import (
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/tlog"
)

func main() {
	common := []*cli.Flag{
		cli.NewFlag("config", "", "TOML config file"),
		cli.NewFlag("base", "", "load address of the code (hex or decimal)"),
		cli.NewFlag("max-steps", 0, "max instructions decoded per file"),
		cli.NewFlag("max-rounds", 0, "max interval reduction rounds (0 = until done)"),
		cli.NewFlag("theme", "", "DOT theme: nasa or night"),
	}

	structureCmd := &cli.Command{
		Name:        "structure",
		Description: "structure raw ARM64 functions (or ELF symbols) and print the listing",
		Action:      structureAct,
		Args:        cli.Args{},
		Flags: append([]*cli.Flag{
			cli.NewFlag("name", "", "function name (single file only)"),
			cli.NewFlag("elf", "", "ARM64 ELF file; arguments are function symbols"),
			cli.NewFlag("out", "", "write report, asm and DOT files under this directory"),
			cli.NewFlag("json", false, "print the JSON report instead of the listing"),
			cli.NewFlag("svg", false, "also render DOT files to SVG (needs graphviz)"),
		}, common...),
	}

	dotCmd := &cli.Command{
		Name:        "dot",
		Description: "print the structured CFG as DOT",
		Action:      dotAct,
		Args:        cli.Args{},
		Flags:       common,
	}

	cfgCmd := &cli.Command{
		Name:        "cfg",
		Description: "structure the functions of a cfg.json file",
		Action:      cfgAct,
		Args:        cli.Args{},
		Flags: append([]*cli.Flag{
			cli.NewFlag("out", "", "write reports and DOT files under this directory"),
		}, common...),
	}

	batchCmd := &cli.Command{
		Name:        "batch",
		Description: "structure every .bin file under a directory, or every function of an ELF file, in parallel",
		Action:      batchAct,
		Flags: append([]*cli.Flag{
			cli.NewFlag("dir", "", "directory with <name>.bin files"),
			cli.NewFlag("elf", "", "ARM64 ELF file; every sized function symbol is structured"),
			cli.NewFlag("out", "out/structure", "output directory"),
			cli.NewFlag("workers", 0, "parallel workers (0 = GOMAXPROCS)"),
			cli.NewFlag("min-blocks", 0, "skip functions with fewer blocks"),
			cli.NewFlag("svg", false, "also render DOT files to SVG (needs graphviz)"),
		}, common...),
	}

	app := &cli.Command{
		Name:        "unweave",
		Description: "unweave recovers loops and conditionals from machine code control flow",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "tlog verbosity topics (structure_round, structure_nodes)"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			structureCmd,
			dotCmd,
			cfgCmd,
			batchCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}
