// Command subtilisfe drives the front-end components (A-F) over a single
// BASIC-family source file and reports the resulting IR, or the first
// compile error, the way the teacher's CLI drove lexer->parser->backend.
// No back-end is wired here (out of scope per spec.md §1): -o writes a
// textual IR dump rather than an object file, -ll selects an annotated dump
// with instruction indices, -t/-arch/-os/-vendor are accepted and logged at
// debug level without selecting a code generator, and -ts is accepted and
// unused.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"subtilisgo/src/cerr"
	"subtilisgo/src/compiler"
)

// config holds the parsed flag values for one invocation.
type config struct {
	output  string
	target  string
	arch    string
	os      string
	vendor  string
	verbose bool
	trackST bool
	emitLL  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:     "subtilisfe <source>",
		Short:   "Compile a BASIC-family source file to three-address IR",
		Version: "0.1.0",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], cfg)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.output, "output", "o", "", "write the IR dump to this path instead of stdout")
	flags.StringVarP(&cfg.target, "target", "t", "", "target triple (accepted, not used: no back-end)")
	flags.StringVar(&cfg.arch, "arch", "", "target architecture (accepted, not used: no back-end)")
	flags.StringVar(&cfg.os, "os", "", "target OS (accepted, not used: no back-end)")
	flags.StringVar(&cfg.vendor, "vendor", "", "target vendor (accepted, not used: no back-end)")
	flags.BoolVarP(&cfg.verbose, "vb", "b", false, "print compiler statistics after compilation")
	flags.BoolVar(&cfg.trackST, "ts", false, "track maximum stack size (accepted, not used: no back-end)")
	flags.BoolVar(&cfg.emitLL, "ll", false, "emit an annotated IR dump instead of a compact one")
	cmd.SetVersionTemplate("subtilisfe {{.Version}}\n")

	return cmd
}

func run(path string, cfg config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.target != "" || cfg.arch != "" || cfg.os != "" || cfg.vendor != "" {
		logger.Debug("target flags accepted but unused: no back-end in this front-end",
			zap.String("target", cfg.target), zap.String("arch", cfg.arch),
			zap.String("os", cfg.os), zap.String("vendor", cfg.vendor))
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	toks, err := scan(path, string(src))
	if err != nil {
		logErr(logger, err)
		return err
	}

	res, err := compiler.CompileMainExpression(toks)
	if err != nil {
		logErr(logger, err)
		return err
	}

	out := os.Stdout
	if cfg.output != "" {
		f, err := os.Create(cfg.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	dumpProgram(out, res, cfg.emitLL)

	if cfg.verbose {
		snap := res.Stats.Snapshot()
		fmt.Fprintln(out, "--- stats ---")
		for _, k := range []string{
			"sections_compiled", "instructions_emitted", "registers_allocated",
			"labels_allocated", "destructors_synthesized", "coercions_inserted",
			"bounds_checks_emitted",
		} {
			fmt.Fprintf(out, "%s: %g\n", k, snap[k])
		}
	}
	return nil
}

// logErr reports the first compile error at zap.Error level with the
// structured fields SPEC_FULL.md §7 calls for, or as a debug line when it
// is an AlreadyDefined error. Either way run still returns the error.
func logErr(logger *zap.Logger, err error) {
	ce, ok := err.(*cerr.Error)
	if !ok {
		logger.Error("compile failed", zap.Error(err))
		return
	}
	fields := []zap.Field{
		zap.String("kind", ce.Kind.String()),
		zap.String("stream", ce.Pos.Stream),
		zap.Int("line", ce.Pos.Line),
	}
	if ce.Kind == cerr.AlreadyDefined {
		logger.Debug("builtin already defined, ignored", fields...)
		return
	}
	logger.Error(ce.Msg, fields...)
}

// dumpProgram writes a textual rendering of every section in res.Program.
// annotated selects whether instruction indices are printed alongside each
// line (-ll).
func dumpProgram(w *os.File, res *compiler.Result, annotated bool) {
	for _, sec := range res.Program.Sections() {
		fmt.Fprintf(w, "section %s\n", sec.Name)
		for i, instr := range sec.Instrs {
			if annotated {
				fmt.Fprintf(w, "  %4d  %s\n", i, instr)
			} else {
				fmt.Fprintf(w, "  %s\n", instr)
			}
		}
	}
}
