// Command basiliskc reads an external AST/SymbolTable/ProgramCFG/
// DataPreprocessorResult bundle and emits QBE Intermediate Language
// text for the whole program (spec.md section 6). Grounded on the
// vslc/src/main.go's run/main split: run() does the real work and
// returns an error, main() reports it and sets the exit code.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"basilisk/internal/ast"
	"basilisk/internal/cfg"
	"basilisk/internal/codegen"
	"basilisk/internal/data"
	"basilisk/internal/driverconfig"
	"basilisk/internal/symtab"
)

// bundle is the top-level shape of the single JSON document basiliskc
// consumes: the four external inputs spec.md section 6 names, combined
// into one file so the CLI has a single -i flag rather than four.
type bundle struct {
	Program     json.RawMessage `json:"program"`
	ProgramCFG  json.RawMessage `json:"programCFG"`
	SymbolTable json.RawMessage `json:"symbolTable"`
	Data        json.RawMessage `json:"data"`
}

func run(opt *driverconfig.Options, logger *zap.Logger) error {
	in, err := openInput(opt.Input)
	if err != nil {
		return errors.Wrap(err, "opening input")
	}
	defer in.Close()

	raw, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "reading input")
	}

	var bun bundle
	if err := json.Unmarshal(raw, &bun); err != nil {
		return errors.Wrap(err, "parsing input bundle")
	}

	program, err := ast.DecodeProgram(bun.Program)
	if err != nil {
		return errors.Wrap(err, "decoding program")
	}
	programCFG, err := cfg.DecodeProgramCFG(bun.ProgramCFG)
	if err != nil {
		return errors.Wrap(err, "decoding program CFG")
	}
	symbols, err := symtab.Decode(bun.SymbolTable)
	if err != nil {
		return errors.Wrap(err, "decoding symbol table")
	}
	dataResult, err := data.Decode(bun.Data)
	if err != nil {
		return errors.Wrap(err, "decoding DATA result")
	}

	logger.Debug("inputs decoded",
		zap.Int("topLevelStatements", len(program.Statements)),
		zap.Int("routines", len(programCFG.FunctionCFGs)),
		zap.Int("dataValues", len(dataResult.Values)),
	)

	il := codegen.GenerateProgram(program, programCFG, symbols, dataResult, opt.CodegenOptions())

	out, err := openOutput(opt.Output)
	if err != nil {
		return errors.Wrap(err, "opening output")
	}
	defer out.Close()

	if _, err := io.WriteString(out, il); err != nil {
		return errors.Wrap(err, "writing output")
	}
	logger.Info("code generation complete", zap.Int("bytes", len(il)))
	return nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func main() {
	root := &cobra.Command{
		Use:   "basiliskc",
		Short: "BASIC-to-QBE code generation backend",
	}
	opt := driverconfig.BindFlags(root)
	root.RunE = func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(opt.Verbose)
		if err != nil {
			return errors.Wrap(err, "initializing logger")
		}
		defer logger.Sync()
		return run(opt, logger)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "basiliskc: %s\n", err)
		os.Exit(1)
	}
}
