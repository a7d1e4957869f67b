// Package driverconfig binds the Program Driver's command-line surface
// (spec.md section 1 names CLI/configuration as an explicit
// collaborator outside the core, specified no further than "exists").
// Grounded on vslc/src/util/args.go's Options struct, generalized
// from a hand-rolled argv loop to cobra flag binding, matching the
// dependency this module's go.mod carries for its CLI layer.
package driverconfig

import (
	"github.com/spf13/cobra"

	"basilisk/internal/codegen"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options is the resolved command-line configuration for one run of the
// basiliskc binary.
type Options struct {
	Input           string // path to the input bundle, "-" or empty means stdin
	Output          string // path to the output file, "-" or empty means stdout
	Verbose         bool
	GosubStackDepth int
	BoundsCheck     bool
}

// ---------------------
// ----- Functions -----
// ---------------------

// BindFlags registers this package's flags on cmd and returns the
// Options struct cobra will populate once Execute parses argv.
func BindFlags(cmd *cobra.Command) *Options {
	opt := &Options{}
	def := codegen.DefaultOptions()

	flags := cmd.Flags()
	flags.StringVarP(&opt.Input, "in", "i", "", "path to the input JSON bundle (AST, symbol table, CFG, DATA result); defaults to stdin")
	flags.StringVarP(&opt.Output, "out", "o", "", "path to the output QBE IL file; defaults to stdout")
	flags.BoolVarP(&opt.Verbose, "verbose", "v", false, "log progress and timing to stderr")
	flags.IntVar(&opt.GosubStackDepth, "gosub-stack-depth", def.GosubStackDepth, "fixed capacity of the GOSUB return stack")
	flags.BoolVar(&opt.BoundsCheck, "bounds-check", def.BoundsCheck, "emit array bounds-check calls")
	return opt
}

// CodegenOptions projects the CLI configuration down to the subset the
// codegen package itself understands.
func (o *Options) CodegenOptions() codegen.Options {
	return codegen.Options{
		GosubStackDepth: o.GosubStackDepth,
		BoundsCheck:     o.BoundsCheck,
	}
}
