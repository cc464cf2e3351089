// Package elabcmd is the wiring glue between a PForm source and the
// elaborate/emit pipeline, used by cmd/hdlelab. It plays the role the
// teacher's internal/maincmd plays for the scanner/parser/resolver/compiler
// phases: a thin layer translating CLI flags into calls against the library
// packages, with each command printing its own errors.
package elabcmd

import (
	"fmt"
	"io"

	"github.com/mna/nenuphar/config"
	"github.com/mna/nenuphar/diag"
	"github.com/mna/nenuphar/elaborate"
	"github.com/mna/nenuphar/emit"
	"github.com/mna/nenuphar/loader"
	"github.com/mna/nenuphar/pform"
)

// ForestSource supplies the PForm forest to elaborate. The parser that
// would normally produce one from source text is the declared external
// collaborator (spec §6 "PForm contract (input)"), out of scope for this
// module; callers (tests, or a future parser front-end) provide a
// ForestSource implementation instead of a file path.
type ForestSource interface {
	Forest() (*pform.Forest, error)
}

// ForestFunc adapts a plain function to ForestSource.
type ForestFunc func() (*pform.Forest, error)

func (f ForestFunc) Forest() (*pform.Forest, error) { return f() }

// Options configures one elaborate-and-emit run.
type Options struct {
	Source ForestSource
	Loader loader.Loader // defaults to loader.None if nil
	Flags  config.Flags
}

// Run elaborates the forest from opts.Source, writes every diagnostic
// (spec §7's `<file>:<line>: error|warning: <message>` format) to diags,
// and -- if elaboration did not fail -- writes the emitted assembly to asm.
// It returns the design's diagnostics counter so the caller can decide on a
// non-zero exit status without Run itself touching os.Exit.
func Run(opts Options, asm, diags io.Writer) (*diag.Counter, error) {
	forest, err := opts.Source.Forest()
	if err != nil {
		return nil, fmt.Errorf("loading PForm: %w", err)
	}

	ld := opts.Loader
	if ld == nil {
		ld = loader.None
	}

	design := elaborate.Elaborate(forest, ld, opts.Flags)
	for _, d := range design.Diags.All() {
		fmt.Fprintf(diags, "%s: %s: %s\n", d.Pos, d.Severity, d.Message)
	}
	if design.Diags.Failed() {
		return design.Diags, fmt.Errorf("elaboration failed with %d error(s)", design.Diags.Count())
	}

	e := emit.NewEmitter(design, design.Diags, opts.Flags)
	prog := e.EmitDesign()
	if _, err := prog.WriteTo(asm); err != nil {
		return design.Diags, fmt.Errorf("writing assembly: %w", err)
	}
	return design.Diags, nil
}
