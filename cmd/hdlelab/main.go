// Command hdlelab drives the elaborate/emit pipeline from the CLI. It
// accepts a pre-built PForm fixture (JSON-encoded) in place of running a
// real front-end parser, which is a declared external collaborator out of
// scope for this module (spec §6).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mna/nenuphar/config"
	"github.com/mna/nenuphar/internal/elabcmd"
	"github.com/mna/nenuphar/pform"
)

var version = "{v}" // replaced on build

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "hdlelab",
		Short:   "Elaborates a PForm fixture into VM assembly",
		Version: version,
	}
	root.AddCommand(newElaborateCmd())
	return root
}

func newElaborateCmd() *cobra.Command {
	var (
		debugElaborate bool
		synthesis      bool
		errorImplicit  bool
		noSpecify      bool
		noWarnPort     bool
		noWarnInfLoop  bool
	)

	cmd := &cobra.Command{
		Use:   "elaborate <pform.json>",
		Short: "Elaborate the given PForm fixture and print assembly to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, err := config.FromEnviron()
			if err != nil {
				return fmt.Errorf("reading environment flags: %w", err)
			}
			flags.DebugElaborate = flags.DebugElaborate || debugElaborate
			flags.Synthesis = flags.Synthesis || synthesis
			flags.ErrorImplicit = flags.ErrorImplicit || errorImplicit
			if noSpecify {
				flags.SpecifyBlocks = false
			}
			if noWarnPort {
				flags.WarnPortBinding = false
			}
			if noWarnInfLoop {
				flags.WarnInfLoop = false
			}
			if flags.DebugElaborate {
				log.SetLevel(log.DebugLevel)
			}

			path := args[0]
			opts := elabcmd.Options{
				Source: elabcmd.ForestFunc(func() (*pform.Forest, error) { return loadForest(path) }),
				Flags:  flags,
			}
			_, err = elabcmd.Run(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
	}

	cmd.Flags().BoolVar(&debugElaborate, "debug-elaborate", false, "verbose per-phase logging")
	cmd.Flags().BoolVar(&synthesis, "synthesis", false, "narrow @* sensitivity lists to inputs only")
	cmd.Flags().BoolVar(&errorImplicit, "error-implicit", false, "treat an implicit wire as an error")
	cmd.Flags().BoolVar(&noSpecify, "no-specify-blocks", false, "ignore specify blocks during structural elaboration")
	cmd.Flags().BoolVar(&noWarnPort, "no-warn-portbinding", false, "silence scalar port-width mismatch warnings")
	cmd.Flags().BoolVar(&noWarnInfLoop, "no-warn-inf-loop", false, "silence the possible-infinite-loop always-block warning")
	return cmd
}

func loadForest(path string) (*pform.Forest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var forest pform.Forest
	if err := json.NewDecoder(f).Decode(&forest); err != nil {
		return nil, fmt.Errorf("decoding PForm fixture %s: %w", path, err)
	}
	return &forest, nil
}
