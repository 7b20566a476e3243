// Command scorecard-cli renders plan scorecards and manages the plan store
// from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/planscore/pkg/common/config"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
)

var version = "dev"

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	verbose bool
	cfg     *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "scorecard-cli",
		Short:         "Plan quality scorecards for radiotherapy plans",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitCLI(opts.verbose)
			opts.cfg = config.Load()
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		renderCommand(opts),
		listCommand(opts),
		importCommand(opts),
		syncCommand(opts),
	)
	return cmd
}
