package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/planscore/pkg/acceptability"
	"github.com/synaptica-ai/planscore/pkg/common/models"
	"github.com/synaptica-ai/planscore/pkg/population"
)

func listCommand(opts *options) *cobra.Command {
	src := &sourceFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans grouped by approval status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openPlans(cmd.Context(), opts.cfg, *src)
			if err != nil {
				return err
			}
			defer closeFn()
			return runList(cmd.Context(), svc, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&src.patients, "patients", "", "Tab-delimited patient export")
	cmd.Flags().StringVar(&src.dvh, "dvh", "", "Tab-delimited DVH export")
	return cmd
}

func runList(ctx context.Context, svc *population.Service, out io.Writer) error {
	groups, err := svc.Grouped(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, g := range groups.Groups {
		fmt.Fprintf(tw, "%s (%d)\n", g.Title, len(g.Options))
		for _, o := range g.Options {
			category := acceptability.Classify(o.Score).Category
			fmt.Fprintf(tw, "  %s\t%s%%\t%s\n", o.Key, models.FormatNumber(o.Score), category)
		}
	}
	fmt.Fprintf(tw, "%d plans\n", groups.Total)
	return tw.Flush()
}
