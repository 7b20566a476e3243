package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/planscore/pkg/population"
)

func syncCommand(opts *options) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull plans from the plan registry into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := population.RegistryConfigFrom(opts.cfg)
			if url != "" {
				rc.URL = url
			}
			src, err := population.NewRemoteSource(cmd.Context(), rc)
			if err != nil {
				return err
			}

			backends, err := population.Open(opts.cfg)
			if err != nil {
				return err
			}
			defer backends.Close()

			n, err := population.NewService(backends.Store, backends.Cache, nil).Sync(cmd.Context(), src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d plans\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Registry base URL (default: REGISTRY_URL)")
	return cmd
}
