package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/planscore/pkg/common/kafka"
	"github.com/synaptica-ai/planscore/pkg/ingestion"
	"github.com/synaptica-ai/planscore/pkg/population"
)

func importCommand(opts *options) *cobra.Command {
	src := &sourceFlags{}
	var publish bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import export files into the plan store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			backends, err := population.Open(cfg)
			if err != nil {
				return err
			}
			defer backends.Close()

			var repo *ingestion.Repository
			if backends.DB != nil {
				repo = ingestion.NewRepository(backends.DB)
				if err := repo.AutoMigrate(); err != nil {
					return err
				}
			}
			var producer kafka.Publisher
			if publish {
				p := kafka.NewProducer(cfg.KafkaImportTopic)
				defer p.Close()
				producer = p
			}

			plans := population.NewService(backends.Store, backends.Cache, nil)
			svc := ingestion.NewService(ingestion.NewValidator(cfg.ImportSources), plans, repo, producer, nil, cfg.ImportStatusTTL)
			resp, err := svc.ImportFiles(cmd.Context(), src.patients, src.dvh)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "import %s %s: %d plans, %d with DVH, %d lines skipped\n",
				resp.ID, resp.Status, resp.Plans, resp.WithDVH, resp.SkippedLines)
			return nil
		},
	}
	cmd.Flags().StringVar(&src.patients, "patients", "", "Tab-delimited patient export")
	cmd.Flags().StringVar(&src.dvh, "dvh", "", "Tab-delimited DVH export")
	cmd.Flags().BoolVar(&publish, "publish", false, "Announce the import on the event bus")
	_ = cmd.MarkFlagRequired("patients")
	return cmd
}
