package main

import (
	"context"
	"time"

	"github.com/synaptica-ai/planscore/pkg/common/config"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"github.com/synaptica-ai/planscore/pkg/ingestion"
	"github.com/synaptica-ai/planscore/pkg/population"
)

// sourceFlags pick between export files and the configured plan store.
type sourceFlags struct {
	patients string
	dvh      string
}

// openPlans loads the export files into memory when a patient export is
// given, otherwise it opens the configured store. The returned func releases
// whatever was opened.
func openPlans(ctx context.Context, cfg *config.Config, src sourceFlags) (*population.Service, func(), error) {
	if src.patients != "" {
		svc := population.NewService(population.NewMemoryStore(), population.NewMemoryCache(time.Minute), nil)
		importer := ingestion.NewService(ingestion.NewValidator(nil), svc, nil, nil, nil, 0)
		resp, err := importer.ImportFiles(ctx, src.patients, src.dvh)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("plans", resp.Plans).WithField("skipped", resp.SkippedLines).Debug("exports loaded")
		return svc, func() {}, nil
	}

	backends, err := population.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return population.NewService(backends.Store, backends.Cache, nil), backends.Close, nil
}
