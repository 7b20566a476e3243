package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/synaptica-ai/planscore/pkg/common/config"
	"github.com/synaptica-ai/planscore/pkg/common/kafka"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"github.com/synaptica-ai/planscore/pkg/dashboard"
	"github.com/synaptica-ai/planscore/pkg/gateway/middleware"
	"github.com/synaptica-ai/planscore/pkg/ingestion"
	"github.com/synaptica-ai/planscore/pkg/observability/metrics"
	"github.com/synaptica-ai/planscore/pkg/population"
	"github.com/synaptica-ai/planscore/pkg/protocol"
	"github.com/synaptica-ai/planscore/pkg/scorecard"
)

func main() {
	logger.Init()
	cfg := config.Load()

	catalog, err := protocol.Load(cfg.ProtocolCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load protocol catalog")
	}

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to register metrics")
	}

	backends, err := population.Open(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to open plan store")
	}
	defer backends.Close()

	plans := population.NewService(backends.Store, backends.Cache, m)

	var importRepo *ingestion.Repository
	if backends.DB != nil {
		importRepo = ingestion.NewRepository(backends.DB)
		if err := importRepo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate import tables")
		}
	}

	importProducer := kafka.NewProducer(cfg.KafkaImportTopic)
	defer importProducer.Close()
	selectionProducer := kafka.NewProducer(cfg.KafkaSelectionTopic)
	defer selectionProducer.Close()

	importer := ingestion.NewService(ingestion.NewValidator(cfg.ImportSources), plans, importRepo, importProducer, m, cfg.ImportStatusTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.PatientDataPath != "" {
		resp, err := importer.ImportFiles(ctx, cfg.PatientDataPath, cfg.DVHDataPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to preload plans")
		}
		logger.Log.WithFields(map[string]interface{}{
			"plans":    resp.Plans,
			"with_dvh": resp.WithDVH,
			"skipped":  resp.SkippedLines,
		}).Info("Plans preloaded")
	}

	if cfg.RegistryURL != "" {
		syncRegistry(ctx, cfg, plans)
	}

	sessions := dashboard.NewStore(plans, catalog, scorecard.NewRenderer(scorecard.DefaultLayout()), selectionProducer, m, cfg.SessionTTL)

	consumer := kafka.NewConsumer(cfg.KafkaPlanTopic, cfg.KafkaGroupID)
	defer consumer.Close()
	go func() {
		if err := consumer.Consume(ctx, plans.HandleEvent); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("plan consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.Use(middleware.Logging, middleware.Recovery, middleware.CORS(cfg.AllowedOrigins), middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if _, err := plans.Population(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	dashboard.NewHTTPHandler(sessions, plans, catalog, m, cfg.RenderScale).Register(api)
	ingestion.NewHTTPHandler(importer, cfg.MaxRequestBody).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Scorecard Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	go func() {
		ticker := time.NewTicker(12 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := importer.Cleanup(context.Background()); err != nil {
					logger.Log.WithError(err).Warn("cleanup job failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Scorecard Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Scorecard Service stopped")
}

// syncRegistry pulls the registry once at startup. A registry outage leaves
// the service running on whatever the store already holds.
func syncRegistry(ctx context.Context, cfg *config.Config, plans *population.Service) {
	src, err := population.NewRemoteSource(ctx, population.RegistryConfigFrom(cfg))
	if err != nil {
		logger.Log.WithError(err).Warn("plan registry disabled")
		return
	}
	if _, err := plans.Sync(ctx, src); err != nil {
		logger.Log.WithError(err).Warn("plan registry sync failed")
	}
}
