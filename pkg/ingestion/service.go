package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/planscore/pkg/common/kafka"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"github.com/synaptica-ai/planscore/pkg/common/models"
	"github.com/synaptica-ai/planscore/pkg/observability/metrics"
	"gorm.io/datatypes"
)

// EventPlansImported is published once per successful import.
const EventPlansImported = "plans_imported"

// Import sources set by this package's own entry points.
const (
	SourceUpload = "upload"
	SourceFile   = "file"
)

// PlanSaver is where imported plans end up; population.Service implements it.
type PlanSaver interface {
	Save(ctx context.Context, plans []models.PlanRecord) error
}

type Service struct {
	validator *Validator
	plans     PlanSaver
	repo      *Repository
	producer  kafka.Publisher
	metrics   *metrics.Metrics
	statusTTL time.Duration
}

// NewService wires an import pipeline. repo and m may be nil; a nil producer
// publishes nothing.
func NewService(validator *Validator, plans PlanSaver, repo *Repository, producer kafka.Publisher, m *metrics.Metrics, ttl time.Duration) *Service {
	if producer == nil {
		producer = kafka.NopPublisher{}
	}
	return &Service{
		validator: validator,
		plans:     plans,
		repo:      repo,
		producer:  producer,
		metrics:   m,
		statusTTL: ttl,
	}
}

// Import parses the patient table and optional DVH table, stores the merged
// plans and announces the import on the event bus.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*models.ImportResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	rec := &Record{ID: uuid.New().String(), Source: req.Source, Status: StatusAccepted}
	if s.repo != nil {
		if err := s.repo.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("persisting import record: %w", err)
		}
	}
	log := logger.WithFields(map[string]interface{}{"import_id": rec.ID, "source": req.Source})

	patients, patientStats, err := ParsePatients(req.Patients)
	if err != nil {
		s.fail(ctx, rec, err)
		return nil, ValidationError{reason: fmt.Errorf("patient table: %w", err)}
	}
	var (
		dvh      []models.DVHRecord
		dvhStats ParseStats
	)
	if req.DVH != nil {
		dvh, dvhStats, err = ParseDVH(req.DVH)
		if err != nil {
			s.fail(ctx, rec, err)
			return nil, ValidationError{reason: fmt.Errorf("DVH table: %w", err)}
		}
	}

	plans := Merge(patients, dvh)
	rec.Plans = len(plans)
	rec.SkippedLines = patientStats.Skipped + dvhStats.Skipped
	for _, p := range plans {
		if p.DVH != nil {
			rec.WithDVH++
		}
	}
	rec.Stats = datatypes.JSONMap{
		"patients": statsMap(patientStats),
		"dvh":      statsMap(dvhStats),
	}

	if err := s.validator.ValidatePlans(plans); err != nil {
		s.fail(ctx, rec, err)
		return nil, err
	}

	if err := s.plans.Save(ctx, plans); err != nil {
		s.fail(ctx, rec, err)
		return nil, fmt.Errorf("saving plans: %w", err)
	}
	rec.Status = StatusImported
	s.metrics.PlansImported(rec.Plans, rec.SkippedLines)

	payload := map[string]interface{}{
		"import_id":     rec.ID,
		"source":        req.Source,
		"plans":         rec.Plans,
		"with_dvh":      rec.WithDVH,
		"skipped_lines": rec.SkippedLines,
		"imported_at":   time.Now().UTC(),
	}
	// The plans are already stored, so a bus outage does not fail the import.
	if err := s.producer.PublishEvent(ctx, EventPlansImported, req.Source, rec.ID, payload); err != nil {
		log.WithError(err).Warn("failed to publish import event")
	} else {
		rec.Status = StatusPublished
	}
	s.update(ctx, rec)

	log.WithFields(map[string]interface{}{
		"plans":    rec.Plans,
		"with_dvh": rec.WithDVH,
		"skipped":  rec.SkippedLines,
	}).Info("plans imported")

	return &models.ImportResponse{
		ID:           rec.ID,
		Status:       rec.Status,
		Plans:        rec.Plans,
		WithDVH:      rec.WithDVH,
		SkippedLines: rec.SkippedLines,
		Timestamp:    time.Now().UTC(),
	}, nil
}

func (s *Service) fail(ctx context.Context, rec *Record, cause error) {
	rec.Status = StatusFailed
	rec.Error = cause.Error()
	s.update(ctx, rec)
}

func (s *Service) update(ctx context.Context, rec *Record) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		logger.WithField("import_id", rec.ID).WithError(err).Error("failed to update import record")
	}
}

func statsMap(st ParseStats) map[string]interface{} {
	return map[string]interface{}{"rows": st.Rows, "kept": st.Kept, "skipped": st.Skipped}
}

func (s *Service) Status(ctx context.Context, id string) (*Record, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Cleanup(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.CleanupExpired(ctx, s.statusTTL)
}

// ImportFiles imports a patient export and, when dvhPath is set, its DVH
// export from disk.
func (s *Service) ImportFiles(ctx context.Context, patientsPath, dvhPath string) (*models.ImportResponse, error) {
	patients, err := os.Open(filepath.Clean(patientsPath))
	if err != nil {
		return nil, fmt.Errorf("opening patient export: %w", err)
	}
	defer patients.Close()

	req := ImportRequest{Source: SourceFile, Patients: patients}
	if dvhPath != "" {
		dvh, err := os.Open(filepath.Clean(dvhPath))
		if err != nil {
			return nil, fmt.Errorf("opening dvh export: %w", err)
		}
		defer dvh.Close()
		req.DVH = dvh
	}
	return s.Import(ctx, req)
}
