package population

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/synaptica-ai/planscore/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type planModel struct {
	PatientNumber    int               `gorm:"primaryKey;autoIncrement:false;column:patient_number"`
	PlanName         string            `gorm:"primaryKey;column:plan_name"`
	ProtocolName     string            `gorm:"column:protocol_name"`
	TotalDose        float64           `gorm:"column:total_dose"`
	NumFractions     int               `gorm:"column:num_fractions"`
	PlanningApproved string            `gorm:"column:planning_approved;index"`
	PlanScore        float64           `gorm:"column:plan_score"`
	Metrics          datatypes.JSONMap `gorm:"column:metrics"`
	DVH              datatypes.JSONMap `gorm:"column:dvh"`
	CreatedAt        time.Time         `gorm:"column:created_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at"`
}

func (planModel) TableName() string {
	return "plan_records"
}

// Repository is the gorm-backed Store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&planModel{})
}

func (r *Repository) Upsert(ctx context.Context, plans []models.PlanRecord) error {
	if len(plans) == 0 {
		return nil
	}
	rows := make([]planModel, len(plans))
	for i, p := range plans {
		rows[i] = toModel(p)
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "patient_number"}, {Name: "plan_name"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 200).Error
	if err != nil {
		return fmt.Errorf("upserting %d plans: %w", len(plans), err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]models.PlanRecord, error) {
	var rows []planModel
	if err := r.db.WithContext(ctx).Order("patient_number, plan_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	out := make([]models.PlanRecord, len(rows))
	for i, row := range rows {
		out[i] = fromModel(row)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, key models.PlanKey) (models.PlanRecord, error) {
	var row planModel
	err := r.db.WithContext(ctx).
		Where("patient_number = ? AND plan_name = ?", key.PatientNumber, key.PlanName).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.PlanRecord{}, ErrNotFound
	}
	if err != nil {
		return models.PlanRecord{}, fmt.Errorf("loading plan %s: %w", key, err)
	}
	return fromModel(row), nil
}

func toModel(p models.PlanRecord) planModel {
	metrics := make(datatypes.JSONMap, len(models.TrackedMetrics))
	for _, key := range models.TrackedMetrics {
		metrics[string(key)] = p.Patient.Metric(key)
	}
	var dvh datatypes.JSONMap
	if p.DVH != nil {
		dvh = make(datatypes.JSONMap, len(p.DVH.Values))
		for k, v := range p.DVH.Values {
			dvh[string(k)] = v
		}
	}
	return planModel{
		PatientNumber:    p.Patient.PatientNumber,
		PlanName:         p.Patient.PlanName,
		ProtocolName:     p.Patient.ProtocolName,
		TotalDose:        p.Patient.TotalDose,
		NumFractions:     p.Patient.NumFractions,
		PlanningApproved: p.Patient.PlanningApproved,
		PlanScore:        p.Patient.PlanScore,
		Metrics:          metrics,
		DVH:              dvh,
	}
}

func fromModel(row planModel) models.PlanRecord {
	patient := models.PatientRecord{
		ProtocolName:     row.ProtocolName,
		PatientNumber:    row.PatientNumber,
		PlanName:         row.PlanName,
		TotalDose:        row.TotalDose,
		NumFractions:     row.NumFractions,
		PlanningApproved: row.PlanningApproved,
		PlanScore:        row.PlanScore,
	}
	for k, v := range row.Metrics {
		if f, ok := toFloat(v); ok {
			patient.SetMetric(models.MetricKey(k), f)
		}
	}
	plan := models.PlanRecord{Patient: patient}
	// A NULL column scans back as an empty map.
	if len(row.DVH) > 0 {
		values := make(map[models.MetricKey]string, len(row.DVH))
		for k, v := range row.DVH {
			if s, ok := v.(string); ok {
				values[models.MetricKey(k)] = s
			}
		}
		plan.DVH = &models.DVHRecord{PatientNumber: row.PatientNumber, PlanName: row.PlanName, Values: values}
	}
	return plan
}

// toFloat accepts both decoders' number representations.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
