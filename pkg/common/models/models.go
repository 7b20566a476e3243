package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MetricKey names one of the tracked plan quality metrics.
type MetricKey string

const (
	PTVD95                MetricKey = "ptvD95"
	PTVMin                MetricKey = "ptvMin"
	PTVD99                MetricKey = "ptvD99"
	SpinalCordD003cc      MetricKey = "spinalCordD003cc"
	HeartV50Gy            MetricKey = "heartV50Gy"
	HeartMean             MetricKey = "heartMean"
	LungsGTVV20Gy         MetricKey = "lungsGTVV20Gy"
	LungsGTVV5Gy          MetricKey = "lungsGTVV5Gy"
	LungsGTVMean          MetricKey = "lungsGTVMean"
	EsophagusD003cc       MetricKey = "esophagusD003cc"
	EsophagusMean         MetricKey = "esophagusMean"
	EsophagusV60GyPercent MetricKey = "esophagusV60GyPercent"
	EsophagusV60Gy        MetricKey = "esophagusV60Gy"
	BrachialPlexD003cc    MetricKey = "brachialPlexD003cc"
)

// TrackedMetrics is the fixed metric order: PTV coverage first, then organs at
// risk. Protocol catalogs and chart sectors are aligned to it by position.
var TrackedMetrics = []MetricKey{
	PTVD95,
	PTVMin,
	PTVD99,
	SpinalCordD003cc,
	HeartV50Gy,
	HeartMean,
	LungsGTVV20Gy,
	LungsGTVV5Gy,
	LungsGTVMean,
	EsophagusD003cc,
	EsophagusMean,
	EsophagusV60GyPercent,
	EsophagusV60Gy,
	BrachialPlexD003cc,
}

// Planning approval states as written by the planning system export.
const (
	StatusPlanningApproved = "PlanningApproved"
	StatusUnApproved       = "UnApproved"
)

// PatientRecord is one plan's numeric metrics as exported by the planning system.
type PatientRecord struct {
	ProtocolName     string  `json:"protocol_name"`
	PatientNumber    int     `json:"patient_number"`
	PlanName         string  `json:"plan_name"`
	TotalDose        float64 `json:"total_dose"`
	NumFractions     int     `json:"num_fractions"`
	PlanningApproved string  `json:"planning_approved"`

	PTVD95                float64 `json:"ptv_d95"`
	PTVMin                float64 `json:"ptv_min"`
	PTVD99                float64 `json:"ptv_d99"`
	SpinalCordD003cc      float64 `json:"spinal_cord_d003cc"`
	HeartV50Gy            float64 `json:"heart_v50gy"`
	HeartMean             float64 `json:"heart_mean"`
	LungsGTVV20Gy         float64 `json:"lungs_gtv_v20gy"`
	LungsGTVV5Gy          float64 `json:"lungs_gtv_v5gy"`
	LungsGTVMean          float64 `json:"lungs_gtv_mean"`
	EsophagusD003cc       float64 `json:"esophagus_d003cc"`
	EsophagusMean         float64 `json:"esophagus_mean"`
	EsophagusV60GyPercent float64 `json:"esophagus_v60gy_percent"`
	EsophagusV60Gy        float64 `json:"esophagus_v60gy"`
	BrachialPlexD003cc    float64 `json:"brachial_plex_d003cc"`

	PlanScore float64 `json:"plan_score"`
}

// Metric returns the raw value of key, or 0 for an unknown key.
func (p PatientRecord) Metric(key MetricKey) float64 {
	switch key {
	case PTVD95:
		return p.PTVD95
	case PTVMin:
		return p.PTVMin
	case PTVD99:
		return p.PTVD99
	case SpinalCordD003cc:
		return p.SpinalCordD003cc
	case HeartV50Gy:
		return p.HeartV50Gy
	case HeartMean:
		return p.HeartMean
	case LungsGTVV20Gy:
		return p.LungsGTVV20Gy
	case LungsGTVV5Gy:
		return p.LungsGTVV5Gy
	case LungsGTVMean:
		return p.LungsGTVMean
	case EsophagusD003cc:
		return p.EsophagusD003cc
	case EsophagusMean:
		return p.EsophagusMean
	case EsophagusV60GyPercent:
		return p.EsophagusV60GyPercent
	case EsophagusV60Gy:
		return p.EsophagusV60Gy
	case BrachialPlexD003cc:
		return p.BrachialPlexD003cc
	}
	return 0
}

// SetMetric is the inverse of Metric. Unknown keys are ignored.
func (p *PatientRecord) SetMetric(key MetricKey, value float64) {
	switch key {
	case PTVD95:
		p.PTVD95 = value
	case PTVMin:
		p.PTVMin = value
	case PTVD99:
		p.PTVD99 = value
	case SpinalCordD003cc:
		p.SpinalCordD003cc = value
	case HeartV50Gy:
		p.HeartV50Gy = value
	case HeartMean:
		p.HeartMean = value
	case LungsGTVV20Gy:
		p.LungsGTVV20Gy = value
	case LungsGTVV5Gy:
		p.LungsGTVV5Gy = value
	case LungsGTVMean:
		p.LungsGTVMean = value
	case EsophagusD003cc:
		p.EsophagusD003cc = value
	case EsophagusMean:
		p.EsophagusMean = value
	case EsophagusV60GyPercent:
		p.EsophagusV60GyPercent = value
	case EsophagusV60Gy:
		p.EsophagusV60Gy = value
	case BrachialPlexD003cc:
		p.BrachialPlexD003cc = value
	}
}

func (p PatientRecord) Key() PlanKey {
	return PlanKey{PatientNumber: p.PatientNumber, PlanName: p.PlanName}
}

// PlanKey identifies a plan within a population.
type PlanKey struct {
	PatientNumber int    `json:"patient_number"`
	PlanName      string `json:"plan_name"`
}

func (k PlanKey) String() string {
	return fmt.Sprintf("%d-%s", k.PatientNumber, k.PlanName)
}

// ParsePlanKey reverses PlanKey.String. Plan names may contain dashes; the
// patient number ends at the first one.
func ParsePlanKey(s string) (PlanKey, error) {
	num, name, ok := strings.Cut(s, "-")
	if !ok || name == "" {
		return PlanKey{}, fmt.Errorf("invalid plan key %q", s)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return PlanKey{}, fmt.Errorf("invalid patient number in plan key %q", s)
	}
	return PlanKey{PatientNumber: n, PlanName: name}, nil
}

// DVHRecord holds the as-displayed DVH values for a plan, keyed by metric.
type DVHRecord struct {
	PatientNumber int                  `json:"patient_number"`
	PlanName      string               `json:"plan_name"`
	Values        map[MetricKey]string `json:"values"`
}

// PlanRecord pairs the numeric record with its optional textual DVH values.
type PlanRecord struct {
	Patient PatientRecord `json:"patient"`
	DVH     *DVHRecord    `json:"dvh,omitempty"`
}

func (r PlanRecord) Key() PlanKey {
	return r.Patient.Key()
}

// Patients projects plans onto their numeric records, keeping order.
func Patients(plans []PlanRecord) []PatientRecord {
	out := make([]PatientRecord, len(plans))
	for i, p := range plans {
		out[i] = p.Patient
	}
	return out
}

// Display returns the textual DVH value for key, synthesising one from the
// numeric value when the export did not carry it.
func (r PlanRecord) Display(key MetricKey) string {
	if r.DVH != nil {
		if v, ok := r.DVH.Values[key]; ok && v != "" {
			return v
		}
	}
	return DisplayValue(key, r.Patient.Metric(key))
}

var metricUnits = map[MetricKey]string{
	PTVD95:                "%",
	PTVMin:                "%",
	PTVD99:                " Gy",
	SpinalCordD003cc:      " Gy",
	HeartV50Gy:            "%",
	HeartMean:             " Gy",
	LungsGTVV20Gy:         "%",
	LungsGTVV5Gy:          "%",
	LungsGTVMean:          " Gy",
	EsophagusD003cc:       " Gy",
	EsophagusMean:         " Gy",
	EsophagusV60GyPercent: "%",
	EsophagusV60Gy:        " cc",
	BrachialPlexD003cc:    " Gy",
}

// Unit returns the display suffix used for key.
func Unit(key MetricKey) string {
	return metricUnits[key]
}

// DisplayValue formats a raw metric value with its unit suffix, e.g. "95%" or "44.1 Gy".
func DisplayValue(key MetricKey, value float64) string {
	return FormatNumber(value) + metricUnits[key]
}

// FormatNumber renders v in its shortest exact decimal form ("70", "95.2").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Event is the envelope published on the event bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // plans_imported, plan_record, selection_changed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// ImportResponse summarises a plan import.
type ImportResponse struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Plans        int       `json:"plans"`
	WithDVH      int       `json:"with_dvh"`
	SkippedLines int       `json:"skipped_lines"`
	Timestamp    time.Time `json:"timestamp"`
}
