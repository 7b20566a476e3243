package percentile

import (
	"math"
	"sort"

	"github.com/synaptica-ai/planscore/pkg/common/models"
)

// Polarity says whether a larger raw value is clinically better.
type Polarity int

const (
	HigherIsBetter Polarity = iota
	LowerIsBetter
)

func (p Polarity) String() string {
	if p == LowerIsBetter {
		return "lower_is_better"
	}
	return "higher_is_better"
}

// Apply turns a raw population rank into a "higher is better" percentile.
func (p Polarity) Apply(raw int) int {
	if p == LowerIsBetter {
		return 100 - raw
	}
	return raw
}

// Polarities is the single source of truth for metric direction. PTV coverage
// is higher-is-better; every organ-at-risk dose/volume is lower-is-better.
var Polarities = map[models.MetricKey]Polarity{
	models.PTVD95:                HigherIsBetter,
	models.PTVMin:                HigherIsBetter,
	models.PTVD99:                HigherIsBetter,
	models.SpinalCordD003cc:      LowerIsBetter,
	models.HeartV50Gy:            LowerIsBetter,
	models.HeartMean:             LowerIsBetter,
	models.LungsGTVV20Gy:         LowerIsBetter,
	models.LungsGTVV5Gy:          LowerIsBetter,
	models.LungsGTVMean:          LowerIsBetter,
	models.EsophagusD003cc:       LowerIsBetter,
	models.EsophagusMean:         LowerIsBetter,
	models.EsophagusV60GyPercent: LowerIsBetter,
	models.EsophagusV60Gy:        LowerIsBetter,
	models.BrachialPlexD003cc:    LowerIsBetter,
}

// PolarityOf returns the direction of key; unknown keys rank as higher-is-better.
func PolarityOf(key models.MetricKey) Polarity {
	return Polarities[key]
}

// Vector maps each tracked metric to its percentile in [0,100].
type Vector map[models.MetricKey]int

// Get returns the percentile for key, or 0 when absent.
func (v Vector) Get(key models.MetricKey) int {
	return v[key]
}

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, p := range v {
		out[k] = p
	}
	return out
}

// Compute ranks value within population. The rank is the position of the
// first population value >= value, as a rounded percentage of the population
// size; ties therefore land on the lower percentile. A value above the whole
// population ranks 100, and an empty population ranks 0.
func Compute(value float64, population []float64) int {
	if len(population) == 0 {
		return 0
	}

	sorted := make([]float64, len(population))
	copy(sorted, population)
	sort.Float64s(sorted)

	index := -1
	for i, v := range sorted {
		if v >= value {
			index = i
			break
		}
	}

	switch index {
	case -1:
		return 100
	case 0:
		return 0
	}
	return int(math.Round(float64(index) / float64(len(sorted)) * 100))
}

// ValidComparators drops placeholder rows: only plans with a positive primary
// PTV metric and a positive plan score take part in ranking.
//
// Organ-at-risk values are not screened here, so a zero placeholder OAR value
// still participates for that metric.
func ValidComparators(population []models.PatientRecord) []models.PatientRecord {
	valid := make([]models.PatientRecord, 0, len(population))
	for _, p := range population {
		if p.PTVD95 > 0 && p.PlanScore > 0 {
			valid = append(valid, p)
		}
	}
	return valid
}

// ComputePatient ranks every tracked metric of patient against population and
// applies each metric's polarity. The vector always holds all tracked keys.
func ComputePatient(patient models.PatientRecord, population []models.PatientRecord) Vector {
	valid := ValidComparators(population)

	vector := make(Vector, len(models.TrackedMetrics))
	values := make([]float64, len(valid))
	for _, key := range models.TrackedMetrics {
		for i, p := range valid {
			values[i] = p.Metric(key)
		}
		raw := Compute(patient.Metric(key), values)
		vector[key] = PolarityOf(key).Apply(raw)
	}
	return vector
}

// ComputePlan is ComputePatient over plan records.
func ComputePlan(plan models.PlanRecord, population []models.PlanRecord) Vector {
	return ComputePatient(plan.Patient, models.Patients(population))
}
