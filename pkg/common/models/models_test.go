package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricRoundTrip(t *testing.T) {
	var p PatientRecord
	for i, key := range TrackedMetrics {
		p.SetMetric(key, float64(i+1))
	}
	for i, key := range TrackedMetrics {
		assert.Equal(t, float64(i+1), p.Metric(key), string(key))
	}
	assert.Equal(t, 0.0, p.Metric("unknown"))
	assert.Len(t, TrackedMetrics, 14)
}

func TestDisplayFallsBackToSynthesisedValue(t *testing.T) {
	plan := PlanRecord{Patient: PatientRecord{PTVD95: 95, HeartMean: 4.25, EsophagusV60Gy: 0.5}}
	assert.Equal(t, "95%", plan.Display(PTVD95))
	assert.Equal(t, "4.25 Gy", plan.Display(HeartMean))
	assert.Equal(t, "0.5 cc", plan.Display(EsophagusV60Gy))

	plan.DVH = &DVHRecord{Values: map[MetricKey]string{PTVD95: "95.0%", HeartMean: ""}}
	assert.Equal(t, "95.0%", plan.Display(PTVD95))
	assert.Equal(t, "4.25 Gy", plan.Display(HeartMean), "blank DVH text is synthesised")
}

func TestUnits(t *testing.T) {
	percent := []MetricKey{PTVD95, PTVMin, HeartV50Gy, LungsGTVV20Gy, LungsGTVV5Gy, EsophagusV60GyPercent}
	for _, k := range percent {
		assert.Equal(t, "%", Unit(k), string(k))
	}
	gray := []MetricKey{PTVD99, SpinalCordD003cc, HeartMean, LungsGTVMean, EsophagusD003cc, EsophagusMean, BrachialPlexD003cc}
	for _, k := range gray {
		assert.Equal(t, " Gy", Unit(k), string(k))
	}
	assert.Equal(t, " cc", Unit(EsophagusV60Gy))
}

func TestPlanKey(t *testing.T) {
	key := PlanKey{PatientNumber: 12, PlanName: "Lung-Boost"}
	assert.Equal(t, "12-Lung-Boost", key.String())

	parsed, err := ParsePlanKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	for _, bad := range []string{"", "12", "12-", "x-plan", "0-plan", "-3-plan"} {
		_, err := ParsePlanKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestPatientsKeepsOrder(t *testing.T) {
	plans := []PlanRecord{
		{Patient: PatientRecord{PatientNumber: 3, PlanName: "A"}},
		{Patient: PatientRecord{PatientNumber: 1, PlanName: "B"}},
	}
	got := Patients(plans)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].PatientNumber)
	assert.Equal(t, "B", got[1].PlanName)
	assert.Empty(t, Patients(nil))
}
