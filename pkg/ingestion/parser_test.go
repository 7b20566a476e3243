package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/planscore/pkg/common/models"
)

const patientHeader = "Protocol Name\tPatient Number\tPlan Name\tTotal Dose\tNum Fractions\tPlanningApproved\t" +
	"PTV D95\tPTV Min\tPTV D99\tCord\tHeart V50\tHeart Mean\tLung V20\tLung V5\tLung Mean\t" +
	"Eso D0.03\tEso Mean\tEso V60%\tEso V60\tBP D0.03\tPlan Score\n"

func patientRow(cols ...string) string {
	return strings.Join(cols, "\t") + "\n"
}

func samplePatients() string {
	return patientHeader +
		patientRow("Lung", "1", "Plan1", "60", "30", "PlanningApproved",
			"95.2", "90", "57.1", "40", "10", "4.5", "30", "60", "18", "55", "30", "10", "1.2", "60", "82.5") +
		"\n" +
		patientRow("Lung", "2", "Plan A-2", "60", "30", "UnApproved",
			"96%", "91", "58", "41", "11", "5", "31", "61", "19", "56", "31", "11", "1.3", "61", "40") +
		patientRow("Lung", "3", "Short", "60") +
		patientRow("Lung", "4", "Unscored", "60", "30", "UnApproved",
			"96", "91", "58", "41", "11", "5", "31", "61", "19", "56", "31", "11", "1.3", "61", "0") +
		patientRow("Lung", "x", "NoNumber", "60", "30", "UnApproved",
			"96", "91", "58", "41", "11", "5", "31", "61", "19", "56", "31", "11", "1.3", "61", "50")
}

func sampleDVH() string {
	return "Protocol\tPatient\tPlan\tDose\tFx\tApproved\tKind\tPTV D95\tPTV Min\tPTV D99\tCord\tHeart V50\tHeart Mean\tLung V20\tLung V5\n" +
		patientRow("Lung", "1", "Plan1", "60", "30", "PlanningApproved", "Achieved",
			"95.2%", "90.0%", "57.1 Gy", "40.0 Gy", "10.0%", "4.5 Gy", "30.0%", "60.0%", "18.0 Gy",
			"55.0 Gy", "30.0 Gy", "10.0%", "1.2 cc", "60.0 Gy") +
		patientRow("Lung", "1", "Plan1", "60", "30", "PlanningApproved", "Requested",
			"95%", "90%", "57 Gy", "45 Gy", "10%", "5 Gy", "30%", "60%", "20 Gy") +
		patientRow("Lung", "2", "Plan A-2", "60", "30", "UnApproved", "Achieved",
			"96%", "91%", "58 Gy", "41 Gy", "11%", "5 Gy", "31%", "61%") +
		patientRow("Lung", "0", "Orphan", "60", "30", "UnApproved", "Achieved",
			"96%", "91%", "58 Gy", "41 Gy", "11%", "5 Gy", "31%", "61%") +
		patientRow("Lung", "5", "Short", "Achieved")
}

func TestParsePatients(t *testing.T) {
	patients, stats, err := ParsePatients(strings.NewReader(samplePatients()))
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, ParseStats{Rows: 5, Kept: 2, Skipped: 3}, stats)

	p := patients[0]
	assert.Equal(t, "Lung", p.ProtocolName)
	assert.Equal(t, 1, p.PatientNumber)
	assert.Equal(t, "Plan1", p.PlanName)
	assert.Equal(t, 30, p.NumFractions)
	assert.Equal(t, models.StatusPlanningApproved, p.PlanningApproved)
	assert.Equal(t, 95.2, p.PTVD95)
	assert.Equal(t, 4.5, p.HeartMean)
	assert.Equal(t, 60.0, p.BrachialPlexD003cc)
	assert.Equal(t, 82.5, p.PlanScore)

	assert.Equal(t, "Plan A-2", patients[1].PlanName)
	assert.Equal(t, 96.0, patients[1].PTVD95, "trailing units are ignored")
}

func TestParseDVH(t *testing.T) {
	dvh, stats, err := ParseDVH(strings.NewReader(sampleDVH()))
	require.NoError(t, err)
	require.Len(t, dvh, 2)
	assert.Equal(t, ParseStats{Rows: 5, Kept: 2, Skipped: 3}, stats)

	assert.Equal(t, "95.2%", dvh[0].Values[models.PTVD95])
	assert.Equal(t, "4.5 Gy", dvh[0].Values[models.HeartMean])
	assert.Equal(t, "60.0 Gy", dvh[0].Values[models.BrachialPlexD003cc])

	// A 15-column row only carries the first eight metrics.
	assert.Equal(t, "61%", dvh[1].Values[models.LungsGTVV5Gy])
	_, ok := dvh[1].Values[models.LungsGTVMean]
	assert.False(t, ok)
}

func TestMerge(t *testing.T) {
	patients, _, err := ParsePatients(strings.NewReader(samplePatients()))
	require.NoError(t, err)
	dvh, _, err := ParseDVH(strings.NewReader(sampleDVH()))
	require.NoError(t, err)

	plans := Merge(patients, dvh)
	require.Len(t, plans, 2)
	require.NotNil(t, plans[0].DVH)
	assert.Equal(t, "95.2%", plans[0].Display(models.PTVD95))
	require.NotNil(t, plans[1].DVH)
	assert.Equal(t, "19 Gy", plans[1].Display(models.LungsGTVMean), "missing DVH cells fall back to the numeric value")

	assert.Nil(t, Merge(patients, nil)[0].DVH)
}

func TestMergeKeepsFirstDuplicateDVH(t *testing.T) {
	patients := []models.PatientRecord{{PatientNumber: 1, PlanName: "Plan1", PTVD95: 95}}
	dvh := []models.DVHRecord{
		{PatientNumber: 1, PlanName: "Plan1", Values: map[models.MetricKey]string{models.PTVD95: "95.0%"}},
		{PatientNumber: 1, PlanName: "Plan1", Values: map[models.MetricKey]string{models.PTVD95: "99.9%"}},
	}

	plans := Merge(patients, dvh)
	require.Len(t, plans, 1)
	require.NotNil(t, plans[0].DVH)
	assert.Equal(t, "95.0%", plans[0].Display(models.PTVD95))
}

func TestParseEmptyAndHeaderOnly(t *testing.T) {
	patients, stats, err := ParsePatients(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, patients)
	assert.Zero(t, stats.Rows)

	patients, _, err = ParsePatients(strings.NewReader("\n\n" + patientHeader + "\n"))
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"95.2":  95.2,
		"95.2%": 95.2,
		"44 Gy": 44,
		"-1.5":  -1.5,
		"":      0,
		"n/a":   0,
		"1.2.3": 1.2,
		".5":    0.5,
		"-":     0,
		"12abc": 12,
		"+3":    3,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseNumber(in), in)
	}
	assert.Equal(t, 12, parseInt("12.9"))
}
