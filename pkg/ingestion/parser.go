package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/synaptica-ai/planscore/pkg/common/models"
)

const (
	patientColumns = 21
	dvhColumns     = 15
	dvhKindColumn  = 6
	dvhFirstValue  = 7
	dvhAchieved    = "Achieved"
)

// ParseStats counts what a parse kept and dropped. The header is not counted.
type ParseStats struct {
	Rows    int `json:"rows"`
	Kept    int `json:"kept"`
	Skipped int `json:"skipped"`
}

func newTabReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

// eachRow calls fn for every data row of a tab-delimited export, header and
// blank lines excluded. Cells are trimmed.
func eachRow(r io.Reader, fn func(cols []string)) error {
	cr := newTabReader(r)
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tab-delimited export: %w", err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if isBlank(rec) {
			continue
		}
		if header {
			header = false
			continue
		}
		fn(rec)
	}
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if c != "" {
			return false
		}
	}
	return true
}

// ParsePatients reads the planning system's patient table. Rows with fewer
// than 21 columns are skipped, unparseable numbers read as 0, and only rows
// with a positive patient number and plan score are kept.
func ParsePatients(r io.Reader) ([]models.PatientRecord, ParseStats, error) {
	var (
		out   []models.PatientRecord
		stats ParseStats
	)
	err := eachRow(r, func(cols []string) {
		stats.Rows++
		if len(cols) < patientColumns {
			stats.Skipped++
			return
		}
		p := models.PatientRecord{
			ProtocolName:     cols[0],
			PatientNumber:    parseInt(cols[1]),
			PlanName:         cols[2],
			TotalDose:        parseNumber(cols[3]),
			NumFractions:     parseInt(cols[4]),
			PlanningApproved: cols[5],
		}
		for i, key := range models.TrackedMetrics {
			p.SetMetric(key, parseNumber(cols[6+i]))
		}
		p.PlanScore = parseNumber(cols[20])

		if p.PlanScore <= 0 || p.PatientNumber <= 0 {
			stats.Skipped++
			return
		}
		out = append(out, p)
		stats.Kept++
	})
	return out, stats, err
}

// ParseDVH reads the DVH export. Only "Achieved" rows with a positive patient
// number and a plan name are kept; the metric cells are stored as displayed.
func ParseDVH(r io.Reader) ([]models.DVHRecord, ParseStats, error) {
	var (
		out   []models.DVHRecord
		stats ParseStats
	)
	err := eachRow(r, func(cols []string) {
		stats.Rows++
		if len(cols) < dvhColumns || cols[dvhKindColumn] != dvhAchieved {
			stats.Skipped++
			return
		}
		rec := models.DVHRecord{
			PatientNumber: parseInt(cols[1]),
			PlanName:      cols[2],
			Values:        make(map[models.MetricKey]string, len(models.TrackedMetrics)),
		}
		if rec.PatientNumber <= 0 || rec.PlanName == "" {
			stats.Skipped++
			return
		}
		for i, key := range models.TrackedMetrics {
			if c := dvhFirstValue + i; c < len(cols) && cols[c] != "" {
				rec.Values[key] = cols[c]
			}
		}
		out = append(out, rec)
		stats.Kept++
	})
	return out, stats, err
}

// Merge pairs each patient row with the DVH row for the same patient number
// and plan name. Unmatched DVH rows are dropped; the first duplicate wins.
func Merge(patients []models.PatientRecord, dvh []models.DVHRecord) []models.PlanRecord {
	byKey := make(map[models.PlanKey]*models.DVHRecord, len(dvh))
	for i := range dvh {
		key := models.PlanKey{PatientNumber: dvh[i].PatientNumber, PlanName: dvh[i].PlanName}
		if _, seen := byKey[key]; !seen {
			byKey[key] = &dvh[i]
		}
	}
	plans := make([]models.PlanRecord, len(patients))
	for i, p := range patients {
		plans[i] = models.PlanRecord{Patient: p, DVH: byKey[p.Key()]}
	}
	return plans
}

func parseInt(s string) int {
	return int(parseNumber(s))
}

// parseNumber reads the leading decimal number of s, so "95.2%" and
// "44 Gy" parse; anything without one is 0.
func parseNumber(s string) float64 {
	end := 0
	seenDigit, seenDot := false, false
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			break scan
		}
		end = i + 1
	}
	if !seenDigit {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}
