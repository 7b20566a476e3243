package population

import (
	"encoding/binary"
	"math"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/synaptica-ai/planscore/pkg/common/models"
)

// Fingerprint identifies the numeric content of a population independent of
// record order. Two populations with the same fingerprint rank every plan
// identically.
func Fingerprint(population []models.PlanRecord) uint64 {
	sums := make([]uint64, len(population))
	for i, p := range population {
		sums[i] = digest(p)
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i] < sums[j] })

	d := xxhash.New()
	var buf [8]byte
	for _, s := range sums {
		binary.LittleEndian.PutUint64(buf[:], s)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// CacheKey names the vector of plan ranked against a population fingerprint.
// The plan's own values are part of the key.
func CacheKey(plan models.PlanRecord, fingerprint uint64) string {
	return plan.Key().String() + ":" +
		strconv.FormatUint(digest(plan), 16) + ":" +
		strconv.FormatUint(fingerprint, 16)
}

func digest(p models.PlanRecord) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(p.Key().String())
	var buf [8]byte
	for _, key := range models.TrackedMetrics {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Patient.Metric(key)))
		_, _ = d.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Patient.PlanScore))
	_, _ = d.Write(buf[:])
	return d.Sum64()
}
