package scorecard

import (
	"github.com/synaptica-ai/planscore/pkg/common/models"
	"github.com/synaptica-ai/planscore/pkg/percentile"
	"github.com/synaptica-ai/planscore/pkg/protocol"
)

// Card is a plan together with its percentile vector against a population.
type Card struct {
	Plan        models.PlanRecord `json:"plan"`
	Percentiles percentile.Vector `json:"percentiles"`
}

// NewCard ranks plan against population.
func NewCard(plan models.PlanRecord, population []models.PlanRecord) Card {
	return Card{Plan: plan, Percentiles: percentile.ComputePlan(plan, population)}
}

// MetricPresentation is what the chart draws for one sector.
type MetricPresentation struct {
	Key        models.MetricKey `json:"key"`
	Name       string           `json:"name"`
	Value      string           `json:"value"`
	Percentile int              `json:"percentile"`
	Requested  int              `json:"requested"`
	Priority   string           `json:"priority"`
	Unit       string           `json:"unit"`
}

var metricNames = map[models.MetricKey]string{
	models.PTVD95:                "PTV D95%",
	models.PTVMin:                "PTV Min%",
	models.PTVD99:                "PTV D99%",
	models.SpinalCordD003cc:      "SpinalCord D0.03cc",
	models.HeartV50Gy:            "Heart V50Gy",
	models.HeartMean:             "Heart Mean",
	models.LungsGTVV20Gy:         "Lungs-GTV V20Gy",
	models.LungsGTVV5Gy:          "Lungs-GTV V5Gy",
	models.LungsGTVMean:          "Lungs-GTV Mean",
	models.EsophagusD003cc:       "Esophagus D0.03cc",
	models.EsophagusMean:         "Esophagus Mean",
	models.EsophagusV60GyPercent: "Esophagus V60Gy%",
	models.EsophagusV60Gy:        "Esophagus V60Gy",
	models.BrachialPlexD003cc:    "BrachialPlex D0.03cc",
}

// RequestedPercentiles is the protocol's requested percentile per metric,
// drawn as the grey indicator dot.
var RequestedPercentiles = map[models.MetricKey]int{
	models.PTVD95:                95,
	models.PTVMin:                90,
	models.PTVD99:                95,
	models.SpinalCordD003cc:      80,
	models.HeartV50Gy:            70,
	models.HeartMean:             74,
	models.LungsGTVV20Gy:         65,
	models.LungsGTVV5Gy:          40,
	models.LungsGTVMean:          80,
	models.EsophagusD003cc:       20,
	models.EsophagusMean:         66,
	models.EsophagusV60GyPercent: 67,
	models.EsophagusV60Gy:        83,
	models.BrachialPlexD003cc:    34,
}

// MetricName is the chart label for key.
func MetricName(key models.MetricKey) string {
	if n, ok := metricNames[key]; ok {
		return n
	}
	return string(key)
}

// Presentations derives one record per tracked metric, in sector order.
// Priorities come from the catalog by position and fall back to "3" where the
// catalog is shorter than the metric list.
func Presentations(card Card, catalog protocol.Catalog) []MetricPresentation {
	out := make([]MetricPresentation, len(models.TrackedMetrics))
	for i, key := range models.TrackedMetrics {
		out[i] = MetricPresentation{
			Key:        key,
			Name:       MetricName(key),
			Value:      card.Plan.Display(key),
			Percentile: card.Percentiles.Get(key),
			Requested:  RequestedPercentiles[key],
			Priority:   catalog.PriorityAt(i),
			Unit:       models.Unit(key),
		}
	}
	return out
}
