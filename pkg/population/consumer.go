package population

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"github.com/synaptica-ai/planscore/pkg/common/models"
)

// EventPlanRecord carries one plan record in its "plan" data field.
const EventPlanRecord = "plan_record"

// HandleEvent is a kafka.EventHandler that upserts plan_record events into
// the store. Other event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) error {
	if event.Type != EventPlanRecord {
		return nil
	}
	plan, err := planFromEvent(event)
	if err != nil {
		// Redelivery cannot fix a malformed payload.
		logger.WithField("event_id", event.ID).WithError(err).Warn("dropping malformed plan_record event")
		return nil
	}
	if err := s.store.Upsert(ctx, []models.PlanRecord{plan}); err != nil {
		return fmt.Errorf("storing plan %s: %w", plan.Key(), err)
	}
	logger.WithField("plan", plan.Key().String()).Debug("plan record consumed")
	return nil
}

func planFromEvent(event models.Event) (models.PlanRecord, error) {
	raw, ok := event.Data["plan"]
	if !ok {
		return models.PlanRecord{}, fmt.Errorf("event has no plan field")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return models.PlanRecord{}, err
	}
	var plan models.PlanRecord
	if err := json.Unmarshal(b, &plan); err != nil {
		return models.PlanRecord{}, err
	}
	if plan.Patient.PatientNumber <= 0 || plan.Patient.PlanName == "" {
		return models.PlanRecord{}, fmt.Errorf("plan record without a key")
	}
	return plan, nil
}
