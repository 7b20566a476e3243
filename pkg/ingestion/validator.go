package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/synaptica-ai/planscore/pkg/common/models"
)

var (
	errInvalidSource = errors.New("invalid source")
	errNoPatients    = errors.New("missing patient table")
	errNoPlans       = errors.New("patient table holds no scored plans")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type Validator struct {
	allowedSources map[string]struct{}
}

// NewValidator accepts any source when sources is empty.
func NewValidator(sources []string) *Validator {
	vs := make(map[string]struct{})
	for _, src := range sources {
		if trimmed := strings.TrimSpace(strings.ToLower(src)); trimmed != "" {
			vs[trimmed] = struct{}{}
		}
	}
	return &Validator{allowedSources: vs}
}

func (v *Validator) Validate(req ImportRequest) error {
	if v == nil {
		return ValidationError{reason: errors.New("validator not initialised")}
	}

	source := strings.TrimSpace(strings.ToLower(req.Source))
	if source == "" {
		return ValidationError{reason: fmt.Errorf("source required: %w", errInvalidSource)}
	}
	if len(v.allowedSources) > 0 {
		if _, ok := v.allowedSources[source]; !ok {
			return ValidationError{reason: fmt.Errorf("source '%s' not allowed: %w", source, errInvalidSource)}
		}
	}

	if req.Patients == nil {
		return ValidationError{reason: errNoPatients}
	}
	return nil
}

// ValidatePlans rejects an import that parsed to nothing.
func (v *Validator) ValidatePlans(plans []models.PlanRecord) error {
	if len(plans) == 0 {
		return ValidationError{reason: errNoPlans}
	}
	return nil
}
