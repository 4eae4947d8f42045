package assistant

import (
	"strings"

	"github.com/wolfman30/health-assistant/internal/session"
)

// Intent is the classifier's label for a user message.
type Intent string

const (
	IntentNone                   Intent = ""
	IntentCreateMedicineSchedule Intent = "create_medicine_schedule"
	IntentCreateVaccineSchedule  Intent = "create_vaccine_schedule"
	IntentCheckMedicineSchedule  Intent = "check_medicine_schedule"
	IntentCheckVaccineSchedule   Intent = "check_vaccine_schedule"
	IntentCreateVaccine          Intent = "create_vaccine"
	IntentCreateSupplement       Intent = "create_supplement"
	IntentCreateMedicine         Intent = "create_medicine"
	IntentGenerateHealthScore    Intent = "generate_health_score"
	IntentGeneralQuery           Intent = "general_query"
)

var knownIntents = map[Intent]struct{}{
	IntentCreateMedicineSchedule: {},
	IntentCreateVaccineSchedule:  {},
	IntentCheckMedicineSchedule:  {},
	IntentCheckVaccineSchedule:   {},
	IntentCreateVaccine:          {},
	IntentCreateSupplement:       {},
	IntentCreateMedicine:         {},
	IntentGenerateHealthScore:    {},
	IntentGeneralQuery:           {},
}

// ParseIntent normalizes a raw label. Empty input stays empty and unknown
// labels become IntentGeneralQuery.
func ParseIntent(s string) Intent {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "null" || s == "none" {
		return IntentNone
	}
	in := Intent(s)
	if _, ok := knownIntents[in]; ok {
		return in
	}
	return IntentGeneralQuery
}

// Phase maps the intent to the session phase that handles it.
func (i Intent) Phase() session.Phase {
	switch i {
	case IntentCreateMedicine, IntentCreateSupplement:
		return session.PhaseCreateSupplement
	case IntentCreateMedicineSchedule:
		return session.PhaseCreateMedicineSchedule
	case IntentCreateVaccineSchedule:
		return session.PhaseCreateVaccineSchedule
	case IntentCreateVaccine:
		return session.PhaseCreateVaccine
	case IntentCheckMedicineSchedule:
		return session.PhaseCheckMedicineSchedule
	case IntentCheckVaccineSchedule:
		return session.PhaseCheckVaccineSchedule
	case IntentGenerateHealthScore:
		return session.PhaseGenerateHealthScore
	}
	return session.PhaseNone
}

// Actionable reports whether the intent starts a flow or lookup rather than a free-form answer.
func (i Intent) Actionable() bool {
	return i.Phase() != session.PhaseNone
}
