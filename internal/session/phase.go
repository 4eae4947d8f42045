package session

import "fmt"

// Phase names the action currently occupying a session's draft.
type Phase string

const (
	PhaseNone                   Phase = ""
	PhaseCheckMedicineSchedule  Phase = "check_medicine_schedule"
	PhaseCheckVaccineSchedule   Phase = "check_vaccine_schedule"
	PhaseCreateMedicineSchedule Phase = "create_medicine_schedule"
	PhaseCreateVaccineSchedule  Phase = "create_vaccine_schedule"
	PhaseCreateVaccine          Phase = "create_vaccine"
	PhaseCreateSupplement       Phase = "create_supplement"
	PhaseGenerateHealthScore    Phase = "generate_health_score"
)

var knownPhases = map[Phase]struct{}{
	PhaseCheckMedicineSchedule:  {},
	PhaseCheckVaccineSchedule:   {},
	PhaseCreateMedicineSchedule: {},
	PhaseCreateVaccineSchedule:  {},
	PhaseCreateVaccine:          {},
	PhaseCreateSupplement:       {},
	PhaseGenerateHealthScore:    {},
}

// ParsePhase validates a stored phase name. The empty string maps to PhaseNone.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if p == PhaseNone || p.Valid() {
		return p, nil
	}
	return PhaseNone, fmt.Errorf("session: unknown phase %q", s)
}

// Valid reports whether p is one of the enumerated phases.
func (p Phase) Valid() bool {
	_, ok := knownPhases[p]
	return ok
}

// IsAction reports whether p is a slot-filling action flow that owns a draft.
func (p Phase) IsAction() bool {
	switch p {
	case PhaseCreateMedicineSchedule, PhaseCreateVaccineSchedule, PhaseCreateVaccine, PhaseCreateSupplement:
		return true
	}
	return false
}

func (p Phase) String() string {
	return string(p)
}
