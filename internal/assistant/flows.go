package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/health-assistant/internal/healthapi"
	"github.com/wolfman30/health-assistant/internal/session"
)

const exactTimePrompt = "Please provide an exact time like 9:00 AM or 6:30 PM."

// DefaultFlows returns the four action flows.
func DefaultFlows() []Flow {
	return []Flow{
		MedicineScheduleFlow(),
		VaccineScheduleFlow(),
		VaccineFlow(),
		SupplementFlow(),
	}
}

func MedicineScheduleFlow() Flow {
	return Flow{
		Phase: session.PhaseCreateMedicineSchedule,
		Label: "medicine schedule",
		Required: []Field{
			{Key: "medicineName", Label: "medicine name", Resolved: true},
			{Key: "startDate", Label: "start date"},
			{Key: "endDate", Label: "end date"},
		},
		Enrich:        enrichMedicineSchedule,
		Validate:      validateMedicineSchedule,
		Submit:        submitMedicineSchedule,
		ConflictReply: "This medicine is already scheduled for the selected dates. Please choose different dates or a different medicine.",
		RetryReply:    "I couldn't create the medicine schedule right now. Please try again.",
	}
}

func VaccineScheduleFlow() Flow {
	return Flow{
		Phase: session.PhaseCreateVaccineSchedule,
		Label: "vaccine schedule",
		Required: []Field{
			{Key: "vaccineId", Label: "vaccine name"},
			{Key: "date", Label: "date"},
			{Key: "doseTime", Label: "dose time"},
		},
		Enrich:        enrichVaccineSchedule,
		Validate:      validateVaccineSchedule,
		Submit:        submitVaccineSchedule,
		ConflictReply: "This vaccine is already scheduled for that date. Would you like to pick another date or time?",
		RetryReply:    "I couldn't create the vaccine schedule right now. Please try again.",
	}
}

func VaccineFlow() Flow {
	return Flow{
		Phase: session.PhaseCreateVaccine,
		Label: "vaccine creation",
		Required: []Field{
			{Key: "vaccineName", Label: "vaccine name"},
			{Key: "provider", Label: "provider"},
		},
		Submit:        submitVaccine,
		ConflictReply: "A vaccine with this name already exists. Please use a different name.",
		RetryReply:    "I couldn't create the vaccine right now. Please try again.",
	}
}

func SupplementFlow() Flow {
	return Flow{
		Phase: session.PhaseCreateSupplement,
		Label: "supplement creation",
		Required: []Field{
			{Key: "medicineName", Label: "name"},
			{Key: "dosage", Label: "dosage"},
			{Key: "quantity", Label: "quantity"},
			{Key: "takenForSymptoms", Label: "purpose"},
		},
		Validate:      validateSupplement,
		Submit:        submitSupplement,
		ConflictReply: "A supplement with this name already exists. Please choose a different name.",
		RetryReply:    "I couldn't create the supplement right now. Please try again.",
	}
}

func medicineEntities(meds []healthapi.Medicine) []session.Entity {
	out := make([]session.Entity, 0, len(meds))
	for _, m := range meds {
		out = append(out, session.Entity{ID: m.ID, Name: m.MedicineName, Quantity: m.Quantity})
	}
	return out
}

func vaccineEntities(vaccines []healthapi.Vaccine) []session.Entity {
	out := make([]session.Entity, 0, len(vaccines))
	for _, v := range vaccines {
		out = append(out, session.Entity{ID: v.ID, Name: v.VaccineName})
	}
	return out
}

// normalizeDoseTimes canonicalizes every dose time in place. It reports false
// when any entry is vague or unreadable, after dropping the slot.
func normalizeDoseTimes(slots session.Slots) bool {
	raw := slots.Strings("doseTimes")
	if len(raw) == 0 {
		return true
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		canonical, err := NormalizeTime(r)
		if err != nil {
			delete(slots, "doseTimes")
			return false
		}
		out = append(out, canonical)
	}
	slots["doseTimes"] = out
	return true
}

// dosesPerDay prefers an explicit count, then the number of dose times.
// ok is false when neither is known.
func dosesPerDay(slots session.Slots) (int, bool) {
	if n, ok := slots.Int("totalDosesPerDay"); ok && n > 0 {
		return n, true
	}
	if n := len(slots.Strings("doseTimes")); n > 0 {
		return n, true
	}
	return 0, false
}

func enrichMedicineSchedule(ctx context.Context, ft *FlowTurn) (string, bool, error) {
	d := ft.Draft
	if name := d.Collected.String("medicineName"); name == "" {
		d.Validated = nil
	} else if d.Validated == nil || !strings.EqualFold(d.Validated.Name, name) {
		meds, err := ft.Domain.ListMedicines(ctx, ft.Token)
		if err != nil {
			ft.Logger.Warn("medicine catalog fetch failed", "session_key", ft.Key, "error", err)
		}
		entities := medicineEntities(meds)
		match, ok := ResolveExact(name, entities)
		ft.Events.EntityResolved(ctx, ft.Key, "medicine", name, ok)
		if !ok {
			delete(d.Collected, "medicineName")
			d.Validated = nil
			if len(entities) == 0 {
				return fmt.Sprintf("I couldn't find any medicine named %q. You don't have any medicines saved yet. Please add it first.", name), true, nil
			}
			return fmt.Sprintf("I couldn't find any medicine named %q. Here are your medicines:%s", name, candidateList(entities)), true, nil
		}
		d.Validated = &match
		d.Collected["medicineName"] = match.Name
	}

	if !normalizeDoseTimes(d.Collected) {
		return exactTimePrompt, true, nil
	}

	if d.Validated == nil || d.Validated.Quantity == nil {
		return "", false, nil
	}
	loc := ft.Now.Location()
	start, errStart := ParseDate(d.Collected.String("startDate"), loc)
	end, errEnd := ParseDate(d.Collected.String("endDate"), loc)
	if errStart != nil || errEnd != nil || end.Before(start) {
		return "", false, nil
	}
	need, ok := d.Collected.Int("quantity")
	if !ok || need <= 0 {
		perDay, known := dosesPerDay(d.Collected)
		if !known {
			return "", false, nil
		}
		need = RequiredQuantity(start, end, perDay)
	}
	if stock := *d.Validated.Quantity; need > stock {
		return fmt.Sprintf("You need %d units but only %d are available. Please reduce duration or update stock.", need, stock), true, nil
	}
	return "", false, nil
}

func validateMedicineSchedule(ft *FlowTurn) []string {
	var problems []string
	slots := ft.Draft.Collected
	loc := ft.Now.Location()
	today := ft.Today()

	start, errStart := ParseDate(slots.String("startDate"), loc)
	switch {
	case errStart != nil:
		problems = append(problems, "Start date must be a valid date in YYYY-MM-DD format.")
	case start.Before(today):
		problems = append(problems, "Start date cannot be in the past.")
	}
	end, errEnd := ParseDate(slots.String("endDate"), loc)
	switch {
	case errEnd != nil:
		problems = append(problems, "End date must be a valid date in YYYY-MM-DD format.")
	case errStart == nil && end.Before(start):
		problems = append(problems, "End date must be on or after the start date.")
	}
	if slots.Has("totalDosesPerDay") {
		if n, ok := slots.Int("totalDosesPerDay"); !ok || n < 1 || n > 10 {
			problems = append(problems, "Doses per day must be between 1 and 10.")
		}
	} else if n := len(slots.Strings("doseTimes")); n > 10 {
		problems = append(problems, "Doses per day must be between 1 and 10.")
	}
	return problems
}

func submitMedicineSchedule(ctx context.Context, ft *FlowTurn) (string, error) {
	slots := ft.Draft.Collected
	loc := ft.Now.Location()
	start, err := ParseDate(slots.String("startDate"), loc)
	if err != nil {
		return "", err
	}
	end, err := ParseDate(slots.String("endDate"), loc)
	if err != nil {
		return "", err
	}
	perDay, known := dosesPerDay(slots)
	quantity, ok := slots.Int("quantity")
	if (!ok || quantity <= 0) && known {
		quantity = RequiredQuantity(start, end, perDay)
	}
	req := healthapi.MedicineScheduleRequest{
		MedicineName:     ft.Draft.Validated.ID,
		StartDate:        start.Format(dateLayout),
		EndDate:          end.Format(dateLayout),
		DoseTimes:        slots.Strings("doseTimes"),
		TotalDosesPerDay: perDay,
		Quantity:         quantity,
	}
	if _, err := ft.Domain.CreateMedicineSchedule(ctx, ft.Token, req); err != nil {
		return "", err
	}
	return "Medicine schedule created successfully!", nil
}

func enrichVaccineSchedule(ctx context.Context, ft *FlowTurn) (string, bool, error) {
	d := ft.Draft
	if name := d.Collected.String("vaccineName"); name != "" && (d.Validated == nil || !strings.EqualFold(d.Validated.Name, name)) {
		vaccines, err := ft.Domain.ListVaccines(ctx, ft.Token)
		if err != nil {
			ft.Logger.Warn("vaccine catalog fetch failed", "session_key", ft.Key, "error", err)
		}
		match, ok, candidates := ResolveFuzzy(name, vaccineEntities(vaccines), ft.FuzzyThreshold)
		ft.Events.EntityResolved(ctx, ft.Key, "vaccine", name, ok)
		if !ok {
			delete(d.Collected, "vaccineName")
			if len(candidates) == 0 {
				return fmt.Sprintf("I couldn't find a vaccine matching %q, and there are no vaccines in your list yet. Please create the vaccine first.", name), true, nil
			}
			return fmt.Sprintf("I couldn't find a vaccine matching %q. Here are the available vaccines:%s", name, candidateList(candidates)), true, nil
		}
		d.Validated = &match
		d.Collected["vaccineName"] = match.Name
		d.Collected["vaccineId"] = match.ID
	}

	if raw := d.Collected.String("doseTime"); raw != "" {
		canonical, err := NormalizeTime(raw)
		if err != nil {
			delete(d.Collected, "doseTime")
			return exactTimePrompt, true, nil
		}
		d.Collected["doseTime"] = canonical
	}
	return "", false, nil
}

func validateVaccineSchedule(ft *FlowTurn) []string {
	slots := ft.Draft.Collected
	date, err := ParseDate(slots.String("date"), ft.Now.Location())
	if err != nil {
		return []string{"Date must be a valid date in YYYY-MM-DD format."}
	}
	today := ft.Today()
	if date.Before(today) {
		return []string{"Vaccination date cannot be in the past."}
	}
	if date.Equal(today) {
		minutes, err := ClockMinutes(slots.String("doseTime"))
		if err == nil && minutes <= ft.Now.Hour()*60+ft.Now.Minute() {
			return []string{"That dose time has already passed today. Please choose a later time or another date."}
		}
	}
	return nil
}

func submitVaccineSchedule(ctx context.Context, ft *FlowTurn) (string, error) {
	slots := ft.Draft.Collected
	req := healthapi.VaccineScheduleRequest{
		VaccineID: slots.String("vaccineId"),
		Date:      slots.String("date"),
		DoseTime:  slots.String("doseTime"),
	}
	if _, err := ft.Domain.CreateVaccineSchedule(ctx, ft.Token, req); err != nil {
		return "", err
	}
	return "Vaccine schedule created successfully!", nil
}

func submitVaccine(ctx context.Context, ft *FlowTurn) (string, error) {
	slots := ft.Draft.Collected
	req := healthapi.VaccineRequest{
		VaccineName: slots.String("vaccineName"),
		Provider:    slots.String("provider"),
		Description: slots.String("description"),
	}
	if _, err := ft.Domain.CreateVaccine(ctx, ft.Token, req); err != nil {
		return "", err
	}
	return "Vaccine created successfully!", nil
}

func validateSupplement(ft *FlowTurn) []string {
	var problems []string
	slots := ft.Draft.Collected
	if n, ok := slots.Int("quantity"); !ok || n <= 0 {
		problems = append(problems, "Quantity must be a positive whole number.")
	}
	if slots.Has("price") {
		if n, ok := slots.Int("price"); !ok || n <= 0 {
			problems = append(problems, "Price must be a positive whole number.")
		}
	}

	loc := ft.Now.Location()
	today := ft.Today()
	var mfg, exp time.Time
	var mfgOK, expOK bool
	if slots.Has("expDate") {
		var err error
		if exp, err = ParseDate(slots.String("expDate"), loc); err != nil {
			problems = append(problems, "Expiry date must be a valid date in YYYY-MM-DD format.")
		} else if exp.Before(today) {
			problems = append(problems, "Expiry date cannot be in the past.")
		} else {
			expOK = true
		}
	}
	if slots.Has("mfgDate") {
		var err error
		if mfg, err = ParseDate(slots.String("mfgDate"), loc); err != nil {
			problems = append(problems, "Manufacture date must be a valid date in YYYY-MM-DD format.")
		} else if mfg.After(today) {
			problems = append(problems, "Manufacture date cannot be in the future.")
		} else {
			mfgOK = true
		}
	}
	if mfgOK && expOK && !mfg.Before(exp) {
		problems = append(problems, "Manufacture date must be before the expiry date.")
	}
	return problems
}

func submitSupplement(ctx context.Context, ft *FlowTurn) (string, error) {
	slots := ft.Draft.Collected
	quantity, _ := slots.Int("quantity")
	req := healthapi.SupplementRequest{
		MedicineName:     slots.String("medicineName"),
		Dosage:           slots.String("dosage"),
		Quantity:         quantity,
		TakenForSymptoms: slots.String("takenForSymptoms"),
		SinglePack:       slots.String("singlePack"),
		MfgDate:          slots.String("mfgDate"),
		ExpDate:          slots.String("expDate"),
		Description:      slots.String("description"),
		AssociatedRisks:  slots.String("associatedRisks"),
	}
	if price, ok := slots.Float("price"); ok {
		req.Price = &price
	}
	if _, err := ft.Domain.CreateSupplement(ctx, ft.Token, req); err != nil {
		return "", err
	}
	return "Supplement created successfully!", nil
}
