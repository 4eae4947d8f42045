package healthapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Medicine is a catalog entry from the medicine list.
type Medicine struct {
	ID           string `json:"_id"`
	MedicineName string `json:"medicineName"`
	Dosage       string `json:"dosage,omitempty"`
	Quantity     *int   `json:"quantity,omitempty"`
}

// Vaccine is a catalog entry from the vaccine list.
type Vaccine struct {
	ID          string `json:"_id"`
	VaccineName string `json:"vaccineName"`
	Provider    string `json:"provider,omitempty"`
	Description string `json:"description,omitempty"`
}

// MedicineScheduleRequest creates a dosing schedule. MedicineName carries the medicine id.
type MedicineScheduleRequest struct {
	MedicineName     string   `json:"medicineName"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	DoseTimes        []string `json:"doseTimes,omitempty"`
	TotalDosesPerDay int      `json:"totalDosesPerDay,omitempty"`
	Quantity         int      `json:"quantity,omitempty"`
}

type VaccineScheduleRequest struct {
	VaccineID string `json:"vaccineId"`
	Date      string `json:"date"`
	DoseTime  string `json:"doseTime"`
}

type VaccineRequest struct {
	VaccineName string `json:"vaccineName"`
	Provider    string `json:"provider"`
	Description string `json:"description,omitempty"`
}

type SupplementRequest struct {
	MedicineName     string   `json:"medicineName"`
	Dosage           string   `json:"dosage"`
	Quantity         int      `json:"quantity"`
	TakenForSymptoms string   `json:"takenForSymptoms"`
	Price            *float64 `json:"price,omitempty"`
	SinglePack       string   `json:"singlePack,omitempty"`
	MfgDate          string   `json:"mfgDate,omitempty"`
	ExpDate          string   `json:"expDate,omitempty"`
	Description      string   `json:"description,omitempty"`
	AssociatedRisks  string   `json:"associatedRisks,omitempty"`
}

// Result carries the service message from a successful write.
type Result struct {
	Message string
}

// HealthScore is one saved score entry.
type HealthScore struct {
	Score flexFloat `json:"score"`
}

// flexFloat accepts numbers and numeric strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var n json.Number
		if jerr := json.Unmarshal(data, &n); jerr != nil {
			return err
		}
		v, err = n.Float64()
		if err != nil {
			return err
		}
	}
	*f = flexFloat(v)
	return nil
}
