package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Health metric types accepted by the history endpoints.
const (
	HealthMetricBMI = "bmi"
	HealthMetricBP  = "bp"
)

// BMIEntry is one body-mass reading. Height is in centimetres.
type BMIEntry struct {
	Weight float64   `json:"weight"`
	Height float64   `json:"height"`
	BMI    float64   `json:"bmi"`
	Date   time.Time `json:"date"`
}

// BPEntry is one blood pressure reading in mmHg.
type BPEntry struct {
	Systolic  int       `json:"systolic"`
	Diastolic int       `json:"diastolic"`
	Pulse     int       `json:"pulse,omitempty"`
	Date      time.Time `json:"date"`
}

// HealthData holds the metric histories of one patient. Histories are append
// only except for explicit index removal. Version guards read-modify-write cycles.
type HealthData struct {
	gorm.Model
	PatientID  uint                          `json:"patientId" gorm:"column:patient_id;uniqueIndex;not null"`
	BMIHistory datatypes.JSONSlice[BMIEntry] `json:"bmiHistory" gorm:"column:bmi_history"`
	BPHistory  datatypes.JSONSlice[BPEntry]  `json:"bpHistory" gorm:"column:bp_history"`
	Version    int                           `json:"-" gorm:"column:version;not null;default:0"`
}
