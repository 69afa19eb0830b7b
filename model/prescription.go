package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Medication is one ordered line item of a prescription.
type Medication struct {
	Name         string `json:"name" binding:"required" example:"Paracetamol 500mg"`
	Dosage       string `json:"dosage" binding:"required" example:"1 tablet"`
	Frequency    string `json:"frequency" binding:"required" example:"1+0+1"`
	Duration     string `json:"duration" binding:"required" example:"5 days"`
	Instructions string `json:"instructions,omitempty" example:"After meal"`
}

// Prescription is issued by a doctor for an appointment. It is not edited after creation.
// @Description Prescription information
type Prescription struct {
	gorm.Model
	PrescriptionID string                          `json:"prescriptionId" gorm:"column:prescription_id;size:16;uniqueIndex;not null" example:"RX-1A2B3C4D"`
	AppointmentID  string                          `json:"appointmentId" gorm:"column:appointment_id;size:36;index;not null"`
	PatientID      uint                            `json:"patientId" gorm:"column:patient_id;index;not null"`
	DoctorID       uint                            `json:"doctorId" gorm:"column:doctor_id;index;not null"`
	PatientName    string                          `json:"patientName" gorm:"column:patient_name;size:191"`
	PatientAge     string                          `json:"patientAge" gorm:"column:patient_age;size:16"`
	PatientGender  string                          `json:"patientGender" gorm:"column:patient_gender;size:16"`
	DoctorName     string                          `json:"doctorName" gorm:"column:doctor_name;size:191"`
	DoctorBmdc     string                          `json:"doctorBmdc" gorm:"column:doctor_bmdc;size:32"`
	Date           string                          `json:"date" gorm:"column:date;size:10" example:"15/01/2025"`
	Diagnosis      string                          `json:"diagnosis" gorm:"column:diagnosis;type:text"`
	Symptoms       string                          `json:"symptoms" gorm:"column:symptoms;type:text"`
	Medications    datatypes.JSONSlice[Medication] `json:"medications" gorm:"column:medications"`
	Tests          string                          `json:"tests" gorm:"column:tests;type:text"`
	Advice         string                          `json:"advice" gorm:"column:advice;type:text"`
	FollowUpDate   string                          `json:"followUpDate" gorm:"column:follow_up_date;size:16"`
}
