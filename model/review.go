package model

import "gorm.io/gorm"

// Review is a patient's review of the platform. One per patient, enforced by
// the unique index on patient_id.
type Review struct {
	gorm.Model
	PatientID   uint   `json:"patientId" gorm:"column:patient_id;uniqueIndex;not null"`
	PatientName string `json:"patientName" gorm:"column:patient_name;size:191"`
	Photo       string `json:"photo" gorm:"column:photo;type:text"`
	Rating      int    `json:"rating" gorm:"column:rating;not null" example:"5"`
	Message     string `json:"message" gorm:"column:message;size:500" example:"Quick and helpful"`
}

// ReviewDoctor is a doctor's review of the platform. One per doctor.
type ReviewDoctor struct {
	gorm.Model
	DoctorID       uint   `json:"doctorId" gorm:"column:doctor_id;uniqueIndex;not null"`
	DoctorName     string `json:"doctorName" gorm:"column:doctor_name;size:191"`
	Specialization string `json:"specialization" gorm:"column:specialization;size:128"`
	Photo          string `json:"photo" gorm:"column:photo;type:text"`
	Rating         int    `json:"rating" gorm:"column:rating;not null" example:"4"`
	Message        string `json:"message" gorm:"column:message;size:500"`
}
