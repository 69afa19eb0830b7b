package model

import (
	"time"

	"gorm.io/gorm"
)

// Appointment statuses. The capitalised values are kept as stored by the
// existing clients.
const (
	AppointmentPending  = "pending"
	AppointmentDone     = "Done"
	AppointmentDeclined = "Declined"
)

// Payment statuses.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Appointment represents a booked consultation
// @Description Appointment information
type Appointment struct {
	gorm.Model
	AppointmentID    string     `json:"appointmentId" gorm:"column:appointment_id;size:36;uniqueIndex;not null" example:"5f0c1f9e-3d0a-4f7b-9d5e-0c1f9e3d0a4f"`
	PatientID        uint       `json:"patientId" gorm:"column:patient_id;index;not null" example:"1"`
	DoctorID         uint       `json:"doctorId" gorm:"column:doctor_id;index;not null" example:"2"`
	PatientName      string     `json:"patientName" gorm:"column:patient_name;size:191" example:"Ann Rahman"`
	PatientEmail     string     `json:"patientEmail" gorm:"column:patient_email;size:191" example:"ann@example.com"`
	DoctorName       string     `json:"doctorName" gorm:"column:doctor_name;size:191" example:"Dr. Abdul Karim"`
	Specialization   string     `json:"specialization" gorm:"column:specialization;size:128" example:"Cardiology"`
	AppointmentDate  string     `json:"appointmentDate" gorm:"column:appointment_date;size:16;not null" example:"2025-01-15"`
	AppointmentTime  string     `json:"appointmentTime" gorm:"column:appointment_time;size:16;not null" example:"10:30"`
	ConsultationType string     `json:"consultationType" gorm:"column:consultation_type;size:16" example:"online"`
	Reason           string     `json:"reason" gorm:"column:reason;type:text" example:"Chest pain"`
	Status           string     `json:"status" gorm:"column:status;size:16;default:pending;not null" example:"pending"`
	PaymentStatus    string     `json:"paymentStatus" gorm:"column:payment_status;size:16;default:unpaid;not null" example:"unpaid"`
	PaymentAmount    float64    `json:"paymentAmount" gorm:"column:payment_amount" example:"500"`
	PaymentMethod    string     `json:"paymentMethod" gorm:"column:payment_method;size:32" example:"bkash"`
	TransactionID    string     `json:"transactionId" gorm:"column:transaction_id;size:64" example:"TX123"`
	PaymentDate      *time.Time `json:"paymentDate" gorm:"column:payment_date"`
	MeetingLink      string     `json:"meetingLink" gorm:"column:meeting_link;type:text" example:"https://meet.example.com/abc"`
	MeetingTime      *time.Time `json:"meetingTime" gorm:"column:meeting_time"`
	MeetingEmailSent bool       `json:"meetingEmailSent" gorm:"column:meeting_email_sent;default:false"`
}
