package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/util"
	"gorm.io/gorm"
)

// prescriptionDateLayout is day/month/year.
const prescriptionDateLayout = "02/01/2006"

const maxPrescriptionIDAttempts = 3

// PrescriptionLedger issues and looks up prescriptions. Prescriptions are
// never edited or deleted once issued.
type PrescriptionLedger struct {
	DB    *gorm.DB
	Now   func() time.Time
	Stats *Statistics
	// NewID overrides identifier generation in tests.
	NewID func() (string, error)
}

// PrescriptionRequest is the clinical content written by the doctor.
type PrescriptionRequest struct {
	AppointmentID string
	PatientAge    string
	Diagnosis     string
	Symptoms      string
	Tests         string
	Advice        string
	FollowUpDate  string
	Medications   []model.Medication
}

func (l *PrescriptionLedger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *PrescriptionLedger) newID() (string, error) {
	if l.NewID != nil {
		return l.NewID()
	}
	return util.GeneratePrescriptionID()
}

func validateMedications(meds []model.Medication) ([]model.Medication, error) {
	if len(meds) == 0 {
		return nil, fmt.Errorf("%w: at least one medication is required", ErrInvalidInput)
	}
	out := make([]model.Medication, 0, len(meds))
	for i, m := range meds {
		m.Name = strings.TrimSpace(m.Name)
		m.Dosage = strings.TrimSpace(m.Dosage)
		m.Frequency = strings.TrimSpace(m.Frequency)
		m.Duration = strings.TrimSpace(m.Duration)
		m.Instructions = strings.TrimSpace(m.Instructions)
		if m.Name == "" || m.Dosage == "" || m.Frequency == "" || m.Duration == "" {
			return nil, fmt.Errorf("%w: medication %d needs name, dosage, frequency and duration", ErrInvalidInput, i+1)
		}
		out = append(out, m)
	}
	return out, nil
}

// ageOn returns whole years between a yyyy-mm-dd birth date and now, or ""
// when the date cannot be parsed.
func ageOn(dateOfBirth string, now time.Time) string {
	dob, err := time.Parse("2006-01-02", dateOfBirth)
	if err != nil || dob.After(now) {
		return ""
	}
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return strconv.Itoa(years)
}

// Issue writes a prescription for an appointment. Only the appointment's
// doctor may issue it.
func (l *PrescriptionLedger) Issue(doctorID uint, req PrescriptionRequest) (*model.Prescription, error) {
	meds, err := validateMedications(req.Medications)
	if err != nil {
		return nil, err
	}

	var appt model.Appointment
	if err := l.DB.Where("appointment_id = ?", strings.TrimSpace(req.AppointmentID)).First(&appt).Error; err != nil {
		return nil, notFoundOr(err)
	}
	if appt.DoctorID != doctorID {
		return nil, ErrForbidden
	}

	var doctor model.Doctor
	if err := l.DB.First(&doctor, doctorID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	var patient model.Patient
	if err := l.DB.First(&patient, appt.PatientID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := l.now()
	age := strings.TrimSpace(req.PatientAge)
	if age == "" {
		age = ageOn(patient.DateOfBirth, now)
	}
	name := patient.FullName
	if name == "" {
		name = appt.PatientName
	}

	rx := model.Prescription{
		AppointmentID: appt.AppointmentID,
		PatientID:     appt.PatientID,
		DoctorID:      doctor.ID,
		PatientName:   name,
		PatientAge:    age,
		PatientGender: patient.Gender,
		DoctorName:    doctor.FullName,
		DoctorBmdc:    doctor.BmdcNumber,
		Date:          now.Format(prescriptionDateLayout),
		Diagnosis:     strings.TrimSpace(req.Diagnosis),
		Symptoms:      strings.TrimSpace(req.Symptoms),
		Medications:   meds,
		Tests:         strings.TrimSpace(req.Tests),
		Advice:        strings.TrimSpace(req.Advice),
		FollowUpDate:  strings.TrimSpace(req.FollowUpDate),
	}

	for attempt := 1; ; attempt++ {
		id, err := l.newID()
		if err != nil {
			return nil, err
		}
		rx.PrescriptionID = id
		err = l.DB.Create(&rx).Error
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt >= maxPrescriptionIDAttempts {
			return nil, err
		}
		rx.ID = 0
	}
	l.Stats.Record(model.StatPrescriptions)
	return &rx, nil
}

// ByAppointment returns the latest prescription written for an appointment.
func (l *PrescriptionLedger) ByAppointment(appointmentID string) (*model.Prescription, error) {
	var rx model.Prescription
	if err := l.DB.Where("appointment_id = ?", appointmentID).Order("id DESC").First(&rx).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &rx, nil
}

// ByPrescriptionID returns a prescription by its RX identifier.
func (l *PrescriptionLedger) ByPrescriptionID(prescriptionID string) (*model.Prescription, error) {
	var rx model.Prescription
	if err := l.DB.Where("prescription_id = ?", strings.ToUpper(prescriptionID)).First(&rx).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &rx, nil
}

// ListForPatient returns a patient's prescriptions, newest first.
func (l *PrescriptionLedger) ListForPatient(patientID uint) ([]model.Prescription, error) {
	var out []model.Prescription
	err := l.DB.Where("patient_id = ?", patientID).Order("id DESC").Find(&out).Error
	return out, err
}

// ListForDoctor returns the prescriptions a doctor issued, newest first.
func (l *PrescriptionLedger) ListForDoctor(doctorID uint) ([]model.Prescription, error) {
	var out []model.Prescription
	err := l.DB.Where("doctor_id = ?", doctorID).Order("id DESC").Find(&out).Error
	return out, err
}

// CanAccessPrescription reports whether who is the patient or the doctor of rx.
func CanAccessPrescription(rx *model.Prescription, who Identity) bool {
	switch who.Role {
	case model.RolePatient:
		return rx.PatientID == who.ID
	case model.RoleDoctor:
		return rx.DoctorID == who.ID
	}
	return false
}
