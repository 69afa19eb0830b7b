package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	appointmentStatuses = []string{model.AppointmentPending, model.AppointmentDone, model.AppointmentDeclined}
	paymentStatuses     = []string{model.PaymentUnpaid, model.PaymentPaid, model.PaymentRefunded}
)

// AppointmentLedger books and mutates appointments. Slots are not checked
// for overlap; any requested date and time is accepted.
type AppointmentLedger struct {
	DB     *gorm.DB
	Mailer util.Mailer
	Now    func() time.Time
	Stats  *Statistics
}

// BookingRequest is the patient's input when booking.
type BookingRequest struct {
	DoctorID         uint
	AppointmentDate  string
	AppointmentTime  string
	ConsultationType string
	Reason           string
	PaymentMethod    string
	PaymentAmount    float64
}

// AppointmentPatch is a partial update. Nil fields are left untouched, so
// status and payment can change independently.
type AppointmentPatch struct {
	Status          *string  `json:"status"`
	PaymentStatus   *string  `json:"paymentStatus"`
	PaymentAmount   *float64 `json:"paymentAmount"`
	PaymentMethod   *string  `json:"paymentMethod"`
	TransactionID   *string  `json:"transactionId"`
	AppointmentDate *string  `json:"appointmentDate"`
	AppointmentTime *string  `json:"appointmentTime"`
	Reason          *string  `json:"reason"`
}

// PaymentUpdate is the input of UpdatePayment.
type PaymentUpdate struct {
	Status        string
	Amount        *float64
	Method        string
	TransactionID string
}

// MeetingOutcome reports a meeting write and whether the patient was told.
// The meeting stays scheduled when notification fails.
type MeetingOutcome struct {
	Appointment *model.Appointment `json:"appointment"`
	Notified    bool               `json:"notified"`
	NotifyError string             `json:"notifyError,omitempty"`
}

func (l *AppointmentLedger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// CanAccessAppointment reports whether who is the patient or the doctor of appt.
func CanAccessAppointment(appt *model.Appointment, who Identity) bool {
	switch who.Role {
	case model.RolePatient:
		return appt.PatientID == who.ID
	case model.RoleDoctor:
		return appt.DoctorID == who.ID
	}
	return false
}

// Book creates a pending, unpaid appointment for patient with the chosen doctor.
func (l *AppointmentLedger) Book(patient *model.Patient, req BookingRequest) (*model.Appointment, error) {
	date := strings.TrimSpace(req.AppointmentDate)
	at := strings.TrimSpace(req.AppointmentTime)
	if req.DoctorID == 0 || date == "" || at == "" {
		return nil, fmt.Errorf("%w: doctor, date and time are required", ErrInvalidInput)
	}
	if req.PaymentAmount < 0 {
		return nil, fmt.Errorf("%w: payment amount cannot be negative", ErrInvalidInput)
	}

	var doctor model.Doctor
	if err := l.DB.First(&doctor, req.DoctorID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	amount := req.PaymentAmount
	if amount == 0 {
		amount = doctor.ConsultationFee
	}

	appt := model.Appointment{
		AppointmentID:    uuid.NewString(),
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		PatientName:      patient.FullName,
		PatientEmail:     patient.Email,
		DoctorName:       doctor.FullName,
		Specialization:   doctor.Specialization,
		AppointmentDate:  date,
		AppointmentTime:  at,
		ConsultationType: strings.TrimSpace(req.ConsultationType),
		Reason:           strings.TrimSpace(req.Reason),
		Status:           model.AppointmentPending,
		PaymentStatus:    model.PaymentUnpaid,
		PaymentAmount:    amount,
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
	}
	if err := l.DB.Create(&appt).Error; err != nil {
		return nil, err
	}
	l.Stats.Record(model.StatAppointments)
	return &appt, nil
}

// Get loads an appointment by its public id.
func (l *AppointmentLedger) Get(appointmentID string) (*model.Appointment, error) {
	var appt model.Appointment
	if err := l.DB.Where("appointment_id = ?", appointmentID).First(&appt).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &appt, nil
}

// ListForPatient returns the patient's appointments, newest first.
func (l *AppointmentLedger) ListForPatient(patientID uint) ([]model.Appointment, error) {
	var out []model.Appointment
	err := l.DB.Where("patient_id = ?", patientID).Order("created_at DESC").Find(&out).Error
	return out, err
}

// ListForDoctor returns the doctor's appointments, newest first, optionally
// only those with status.
func (l *AppointmentLedger) ListForDoctor(doctorID uint, status string) ([]model.Appointment, error) {
	q := l.DB.Where("doctor_id = ?", doctorID)
	if status != "" {
		if !util.Contains(status, appointmentStatuses) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
		q = q.Where("status = ?", status)
	}
	var out []model.Appointment
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (p AppointmentPatch) empty() bool {
	return p.Status == nil && p.PaymentStatus == nil && p.PaymentAmount == nil && p.PaymentMethod == nil &&
		p.TransactionID == nil && p.AppointmentDate == nil && p.AppointmentTime == nil && p.Reason == nil
}

// TouchesStatus reports whether the patch changes the appointment status.
func (p AppointmentPatch) TouchesStatus() bool {
	return p.Status != nil
}

func (l *AppointmentLedger) patchColumns(appt *model.Appointment, p AppointmentPatch) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if p.Status != nil {
		if !util.Contains(*p.Status, appointmentStatuses) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *p.Status)
		}
		updates["status"] = *p.Status
	}
	if p.PaymentStatus != nil {
		if !util.Contains(*p.PaymentStatus, paymentStatuses) {
			return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, *p.PaymentStatus)
		}
		updates["payment_status"] = *p.PaymentStatus
		if *p.PaymentStatus == model.PaymentPaid && appt.PaymentStatus != model.PaymentPaid {
			updates["payment_date"] = l.now()
		}
	}
	if p.PaymentAmount != nil {
		if *p.PaymentAmount < 0 {
			return nil, fmt.Errorf("%w: payment amount cannot be negative", ErrInvalidInput)
		}
		updates["payment_amount"] = *p.PaymentAmount
	}
	if p.PaymentMethod != nil {
		updates["payment_method"] = strings.TrimSpace(*p.PaymentMethod)
	}
	if p.TransactionID != nil {
		updates["transaction_id"] = strings.TrimSpace(*p.TransactionID)
	}
	for col, v := range map[string]*string{"appointment_date": p.AppointmentDate, "appointment_time": p.AppointmentTime} {
		if v == nil {
			continue
		}
		if strings.TrimSpace(*v) == "" {
			return nil, fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, col)
		}
		updates[col] = strings.TrimSpace(*v)
	}
	if p.Reason != nil {
		updates["reason"] = strings.TrimSpace(*p.Reason)
	}
	return updates, nil
}

// Update applies a partial patch to the appointment.
func (l *AppointmentLedger) Update(appointmentID string, p AppointmentPatch) (*model.Appointment, error) {
	if p.empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	appt, err := l.Get(appointmentID)
	if err != nil {
		return nil, err
	}
	updates, err := l.patchColumns(appt, p)
	if err != nil {
		return nil, err
	}
	if err := l.DB.Model(appt).Updates(updates).Error; err != nil {
		return nil, err
	}
	return l.Get(appointmentID)
}

// UpdateStatus sets only the status.
func (l *AppointmentLedger) UpdateStatus(appointmentID, status string) (*model.Appointment, error) {
	return l.Update(appointmentID, AppointmentPatch{Status: &status})
}

// UpdatePayment sets only payment fields. Moving to paid stamps the payment date.
func (l *AppointmentLedger) UpdatePayment(appointmentID string, u PaymentUpdate) (*model.Appointment, error) {
	p := AppointmentPatch{PaymentStatus: &u.Status, PaymentAmount: u.Amount}
	if u.Method != "" {
		p.PaymentMethod = &u.Method
	}
	if u.TransactionID != "" {
		p.TransactionID = &u.TransactionID
	}
	return l.Update(appointmentID, p)
}

// ScheduleMeeting stores the meeting link and time, then emails the patient.
// The write stands regardless of delivery; MeetingEmailSent becomes true
// only after the mailer accepts the message.
func (l *AppointmentLedger) ScheduleMeeting(ctx context.Context, doctorID uint, appointmentID, link string, at time.Time) (*MeetingOutcome, error) {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if link == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: meeting link must be an http(s) URL", ErrInvalidInput)
	}
	if at.IsZero() {
		return nil, fmt.Errorf("%w: meeting time is required", ErrInvalidInput)
	}

	appt, err := l.Get(appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctorID {
		return nil, ErrForbidden
	}

	err = l.DB.Model(appt).Updates(map[string]interface{}{
		"meeting_link":       link,
		"meeting_time":       at,
		"meeting_email_sent": false,
	}).Error
	if err != nil {
		return nil, err
	}
	appt.MeetingLink = link
	appt.MeetingTime = &at
	appt.MeetingEmailSent = false

	outcome := &MeetingOutcome{Appointment: appt}
	if err := l.notifyMeeting(ctx, appt); err != nil {
		outcome.NotifyError = err.Error()
		return outcome, nil
	}
	outcome.Notified = true
	if err := l.DB.Model(appt).Update("meeting_email_sent", true).Error; err != nil {
		log.Printf("meeting %s notified but flag not stored: %v", appt.AppointmentID, err)
		return outcome, nil
	}
	appt.MeetingEmailSent = true
	return outcome, nil
}

func (l *AppointmentLedger) notifyMeeting(ctx context.Context, appt *model.Appointment) error {
	if l.Mailer == nil {
		return errors.New("mail delivery is not configured")
	}
	if appt.PatientEmail == "" {
		return errors.New("patient has no email address")
	}
	when := appt.MeetingTime.Format("02 Jan 2006 15:04 MST")
	body := fmt.Sprintf("Dear %s,\n\nYour consultation with %s is scheduled for %s.\nJoin here: %s\n",
		appt.PatientName, appt.DoctorName, when, appt.MeetingLink)
	return l.Mailer.Send(ctx, util.Email{
		ToName:    appt.PatientName,
		ToAddress: appt.PatientEmail,
		Subject:   "Your consultation meeting link",
		PlainText: body,
		HTML: fmt.Sprintf("<p>Dear %s,</p><p>Your consultation with %s is scheduled for %s.</p><p><a href=\"%s\">Join the meeting</a></p>",
			html.EscapeString(appt.PatientName), html.EscapeString(appt.DoctorName), when, html.EscapeString(appt.MeetingLink)),
	})
}

// Delete removes the appointment permanently.
func (l *AppointmentLedger) Delete(appointmentID string) error {
	res := l.DB.Unscoped().Where("appointment_id = ?", appointmentID).Delete(&model.Appointment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
