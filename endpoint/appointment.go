package endpoint

import (
	"time"

	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/service"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BookAppointmentRequest struct {
	DoctorID         uint    `json:"doctorId" binding:"required" example:"2"`
	AppointmentDate  string  `json:"appointmentDate" binding:"required" example:"2025-01-20"`
	AppointmentTime  string  `json:"appointmentTime" binding:"required" example:"10:30"`
	ConsultationType string  `json:"consultationType" example:"online"`
	Reason           string  `json:"reason" example:"Chest pain"`
	PaymentMethod    string  `json:"paymentMethod" example:"bkash"`
	PaymentAmount    float64 `json:"paymentAmount" example:"500"`
}

type ScheduleMeetingRequest struct {
	MeetingLink string    `json:"meetingLink" binding:"required" example:"https://meet.example.com/abc"`
	MeetingTime time.Time `json:"meetingTime" binding:"required" example:"2025-01-20T10:30:00+06:00"`
}

// BookAppointment godoc
// @Summary      Book an appointment
// @Description  Creates a pending, unpaid appointment. The fee defaults to the doctor's consultation fee.
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body BookAppointmentRequest true "Booking"
// @Success      201 {object} util.APIResponse{data=model.Appointment}
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Router       /appointments [post]
func (h *Handler) BookAppointment(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	var req BookAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, err := h.credentials(db).GetPatient(who.ID)
	if err != nil {
		respondServiceError(c, err, "Patient not found")
		return
	}
	appt, err := h.appointments(db).Book(patient, service.BookingRequest{
		DoctorID:         req.DoctorID,
		AppointmentDate:  req.AppointmentDate,
		AppointmentTime:  req.AppointmentTime,
		ConsultationType: req.ConsultationType,
		Reason:           req.Reason,
		PaymentMethod:    req.PaymentMethod,
		PaymentAmount:    req.PaymentAmount,
	})
	if err != nil {
		respondServiceError(c, err, "Booking failed")
		return
	}
	util.CallCreated(c, util.APISuccessParams{Msg: "Appointment booked", Data: appt})
}

// ownedAppointment loads :appointmentId and checks the caller is its
// patient or doctor.
func (h *Handler) ownedAppointment(c *gin.Context, db *gorm.DB, who service.Identity) (*model.Appointment, bool) {
	appt, err := h.appointments(db).Get(c.Param("appointmentId"))
	if err != nil {
		respondServiceError(c, err, "Appointment not found")
		return nil, false
	}
	if !service.CanAccessAppointment(appt, who) {
		respondServiceError(c, service.ErrForbidden, "You do not have access to this appointment")
		return nil, false
	}
	return appt, true
}

func (h *Handler) GetAppointment(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	appt, ok := h.ownedAppointment(c, db, who)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment retrieved", Data: appt})
}

// UpdateAppointment godoc
// @Summary      Update an appointment
// @Description  Partial update. Status and payment fields change independently; only the doctor may change the status.
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        appointmentId path string true "Appointment ID"
// @Param        request body service.AppointmentPatch true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.Appointment}
// @Failure      403 {object} util.APIResponse "Not the owner, or a patient changing the status"
// @Router       /appointments/{appointmentId} [patch]
func (h *Handler) UpdateAppointment(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	var patch service.AppointmentPatch
	if !bindJSONOrRespond(c, &patch, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	appt, ok := h.ownedAppointment(c, db, who)
	if !ok {
		return
	}
	if patch.TouchesStatus() && who.Role != model.RoleDoctor {
		respondServiceError(c, service.ErrForbidden, "Only the doctor can change the appointment status")
		return
	}

	updated, err := h.appointments(db).Update(appt.AppointmentID, patch)
	if err != nil {
		respondServiceError(c, err, "Appointment update failed")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment updated", Data: updated})
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	appt, ok := h.ownedAppointment(c, db, who)
	if !ok {
		return
	}
	if err := h.appointments(db).Delete(appt.AppointmentID); err != nil {
		respondServiceError(c, err, "Appointment deletion failed")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment deleted"})
}

// ScheduleMeeting godoc
// @Summary      Schedule the consultation meeting
// @Description  Stores the link and time, then emails the patient. The meeting is kept even if the email fails; see notified.
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        appointmentId path string true "Appointment ID"
// @Param        request body ScheduleMeetingRequest true "Meeting"
// @Success      200 {object} util.APIResponse{data=service.MeetingOutcome}
// @Router       /appointments/{appointmentId}/meeting [post]
func (h *Handler) ScheduleMeeting(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	var req ScheduleMeetingRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	outcome, err := h.appointments(db).ScheduleMeeting(c.Request.Context(), who.ID, c.Param("appointmentId"), req.MeetingLink, req.MeetingTime)
	if err != nil {
		respondServiceError(c, err, "Meeting could not be scheduled")
		return
	}
	msg := "Meeting scheduled and patient notified"
	if !outcome.Notified {
		msg = "Meeting scheduled but the patient could not be notified"
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: msg, Data: outcome})
}
