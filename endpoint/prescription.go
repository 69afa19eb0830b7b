package endpoint

import (
	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/service"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
)

type IssuePrescriptionRequest struct {
	AppointmentID string             `json:"appointmentId" binding:"required"`
	PatientAge    string             `json:"patientAge" example:"34"`
	Diagnosis     string             `json:"diagnosis" example:"Viral fever"`
	Symptoms      string             `json:"symptoms" example:"Fever, headache"`
	Tests         string             `json:"tests" example:"CBC"`
	Advice        string             `json:"advice" example:"Rest and fluids"`
	FollowUpDate  string             `json:"followUpDate" example:"22/01/2025"`
	Medications   []model.Medication `json:"medications" binding:"required,min=1,dive"`
}

// IssuePrescription godoc
// @Summary      Issue a prescription
// @Tags         Prescription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body IssuePrescriptionRequest true "Prescription"
// @Success      201 {object} util.APIResponse{data=model.Prescription}
// @Failure      403 {object} util.APIResponse "Not the appointment's doctor"
// @Router       /prescriptions [post]
func (h *Handler) IssuePrescription(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	var req IssuePrescriptionRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	rx, err := h.prescriptions(db).Issue(who.ID, service.PrescriptionRequest{
		AppointmentID: req.AppointmentID,
		PatientAge:    req.PatientAge,
		Diagnosis:     req.Diagnosis,
		Symptoms:      req.Symptoms,
		Tests:         req.Tests,
		Advice:        req.Advice,
		FollowUpDate:  req.FollowUpDate,
		Medications:   req.Medications,
	})
	if err != nil {
		respondServiceError(c, err, "Prescription could not be issued")
		return
	}
	util.CallCreated(c, util.APISuccessParams{Msg: "Prescription issued", Data: rx})
}

func respondPrescription(c *gin.Context, rx *model.Prescription, err error, who service.Identity) {
	if err != nil {
		respondServiceError(c, err, "Prescription not found")
		return
	}
	if !service.CanAccessPrescription(rx, who) {
		respondServiceError(c, service.ErrForbidden, "You do not have access to this prescription")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Prescription retrieved", Data: rx})
}

func (h *Handler) GetPrescription(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	rx, err := h.prescriptions(db).ByPrescriptionID(c.Param("prescriptionId"))
	respondPrescription(c, rx, err, who)
}

// GetPrescriptionByAppointment returns the latest prescription of an appointment.
func (h *Handler) GetPrescriptionByAppointment(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	rx, err := h.prescriptions(db).ByAppointment(c.Param("appointmentId"))
	respondPrescription(c, rx, err, who)
}

// ListDoctorPrescriptions returns prescriptions the caller has issued.
func (h *Handler) ListDoctorPrescriptions(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	list, err := h.prescriptions(db).ListForDoctor(who.ID)
	if err != nil {
		respondServiceError(c, err, "Could not load prescriptions")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Prescriptions retrieved", Data: list})
}
