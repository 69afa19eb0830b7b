package endpoint

import (
	"strconv"

	"github.com/ariebrainware/telemed-api/service"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
)

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required" example:"5"`
	Message string `json:"message" example:"Booking was easy"`
}

// SubmitPatientReview godoc
// @Summary      Review the platform as a patient
// @Description  One review per patient. rating is 1-5, message at most 500 characters.
// @Tags         Review
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ReviewRequest true "Review"
// @Success      201 {object} util.APIResponse{data=model.Review}
// @Failure      409 {object} util.APIResponse "Already reviewed"
// @Router       /reviews [post]
func (h *Handler) SubmitPatientReview(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	var req ReviewRequest
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
	review, err := h.reviews(db).SubmitPatientReview(patient, req.Rating, req.Message)
	if err != nil {
		respondServiceError(c, err, "Review could not be submitted")
		return
	}
	util.CallCreated(c, util.APISuccessParams{Msg: "Review submitted", Data: review})
}

// SubmitDoctorReview is SubmitPatientReview for doctors.
func (h *Handler) SubmitDoctorReview(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctor, err := h.credentials(db).GetDoctor(who.ID)
	if err != nil {
		respondServiceError(c, err, "Doctor not found")
		return
	}
	review, err := h.reviews(db).SubmitDoctorReview(doctor, req.Rating, req.Message)
	if err != nil {
		respondServiceError(c, err, "Review could not be submitted")
		return
	}
	util.CallCreated(c, util.APISuccessParams{Msg: "Review submitted", Data: review})
}

func sampleSizeQuery(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("n"))
	if err != nil {
		return service.DefaultSampleSize
	}
	return n
}

// SamplePatientReviews returns ?n= random patient reviews (3 by default).
func (h *Handler) SamplePatientReviews(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	list, err := h.reviews(db).SamplePatientReviews(sampleSizeQuery(c))
	if err != nil {
		respondServiceError(c, err, "Could not load reviews")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Reviews retrieved", Data: list})
}

func (h *Handler) SampleDoctorReviews(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	list, err := h.reviews(db).SampleDoctorReviews(sampleSizeQuery(c))
	if err != nil {
		respondServiceError(c, err, "Could not load reviews")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Reviews retrieved", Data: list})
}
