package endpoint

import (
	"fmt"
	"strconv"

	"github.com/ariebrainware/telemed-api/service"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
)

// GetHealthData returns the caller's BMI and blood pressure history,
// creating an empty record on first access.
func (h *Handler) GetHealthData(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	hd, err := h.healthRecords(db).GetOrCreate(who.ID)
	if err != nil {
		respondServiceError(c, err, "Could not load health data")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Health data retrieved", Data: hd})
}

// AddHealthMetric godoc
// @Summary      Record a health metric
// @Description  type "bmi" takes weight (kg) and height (cm); type "bp" takes systolic, diastolic and optional pulse
// @Tags         HealthData
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body service.MetricInput true "Reading"
// @Success      200 {object} util.APIResponse{data=model.HealthData}
// @Failure      409 {object} util.APIResponse "Concurrent update, retry"
// @Router       /health-data [post]
func (h *Handler) AddHealthMetric(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	var in service.MetricInput
	if !bindJSONOrRespond(c, &in, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	hd, err := h.healthRecords(db).Append(who.ID, in)
	if err != nil {
		respondServiceError(c, err, "Could not record the reading")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Reading recorded", Data: hd})
}

// DeleteMetricRequest names the reading to remove. Fields missing from the
// body are read from the query string.
type DeleteMetricRequest struct {
	Type  string `json:"type" example:"bmi"`
	Index *int   `json:"index" example:"0"`
}

// DeleteHealthMetric godoc
// @Summary      Remove a health metric
// @Description  type and index come from the JSON body or from ?type= and ?index=
// @Tags         HealthData
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body DeleteMetricRequest false "Reading to remove"
// @Success      200 {object} util.APIResponse{data=model.HealthData}
// @Failure      400 {object} util.APIResponse "InvalidDeleteRequest"
// @Router       /health-data [delete]
func (h *Handler) DeleteHealthMetric(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	var req DeleteMetricRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "InvalidDeleteRequest", Err: err})
			return
		}
	}
	if req.Type == "" {
		req.Type = c.Query("type")
	}
	if req.Index == nil {
		index, err := strconv.Atoi(c.Query("index"))
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "InvalidDeleteRequest", Err: fmt.Errorf("invalid index %q", c.Query("index"))})
			return
		}
		req.Index = &index
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	hd, err := h.healthRecords(db).RemoveAt(who.ID, req.Type, *req.Index)
	if err != nil {
		respondServiceError(c, err, "Could not remove the reading")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Reading removed", Data: hd})
}
