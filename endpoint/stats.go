package endpoint

import (
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
)

// GetStatistics godoc
// @Summary      Platform statistics
// @Description  Running totals of patients, doctors, appointments, prescriptions and reviews
// @Tags         Statistics
// @Produce      json
// @Success      200 {object} util.APIResponse{data=map[string]int64}
// @Router       /stats [get]
func (h *Handler) GetStatistics(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	counts, err := h.stats(db).Snapshot()
	if err != nil {
		respondServiceError(c, err, "Could not load statistics")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Statistics retrieved", Data: counts})
}
