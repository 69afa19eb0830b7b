package endpoint

import (
	"fmt"

	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
)

type RegistryEntry struct {
	Name string `json:"name" binding:"required" example:"Dr. Abdul Karim"`
	Bmdc string `json:"bmdc" binding:"required" example:"A-12345"`
}

type ResetRegistryRequest struct {
	Entries []RegistryEntry `json:"entries" binding:"dive"`
}

// ListBmdcRegistry returns the registry used for doctor verification.
func (h *Handler) ListBmdcRegistry(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var entries []model.BmdcDoctor
	if err := db.Order("bmdc ASC").Find(&entries).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not load the registry", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Registry retrieved", Data: entries})
}

// ResetBmdcRegistry godoc
// @Summary      Replace the BMDC registry
// @Description  Replaces every entry with the given list, or restores the defaults when the list is empty or the body is absent
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        x-api-token header string true "Admin API token"
// @Param        request body ResetRegistryRequest false "Entries"
// @Success      200 {object} util.APIResponse{data=[]model.BmdcDoctor}
// @Router       /admin/bmdc/reset [post]
func (h *Handler) ResetBmdcRegistry(c *gin.Context) {
	var req ResetRegistryRequest
	if c.Request.ContentLength != 0 {
		if !bindJSONOrRespond(c, &req, "Invalid request payload") {
			return
		}
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	entries := make([]model.BmdcDoctor, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, model.BmdcDoctor{Name: e.Name, Bmdc: e.Bmdc})
	}
	rows, err := model.ResetBmdcRegistry(db, entries)
	if err != nil {
		respondServiceError(c, err, "Registry reset failed")
		return
	}

	ci := clientOf(c)
	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventRegistryReset,
		IP:        ci.IP,
		UserAgent: ci.Agent,
		Message:   fmt.Sprintf("Registry replaced with %d entries", len(rows)),
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Registry reset", Data: rows})
}
