package handlers

import (
	"github.com/gin-gonic/gin"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
	"vaccine-tracker-server/internal/store"
	"vaccine-tracker-server/internal/utils"
)

// RecordHandler serves administered vaccination history. Records are derived
// from completed appointments; the API never creates them directly, only
// lets doctors correct administrative fields.
type RecordHandler struct {
	Store store.Store
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(st store.Store) *RecordHandler {
	return &RecordHandler{Store: st}
}

// GetRecordsForChild lists a child's administered doses.
func (h *RecordHandler) GetRecordsForChild(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	childID := ids.Norm(c.Param("id"))

	if actor.Role == models.RoleParent {
		child, err := h.Store.GetChild(c.Request.Context(), childID)
		if err != nil {
			if err == store.ErrNotFound {
				utils.NotFound(c, "Child not found")
			} else {
				utils.InternalServerError(c, "Database error: "+err.Error())
			}
			return
		}
		if !ids.Equal(child.ParentID, actor.ID) {
			utils.Forbidden(c, "You are not authorized to view this child's records")
			return
		}
	}

	records, err := h.Store.ListRecords(c.Request.Context(), childID)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch vaccination records: "+err.Error())
		return
	}

	utils.Success(c, "Vaccination records fetched successfully", records)
}

// UpdateRecordRequest represents a doctor's correction to a record's
// administrative fields. Dose number, vaccine and dates are derived facts and
// stay immutable.
type UpdateRecordRequest struct {
	BatchNumber string `json:"batchNumber"`
	Notes       string `json:"notes"`
}

// UpdateRecord corrects batch number or notes on an administered record.
// Doctor or admin only (route level); doctors may only touch records they
// administered.
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	var req UpdateRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	rec, err := h.Store.GetRecord(c.Request.Context(), ids.Norm(c.Param("id")))
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFound(c, "Vaccination record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if actor.Role == models.RoleDoctor && !ids.Equal(rec.DoctorID, actor.ID) {
		utils.Forbidden(c, "You can only update records you administered")
		return
	}

	if req.BatchNumber != "" {
		rec.BatchNumber = req.BatchNumber
	}
	if req.Notes != "" {
		rec.Notes = req.Notes
	}

	if err := h.Store.UpdateRecord(c.Request.Context(), rec); err != nil {
		utils.InternalServerError(c, "Failed to update vaccination record: "+err.Error())
		return
	}

	utils.Success(c, "Vaccination record updated successfully", rec)
}
