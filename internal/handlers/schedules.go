package handlers

import (
	"github.com/gin-gonic/gin"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
	"vaccine-tracker-server/internal/store"
	"vaccine-tracker-server/internal/utils"
)

// ScheduleHandler handles vaccination schedule requests. Schedule entries are
// planned doses; completed entries are written by the deriver, not here.
type ScheduleHandler struct {
	Store store.Store
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(st store.Store) *ScheduleHandler {
	return &ScheduleHandler{Store: st}
}

// authorizeChildAccess checks that the actor may read data about the child:
// the owning parent, any doctor, or an admin.
func (h *ScheduleHandler) authorizeChildAccess(c *gin.Context, childID ids.ID) bool {
	actor, ok := actorFromContext(c)
	if !ok {
		return false
	}
	if actor.Role == models.RoleDoctor || actor.Role == models.RoleAdmin {
		return true
	}

	child, err := h.Store.GetChild(c.Request.Context(), childID)
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFound(c, "Child not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return false
	}
	if !ids.Equal(child.ParentID, actor.ID) {
		utils.Forbidden(c, "You are not authorized to view this child's schedule")
		return false
	}
	return true
}

// GetSchedulesForChild lists the planned and completed doses for a child.
func (h *ScheduleHandler) GetSchedulesForChild(c *gin.Context) {
	childID := ids.Norm(c.Param("id"))
	if !h.authorizeChildAccess(c, childID) {
		return
	}

	entries, err := h.Store.ListSchedules(c.Request.Context(), childID)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch vaccination schedule: "+err.Error())
		return
	}

	utils.Success(c, "Vaccination schedule fetched successfully", entries)
}

// RescheduleEntryRequest represents the request body for moving a planned
// dose to a new date.
type RescheduleEntryRequest struct {
	ScheduledDate string `json:"scheduledDate" binding:"required"`
	Notes         string `json:"notes"`
}

// RescheduleEntry moves a planned dose to a new date. Parents may move their
// own child's entries; doctors and admins any entry. Completed entries are
// immutable history.
func (h *ScheduleHandler) RescheduleEntry(c *gin.Context) {
	var req RescheduleEntryRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	entry, err := h.Store.GetSchedule(c.Request.Context(), ids.Norm(c.Param("id")))
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFound(c, "Schedule entry not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if actor.Role == models.RoleParent {
		child, err := h.Store.GetChild(c.Request.Context(), entry.ChildID)
		if err != nil || !ids.Equal(child.ParentID, actor.ID) {
			utils.Forbidden(c, "You are not authorized to modify this schedule entry")
			return
		}
	}

	if entry.Status == models.ScheduleCompleted {
		utils.BadRequest(c, "Completed doses cannot be rescheduled")
		return
	}

	date, err := parseDate(req.ScheduledDate)
	if err != nil {
		utils.BadRequest(c, "Invalid scheduledDate format, expected YYYY-MM-DD")
		return
	}

	entry.ScheduledDate = date
	entry.Status = models.ScheduleRescheduled
	if req.Notes != "" {
		entry.Notes = req.Notes
	}

	if err := h.Store.UpdateSchedule(c.Request.Context(), entry); err != nil {
		utils.InternalServerError(c, "Failed to update schedule entry: "+err.Error())
		return
	}

	utils.Success(c, "Schedule entry rescheduled successfully", entry)
}

// BulkScheduleUpdateRequest represents a doctor's batch adjustment of planned
// doses, typically after reviewing a child's history.
type BulkScheduleUpdateRequest struct {
	Entries []struct {
		ID            ids.ID `json:"id" binding:"required"`
		ScheduledDate string `json:"scheduledDate"`
		Notes         string `json:"notes"`
	} `json:"entries" binding:"required,min=1,dive"`
}

// BulkUpdateSchedules applies date and note adjustments to several planned
// doses atomically. Doctor or admin only (route level).
func (h *ScheduleHandler) BulkUpdateSchedules(c *gin.Context) {
	var req BulkScheduleUpdateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	err := h.Store.Transact(c.Request.Context(), func(tx store.Store) error {
		for _, item := range req.Entries {
			entry, err := tx.GetSchedule(c.Request.Context(), item.ID)
			if err != nil {
				return err
			}
			if entry.Status == models.ScheduleCompleted {
				continue
			}
			if item.ScheduledDate != "" {
				date, err := parseDate(item.ScheduledDate)
				if err != nil {
					return err
				}
				entry.ScheduledDate = date
			}
			if item.Notes != "" {
				entry.Notes = item.Notes
			}
			if err := tx.UpdateSchedule(c.Request.Context(), entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFound(c, "One or more schedule entries were not found")
		} else {
			utils.BadRequest(c, "Failed to update schedule entries: "+err.Error())
		}
		return
	}

	utils.Success(c, "Schedule entries updated successfully", nil)
}
