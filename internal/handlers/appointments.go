package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/middleware"
	"vaccine-tracker-server/internal/models"
	"vaccine-tracker-server/internal/scheduling"
	"vaccine-tracker-server/internal/store"
	"vaccine-tracker-server/internal/utils"
)

const dateLayout = "2006-01-02"

// AppointmentHandler handles appointment related requests. Transitions are
// delegated to the scheduling service; this layer only binds payloads and
// maps errors.
type AppointmentHandler struct {
	Store     store.Store
	Scheduler *scheduling.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(st store.Store, scheduler *scheduling.Service) *AppointmentHandler {
	return &AppointmentHandler{Store: st, Scheduler: scheduler}
}

func actorFromContext(c *gin.Context) (scheduling.Actor, bool) {
	id, role, ok := middleware.GetActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return scheduling.Actor{}, false
	}
	return scheduling.Actor{ID: ids.Norm(id), Role: role}, true
}

func parseDate(s string) (datatypes.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return datatypes.Date{}, err
	}
	return datatypes.Date(t), nil
}

// CreateAppointmentRequest represents the request body for booking an
// appointment.
type CreateAppointmentRequest struct {
	ChildID  ids.ID `json:"childId" binding:"required"`
	DoctorID ids.ID `json:"doctorId" binding:"required"`
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
	Notes    string `json:"notes"`
	Vaccine  string `json:"vaccine"`
}

// CreateAppointment books a new appointment for one of the parent's children.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		utils.BadRequest(c, "Invalid date format, expected YYYY-MM-DD")
		return
	}

	apt, err := h.Scheduler.Create(c.Request.Context(), actor, scheduling.CreateInput{
		ChildID:  req.ChildID,
		DoctorID: req.DoctorID,
		Date:     date,
		Time:     req.Time,
		Reason:   req.Reason,
		Notes:    req.Notes,
		Vaccine:  req.Vaccine,
	})
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Created(c, "Appointment created successfully", apt)
}

// GetAppointmentsForUser lists appointments scoped to the caller's identity:
// parents see their own bookings, doctors their assigned ones, admins all.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var filter store.AppointmentFilter
	switch actor.Role {
	case models.RoleParent:
		filter.ParentID = actor.ID
	case models.RoleDoctor:
		filter.DoctorID = actor.ID
	case models.RoleAdmin:
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}
	if childID := c.Query("child_id"); childID != "" {
		filter.ChildID = ids.Norm(childID)
	}

	appointments, err := h.Store.ListAppointments(c.Request.Context(), filter)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID fetches a single appointment, restricted to the involved
// parent, the assigned doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	apt, err := h.Store.GetAppointment(c.Request.Context(), ids.Norm(c.Param("id")))
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	isParentInvolved := ids.Equal(apt.ParentID, actor.ID)
	isDoctorInvolved := ids.Equal(apt.DoctorID, actor.ID)
	if actor.Role != models.RoleAdmin && !isParentInvolved && !isDoctorInvolved {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", apt)
}

// UpdateAppointmentStatusRequest represents the request body for a status
// transition. The target status selects the operation; completion fields are
// only read for completed.
type UpdateAppointmentStatusRequest struct {
	Status          models.AppointmentStatus `json:"status" binding:"required,oneof=confirmed rejected completed cancelled"`
	RejectionReason string                   `json:"rejectionReason"`
	CompletedDate   string                   `json:"completedDate"`
	BatchNumber     string                   `json:"batchNumber"`
	NextDueDate     string                   `json:"nextDueDate"`
	Notes           string                   `json:"notes"`
}

// UpdateAppointmentStatus dispatches the requested transition to the state
// machine.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id := ids.Norm(c.Param("id"))
	ctx := c.Request.Context()

	switch req.Status {
	case models.StatusConfirmed:
		apt, err := h.Scheduler.Accept(ctx, actor, id)
		if err != nil {
			respondSchedulingError(c, err)
			return
		}
		utils.Success(c, "Appointment confirmed", apt)

	case models.StatusRejected:
		apt, err := h.Scheduler.Reject(ctx, actor, id, req.RejectionReason)
		if err != nil {
			respondSchedulingError(c, err)
			return
		}
		utils.Success(c, "Appointment rejected", apt)

	case models.StatusCancelled:
		apt, err := h.Scheduler.Cancel(ctx, actor, id)
		if err != nil {
			respondSchedulingError(c, err)
			return
		}
		utils.Success(c, "Appointment cancelled", apt)

	case models.StatusCompleted:
		input := scheduling.CompleteInput{
			BatchNumber: req.BatchNumber,
			Notes:       req.Notes,
		}
		if req.CompletedDate == "" {
			input.CompletedDate = datatypes.Date(time.Now())
		} else {
			date, err := parseDate(req.CompletedDate)
			if err != nil {
				utils.BadRequest(c, "Invalid completedDate format, expected YYYY-MM-DD")
				return
			}
			input.CompletedDate = date
		}
		if req.NextDueDate != "" {
			date, err := parseDate(req.NextDueDate)
			if err != nil {
				utils.BadRequest(c, "Invalid nextDueDate format, expected YYYY-MM-DD")
				return
			}
			input.NextDueDate = &date
		}

		result, err := h.Scheduler.Complete(ctx, actor, id, input)
		if err != nil {
			respondSchedulingError(c, err)
			return
		}
		utils.Success(c, "Appointment completed", result)

	default:
		utils.BadRequest(c, "Unsupported status transition: "+string(req.Status))
	}
}

// RescheduleAppointmentRequest represents the request body for rescheduling.
type RescheduleAppointmentRequest struct {
	Date   string `json:"date" binding:"required"`
	Time   string `json:"time"`
	Reason string `json:"reason"`
}

// RescheduleAppointment moves an appointment to a new slot.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		utils.BadRequest(c, "Invalid date format, expected YYYY-MM-DD")
		return
	}

	apt, err := h.Scheduler.Reschedule(c.Request.Context(), actor, ids.Norm(c.Param("id")), scheduling.RescheduleInput{
		Date:   date,
		Time:   req.Time,
		Reason: req.Reason,
	})
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", apt)
}
