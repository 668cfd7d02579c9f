package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
	"vaccine-tracker-server/internal/store"
	"vaccine-tracker-server/internal/utils"
)

// ChildHandler handles child profile requests. Every operation is scoped to
// the authenticated parent; admins see everything.
type ChildHandler struct {
	Store store.Store
}

// NewChildHandler creates a new ChildHandler.
func NewChildHandler(st store.Store) *ChildHandler {
	return &ChildHandler{Store: st}
}

// ChildRequest represents the request body for creating or updating a child.
type ChildRequest struct {
	FirstName   string  `json:"firstName" binding:"required"`
	LastName    string  `json:"lastName" binding:"required"`
	DateOfBirth string  `json:"dateOfBirth" binding:"required"`
	Gender      string  `json:"gender" binding:"required"`
	BloodGroup  *string `json:"bloodGroup"`
	Allergies   *string `json:"allergies"`
}

// CreateChild registers a child under the authenticated parent.
func (h *ChildHandler) CreateChild(c *gin.Context) {
	var req ChildRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if !models.ValidGender(req.Gender) {
		utils.BadRequest(c, "Gender must be one of: male, female, other")
		return
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		utils.BadRequest(c, "Invalid dateOfBirth format, expected YYYY-MM-DD")
		return
	}

	child := &models.Child{
		ParentID:    actor.ID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: dob,
		Gender:      models.Gender(strings.ToLower(req.Gender)),
		BloodGroup:  req.BloodGroup,
		Allergies:   req.Allergies,
	}
	if err := h.Store.CreateChild(c.Request.Context(), child); err != nil {
		utils.InternalServerError(c, "Failed to create child: "+err.Error())
		return
	}

	utils.Created(c, "Child registered successfully", child)
}

// GetChildren lists the authenticated parent's children.
func (h *ChildHandler) GetChildren(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	children, err := h.Store.ListChildren(c.Request.Context(), actor.ID)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch children: "+err.Error())
		return
	}

	utils.Success(c, "Children fetched successfully", children)
}

// loadOwnedChild fetches a child and enforces parent ownership. Doctors and
// admins may read any child.
func (h *ChildHandler) loadOwnedChild(c *gin.Context, writeAccess bool) (*models.Child, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		return nil, false
	}

	child, err := h.Store.GetChild(c.Request.Context(), ids.Norm(c.Param("id")))
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFound(c, "Child not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleParent:
		if !ids.Equal(child.ParentID, actor.ID) {
			utils.Forbidden(c, "You are not authorized to access this child")
			return nil, false
		}
	case models.RoleDoctor:
		if writeAccess {
			utils.Forbidden(c, "Doctors cannot modify child profiles")
			return nil, false
		}
	default:
		utils.Forbidden(c, "You are not authorized to access this child")
		return nil, false
	}

	return child, true
}

// GetChildByID fetches a single child profile.
func (h *ChildHandler) GetChildByID(c *gin.Context) {
	child, ok := h.loadOwnedChild(c, false)
	if !ok {
		return
	}
	utils.Success(c, "Child fetched successfully", child)
}

// UpdateChild updates a child's profile. The parent link is immutable.
func (h *ChildHandler) UpdateChild(c *gin.Context) {
	var req ChildRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	child, ok := h.loadOwnedChild(c, true)
	if !ok {
		return
	}

	if !models.ValidGender(req.Gender) {
		utils.BadRequest(c, "Gender must be one of: male, female, other")
		return
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		utils.BadRequest(c, "Invalid dateOfBirth format, expected YYYY-MM-DD")
		return
	}

	child.FirstName = req.FirstName
	child.LastName = req.LastName
	child.DateOfBirth = dob
	child.Gender = models.Gender(strings.ToLower(req.Gender))
	child.BloodGroup = req.BloodGroup
	child.Allergies = req.Allergies

	if err := h.Store.UpdateChild(c.Request.Context(), child); err != nil {
		utils.InternalServerError(c, "Failed to update child: "+err.Error())
		return
	}

	utils.Success(c, "Child updated successfully", child)
}

// DeleteChild removes a child profile.
func (h *ChildHandler) DeleteChild(c *gin.Context) {
	child, ok := h.loadOwnedChild(c, true)
	if !ok {
		return
	}

	if err := h.Store.DeleteChild(c.Request.Context(), child.ID); err != nil {
		utils.InternalServerError(c, "Failed to delete child: "+err.Error())
		return
	}

	utils.Success(c, "Child deleted successfully", nil)
}
