package handlers

import (
	"github.com/gin-gonic/gin"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
	"vaccine-tracker-server/internal/store"
	"vaccine-tracker-server/internal/utils"
)

// VaccineHandler handles vaccine catalogue requests. Reads are open to any
// authenticated user; writes are admin-only (enforced at the route level).
type VaccineHandler struct {
	Store store.Store
}

// NewVaccineHandler creates a new VaccineHandler.
func NewVaccineHandler(st store.Store) *VaccineHandler {
	return &VaccineHandler{Store: st}
}

// VaccineRequest represents the request body for catalogue maintenance.
type VaccineRequest struct {
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	RecommendedAge   string `json:"recommendedAge"`
	DosesRequired    int    `json:"dosesRequired" binding:"required,min=1"`
	DiseasePrevented string `json:"diseasePrevented"`
	Manufacturer     string `json:"manufacturer"`
}

// GetVaccines lists the vaccine catalogue.
func (h *VaccineHandler) GetVaccines(c *gin.Context) {
	vaccines, err := h.Store.ListVaccines(c.Request.Context())
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch vaccines: "+err.Error())
		return
	}

	utils.Success(c, "Vaccines fetched successfully", vaccines)
}

// GetVaccineByID fetches a single catalogue entry.
func (h *VaccineHandler) GetVaccineByID(c *gin.Context) {
	vaccine, err := h.Store.GetVaccine(c.Request.Context(), ids.Norm(c.Param("id")))
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFound(c, "Vaccine not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Vaccine fetched successfully", vaccine)
}

// CreateVaccine adds a catalogue entry. Admin only.
func (h *VaccineHandler) CreateVaccine(c *gin.Context) {
	var req VaccineRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if existing, err := h.Store.GetVaccineByName(c.Request.Context(), req.Name); err == nil && existing != nil {
		utils.BadRequest(c, "A vaccine with this name already exists")
		return
	}

	vaccine := &models.Vaccine{
		Name:             req.Name,
		Description:      req.Description,
		RecommendedAge:   req.RecommendedAge,
		DosesRequired:    req.DosesRequired,
		DiseasePrevented: req.DiseasePrevented,
		Manufacturer:     req.Manufacturer,
	}
	if err := h.Store.CreateVaccine(c.Request.Context(), vaccine); err != nil {
		utils.InternalServerError(c, "Failed to create vaccine: "+err.Error())
		return
	}

	utils.Created(c, "Vaccine created successfully", vaccine)
}

// UpdateVaccine updates a catalogue entry. Admin only.
func (h *VaccineHandler) UpdateVaccine(c *gin.Context) {
	var req VaccineRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	vaccine, err := h.Store.GetVaccine(c.Request.Context(), ids.Norm(c.Param("id")))
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFound(c, "Vaccine not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	vaccine.Name = req.Name
	vaccine.Description = req.Description
	vaccine.RecommendedAge = req.RecommendedAge
	vaccine.DosesRequired = req.DosesRequired
	vaccine.DiseasePrevented = req.DiseasePrevented
	vaccine.Manufacturer = req.Manufacturer

	if err := h.Store.UpdateVaccine(c.Request.Context(), vaccine); err != nil {
		utils.InternalServerError(c, "Failed to update vaccine: "+err.Error())
		return
	}

	utils.Success(c, "Vaccine updated successfully", vaccine)
}

// DeleteVaccine removes a catalogue entry. Admin only. Historical records
// referencing the vaccine are kept.
func (h *VaccineHandler) DeleteVaccine(c *gin.Context) {
	if err := h.Store.DeleteVaccine(c.Request.Context(), ids.Norm(c.Param("id"))); err != nil {
		if err == store.ErrNotFound {
			utils.NotFound(c, "Vaccine not found")
		} else {
			utils.InternalServerError(c, "Failed to delete vaccine: "+err.Error())
		}
		return
	}

	utils.Success(c, "Vaccine deleted successfully", nil)
}
