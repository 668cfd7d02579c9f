package handlers

import (
	"github.com/gin-gonic/gin"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/store"
	"vaccine-tracker-server/internal/utils"
)

// DoctorHandler serves the fixed doctor roster. The roster is seeded at
// startup and read-only at the API level.
type DoctorHandler struct {
	Store store.Store
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(st store.Store) *DoctorHandler {
	return &DoctorHandler{Store: st}
}

// GetDoctors lists the doctor roster for the booking flow.
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.Store.ListDoctors(c.Request.Context())
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	utils.Success(c, "Doctors fetched successfully", doctors)
}

// GetDoctorByID fetches a single roster entry.
func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	doctor, err := h.Store.GetDoctor(c.Request.Context(), ids.Norm(c.Param("id")))
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Doctor fetched successfully", doctor)
}
