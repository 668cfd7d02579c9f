package models

import (
	"gorm.io/datatypes"

	"vaccine-tracker-server/internal/ids"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusRejected    AppointmentStatus = "rejected"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// Terminal reports whether the status permits no further transitions.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment represents a scheduled parent-doctor visit for a child,
// optionally tied to a vaccine dose. ChildID must belong to ParentID.
// Once the status is terminal the row is append-only history; cancellation
// is a status, not a deletion.
type Appointment struct {
	BaseModel
	ParentID        ids.ID            `gorm:"size:36;index" json:"parentId"`
	ChildID         ids.ID            `gorm:"size:36;index" json:"childId"`
	DoctorID        ids.ID            `gorm:"size:36;index" json:"doctorId"`
	Date            datatypes.Date    `json:"date"`
	Time            string            `gorm:"size:5" json:"time"` // HH:MM
	Reason          string            `gorm:"size:255" json:"reason"`
	Notes           string            `gorm:"type:text" json:"notes,omitempty"`
	VaccineName     string            `gorm:"size:100" json:"vaccine,omitempty"`
	ScheduleID      *ids.ID           `gorm:"size:36;index" json:"scheduleId,omitempty"`
	Status          AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	RejectionReason string            `gorm:"size:255" json:"rejectionReason,omitempty"`

	// Relations
	Child  Child  `gorm:"foreignKey:ChildID" json:"-"`
	Doctor Doctor `gorm:"foreignKey:DoctorID" json:"-"`
}
