package models

import (
	"gorm.io/datatypes"

	"vaccine-tracker-server/internal/ids"
)

// ScheduleStatus represents the status of a planned dose.
type ScheduleStatus string

const (
	SchedulePending     ScheduleStatus = "pending"
	ScheduleCompleted   ScheduleStatus = "completed"
	ScheduleRescheduled ScheduleStatus = "rescheduled"
)

// VaccinationSchedule represents a planned dose for a child, independent of
// whether an appointment exists for it yet. For a (child, vaccine) pair dose
// numbers increase monotonically and dose N+1 is only created once dose N
// completes.
type VaccinationSchedule struct {
	BaseModel
	ChildID       ids.ID          `gorm:"size:36;index" json:"childId"`
	VaccineID     ids.ID          `gorm:"size:36;index" json:"vaccineId"`
	DoseNumber    int             `gorm:"not null;default:1" json:"doseNumber"`
	ScheduledDate datatypes.Date  `json:"scheduledDate"`
	Status        ScheduleStatus  `gorm:"size:20;default:'pending'" json:"status"`
	CompletedDate *datatypes.Date `json:"completedDate,omitempty"`
	Notes         string          `gorm:"size:255" json:"notes,omitempty"`

	// Relations
	Child   Child   `gorm:"foreignKey:ChildID" json:"-"`
	Vaccine Vaccine `gorm:"foreignKey:VaccineID" json:"-"`
}

// VaccinationRecord represents the historical fact that a dose was
// administered. Created exactly once per completed appointment (the unique
// appointment_id makes derivation idempotent) and immutable afterwards except
// for administrative corrections to batch number and notes. The child name
// and dates stand as issued even if the child profile is later deleted.
type VaccinationRecord struct {
	BaseModel
	ChildID         ids.ID          `gorm:"size:36;index" json:"childId"`
	VaccineID       ids.ID          `gorm:"size:36;index" json:"vaccineId"`
	DoctorID        ids.ID          `gorm:"size:36;index" json:"doctorId"`
	DoseNumber      int             `gorm:"not null;default:1" json:"doseNumber"`
	VaccinationDate datatypes.Date  `json:"vaccinationDate"`
	BatchNumber     string          `gorm:"size:100" json:"batchNumber,omitempty"`
	NextDueDate     *datatypes.Date `json:"nextDueDate,omitempty"`
	Notes           string          `gorm:"size:255" json:"notes,omitempty"`
	AppointmentID   *ids.ID         `gorm:"size:36;uniqueIndex" json:"appointmentId,omitempty"`

	// Relations
	Child   Child   `gorm:"foreignKey:ChildID" json:"-"`
	Vaccine Vaccine `gorm:"foreignKey:VaccineID" json:"-"`
	Doctor  Doctor  `gorm:"foreignKey:DoctorID" json:"-"`
}
