package models

// Doctor represents a pre-provisioned pediatrician on the fixed roster.
// Doctors are reference data: they are never created through registration,
// and a roster email must never be usable as a parent registration email.
type Doctor struct {
	BaseModel
	FirstName      string `gorm:"size:100;not null" json:"firstName"`
	LastName       string `gorm:"size:100;not null" json:"lastName"`
	Specialization string `gorm:"size:100" json:"specialization"`
	Email          string `gorm:"uniqueIndex;size:255;not null" json:"email"`
}

// FullName returns the doctor's display name for projections.
func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}
