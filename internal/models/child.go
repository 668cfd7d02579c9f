package models

import (
	"strings"

	"gorm.io/datatypes"

	"vaccine-tracker-server/internal/ids"
)

// Gender enum for child profiles
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ValidGender reports whether the supplied value is an accepted gender,
// case-insensitively.
func ValidGender(g string) bool {
	switch Gender(strings.ToLower(g)) {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Child represents a child profile owned by exactly one parent. ParentID is
// immutable after creation. Deleting a child does not cascade into historical
// vaccination records.
type Child struct {
	BaseModel
	ParentID    ids.ID         `gorm:"size:36;index;not null" json:"parentId"`
	FirstName   string         `gorm:"size:100;not null" json:"firstName"`
	LastName    string         `gorm:"size:100;not null" json:"lastName"`
	DateOfBirth datatypes.Date `json:"dateOfBirth"`
	Gender      Gender         `gorm:"size:10" json:"gender"`
	BloodGroup  *string        `gorm:"size:10" json:"bloodGroup,omitempty"`
	Allergies   *string        `gorm:"size:255" json:"allergies,omitempty"`

	// Relations
	Parent User `gorm:"foreignKey:ParentID" json:"-"`
}

// FullName returns the child's display name for projections.
func (c *Child) FullName() string {
	return c.FirstName + " " + c.LastName
}
