package models

// Vaccine represents an entry in the vaccine catalogue. Reference data,
// mutated only by admins.
type Vaccine struct {
	BaseModel
	Name             string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description      string `gorm:"type:text" json:"description"`
	RecommendedAge   string `gorm:"size:50" json:"recommendedAge"`
	DosesRequired    int    `gorm:"not null;default:1" json:"dosesRequired"`
	DiseasePrevented string `gorm:"size:255" json:"diseasePrevented"`
	Manufacturer     string `gorm:"size:100" json:"manufacturer"`
}
