package models

import (
	"gorm.io/gorm"
)

// The fixed pediatrician roster. Doctor identity is provisioned here, never
// through registration.
var doctorRoster = []Doctor{
	{FirstName: "Arun", LastName: "Patel", Specialization: "Pediatrician", Email: "arun.patel@example.com"},
	{FirstName: "Priya", LastName: "Sharma", Specialization: "Vaccination Specialist", Email: "priya.sharma@example.com"},
	{FirstName: "Rajesh", LastName: "Kumar", Specialization: "Child Specialist", Email: "rajesh.kumar@example.com"},
	{FirstName: "Deepa", LastName: "Gupta", Specialization: "Pediatrician", Email: "deepa.gupta@example.com"},
	{FirstName: "Suresh", LastName: "Verma", Specialization: "Immunologist", Email: "suresh.verma@example.com"},
	{FirstName: "Anita", LastName: "Singh", Specialization: "Pediatrician", Email: "anita.singh@example.com"},
	{FirstName: "Vikram", LastName: "Malhotra", Specialization: "Child Specialist", Email: "vikram.malhotra@example.com"},
}

// Starter vaccine catalogue with standard pediatric regimens.
var vaccineCatalogue = []Vaccine{
	{Name: "Hepatitis B", Description: "Protects against hepatitis B virus infection", RecommendedAge: "Birth", DosesRequired: 3, DiseasePrevented: "Hepatitis B", Manufacturer: "GSK"},
	{Name: "DTaP", Description: "Protects against diphtheria, tetanus, and pertussis", RecommendedAge: "2 months", DosesRequired: 5, DiseasePrevented: "Diphtheria, Tetanus, Pertussis", Manufacturer: "Sanofi"},
	{Name: "Polio (IPV)", Description: "Protects against poliomyelitis", RecommendedAge: "2 months", DosesRequired: 4, DiseasePrevented: "Poliomyelitis", Manufacturer: "Sanofi"},
	{Name: "MMR", Description: "Protects against measles, mumps, and rubella", RecommendedAge: "12-15 months", DosesRequired: 2, DiseasePrevented: "Measles, Mumps, Rubella", Manufacturer: "Merck"},
	{Name: "Varicella", Description: "Protects against chickenpox", RecommendedAge: "12-15 months", DosesRequired: 2, DiseasePrevented: "Chickenpox", Manufacturer: "Merck"},
}

// SeedReferenceData inserts the doctor roster, matching doctor login
// accounts, and the starter vaccine catalogue. Idempotent: existing rows are
// left untouched.
func SeedReferenceData(db *gorm.DB, doctorPassword string) error {
	for i := range doctorRoster {
		var doctor Doctor
		if err := db.Where("email = ?", doctorRoster[i].Email).First(&doctor).Error; err == nil {
			continue
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		doctor = doctorRoster[i]
		if err := db.Create(&doctor).Error; err != nil {
			return err
		}

		// Login account sharing the roster row's id, so JWT subject and
		// doctor_id line up.
		user := User{
			BaseModel: BaseModel{ID: doctor.ID},
			Email:     doctor.Email,
			FirstName: doctor.FirstName,
			LastName:  doctor.LastName,
			Role:      RoleDoctor,
		}
		if err := user.SetPassword(doctorPassword); err != nil {
			return err
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
	}

	for i := range vaccineCatalogue {
		var vaccine Vaccine
		if err := db.Where("name = ?", vaccineCatalogue[i].Name).First(&vaccine).Error; err == nil {
			continue
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
		vaccine = vaccineCatalogue[i]
		if err := db.Create(&vaccine).Error; err != nil {
			return err
		}
	}

	return nil
}

// DoctorRosterEmail reports whether the email belongs to the fixed roster.
// Registration must refuse these outright, even before the users table is
// consulted, so a doctor identity can never be shadowed by a parent account.
func DoctorRosterEmail(db *gorm.DB, email string) (bool, error) {
	var count int64
	if err := db.Model(&Doctor{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
