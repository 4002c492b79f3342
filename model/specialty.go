package model

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

var specialtyCaser = cases.Title(language.English)

// Specialty is a medical specialty referenced by zero or more doctors.
type Specialty struct {
	gorm.Model
	Name string `json:"name" gorm:"type:varchar(64);uniqueIndex;not null" example:"Dermatology"`
}

// BeforeSave stores specialty names capitalized, e.g. "general practitioner"
// becomes "General Practitioner".
func (s *Specialty) BeforeSave(tx *gorm.DB) error {
	s.Name = specialtyCaser.String(s.Name)
	return nil
}

// SeedSpecialties inserts the default specialty catalog, skipping names that
// already exist.
func SeedSpecialties(db *gorm.DB) error {
	names := []string{
		"Allergology", "Anaesthesiology", "Cardiology",
		"Dentist", "Dermatology", "Endocrinology",
		"General Practitioner", "Nephrology", "Neurology",
		"Ophthalmologist", "Pediatrics", "Psychiatry",
	}

	for _, name := range names {
		var existing Specialty
		err := db.Where("name = ?", name).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&Specialty{Name: name}).Error; err != nil {
			return fmt.Errorf("failed to seed specialty %s: %w", name, err)
		}
	}
	return nil
}
