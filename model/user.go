package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// User roles. Doctors are regular users with the doctor role and a specialty;
// they may still book appointments with other doctors as patients.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

var nameCaser = cases.Title(language.English)

// User represents a patient or a doctor account.
// @Description Patient or doctor account information
type User struct {
	gorm.Model
	Username       string     `json:"username" gorm:"column:username;type:varchar(150);uniqueIndex" example:"alice"`
	Email          string     `json:"email" gorm:"column:email;type:varchar(150);uniqueIndex" example:"alice@foo.us"`
	Password       string     `json:"-" gorm:"column:password"`
	PasswordSalt   string     `json:"-" gorm:"column:password_salt"`
	FirstName      string     `json:"first_name" gorm:"column:first_name;type:varchar(128);index" example:"Alice"`
	LastName       string     `json:"last_name" gorm:"column:last_name;type:varchar(128);index" example:"Adams"`
	Role           string     `json:"role" gorm:"column:role;type:varchar(16);default:patient;index" example:"patient"`
	SpecialtyID    *uint      `json:"specialty_id" gorm:"column:specialty_id"`
	Specialty      *Specialty `json:"specialty,omitempty" gorm:"foreignKey:SpecialtyID"`
	Description    string     `json:"description" gorm:"column:description;type:varchar(512)"`
	Picture        string     `json:"picture" gorm:"column:picture" example:"alice.jpg"`
	FailedAttempts int        `json:"-" gorm:"column:failed_attempts;default:0"`
	LockedUntil    *int64     `json:"-" gorm:"column:locked_until"`
}

// IsDoctor reports whether the user carries the doctor role.
func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}

// FullName returns the display name used in notifications and search results.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// BeforeSave capitalizes names and enforces that only doctors carry a
// specialty and a description. Patients always have both cleared.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.FirstName = nameCaser.String(strings.ToLower(u.FirstName))
	u.LastName = nameCaser.String(strings.ToLower(u.LastName))
	if u.Role == "" {
		u.Role = RolePatient
	}
	if !u.IsDoctor() {
		u.SpecialtyID = nil
		u.Specialty = nil
		u.Description = ""
	}
	return nil
}

// DeleteUser removes a user account administratively. The user's appointments,
// both as patient and as doctor, are removed in the same transaction.
func DeleteUser(db *gorm.DB, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("patient_id = ? OR doctor_id = ?", userID, userID).
			Delete(&Appointment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, userID).Error
	})
}
