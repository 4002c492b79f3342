package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestUser_BeforeSave_CapitalizesNames(t *testing.T) {
	db := setupTestDB(t, "user_names", &User{}, &Specialty{})

	user := User{
		Username:  "alice",
		Email:     "alice@foo.us",
		FirstName: "alice",
		LastName:  "adams",
	}
	assert.NoError(t, db.Create(&user).Error)
	assert.Equal(t, "Alice", user.FirstName)
	assert.Equal(t, "Adams", user.LastName)
	assert.Equal(t, "Alice Adams", user.FullName())
	assert.Equal(t, RolePatient, user.Role, "role defaults to patient")
}

func TestUser_BeforeSave_ClearsSpecialtyForPatients(t *testing.T) {
	db := setupTestDB(t, "user_roles", &User{}, &Specialty{})

	specialty := Specialty{Name: "Dermatology"}
	assert.NoError(t, db.Create(&specialty).Error)

	doctor := User{
		Username:    "maria",
		Email:       "maria@doctors.fr",
		FirstName:   "maria",
		LastName:    "strong",
		Role:        RoleDoctor,
		SpecialtyID: &specialty.ID,
		Description: "20+ years of experience.",
	}
	assert.NoError(t, db.Create(&doctor).Error)
	assert.NotNil(t, doctor.SpecialtyID)
	assert.True(t, doctor.IsDoctor())

	// Switching the role back to patient drops specialty and description.
	doctor.Role = RolePatient
	assert.NoError(t, db.Save(&doctor).Error)
	assert.Nil(t, doctor.SpecialtyID)
	assert.Empty(t, doctor.Description)
}

func TestUser_UniqueUsernameAndEmail(t *testing.T) {
	db := setupTestDB(t, "user_unique", &User{}, &Specialty{})

	first := User{Username: "alice", Email: "alice@foo.us", FirstName: "alice", LastName: "adams"}
	assert.NoError(t, db.Create(&first).Error)

	dupUsername := User{Username: "alice", Email: "other@foo.us", FirstName: "a", LastName: "b"}
	assert.ErrorIs(t, db.Create(&dupUsername).Error, gorm.ErrDuplicatedKey)

	dupEmail := User{Username: "alice2", Email: "alice@foo.us", FirstName: "a", LastName: "b"}
	assert.ErrorIs(t, db.Create(&dupEmail).Error, gorm.ErrDuplicatedKey)
}

func TestDeleteUser_CascadesAppointments(t *testing.T) {
	db := setupTestDB(t, "user_delete", &User{}, &Specialty{}, &Appointment{})

	alice := createTestUser(t, db, "alice", RolePatient)
	maria := createTestUser(t, db, "maria", RoleDoctor)
	olivia := createTestUser(t, db, "olivia", RoleDoctor)
	date := NextBusinessDay(time.Now()).Format(DateLayout)

	_, err := Book(db, alice.ID, maria.ID, date, "10:00")
	assert.NoError(t, err)
	_, err = Book(db, maria.ID, olivia.ID, date, "14:00")
	assert.NoError(t, err)

	assert.NoError(t, DeleteUser(db, maria.ID))

	var users int64
	db.Model(&User{}).Count(&users)
	assert.Equal(t, int64(2), users)

	// Both sides of maria's appointments are gone.
	var appointments int64
	db.Model(&Appointment{}).Count(&appointments)
	assert.Equal(t, int64(0), appointments)
}
