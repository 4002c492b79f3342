package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Appointment ties a patient to a doctor for one catalog slot on one date.
// The composite unique index is the race-safety boundary for double booking:
// two concurrent requests for the identical tuple leave exactly one row.
type Appointment struct {
	gorm.Model
	PatientID uint   `json:"patient_id" gorm:"column:patient_id;not null;uniqueIndex:idx_booking_tuple"`
	DoctorID  uint   `json:"doctor_id" gorm:"column:doctor_id;not null;uniqueIndex:idx_booking_tuple"`
	Date      string `json:"date" gorm:"column:date;type:varchar(10);not null;index;uniqueIndex:idx_booking_tuple" example:"2025-06-02"`
	Time      string `json:"time" gorm:"column:time;type:varchar(5);not null;uniqueIndex:idx_booking_tuple" example:"11:00"`
}

// BeforeCreate enforces the booking invariants: the date must be a future
// business day, the time must come from the slot catalog, the booked user must
// be a doctor, and doctors cannot book themselves. A violating appointment is
// never persisted.
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if !IsCatalogSlot(a.Time) {
		return fmt.Errorf("%w: %q", ErrUnknownTimeSlot, a.Time)
	}

	date, err := time.Parse(DateLayout, a.Date)
	if err != nil {
		return fmt.Errorf("%w: cannot parse date %q", ErrInvalidAppointment, a.Date)
	}
	if date.Before(NextBusinessDay(time.Now())) {
		return fmt.Errorf("%w: %s", ErrNotFutureWeekday, a.Date)
	}
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return fmt.Errorf("%w: %s falls on a weekend", ErrNotFutureWeekday, a.Date)
	}

	if a.PatientID == a.DoctorID {
		return ErrSelfBooking
	}

	var doctor User
	if err := tx.First(&doctor, a.DoctorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %d not found", ErrNotADoctor, a.DoctorID)
		}
		return err
	}
	if !doctor.IsDoctor() {
		return fmt.Errorf("%w: %s", ErrNotADoctor, doctor.Username)
	}

	return nil
}

// Book reserves the slot for the patient with the doctor. Booking the exact
// same tuple twice is a benign no-op: the duplicate-key error raised by the
// unique index is swallowed and (nil, nil) is returned. Business-rule
// violations surface as errors wrapping ErrInvalidAppointment.
//
// Callers are expected to run SlotIsTaken first; the unique index does not
// cover a patient booking the same time with a different doctor.
func Book(db *gorm.DB, patientID, doctorID uint, date, slot string) (*Appointment, error) {
	appointment := &Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Time:      slot,
	}
	if err := db.Create(appointment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil
		}
		return nil, err
	}
	return appointment, nil
}

// Cancel removes the appointment matching the tuple. Cancelling a tuple that
// does not exist is a no-op, not an error. The row is removed for good so the
// slot immediately becomes bookable again.
func Cancel(db *gorm.DB, patientID, doctorID uint, date, slot string) error {
	var appointment Appointment
	err := db.Where("patient_id = ? AND doctor_id = ? AND date = ? AND time = ?",
		patientID, doctorID, date, slot).First(&appointment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return db.Unscoped().Delete(&appointment).Error
}

// SlotIsTaken reports whether the patient already holds any appointment at
// that exact date and time, regardless of doctor. This check is advisory:
// it is read-then-act and not backed by a storage constraint.
func SlotIsTaken(db *gorm.DB, patientID uint, date, slot string) (bool, error) {
	var count int64
	err := db.Model(&Appointment{}).
		Where("patient_id = ? AND date = ? AND time = ?", patientID, date, slot).
		Count(&count).Error
	return count > 0, err
}

// AvailableTimeSlots returns the free "HH:MM" slots the doctor has on the
// given date, ascending. A slot counts as booked when the doctor appears on an
// appointment for that date on either side: doctors booking other doctors as
// patients block their own calendar too.
func AvailableTimeSlots(db *gorm.DB, doctor *User, date string) ([]string, error) {
	if !doctor.IsDoctor() {
		return nil, fmt.Errorf("%w: %s", ErrNotADoctor, doctor.Username)
	}

	var appointments []Appointment
	err := db.Where("date = ? AND (doctor_id = ? OR patient_id = ?)", date, doctor.ID, doctor.ID).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}

	booked := make(map[string]struct{}, len(appointments))
	for _, appointment := range appointments {
		booked[appointment.Time] = struct{}{}
	}

	free := make([]string, 0, len(TimeSlots))
	for _, slot := range TimeSlots {
		if _, taken := booked[slot]; !taken {
			free = append(free, slot)
		}
	}
	return free, nil
}

// UpcomingAppointments lists the user's appointments from the next business
// day onward, ordered by date then time. Doctors see the appointments on their
// calendar plus any they booked with other doctors as patients.
func UpcomingAppointments(db *gorm.DB, user *User) ([]Appointment, error) {
	from := NextBusinessDay(time.Now()).Format(DateLayout)

	query := db.Where("date >= ?", from)
	if user.IsDoctor() {
		query = query.Where("doctor_id = ? OR patient_id = ?", user.ID, user.ID)
	} else {
		query = query.Where("patient_id = ?", user.ID)
	}

	var appointments []Appointment
	err := query.Order("date asc, time asc").Find(&appointments).Error
	return appointments, err
}

// CanBeCancelledBy reports whether the user is a party to the appointment.
// Only the patient or the doctor may cancel.
func (a *Appointment) CanBeCancelledBy(userID uint) bool {
	return a.PatientID == userID || a.DoctorID == userID
}

// CanBook reports whether the actor may book an appointment with the doctor.
// Self-booking is forbidden; the actor's own role does not matter.
func CanBook(actorID uint, doctor *User) bool {
	return actorID != doctor.ID
}
