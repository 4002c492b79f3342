package endpoint

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/doctorsapp/doctors-api/middleware"
	"github.com/doctorsapp/doctors-api/model"
	"github.com/doctorsapp/doctors-api/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	// compactDateLayout is the wire format booking clients send (YYYYMMDD).
	compactDateLayout = "20060102"
	// displayDateLayout is the human-readable date used in notification mails.
	displayDateLayout = "02 January 2006"
)

// BookingDay is one selectable date on the booking screen.
type BookingDay struct {
	Value   string `json:"value" example:"20250915"`
	Display string `json:"display" example:"Monday, 15 September 2025"`
}

// BookingOptionsResponse describes the booking screen for one doctor.
type BookingOptionsResponse struct {
	DoctorID        uint         `json:"doctor_id"`
	DoctorName      string       `json:"doctor_name"`
	DoctorSpecialty string       `json:"doctor_specialty"`
	DoctorImg       string       `json:"doctor_img"`
	Days            []BookingDay `json:"days"`
}

// BookingOptions godoc
// @Summary      Booking options for a doctor
// @Description  Doctor profile plus the next ten business days available for booking
// @Tags         Booking
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        doctor_id path int true "Doctor ID"
// @Success      200 {object} util.APIResponse{data=BookingOptionsResponse} "Booking options retrieved"
// @Failure      400 {object} util.APIResponse "Not a doctor or self-booking"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /book/{doctor_id} [get]
func BookingOptions(c *gin.Context) {
	doctorID, err := parseDoctorIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	doctor, ok := fetchDoctorByID(c, db, doctorID)
	if !ok {
		return
	}

	if !model.CanBook(userID, doctor) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "You cannot book an appointment with yourself",
			Err: model.ErrSelfBooking,
		})
		return
	}

	days := make([]BookingDay, 0, 10)
	for _, d := range model.NextBusinessDays(time.Now(), 10) {
		days = append(days, BookingDay{
			Value:   d.Format(compactDateLayout),
			Display: d.Format("Monday, 02 January 2006"),
		})
	}

	specialty := ""
	if doctor.Specialty != nil {
		specialty = doctor.Specialty.Name
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Booking options retrieved",
		Data: BookingOptionsResponse{
			DoctorID:        doctor.ID,
			DoctorName:      doctor.FullName(),
			DoctorSpecialty: specialty,
			DoctorImg:       doctor.Picture,
			Days:            days,
		},
	})
}

// TimeAvailabilities godoc
// @Summary      Free time slots
// @Description  The doctor's free catalog slots on a given date, ascending
// @Tags         Booking
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        doctor_id query int true "Doctor ID"
// @Param        date query string true "Date in YYYYMMDD format"
// @Success      200 {object} util.APIResponse{data=object} "Free slots retrieved"
// @Failure      400 {object} util.APIResponse "Invalid parameters"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /book/slots [get]
func TimeAvailabilities(c *gin.Context) {
	doctorID, err := parseDoctorIDQuery(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	date, err := time.Parse(compactDateLayout, c.Query("date"))
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Date must be provided in YYYYMMDD format",
			Err: err,
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	doctor, ok := fetchDoctorByID(c, db, doctorID)
	if !ok {
		return
	}

	slots, err := model.AvailableTimeSlots(db, doctor, date.Format(model.DateLayout))
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to compute availability", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Free slots retrieved",
		Data: map[string]interface{}{
			"doctor_id": doctor.ID,
			"date":      date.Format(model.DateLayout),
			"slots":     slots,
		},
	})
}

type ConfirmBookingRequest struct {
	DoctorID uint   `json:"doctor_id" binding:"required" example:"7"`
	Date     string `json:"date" binding:"required" example:"20250915"`
	Time     string `json:"time" binding:"required" example:"10:30"`
}

// ConfirmBooking godoc
// @Summary      Confirm a booking
// @Description  Book the slot with the doctor for the authenticated user
// @Tags         Booking
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body ConfirmBookingRequest true "Booking details"
// @Success      200 {object} util.APIResponse "Appointment confirmed"
// @Failure      400 {object} util.APIResponse "Invalid request or slot already taken"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /book/confirm [post]
func ConfirmBooking(c *gin.Context) {
	var req ConfirmBookingRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	date, err := time.Parse(compactDateLayout, req.Date)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Date must be provided in YYYYMMDD format",
			Err: err,
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	doctor, ok := fetchDoctorByID(c, db, req.DoctorID)
	if !ok {
		return
	}

	if !model.CanBook(userID, doctor) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "You cannot book an appointment with yourself",
			Err: model.ErrSelfBooking,
		})
		return
	}

	dateStr := date.Format(model.DateLayout)
	taken, err := model.SlotIsTaken(db, userID, dateStr, req.Time)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check the slot", Err: err})
		return
	}
	if taken {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "You already have an appointment at that date and time",
			Err: fmt.Errorf("slot already taken"),
		})
		return
	}

	appointment, err := model.Book(db, userID, doctor.ID, dateStr, req.Time)
	if err != nil {
		if errors.Is(err, model.ErrInvalidAppointment) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Appointment is not valid", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to book the appointment", Err: err})
		return
	}

	// nil appointment means the identical booking already existed; respond
	// success without counting or notifying a second time.
	if appointment != nil {
		middleware.RecordBookingCreated()
		name, email := util.GetNotificationRecipient(db, userID)
		go util.NotifyBooked(name, email, doctor.FullName(), date.Format(displayDateLayout), req.Time)
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Appointment confirmed",
		Data: map[string]interface{}{
			"doctor_id": doctor.ID,
			"date":      dateStr,
			"time":      req.Time,
		},
	})
}

// AppointmentView is one upcoming appointment with both party names resolved.
type AppointmentView struct {
	AppointmentID uint   `json:"appointment_id"`
	Date          string `json:"date" example:"2025-09-15"`
	Time          string `json:"time" example:"10:30"`
	DoctorID      uint   `json:"doctor_id"`
	DoctorName    string `json:"doctor_name"`
	PatientID     uint   `json:"patient_id"`
	PatientName   string `json:"patient_name"`
}

// ListAppointments godoc
// @Summary      Upcoming appointments
// @Description  The authenticated user's upcoming appointments, soonest first
// @Tags         Booking
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=[]AppointmentView} "Appointments retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointments [get]
func ListAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, ok := fetchUserByID(c, db, userID)
	if !ok {
		return
	}

	appointments, err := model.UpcomingAppointments(db, user)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointments", Err: err})
		return
	}

	names, err := partyNames(db, appointments)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to resolve appointment parties", Err: err})
		return
	}

	views := make([]AppointmentView, 0, len(appointments))
	for _, a := range appointments {
		views = append(views, AppointmentView{
			AppointmentID: a.ID,
			Date:          a.Date,
			Time:          a.Time,
			DoctorID:      a.DoctorID,
			DoctorName:    names[a.DoctorID],
			PatientID:     a.PatientID,
			PatientName:   names[a.PatientID],
		})
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointments retrieved", Data: views})
}

// partyNames resolves the display names for every user referenced by the
// appointments in a single query.
func partyNames(db *gorm.DB, appointments []model.Appointment) (map[uint]string, error) {
	ids := make([]uint, 0, len(appointments)*2)
	seen := make(map[uint]struct{}, len(appointments)*2)
	for _, a := range appointments {
		for _, id := range []uint{a.PatientID, a.DoctorID} {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var users []model.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		names[users[i].ID] = users[i].FullName()
	}
	return names, nil
}

type CancelAppointmentRequest struct {
	AppointmentID uint `json:"appointment_id" binding:"required" example:"42"`
}

// CancelAppointment godoc
// @Summary      Cancel an appointment
// @Description  Cancel an upcoming appointment; only the patient or the doctor may cancel
// @Tags         Booking
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CancelAppointmentRequest true "Appointment to cancel"
// @Success      200 {object} util.APIResponse "Appointment cancelled"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      401 {object} util.APIResponse "Not a party to the appointment"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointments/cancel [post]
func CancelAppointment(c *gin.Context) {
	var req CancelAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var appointment model.Appointment
	if err := db.First(&appointment, req.AppointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Appointment not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointment", Err: err})
		return
	}

	if !appointment.CanBeCancelledBy(userID) {
		util.LogUnauthorizedAccess(strconv.FormatUint(uint64(userID), 10), "", c.ClientIP(),
			c.Request.URL.Path, "not a party to the appointment")
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Only the patient or the doctor may cancel this appointment",
			Err: fmt.Errorf("user %d is not a party to appointment %d", userID, appointment.ID),
		})
		return
	}

	if err := model.Cancel(db, appointment.PatientID, appointment.DoctorID, appointment.Date, appointment.Time); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to cancel the appointment", Err: err})
		return
	}
	middleware.RecordBookingCancelled()

	// Notify the patient, best-effort. The date is stored as YYYY-MM-DD.
	if when, err := time.Parse(model.DateLayout, appointment.Date); err == nil {
		doctorName := ""
		var doctor model.User
		if err := db.First(&doctor, appointment.DoctorID).Error; err == nil {
			doctorName = doctor.FullName()
		}
		name, email := util.GetNotificationRecipient(db, appointment.PatientID)
		go util.NotifyCancelled(name, email, doctorName, when.Format(displayDateLayout), appointment.Time)
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment cancelled"})
}

// parseDoctorIDParam parses the doctor_id path parameter.
func parseDoctorIDParam(c *gin.Context) (uint, error) {
	idStr := c.Param("doctor_id")
	id, err := strconv.ParseInt(idStr, 10, 32)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("doctor_id must be a positive integer")
	}
	return uint(id), nil
}

// parseDoctorIDQuery parses the doctor_id query parameter.
func parseDoctorIDQuery(c *gin.Context) (uint, error) {
	idStr := c.Query("doctor_id")
	id, err := strconv.ParseInt(idStr, 10, 32)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("doctor_id must be a positive integer")
	}
	return uint(id), nil
}
