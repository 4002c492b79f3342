package endpoint

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/doctorsapp/doctors-api/middleware"
	"github.com/doctorsapp/doctors-api/model"
	"github.com/doctorsapp/doctors-api/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

// currentUserID reads the authenticated user's ID from the request context.
func currentUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "User not authenticated",
			Err: fmt.Errorf("user id not found in context"),
		})
		return 0, false
	}
	return userID, true
}

// parseIDParam parses the "id" path parameter into a uint and returns an error if invalid.
func parseIDParam(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("id must be a valid integer")
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return uint(id), nil
}

// fetchUserByID retrieves a user by ID, responding for not-found and DB errors.
func fetchUserByID(c *gin.Context, db *gorm.DB, userID uint) (*model.User, bool) {
	var user model.User
	if err := db.Preload("Specialty").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return nil, false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve user", Err: err})
		return nil, false
	}
	return &user, true
}

// fetchDoctorByID retrieves a user and verifies the doctor role. Unknown IDs
// respond 404, non-doctors 400.
func fetchDoctorByID(c *gin.Context, db *gorm.DB, doctorID uint) (*model.User, bool) {
	doctor, ok := fetchUserByID(c, db, doctorID)
	if !ok {
		return nil, false
	}
	if !doctor.IsDoctor() {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Requested user is not a doctor",
			Err: fmt.Errorf("%w: %s", model.ErrNotADoctor, doctor.Username),
		})
		return nil, false
	}
	return doctor, true
}

// emailExists checks whether an email already exists in users table excluding a given user ID.
func emailExists(db *gorm.DB, email string, excludeID uint) (bool, error) {
	var count int64
	if err := db.Model(&model.User{}).Where("email = ? AND id != ?", email, excludeID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
