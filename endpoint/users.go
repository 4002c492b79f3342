package endpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/doctorsapp/doctors-api/config"
	"github.com/doctorsapp/doctors-api/model"
	"github.com/doctorsapp/doctors-api/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Sentinel errors for user update operations
var (
	ErrUserEmailAlreadyExists = errors.New("email already exists")
)

const maxPictureBytes = 1 << 20 // 1 MiB upload cap

var allowedPictureExts = []string{".jpg", ".jpeg", ".png", ".gif"}

type RegisterRequest struct {
	Username        string `json:"username" binding:"required" example:"alice"`
	Email           string `json:"email" binding:"required,email" example:"alice@example.com"`
	Password        string `json:"password" binding:"required,min=8" example:"password123"`
	PasswordConfirm string `json:"password_confirm" binding:"required" example:"password123"`
	FirstName       string `json:"first_name" binding:"required" example:"Alice"`
	LastName        string `json:"last_name" binding:"required" example:"Adams"`
	Role            string `json:"role" example:"patient"`
	SpecialtyID     *uint  `json:"specialty_id" example:"3"`
	Description     string `json:"description" example:"Board-certified dermatologist"`
}

// Register godoc
// @Summary      Register a new account
// @Description  Create a patient or doctor account; doctors must name a specialty
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      200 {object} util.APIResponse{data=model.User} "Registration successful"
// @Failure      400 {object} util.APIResponse "Invalid request or username/email taken"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /register [post]
func Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	if req.Password != req.PasswordConfirm {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Passwords do not match",
			Err: fmt.Errorf("password confirmation mismatch"),
		})
		return
	}

	role := req.Role
	if role == "" {
		role = model.RolePatient
	}
	if role != model.RolePatient && role != model.RoleDoctor {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Role must be patient or doctor",
			Err: fmt.Errorf("unknown role %q", role),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if role == model.RoleDoctor {
		if req.SpecialtyID == nil {
			util.CallUserError(c, util.APIErrorParams{
				Msg: "Doctors must name a specialty",
				Err: fmt.Errorf("specialty_id missing for doctor registration"),
			})
			return
		}
		var specialty model.Specialty
		if err := db.First(&specialty, *req.SpecialtyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				util.CallUserError(c, util.APIErrorParams{Msg: "Specialty not found", Err: err})
				return
			}
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to validate specialty", Err: err})
			return
		}
	}

	hashedPassword, salt, ok := hashPasswordForSignup(c, req.Password)
	if !ok {
		return
	}

	newUser := model.User{
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Password:     hashedPassword,
		PasswordSalt: salt,
		FirstName:    util.NormalizeName(req.FirstName),
		LastName:     util.NormalizeName(req.LastName),
		Role:         role,
		SpecialtyID:  req.SpecialtyID,
		Description:  req.Description,
	}

	if err := db.Create(&newUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.CallUserError(c, util.APIErrorParams{
				Msg: "Username or email already exists",
				Err: fmt.Errorf("username or email already exists"),
			})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create new user", Err: err})
		return
	}

	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventSignupSuccess,
		UserID:    fmt.Sprintf("%d", newUser.ID),
		Email:     newUser.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "User registered successfully",
	})

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Registration successful", Data: newUser})
}

func hashPasswordForSignup(c *gin.Context, plain string) (string, string, bool) {
	salt, err := util.GenerateSalt()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password salt", Err: err})
		return "", "", false
	}
	hashedPassword, err := util.HashPasswordArgon2(plain, salt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return "", "", false
	}
	return hashedPassword, salt, true
}

// requireSelf responds 401 unless the :id path parameter names the
// authenticated user. Profiles are private to their owners.
func requireSelf(c *gin.Context) (uint, bool) {
	uid, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return 0, false
	}
	userID, ok := currentUserID(c)
	if !ok {
		return 0, false
	}
	if uid != userID {
		util.LogUnauthorizedAccess(fmt.Sprintf("%d", userID), "", c.ClientIP(),
			c.Request.URL.Path, "profile belongs to another user")
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "You may only access your own profile",
			Err: fmt.Errorf("profile belongs to another user"),
		})
		return 0, false
	}
	return uid, true
}

// GetUserInfo godoc
// @Summary      Get own profile
// @Description  Retrieve the authenticated user's profile
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "User ID (must be the authenticated user)"
// @Success      200 {object} util.APIResponse{data=model.User} "User retrieved"
// @Failure      400 {object} util.APIResponse "Invalid user id"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /users/{id} [get]
func GetUserInfo(c *gin.Context) {
	uid, ok := requireSelf(c)
	if !ok {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	user, ok := fetchUserByID(c, db, uid)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User retrieved", Data: user})
}

type UpdateUserRequest struct {
	Email       string `json:"email" example:"alice@example.com"`
	Password    string `json:"password" example:"newpassword123"`
	FirstName   string `json:"first_name" example:"Alice"`
	LastName    string `json:"last_name" example:"Adams"`
	Role        string `json:"role" example:"doctor"`
	SpecialtyID *uint  `json:"specialty_id" example:"3"`
	Description string `json:"description" example:"Board-certified dermatologist"`
}

func (r *UpdateUserRequest) empty() bool {
	return r.Email == "" && r.Password == "" && r.FirstName == "" && r.LastName == "" &&
		r.Role == "" && r.SpecialtyID == nil && r.Description == ""
}

// validateAndUpdateEmail checks email uniqueness and updates the user model if valid.
func validateAndUpdateEmail(db *gorm.DB, user *model.User, newEmail string) error {
	if newEmail == "" || newEmail == user.Email {
		return nil
	}
	exists, err := emailExists(db, newEmail, user.ID)
	if err != nil {
		return fmt.Errorf("failed to validate email uniqueness: %w", err)
	}
	if exists {
		return ErrUserEmailAlreadyExists
	}
	user.Email = strings.ToLower(newEmail)
	return nil
}

// hashUserPassword generates a salt and hashes the provided password, updating the user model.
func hashUserPassword(user *model.User, plainPassword string) error {
	salt, err := util.GenerateSalt()
	if err != nil {
		return fmt.Errorf("failed to generate password salt: %w", err)
	}

	hashedPassword, err := util.HashPasswordArgon2(plainPassword, salt)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.Password = hashedPassword
	user.PasswordSalt = salt
	return nil
}

// applyUserUpdate merges the request into the user model. Switching the role
// to patient drops specialty and description via the model's BeforeSave hook.
func applyUserUpdate(db *gorm.DB, user *model.User, req *UpdateUserRequest) (passwordChanged bool, err error) {
	if err := validateAndUpdateEmail(db, user, req.Email); err != nil {
		return false, err
	}
	if req.FirstName != "" {
		user.FirstName = util.NormalizeName(req.FirstName)
	}
	if req.LastName != "" {
		user.LastName = util.NormalizeName(req.LastName)
	}
	if req.Role != "" {
		if req.Role != model.RolePatient && req.Role != model.RoleDoctor {
			return false, fmt.Errorf("unknown role %q", req.Role)
		}
		user.Role = req.Role
	}
	if req.SpecialtyID != nil {
		user.SpecialtyID = req.SpecialtyID
		user.Specialty = nil
	}
	if req.Description != "" {
		user.Description = req.Description
	}
	if user.IsDoctor() && user.SpecialtyID == nil {
		return false, fmt.Errorf("doctors must name a specialty")
	}
	if req.Password != "" {
		if err := hashUserPassword(user, req.Password); err != nil {
			return false, err
		}
		passwordChanged = true
	}
	return passwordChanged, nil
}

// invalidateUserSessions removes session records from both DB and Redis for a given user.
func invalidateUserSessions(db *gorm.DB, userID uint) {
	_ = db.Where("user_id = ?", userID).Delete(&model.Session{}).Error
	_ = util.InvalidateUserSessions(userID)
}

// UpdateUser godoc
// @Summary      Update own profile
// @Description  Update the authenticated user's profile; password changes invalidate sessions
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "User ID (must be the authenticated user)"
// @Param        request body UpdateUserRequest true "Fields to update"
// @Success      200 {object} util.APIResponse{data=model.User} "Update successful"
// @Failure      400 {object} util.APIResponse "Invalid request or email already exists"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /users/{id} [patch]
func UpdateUser(c *gin.Context) {
	uid, ok := requireSelf(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if req.empty() {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "At least one field must be provided",
			Err: fmt.Errorf("no fields to update"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	user, ok := fetchUserByID(c, db, uid)
	if !ok {
		return
	}

	passwordChanged, err := applyUserUpdate(db, user, &req)
	if err != nil {
		if errors.Is(err, ErrUserEmailAlreadyExists) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: err})
		} else {
			util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		}
		return
	}

	if err := db.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update user", Err: err})
		return
	}

	// Name or email may have changed; drop any cached notification recipient.
	util.RecipientCacheInvalidate(uid)
	if passwordChanged {
		invalidateUserSessions(db, uid)
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User updated successfully", Data: user})
}

// UploadPicture godoc
// @Summary      Upload profile picture
// @Description  Multipart picture upload, max 1 MiB, stored as <username>.<ext>
// @Tags         Users
// @Accept       multipart/form-data
// @Produce      json
// @Security     SessionToken
// @Param        picture formData file true "Profile picture (jpg, jpeg, png or gif)"
// @Success      200 {object} util.APIResponse "Picture uploaded"
// @Failure      400 {object} util.APIResponse "Missing, oversized or unsupported file"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /users/upload [post]
func UploadPicture(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("picture")
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Picture file is required", Err: err})
		return
	}
	if file.Size > maxPictureBytes {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Picture must not exceed 1 MiB",
			Err: fmt.Errorf("file size %d exceeds limit", file.Size),
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !util.Contains(ext, allowedPictureExts) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Picture must be a jpg, jpeg, png or gif file",
			Err: fmt.Errorf("unsupported extension %q", ext),
		})
		return
	}

	user, ok := fetchUserByID(c, db, userID)
	if !ok {
		return
	}

	mediaRoot := config.LoadConfig().MediaRoot
	if err := os.MkdirAll(mediaRoot, 0o755); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to prepare media directory", Err: err})
		return
	}

	filename := user.Username + ext
	if user.Picture != "" && user.Picture != filename {
		// A previous picture with a different extension would otherwise be
		// orphaned on disk.
		_ = os.Remove(filepath.Join(mediaRoot, user.Picture))
	}

	if err := c.SaveUploadedFile(file, filepath.Join(mediaRoot, filename)); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to store the picture", Err: err})
		return
	}

	if err := db.Model(user).Update("picture", filename).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update the profile", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Picture uploaded",
		Data: map[string]string{"picture": filename},
	})
}

// AdminDeleteUser godoc
// @Summary      Delete user (admin only)
// @Description  Delete a user and cascade their appointments; guarded by the api-token header
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     APIToken
// @Param        id path int true "User ID"
// @Success      200 {object} util.APIResponse "User deleted"
// @Failure      400 {object} util.APIResponse "Invalid user id"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /users/{id} [delete]
func AdminDeleteUser(c *gin.Context) {
	uid, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var user model.User
	if err := db.First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve user", Err: err})
		return
	}

	if err := model.DeleteUser(db, uid); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete user", Err: err})
		return
	}

	invalidateUserSessions(db, uid)
	util.RecipientCacheInvalidate(uid)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User deleted"})
}
