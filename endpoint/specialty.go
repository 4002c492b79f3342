package endpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doctorsapp/doctors-api/model"
	"github.com/doctorsapp/doctors-api/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListSpecialties godoc
// @Summary      List specialties
// @Description  The full specialty catalog, alphabetical
// @Tags         Specialties
// @Accept       json
// @Produce      json
// @Security     APIToken
// @Success      200 {object} util.APIResponse{data=[]model.Specialty} "Specialties retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /specialty [get]
func ListSpecialties(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var specialties []model.Specialty
	if err := db.Order("name asc").Find(&specialties).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve specialties", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Specialties retrieved", Data: specialties})
}

type CreateSpecialtyRequest struct {
	Name string `json:"name" binding:"required" example:"Dermatology"`
}

// CreateSpecialty godoc
// @Summary      Create a specialty
// @Description  Add a specialty to the catalog; names are stored title-cased and unique
// @Tags         Specialties
// @Accept       json
// @Produce      json
// @Security     APIToken
// @Param        request body CreateSpecialtyRequest true "Specialty name"
// @Success      200 {object} util.APIResponse{data=model.Specialty} "Specialty created"
// @Failure      400 {object} util.APIResponse "Invalid request or specialty already exists"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /specialty [post]
func CreateSpecialty(c *gin.Context) {
	var req CreateSpecialtyRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Specialty name must not be blank",
			Err: fmt.Errorf("blank specialty name"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	specialty := model.Specialty{Name: strings.TrimSpace(req.Name)}
	if err := db.Create(&specialty).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.CallUserError(c, util.APIErrorParams{
				Msg: "Specialty already exists",
				Err: fmt.Errorf("specialty already exists"),
			})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create specialty", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Specialty created", Data: specialty})
}

// DeleteSpecialty godoc
// @Summary      Delete a specialty
// @Description  Remove a specialty; refused while doctors still reference it
// @Tags         Specialties
// @Accept       json
// @Produce      json
// @Security     APIToken
// @Param        id path int true "Specialty ID"
// @Success      200 {object} util.APIResponse "Specialty deleted"
// @Failure      400 {object} util.APIResponse "Specialty still in use"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "Specialty not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /specialty/{id} [delete]
func DeleteSpecialty(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var specialty model.Specialty
	if err := db.First(&specialty, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Specialty not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve specialty", Err: err})
		return
	}

	var doctors int64
	if err := db.Model(&model.User{}).Where("specialty_id = ?", id).Count(&doctors).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check specialty usage", Err: err})
		return
	}
	if doctors > 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Specialty is still assigned to doctors",
			Err: fmt.Errorf("%d doctors reference specialty %d", doctors, id),
		})
		return
	}

	if err := db.Delete(&specialty).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete specialty", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Specialty deleted"})
}
