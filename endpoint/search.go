package endpoint

import (
	"fmt"
	"html"
	"strings"

	"github.com/doctorsapp/doctors-api/model"
	"github.com/doctorsapp/doctors-api/util"
	"github.com/gin-gonic/gin"
)

// DoctorSearchResult is one row on the search results screen.
type DoctorSearchResult struct {
	DoctorID        uint   `json:"doctor_id" example:"7"`
	DoctorName      string `json:"doctor_name" example:"Maria Garcia"`
	DoctorSpecialty string `json:"doctor_specialty" example:"Dermatology"`
	DoctorImg       string `json:"doctor_img" example:"maria.jpg"`
}

// SearchDoctors godoc
// @Summary      Search doctors
// @Description  Case-insensitive search over doctor first name, last name and specialty name
// @Tags         Booking
// @Accept       json
// @Produce      json
// @Param        search_term query string true "Search term"
// @Success      200 {object} util.APIResponse{data=[]DoctorSearchResult} "Doctors retrieved"
// @Failure      400 {object} util.APIResponse "Missing search term"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /search [get]
func SearchDoctors(c *gin.Context) {
	term := strings.TrimSpace(c.Query("search_term"))
	if term == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Search term is required",
			Err: fmt.Errorf("search_term query parameter missing"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	like := "%" + strings.ToLower(term) + "%"
	var doctors []model.User
	err := db.Preload("Specialty").
		Joins("LEFT JOIN specialties ON specialties.id = users.specialty_id AND specialties.deleted_at IS NULL").
		Where("users.role = ?", model.RoleDoctor).
		Where("LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ? OR LOWER(specialties.name) LIKE ?",
			like, like, like).
		Order("users.last_name asc, users.first_name asc").
		Find(&doctors).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to search doctors", Err: err})
		return
	}

	results := make([]DoctorSearchResult, 0, len(doctors))
	for _, d := range doctors {
		specialty := ""
		if d.Specialty != nil {
			specialty = d.Specialty.Name
		}
		// Names and picture paths are user-controlled; escape them before
		// they end up inside rendered HTML on the client.
		results = append(results, DoctorSearchResult{
			DoctorID:        d.ID,
			DoctorName:      html.EscapeString(d.FullName()),
			DoctorSpecialty: specialty,
			DoctorImg:       html.EscapeString(d.Picture),
		})
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: results})
}
