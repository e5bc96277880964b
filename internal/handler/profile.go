package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"biketrail/internal/domain"
	"biketrail/internal/middleware"
	"biketrail/internal/service"
)

// ProfileHandler handles HTTP requests for rider profiles.
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpdateProfileRequest is the HTTP request body for updating a profile.
type UpdateProfileRequest struct {
	Name             string  `json:"name"`
	Age              int     `json:"age"`
	WeightKg         float64 `json:"weight_kg"`
	HeightCm         float64 `json:"height_cm"`
	BloodType        string  `json:"blood_type"`
	EmergencyContact string  `json:"emergency_contact"`
	EmergencyPhone   string  `json:"emergency_phone"`
	PictureURL       string  `json:"picture_url"`
}

// ProfileResponse is the HTTP response for a profile.
type ProfileResponse struct {
	RiderID          string  `json:"rider_id"`
	Name             string  `json:"name"`
	Age              int     `json:"age"`
	WeightKg         float64 `json:"weight_kg"`
	HeightCm         float64 `json:"height_cm"`
	BloodType        string  `json:"blood_type"`
	EmergencyContact string  `json:"emergency_contact"`
	EmergencyPhone   string  `json:"emergency_phone"`
	PictureURL       string  `json:"picture_url,omitempty"`
	UpdatedAt        string  `json:"updated_at"`
}

// Get handles GET /v1/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.profileService.GetProfile(c.Request.Context(), middleware.RiderID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toProfileResponse(profile))
}

// Update handles PUT /v1/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	profile, err := h.profileService.UpdateProfile(c.Request.Context(), service.UpdateProfileRequest{
		RiderID:          middleware.RiderID(c),
		Name:             req.Name,
		Age:              req.Age,
		WeightKg:         req.WeightKg,
		HeightCm:         req.HeightCm,
		BloodType:        req.BloodType,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
		PictureURL:       req.PictureURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toProfileResponse(profile))
}

func toProfileResponse(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		RiderID:          p.RiderID,
		Name:             p.Name,
		Age:              p.Age,
		WeightKg:         p.WeightKg,
		HeightCm:         p.HeightCm,
		BloodType:        p.BloodType,
		EmergencyContact: p.EmergencyContact,
		EmergencyPhone:   p.EmergencyPhone,
		PictureURL:       p.PictureURL,
		UpdatedAt:        formatTime(p.UpdatedAt),
	}
}
