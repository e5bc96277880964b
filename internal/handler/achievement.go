package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"biketrail/internal/middleware"
	"biketrail/internal/service"
)

// AchievementHandler handles HTTP requests for achievements.
type AchievementHandler struct {
	achievementService *service.AchievementService
}

// NewAchievementHandler creates a new AchievementHandler.
func NewAchievementHandler(achievementService *service.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievementService: achievementService}
}

// AchievementResponse is one achievement and the rider's progress toward it.
type AchievementResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
	Progress    int    `json:"progress"`
}

// List handles GET /v1/achievements
func (h *AchievementHandler) List(c *gin.Context) {
	achievements, err := h.achievementService.ListAchievements(c.Request.Context(), middleware.RiderID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]AchievementResponse, 0, len(achievements))
	for _, a := range achievements {
		response = append(response, AchievementResponse{
			ID:          string(a.ID),
			Title:       a.Title,
			Description: a.Description,
			Unlocked:    a.Unlocked,
			Progress:    a.Progress,
		})
	}
	respondJSON(c, http.StatusOK, response)
}
