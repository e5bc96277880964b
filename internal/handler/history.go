package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biketrail/internal/domain"
	"biketrail/internal/middleware"
	"biketrail/internal/service"
)

// HistoryHandler handles HTTP requests for saved rides.
type HistoryHandler struct {
	historyService *service.HistoryService
	shareService   *service.ShareService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService *service.HistoryService, shareService *service.ShareService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		shareService:   shareService,
	}
}

// RideResponse is the HTTP response for a saved ride.
type RideResponse struct {
	ID         string             `json:"id"`
	RiderID    string             `json:"rider_id"`
	Statistics StatisticsResponse `json:"statistics"`
	Route      []FixResponse      `json:"route,omitempty"`
	StartedAt  string             `json:"started_at"`
	EndedAt    string             `json:"ended_at"`
	CreatedAt  string             `json:"created_at"`
}

// ShareResponse carries the text a rider shares about a ride.
type ShareResponse struct {
	RideID  string `json:"ride_id"`
	Message string `json:"message"`
}

// TotalsResponse sums a rider's saved rides.
type TotalsResponse struct {
	RideCount         int     `json:"ride_count"`
	DistanceKm        float64 `json:"distance_km"`
	ActiveTimeHours   float64 `json:"active_time_hours"`
	PausedSeconds     int64   `json:"paused_seconds"`
	LongestRideKm     float64 `json:"longest_ride_km"`
	FastestAverageKmh float64 `json:"fastest_average_kmh"`
}

// List handles GET /v1/rides?limit=
func (h *HistoryHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer"})
			return
		}
		limit = n
	}

	rides, err := h.historyService.ListRides(c.Request.Context(), middleware.RiderID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		response = append(response, toRideResponse(ride, false))
	}
	respondJSON(c, http.StatusOK, response)
}

// Get handles GET /v1/rides/:id
func (h *HistoryHandler) Get(c *gin.Context) {
	ride, err := h.historyService.GetRide(c.Request.Context(), middleware.RiderID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride, true))
}

// Share handles GET /v1/rides/:id/share?format=summary
func (h *HistoryHandler) Share(c *gin.Context) {
	ride, err := h.historyService.GetRide(c.Request.Context(), middleware.RiderID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := h.shareService.FormatShareMessage(ride)
	if c.Query("format") == "summary" {
		message = h.shareService.FormatRideSummary(ride)
	}
	respondJSON(c, http.StatusOK, ShareResponse{RideID: ride.ID, Message: message})
}

// Totals handles GET /v1/rides/totals
func (h *HistoryHandler) Totals(c *gin.Context) {
	totals, err := h.historyService.Totals(c.Request.Context(), middleware.RiderID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, TotalsResponse{
		RideCount:         totals.RideCount,
		DistanceKm:        round2(totals.DistanceKm),
		ActiveTimeHours:   round2(totals.ActiveTimeHours),
		PausedSeconds:     totals.PausedSeconds,
		LongestRideKm:     round2(totals.LongestRideKm),
		FastestAverageKmh: round2(totals.FastestAverageKmh),
	})
}

func toRideResponse(ride *domain.Ride, withRoute bool) RideResponse {
	response := RideResponse{
		ID:         ride.ID,
		RiderID:    ride.RiderID,
		Statistics: toStatisticsResponse(ride.Statistics),
		StartedAt:  formatTime(ride.StartedAt),
		EndedAt:    formatTime(ride.EndedAt),
		CreatedAt:  formatTime(ride.CreatedAt),
	}
	if withRoute {
		response.Route = toFixResponses(ride.Route)
	}
	return response
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
