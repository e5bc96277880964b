package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"biketrail/internal/domain"
	"biketrail/internal/location"
	"biketrail/internal/middleware"
	"biketrail/internal/redis"
	"biketrail/internal/service"
	"biketrail/internal/tracking"
)

// StreamRegistry hands out live progress subscriptions.
type StreamRegistry interface {
	Register(riderID string) *redis.StreamClient
	Unregister(client *redis.StreamClient)
}

// SessionHandler handles HTTP requests for the rider's live ride session.
type SessionHandler struct {
	trackingService *service.TrackingService
	streams         StreamRegistry
	upgrader        websocket.Upgrader
}

// NewSessionHandler creates a new SessionHandler. streams may be nil, in
// which case the stream endpoint is unavailable.
func NewSessionHandler(trackingService *service.TrackingService, streams StreamRegistry) *SessionHandler {
	return &SessionHandler{
		trackingService: trackingService,
		streams:         streams,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// StartSessionRequest is the HTTP request body for starting a ride.
type StartSessionRequest struct {
	PermissionGranted *bool `json:"permission_granted"`
}

// PushFixRequest is one position reported by the client.
type PushFixRequest struct {
	Latitude    *float64 `json:"latitude" binding:"required"`
	Longitude   *float64 `json:"longitude" binding:"required"`
	TimestampMs int64    `json:"timestamp_ms"`
	SpeedMps    *float64 `json:"speed_mps"`
}

// FixResponse is one route point in a response.
type FixResponse struct {
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	TimestampMs int64    `json:"timestamp_ms"`
	SpeedMps    *float64 `json:"speed_mps,omitempty"`
}

// StatisticsResponse is the ride statistics, rounded for display.
type StatisticsResponse struct {
	DistanceKm      float64 `json:"distance_km"`
	AverageSpeedKmh float64 `json:"average_speed_kmh"`
	ActiveTimeHours float64 `json:"active_time_hours"`
	PausedSeconds   int64   `json:"paused_seconds"`
}

// SessionResponse is the HTTP response for session operations.
type SessionResponse struct {
	RiderID         string             `json:"rider_id"`
	State           string             `json:"state"`
	Points          int                `json:"points"`
	Route           []FixResponse      `json:"route"`
	Statistics      StatisticsResponse `json:"statistics"`
	DistanceKm      float64            `json:"distance_km"`
	CurrentSpeedKmh float64            `json:"current_speed_kmh"`
	PausedSeconds   int64              `json:"paused_seconds"`
	Paused          bool               `json:"paused"`
	DroppedFixes    int                `json:"dropped_fixes"`
	StartedAt       string             `json:"started_at,omitempty"`
	StoppedAt       string             `json:"stopped_at,omitempty"`
}

// PushFixResponse acknowledges a queued fix.
type PushFixResponse struct {
	Status string `json:"status"`
}

// Start handles POST /v1/rides/session/start
func (h *SessionHandler) Start(c *gin.Context) {
	var req StartSessionRequest
	// An empty body means the client already holds location permission.
	// Chunked requests carry no length, so emptiness shows up as io.EOF.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	granted := true
	if req.PermissionGranted != nil {
		granted = *req.PermissionGranted
	}

	snap, err := h.trackingService.StartRide(c.Request.Context(), service.StartRideRequest{
		RiderID: middleware.RiderID(c),
		Source:  location.NewPushSource(granted),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toSessionResponse(middleware.RiderID(c), snap))
}

// Pause handles POST /v1/rides/session/pause
func (h *SessionHandler) Pause(c *gin.Context) {
	h.command(c, h.trackingService.PauseRide)
}

// Resume handles POST /v1/rides/session/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	h.command(c, h.trackingService.ResumeRide)
}

// Stop handles POST /v1/rides/session/stop
func (h *SessionHandler) Stop(c *gin.Context) {
	h.command(c, h.trackingService.StopRide)
}

// Get handles GET /v1/rides/session
func (h *SessionHandler) Get(c *gin.Context) {
	h.command(c, h.trackingService.Snapshot)
}

func (h *SessionHandler) command(c *gin.Context, op func(ctx context.Context, riderID string) (*tracking.Snapshot, error)) {
	riderID := middleware.RiderID(c)
	snap, err := op(c.Request.Context(), riderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toSessionResponse(riderID, snap))
}

// Save handles POST /v1/rides/session/save
func (h *SessionHandler) Save(c *gin.Context) {
	ride, err := h.trackingService.SaveRide(c.Request.Context(), middleware.RiderID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toRideResponse(ride, true))
}

// Discard handles POST /v1/rides/session/discard
func (h *SessionHandler) Discard(c *gin.Context) {
	if err := h.trackingService.DiscardRide(c.Request.Context(), middleware.RiderID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PushFix handles POST /v1/rides/session/fixes
func (h *SessionHandler) PushFix(c *gin.Context) {
	var req PushFixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	fix := domain.LocationFix{
		Latitude:        *req.Latitude,
		Longitude:       *req.Longitude,
		TimestampMillis: req.TimestampMs,
		SpeedMps:        req.SpeedMps,
	}
	if fix.TimestampMillis == 0 {
		fix.TimestampMillis = time.Now().UnixMilli()
	}

	if err := h.trackingService.PushFix(c.Request.Context(), middleware.RiderID(c), fix); err != nil {
		respondError(c, err)
		return
	}

	// Fixes are applied asynchronously; a fix that lands while paused is dropped.
	respondJSON(c, http.StatusAccepted, PushFixResponse{Status: "queued"})
}

// Stream handles GET /v1/rides/session/stream (websocket).
func (h *SessionHandler) Stream(c *gin.Context) {
	if h.streams == nil {
		respondJSON(c, http.StatusServiceUnavailable, ErrorResponse{Error: "live stream unavailable"})
		return
	}
	riderID := middleware.RiderID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[stream] upgrade error for rider %s: %v", riderID, err)
		return
	}

	client := h.streams.Register(riderID)
	log.Printf("[stream] rider %s subscriber connected", riderID)

	// Current progress first, when a ride exists.
	if progress, err := h.trackingService.Progress(c.Request.Context(), riderID); err == nil {
		if data, err := json.Marshal(progress); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.Send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader loop keeps the connection alive until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.streams.Unregister(client)
	log.Printf("[stream] rider %s subscriber disconnected", riderID)
}

// NearbyResponse is one rider in a nearby search.
type NearbyResponse struct {
	RiderID    string  `json:"rider_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
}

// Nearby handles GET /v1/riders/nearby?lat=&lng=&radius_km=
func (h *SessionHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		respondError(c, service.ErrInvalidLocation)
		return
	}
	radius := 5.0
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(c, service.ErrInvalidRadius)
			return
		}
		radius = r
	}

	riders, err := h.trackingService.NearbyRiders(c.Request.Context(), lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	self := middleware.RiderID(c)
	response := make([]NearbyResponse, 0, len(riders))
	for _, r := range riders {
		if r.RiderID == self {
			continue
		}
		response = append(response, NearbyResponse{
			RiderID:    r.RiderID,
			Latitude:   r.Lat,
			Longitude:  r.Lng,
			DistanceKm: r.DistanceKm,
		})
	}
	respondJSON(c, http.StatusOK, response)
}

func toFixResponses(fixes []domain.LocationFix) []FixResponse {
	out := make([]FixResponse, 0, len(fixes))
	for _, f := range fixes {
		out = append(out, FixResponse{
			Latitude:    f.Latitude,
			Longitude:   f.Longitude,
			TimestampMs: f.TimestampMillis,
			SpeedMps:    f.SpeedMps,
		})
	}
	return out
}

func toStatisticsResponse(stats domain.RideStatistics) StatisticsResponse {
	r := stats.Rounded()
	return StatisticsResponse{
		DistanceKm:      r.DistanceKm,
		AverageSpeedKmh: r.AverageSpeedKmh,
		ActiveTimeHours: r.ActiveTimeHours,
		PausedSeconds:   r.PausedSeconds,
	}
}

func toSessionResponse(riderID string, snap *tracking.Snapshot) SessionResponse {
	return SessionResponse{
		RiderID:         riderID,
		State:           string(snap.State),
		Points:          len(snap.Route),
		Route:           toFixResponses(snap.Route),
		Statistics:      toStatisticsResponse(snap.Statistics),
		DistanceKm:      snap.DistanceKm,
		CurrentSpeedKmh: snap.CurrentSpeedKmh,
		PausedSeconds:   snap.PausedSeconds,
		Paused:          snap.PauseOpen,
		DroppedFixes:    snap.DroppedFixes,
		StartedAt:       formatTime(snap.StartedAt),
		StoppedAt:       formatTime(snap.StoppedAt),
	}
}
