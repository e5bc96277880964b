package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"biketrail/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRideStarted         NotificationType = "RIDE_STARTED"
	NotificationRidePaused          NotificationType = "RIDE_PAUSED"
	NotificationRideResumed         NotificationType = "RIDE_RESUMED"
	NotificationRideStopped         NotificationType = "RIDE_STOPPED"
	NotificationRideSaved           NotificationType = "RIDE_SAVED"
	NotificationAchievementUnlocked NotificationType = "ACHIEVEMENT_UNLOCKED"
)

// Notification represents a notification to be sent.
type Notification struct {
	ID          string
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService handles notification delivery.
type NotificationService struct{}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyRideStarted tells the rider that tracking has begun.
func (s *NotificationService) NotifyRideStarted(ctx context.Context, riderID string, startedAt time.Time) error {
	return s.send(ctx, Notification{
		Type:        NotificationRideStarted,
		RecipientID: riderID,
		Title:       "Ride Started",
		Message:     "Tracking started. Have a good ride!",
		Data: map[string]interface{}{
			"started_at": startedAt,
		},
	})
}

// NotifyRidePaused tells the rider that tracking is paused.
func (s *NotificationService) NotifyRidePaused(ctx context.Context, riderID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationRidePaused,
		RecipientID: riderID,
		Title:       "Ride Paused",
		Message:     "Your ride is paused. Halt time is not counted as riding time.",
	})
}

// NotifyRideResumed tells the rider that tracking continues.
func (s *NotificationService) NotifyRideResumed(ctx context.Context, riderID string, pausedSeconds int64) error {
	return s.send(ctx, Notification{
		Type:        NotificationRideResumed,
		RecipientID: riderID,
		Title:       "Ride Resumed",
		Message:     fmt.Sprintf("Welcome back. Total halt so far: %d seconds", pausedSeconds),
		Data: map[string]interface{}{
			"paused_seconds": pausedSeconds,
		},
	})
}

// NotifyRideStopped sends the final statistics of a ride.
func (s *NotificationService) NotifyRideStopped(ctx context.Context, riderID string, stats domain.RideStatistics) error {
	r := stats.Rounded()
	return s.send(ctx, Notification{
		Type:        NotificationRideStopped,
		RecipientID: riderID,
		Title:       "Ride Finished",
		Message:     fmt.Sprintf("You rode %.2f km in %.2f hours at %.2f km/h", r.DistanceKm, r.ActiveTimeHours, r.AverageSpeedKmh),
		Data: map[string]interface{}{
			"distance_km":       r.DistanceKm,
			"active_time_hours": r.ActiveTimeHours,
			"average_speed_kmh": r.AverageSpeedKmh,
			"paused_seconds":    r.PausedSeconds,
		},
	})
}

// NotifyRideSaved confirms that a ride was added to the rider's history.
func (s *NotificationService) NotifyRideSaved(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:        NotificationRideSaved,
		RecipientID: ride.RiderID,
		Title:       "Ride Saved",
		Message:     "Your journey has been saved to your history",
		Data: map[string]interface{}{
			"ride_id": ride.ID,
		},
	})
}

// NotifyAchievementUnlocked congratulates the rider on a new badge.
func (s *NotificationService) NotifyAchievementUnlocked(ctx context.Context, riderID string, achievement domain.Achievement) error {
	return s.send(ctx, Notification{
		Type:        NotificationAchievementUnlocked,
		RecipientID: riderID,
		Title:       "Achievement Unlocked",
		Message:     fmt.Sprintf("You earned %s: %s", achievement.Title, achievement.Description),
		Data: map[string]interface{}{
			"achievement_id": achievement.ID,
		},
	})
}

// send delivers a notification. Delivery is a log line; push channels are
// not wired.
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	notification.ID = uuid.New().String()
	notification.CreatedAt = time.Now()

	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		notification.Type, notification.RecipientID, notification.Title, notification.Message)

	return nil
}
