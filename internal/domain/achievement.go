package domain

// AchievementID identifies an achievement.
type AchievementID string

const (
	AchievementCenturyRider AchievementID = "CENTURY_RIDER"
	AchievementSpeedDemon   AchievementID = "SPEED_DEMON"
	AchievementEarlyBird    AchievementID = "EARLY_BIRD"
	AchievementIronButt     AchievementID = "IRON_BUTT"
)

// Achievement is a rider's standing against one achievement.
type Achievement struct {
	ID          AchievementID
	Title       string
	Description string
	Unlocked    bool
	Progress    int // 0-100
}
