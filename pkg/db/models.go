package db

import (
	"time"

	"gorm.io/datatypes"
)

type Deck struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      int64  `gorm:"index;uniqueIndex:idx_user_deck_name"` // To keep decks separate for each user
	Name        string `gorm:"not null;uniqueIndex:idx_user_deck_name"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Flashcard struct {
	ID          uint    `gorm:"primaryKey"`
	DeckID      uint    `gorm:"index"`
	UserID      int64   `gorm:"index;index:idx_user_due"` // denormalized owner for due queries
	Question    string  `gorm:"not null"`
	Answer      string  `gorm:"not null"`
	ReviewCount int     `gorm:"not null;default:0"`
	SuccessRate float64 `gorm:"not null;default:0"`
	// Last rating applied to this card; empty until the first review.
	Difficulty     string `gorm:"not null;default:''"`
	LastReviewedAt *time.Time
	// Nil means the card has never been reviewed and is due immediately.
	NextReviewDate *time.Time `gorm:"index:idx_user_due"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type UserStreak struct {
	ID            uint  `gorm:"primaryKey"`
	UserID        int64 `gorm:"uniqueIndex"`
	CurrentStreak int   `gorm:"not null;default:0"`
	LongestStreak int   `gorm:"not null;default:0"`
	LastStudyDate *time.Time
	StreakFreezes int `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserStats holds the cumulative counters the achievement evaluator reads.
type UserStats struct {
	ID                 uint  `gorm:"primaryKey"`
	UserID             int64 `gorm:"uniqueIndex"`
	TotalSessions      int   `gorm:"not null;default:0"`
	TotalCardsReviewed int   `gorm:"not null;default:0"`
	MaxCardsPerDay     int   `gorm:"not null;default:0"`
	DecksCreated       int   `gorm:"not null;default:0"`
	CardsCreated       int   `gorm:"not null;default:0"`
	// Accuracy values are percentages in [0,100].
	BestSessionAccuracy float64 `gorm:"not null;default:0"`
	BestSessionMinutes  int     `gorm:"not null;default:0"`
	MaxDailyMinutes     int     `gorm:"not null;default:0"`
	TotalMinutes        int     `gorm:"not null;default:0"`
	OnTimeReviews       int     `gorm:"not null;default:0"`
	AllDailyReviewDays  int     `gorm:"not null;default:0"`
	DaysWithoutOverdue  int     `gorm:"not null;default:0"`
	LastCleanDay        *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DailyActivity accumulates one row per user per calendar day. Feeds the
// cards_per_day, daily_minutes and monthly_accuracy achievement conditions.
type DailyActivity struct {
	ID              uint      `gorm:"primaryKey"`
	UserID          int64     `gorm:"uniqueIndex:idx_user_day"`
	Day             time.Time `gorm:"type:date;not null;uniqueIndex:idx_user_day"`
	CardsReviewed   int       `gorm:"not null;default:0"`
	WeightedCorrect float64   `gorm:"not null;default:0"`
	Minutes         int       `gorm:"not null;default:0"`
}

// AchievementUnlock records a single monotone unlock per (user, achievement).
type AchievementUnlock struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        int64     `gorm:"uniqueIndex:idx_user_achievement"`
	AchievementID string    `gorm:"not null;uniqueIndex:idx_user_achievement"`
	UnlockedAt    time.Time `gorm:"not null"`
}

type UserSettings struct {
	ID                  uint  `gorm:"primaryKey"`
	UserID              int64 `gorm:"index"`
	CardsPerSession     int   `gorm:"default:10"`
	ReminderMorning     bool  `gorm:"not null;default:false"`
	ReminderAfternoon   bool  `gorm:"not null;default:false"`
	ReminderEvening     bool  `gorm:"not null;default:false"`
	TimezoneOffsetHours int   `gorm:"not null;default:0"`
	LastReminderSentAt  *time.Time
}

// StudySession is the persisted state of an in-flight study session, so an
// interrupted session survives a restart.
type StudySession struct {
	ID                uint           `gorm:"primaryKey"`
	ChatID            int64          `gorm:"index;uniqueIndex:idx_study_session_user_chat"`
	UserID            int64          `gorm:"index;uniqueIndex:idx_study_session_user_chat"`
	CardIDs           datatypes.JSON `gorm:"not null"`
	CurrentIndex      int            `gorm:"not null;default:0"`
	CurrentToken      string         `gorm:"not null;default:''"`
	CurrentMessageID  int            `gorm:"not null;default:0"`
	CurrentPromptText string         `gorm:"not null;default:''"`
	ReviewedCount     int            `gorm:"not null;default:0"`
	WeightedCorrect   float64        `gorm:"not null;default:0"`
	StartedAt         time.Time      `gorm:"not null"`
	LastActivityAt    time.Time      `gorm:"not null"`
	ExpiresAt         time.Time      `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
