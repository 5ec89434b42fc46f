package srs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"gorm.io/gorm"
)

var ErrCardNotFound = errors.New("flashcard not found")

// Scheduler reschedules flashcards from review ratings and answers due
// queries. It has no knowledge of streaks or achievements.
type Scheduler struct {
	db  *gorm.DB
	now func() time.Time
}

func NewScheduler(gdb *gorm.DB, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{db: gdb, now: now}
}

// ReviewOutcome is the persisted result of a single review.
type ReviewOutcome struct {
	Card db.Flashcard
	// OnTime is set when the card was reviewed on its scheduled calendar day.
	OnTime bool
}

// ApplyReview mutates the card for one review at the given moment: bumps the
// review count, folds the rating weight into the running success-rate average
// and reschedules relative to now.
func ApplyReview(card *db.Flashcard, difficulty Difficulty, now time.Time) {
	if card == nil {
		return
	}
	card.ReviewCount++
	count := float64(card.ReviewCount)
	card.SuccessRate = (card.SuccessRate*(count-1) + difficulty.SuccessWeight()) / count
	card.Difficulty = string(difficulty)
	reviewedAt := now
	card.LastReviewedAt = &reviewedAt
	due := now.AddDate(0, 0, difficulty.IntervalDays())
	card.NextReviewDate = &due
}

// ReviewFlashcard applies one rating to the user's card and persists the
// result in a single transaction. Store errors are surfaced without retry.
func (s *Scheduler) ReviewFlashcard(ctx context.Context, userID int64, cardID uint, difficulty Difficulty) (ReviewOutcome, error) {
	var outcome ReviewOutcome
	if !difficulty.Valid() {
		return outcome, fmt.Errorf("%w: %q", ErrInvalidDifficulty, difficulty)
	}
	if cardID == 0 {
		return outcome, ErrCardNotFound
	}

	now := s.now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card db.Flashcard
		if err := tx.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCardNotFound
			}
			return fmt.Errorf("load flashcard: %w", err)
		}

		onTime := card.NextReviewDate != nil && sameCalendarDay(card.NextReviewDate.UTC(), now)
		ApplyReview(&card, difficulty, now)

		updates := map[string]any{
			"review_count":     card.ReviewCount,
			"success_rate":     card.SuccessRate,
			"difficulty":       card.Difficulty,
			"last_reviewed_at": card.LastReviewedAt,
			"next_review_date": card.NextReviewDate,
		}
		if err := tx.Model(&db.Flashcard{}).Where("id = ?", card.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("save review: %w", err)
		}

		outcome = ReviewOutcome{Card: card, OnTime: onTime}
		return nil
	})
	if err != nil {
		return ReviewOutcome{}, err
	}
	return outcome, nil
}

// DueFlashcards returns the user's cards whose next review date has passed or
// was never set. deckID narrows the result to one deck when non-nil.
func (s *Scheduler) DueFlashcards(ctx context.Context, userID int64, deckID *uint) ([]db.Flashcard, error) {
	now := s.now().UTC()
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("next_review_date IS NULL OR next_review_date <= ?", now)
	if deckID != nil {
		query = query.Where("deck_id = ?", *deckID)
	}

	var cards []db.Flashcard
	if err := query.Order("next_review_date ASC, id ASC").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("load due flashcards: %w", err)
	}
	return cards, nil
}

func (s *Scheduler) DueCount(ctx context.Context, userID int64) (int64, error) {
	now := s.now().UTC()
	var count int64
	err := s.db.WithContext(ctx).Model(&db.Flashcard{}).
		Where("user_id = ?", userID).
		Where("next_review_date IS NULL OR next_review_date <= ?", now).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count due flashcards: %w", err)
	}
	return count, nil
}

func sameCalendarDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
