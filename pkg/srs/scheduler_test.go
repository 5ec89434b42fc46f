package srs

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/internal/testutil"
)

func TestParseDifficulty(t *testing.T) {
	for _, value := range []string{"easy", "Medium", " hard "} {
		if _, err := ParseDifficulty(value); err != nil {
			t.Fatalf("expected %q to parse, got %v", value, err)
		}
	}
	if _, err := ParseDifficulty("again"); !errors.Is(err, ErrInvalidDifficulty) {
		t.Fatalf("expected ErrInvalidDifficulty, got %v", err)
	}
	if _, err := ParseDifficulty(""); !errors.Is(err, ErrInvalidDifficulty) {
		t.Fatalf("expected ErrInvalidDifficulty for empty value, got %v", err)
	}
}

func TestApplyReviewIntervalsIgnorePreviousDueDate(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	longOverdue := now.AddDate(0, 0, -45)

	cases := []struct {
		difficulty Difficulty
		days       int
	}{
		{DifficultyHard, 1},
		{DifficultyMedium, 3},
		{DifficultyEasy, 7},
	}
	for _, tc := range cases {
		card := db.Flashcard{NextReviewDate: &longOverdue}
		ApplyReview(&card, tc.difficulty, now)
		want := now.AddDate(0, 0, tc.days)
		if card.NextReviewDate == nil || !card.NextReviewDate.Equal(want) {
			t.Fatalf("%s: expected due %v, got %v", tc.difficulty, want, card.NextReviewDate)
		}
		if card.LastReviewedAt == nil || !card.LastReviewedAt.Equal(now) {
			t.Fatalf("%s: expected last reviewed %v, got %v", tc.difficulty, now, card.LastReviewedAt)
		}
	}
}

func TestApplyReviewRunningAverage(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	card := db.Flashcard{}

	ApplyReview(&card, DifficultyEasy, now)
	if card.ReviewCount != 1 || card.SuccessRate != 1.0 {
		t.Fatalf("expected count 1 rate 1.0, got %+v", card)
	}

	ApplyReview(&card, DifficultyHard, now)
	if card.ReviewCount != 2 || card.SuccessRate != 0.5 {
		t.Fatalf("expected count 2 rate 0.5, got %+v", card)
	}

	ApplyReview(&card, DifficultyMedium, now)
	want := (0.5*2 + 0.5) / 3
	if card.ReviewCount != 3 || math.Abs(card.SuccessRate-want) > 1e-12 {
		t.Fatalf("expected count 3 rate %v, got %+v", want, card)
	}
}

func TestApplyReviewRateStaysBounded(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	card := db.Flashcard{}
	ratings := []Difficulty{
		DifficultyEasy, DifficultyEasy, DifficultyHard, DifficultyMedium,
		DifficultyHard, DifficultyEasy, DifficultyMedium, DifficultyHard,
	}
	for i, rating := range ratings {
		ApplyReview(&card, rating, now)
		if card.ReviewCount != i+1 {
			t.Fatalf("after %d reviews expected count %d, got %d", i+1, i+1, card.ReviewCount)
		}
		if card.SuccessRate < 0 || card.SuccessRate > 1 {
			t.Fatalf("success rate out of bounds after %d reviews: %v", i+1, card.SuccessRate)
		}
	}
}

func TestReviewFlashcardPersists(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	s := NewScheduler(gdb, func() time.Time { return now })

	card := db.Flashcard{UserID: 42, DeckID: 1, Question: "q", Answer: "a"}
	if err := gdb.Create(&card).Error; err != nil {
		t.Fatalf("failed to seed card: %v", err)
	}

	outcome, err := s.ReviewFlashcard(context.Background(), 42, card.ID, DifficultyEasy)
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if outcome.Card.ReviewCount != 1 || outcome.Card.SuccessRate != 1.0 {
		t.Fatalf("unexpected outcome card %+v", outcome.Card)
	}

	var stored db.Flashcard
	if err := gdb.First(&stored, card.ID).Error; err != nil {
		t.Fatalf("failed to reload card: %v", err)
	}
	if stored.ReviewCount != 1 || stored.SuccessRate != 1.0 || stored.Difficulty != "easy" {
		t.Fatalf("unexpected stored card %+v", stored)
	}
	if stored.NextReviewDate == nil || !stored.NextReviewDate.UTC().Equal(now.AddDate(0, 0, 7)) {
		t.Fatalf("expected due in 7d, got %v", stored.NextReviewDate)
	}

	// Second review with hard: count 2, rate (1+0)/2, due at +1d.
	outcome, err = s.ReviewFlashcard(context.Background(), 42, card.ID, DifficultyHard)
	if err != nil {
		t.Fatalf("second review failed: %v", err)
	}
	if outcome.Card.ReviewCount != 2 || outcome.Card.SuccessRate != 0.5 {
		t.Fatalf("unexpected second outcome %+v", outcome.Card)
	}
	if !outcome.Card.NextReviewDate.Equal(now.AddDate(0, 0, 1)) {
		t.Fatalf("expected due in 1d, got %v", outcome.Card.NextReviewDate)
	}
}

func TestReviewFlashcardRejectsBadInput(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	s := NewScheduler(gdb, nil)

	if _, err := s.ReviewFlashcard(context.Background(), 42, 1, Difficulty("again")); !errors.Is(err, ErrInvalidDifficulty) {
		t.Fatalf("expected ErrInvalidDifficulty, got %v", err)
	}
	if _, err := s.ReviewFlashcard(context.Background(), 42, 999, DifficultyEasy); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestReviewFlashcardScopedToOwner(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	s := NewScheduler(gdb, nil)

	card := db.Flashcard{UserID: 42, DeckID: 1, Question: "q", Answer: "a"}
	if err := gdb.Create(&card).Error; err != nil {
		t.Fatalf("failed to seed card: %v", err)
	}

	if _, err := s.ReviewFlashcard(context.Background(), 43, card.ID, DifficultyEasy); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound for foreign card, got %v", err)
	}

	var stored db.Flashcard
	if err := gdb.First(&stored, card.ID).Error; err != nil {
		t.Fatalf("failed to reload card: %v", err)
	}
	if stored.ReviewCount != 0 {
		t.Fatalf("foreign review must not write, got %+v", stored)
	}
}

func TestReviewFlashcardOnTime(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	now := time.Date(2025, 1, 2, 22, 0, 0, 0, time.UTC)
	s := NewScheduler(gdb, func() time.Time { return now })

	dueToday := now.Add(-10 * time.Hour)
	onTimeCard := db.Flashcard{UserID: 7, Question: "q1", Answer: "a1", NextReviewDate: &dueToday}
	neverReviewed := db.Flashcard{UserID: 7, Question: "q2", Answer: "a2"}
	for _, c := range []*db.Flashcard{&onTimeCard, &neverReviewed} {
		if err := gdb.Create(c).Error; err != nil {
			t.Fatalf("failed to seed card: %v", err)
		}
	}

	outcome, err := s.ReviewFlashcard(context.Background(), 7, onTimeCard.ID, DifficultyMedium)
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if !outcome.OnTime {
		t.Fatal("expected same-day review to count as on time")
	}

	outcome, err = s.ReviewFlashcard(context.Background(), 7, neverReviewed.ID, DifficultyMedium)
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if outcome.OnTime {
		t.Fatal("never-reviewed card must not count as on time")
	}
}

func TestDueFlashcards(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	s := NewScheduler(gdb, func() time.Time { return now })

	past := now.Add(-time.Hour)
	future := now.Add(48 * time.Hour)
	cards := []db.Flashcard{
		{UserID: 9, DeckID: 1, Question: "due", Answer: "a", NextReviewDate: &past},
		{UserID: 9, DeckID: 1, Question: "fresh", Answer: "a"},
		{UserID: 9, DeckID: 2, Question: "other-deck", Answer: "a", NextReviewDate: &past},
		{UserID: 9, DeckID: 1, Question: "future", Answer: "a", NextReviewDate: &future},
		{UserID: 10, DeckID: 1, Question: "foreign", Answer: "a", NextReviewDate: &past},
	}
	for i := range cards {
		if err := gdb.Create(&cards[i]).Error; err != nil {
			t.Fatalf("failed to seed card: %v", err)
		}
	}

	got, err := s.DueFlashcards(context.Background(), 9, nil)
	if err != nil {
		t.Fatalf("due query failed: %v", err)
	}
	questions := make(map[string]bool, len(got))
	for _, card := range got {
		questions[card.Question] = true
	}
	if len(got) != 3 || !questions["due"] || !questions["fresh"] || !questions["other-deck"] {
		t.Fatalf("unexpected due set: %+v", questions)
	}

	deckID := uint(1)
	got, err = s.DueFlashcards(context.Background(), 9, &deckID)
	if err != nil {
		t.Fatalf("deck due query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 due cards in deck 1, got %d", len(got))
	}

	count, err := s.DueCount(context.Background(), 9)
	if err != nil {
		t.Fatalf("due count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected due count 3, got %d", count)
	}
}
