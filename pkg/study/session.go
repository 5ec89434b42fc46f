package study

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
	"gorm.io/datatypes"
)

type Session struct {
	chatID            int64
	userID            int64
	queue             []db.Flashcard
	cardIDs           []uint
	currentCard       *db.Flashcard
	currentToken      string
	currentMessageID  int
	currentPromptText string
	startedAt         time.Time
	lastActivityAt    time.Time
	currentIndex      int
	totalCards        int
	reviewedCount     int
	weightedCorrect   float64
}

func (s *Session) CurrentCard() *db.Flashcard {
	if s == nil {
		return nil
	}
	return s.currentCard
}

func (s *Session) CurrentToken() string {
	if s == nil {
		return ""
	}
	return s.currentToken
}

type SessionSnapshot struct {
	Card       db.Flashcard
	Token      string
	MessageID  int
	PromptText string
	HasPrompt  bool
	HasMessage bool
}

// Summary is the session's running tally; the handlers feed it to the stats
// recorder when the last card is graded.
type Summary struct {
	Reviewed        int
	Total           int
	WeightedCorrect float64
	StartedAt       time.Time
}

type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    *Store
	now      func() time.Time
}

func NewSessionManager(store *Store, now func() time.Time) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		store:    store,
		now:      now,
	}
}

const (
	SessionInactivityTimeout = 24 * time.Hour
	SessionSweeperInterval   = 10 * time.Minute
)

func (m *SessionManager) StartOrRestart(chatID, userID int64, cards []db.Flashcard) *Session {
	now := m.now()
	cardIDs := make([]uint, 0, len(cards))
	for _, card := range cards {
		if card.ID != 0 {
			cardIDs = append(cardIDs, card.ID)
		}
	}
	session := &Session{
		chatID:         chatID,
		userID:         userID,
		queue:          append([]db.Flashcard(nil), cards...),
		cardIDs:        cardIDs,
		startedAt:      now,
		lastActivityAt: now,
		currentIndex:   -1,
		totalCards:     len(cards),
	}
	key := getSessionKey(chatID, userID)
	m.mu.Lock()
	m.sessions[key] = session
	m.nextPromptLocked(session)
	row, err := buildStudySession(session)
	m.mu.Unlock()
	if err != nil {
		logger.Error("failed to build study session", "user_id", userID, "error", err)
		return session
	}
	if err := m.store.Upsert(row); err != nil {
		logger.Error("failed to persist study session", "user_id", userID, "error", err)
	}
	return session
}

// StartFromPersisted rebuilds an in-memory session from a persisted row after
// a restart. Cards deleted since the session started are skipped.
func (m *SessionManager) StartFromPersisted(row *db.StudySession, cards []db.Flashcard) (*Session, error) {
	if row == nil {
		return nil, errors.New("nil study session row")
	}
	var cardIDs []uint
	if err := json.Unmarshal(row.CardIDs, &cardIDs); err != nil {
		return nil, err
	}
	ordered := make([]db.Flashcard, 0, len(cardIDs))
	indexed := make(map[uint]db.Flashcard, len(cards))
	for _, card := range cards {
		if card.ID != 0 {
			indexed[card.ID] = card
		}
	}
	for _, id := range cardIDs {
		if card, ok := indexed[id]; ok {
			ordered = append(ordered, card)
		}
	}
	if row.CurrentIndex < 0 || row.CurrentIndex >= len(ordered) {
		return nil, errors.New("current index out of range")
	}

	session := &Session{
		chatID:            row.ChatID,
		userID:            row.UserID,
		queue:             append([]db.Flashcard(nil), ordered[row.CurrentIndex+1:]...),
		cardIDs:           cardIDs,
		currentCard:       &ordered[row.CurrentIndex],
		currentToken:      row.CurrentToken,
		currentMessageID:  row.CurrentMessageID,
		currentPromptText: row.CurrentPromptText,
		startedAt:         row.StartedAt,
		lastActivityAt:    row.LastActivityAt,
		currentIndex:      row.CurrentIndex,
		totalCards:        len(ordered),
		reviewedCount:     row.ReviewedCount,
		weightedCorrect:   row.WeightedCorrect,
	}
	key := getSessionKey(row.ChatID, row.UserID)
	m.mu.Lock()
	m.sessions[key] = session
	m.mu.Unlock()
	return session, nil
}

// MarkReviewed records a graded card with its recall weight and returns the
// running progress.
func (m *SessionManager) MarkReviewed(chatID, userID int64, weight float64) (int, int) {
	key := getSessionKey(chatID, userID)
	m.mu.Lock()
	session := m.sessions[key]
	if session == nil {
		m.mu.Unlock()
		return 0, 0
	}
	session.lastActivityAt = m.now()
	if session.reviewedCount < session.totalCards {
		session.reviewedCount++
		session.weightedCorrect += weight
	}
	row, err := buildStudySession(session)
	reviewedCount := session.reviewedCount
	totalCards := session.totalCards
	m.mu.Unlock()
	if err != nil {
		logger.Error("failed to build study session", "user_id", userID, "error", err)
		return reviewedCount, totalCards
	}
	if err := m.store.Upsert(row); err != nil {
		logger.Error("failed to persist study session", "user_id", userID, "error", err)
	}
	return reviewedCount, totalCards
}

func (m *SessionManager) GetSession(chatID, userID int64) *Session {
	key := getSessionKey(chatID, userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[key]
}

func (m *SessionManager) End(chatID, userID int64) {
	key := getSessionKey(chatID, userID)
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
	if err := m.store.Delete(chatID, userID); err != nil {
		logger.Error("failed to delete study session", "user_id", userID, "error", err)
	}
}

func (m *SessionManager) Snapshot(chatID, userID int64) (SessionSnapshot, bool) {
	key := getSessionKey(chatID, userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	session := m.sessions[key]
	if session == nil || session.currentCard == nil {
		return SessionSnapshot{}, false
	}
	return SessionSnapshot{
		Card:       *session.currentCard,
		Token:      session.currentToken,
		MessageID:  session.currentMessageID,
		PromptText: session.currentPromptText,
		HasPrompt:  session.currentPromptText != "",
		HasMessage: session.currentMessageID != 0,
	}, true
}

func (m *SessionManager) Summary(chatID, userID int64) (Summary, bool) {
	key := getSessionKey(chatID, userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	session := m.sessions[key]
	if session == nil {
		return Summary{}, false
	}
	return Summary{
		Reviewed:        session.reviewedCount,
		Total:           session.totalCards,
		WeightedCorrect: session.weightedCorrect,
		StartedAt:       session.startedAt,
	}, true
}

func (m *SessionManager) SetCurrentMessageID(session *Session, messageID int) {
	if session == nil {
		return
	}
	m.mu.Lock()
	session.currentMessageID = messageID
	row, err := buildStudySession(session)
	m.mu.Unlock()
	if err != nil {
		logger.Error("failed to build study session", "user_id", session.userID, "error", err)
		return
	}
	if err := m.store.Upsert(row); err != nil {
		logger.Error("failed to persist study session", "user_id", session.userID, "error", err)
	}
}

func (m *SessionManager) SetCurrentPromptText(session *Session, text string) {
	if session == nil {
		return
	}
	m.mu.Lock()
	session.currentPromptText = text
	row, err := buildStudySession(session)
	m.mu.Unlock()
	if err != nil {
		logger.Error("failed to build study session", "user_id", session.userID, "error", err)
		return
	}
	if err := m.store.Upsert(row); err != nil {
		logger.Error("failed to persist study session", "user_id", session.userID, "error", err)
	}
}

func (m *SessionManager) Touch(chatID, userID int64) {
	key := getSessionKey(chatID, userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	session := m.sessions[key]
	if session == nil {
		return
	}
	session.lastActivityAt = m.now()
}

// Advance moves to the next card. It returns nil when the queue is exhausted,
// in which case the session is removed.
func (m *SessionManager) Advance(chatID, userID int64) (*db.Flashcard, string) {
	key := getSessionKey(chatID, userID)
	m.mu.Lock()
	session := m.sessions[key]
	if session == nil {
		m.mu.Unlock()
		return nil, ""
	}
	session.lastActivityAt = m.now()
	if !m.nextPromptLocked(session) {
		delete(m.sessions, key)
		m.mu.Unlock()
		if err := m.store.Delete(chatID, userID); err != nil {
			logger.Error("failed to delete study session", "user_id", userID, "error", err)
		}
		return nil, ""
	}
	row, err := buildStudySession(session)
	if err != nil {
		logger.Error("failed to build study session", "user_id", userID, "error", err)
		m.mu.Unlock()
		return session.currentCard, session.currentToken
	}
	m.mu.Unlock()
	if err := m.store.Upsert(row); err != nil {
		logger.Error("failed to persist study session", "user_id", userID, "error", err)
	}
	return session.currentCard, session.currentToken
}

func (m *SessionManager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(SessionSweeperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepInactive(m.now())
		}
	}
}

func (m *SessionManager) SweepInactive(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, session := range m.sessions {
		if session == nil {
			delete(m.sessions, key)
			continue
		}
		if now.Sub(session.lastActivityAt) > SessionInactivityTimeout {
			delete(m.sessions, key)
		}
	}
}

func getSessionKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

func (m *SessionManager) nextPromptLocked(session *Session) bool {
	if session == nil {
		return false
	}
	if len(session.queue) == 0 {
		session.currentCard = nil
		return false
	}
	card := session.queue[0]
	session.queue = session.queue[1:]
	session.currentCard = &card
	session.currentToken = m.nextTokenLocked()
	session.currentMessageID = 0
	session.currentPromptText = ""
	session.currentIndex++
	return true
}

func (m *SessionManager) nextTokenLocked() string {
	return fmt.Sprintf("%x", rand.Int63())
}

func buildStudySession(session *Session) (*db.StudySession, error) {
	if session == nil {
		return nil, errors.New("nil session")
	}
	raw, err := json.Marshal(session.cardIDs)
	if err != nil {
		return nil, err
	}
	return &db.StudySession{
		ChatID:            session.chatID,
		UserID:            session.userID,
		CardIDs:           datatypes.JSON(raw),
		CurrentIndex:      session.currentIndex,
		CurrentToken:      session.currentToken,
		CurrentMessageID:  session.currentMessageID,
		CurrentPromptText: session.currentPromptText,
		ReviewedCount:     session.reviewedCount,
		WeightedCorrect:   session.weightedCorrect,
		StartedAt:         session.startedAt,
		LastActivityAt:    session.lastActivityAt,
	}, nil
}
