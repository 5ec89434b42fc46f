package study

import (
	"errors"
	"time"

	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const studySessionTTL = 24 * time.Hour

// Store persists in-flight study sessions so an interrupted session survives
// a restart.
type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func (s *Store) Load(chatID, userID int64, now time.Time) (*db.StudySession, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var session db.StudySession
	err := s.db.
		Where("chat_id = ? AND user_id = ? AND expires_at > ?", chatID, userID, now).
		First(&session).Error
	if err == nil {
		return &session, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (s *Store) Upsert(session *db.StudySession) error {
	if s == nil || s.db == nil || session == nil {
		return nil
	}
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = time.Now().UTC()
	}
	session.ExpiresAt = session.LastActivityAt.Add(studySessionTTL)

	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "chat_id"},
			{Name: "user_id"},
		},
		UpdateAll: true,
	}).Create(session).Error
}

func (s *Store) Delete(chatID, userID int64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Where("chat_id = ? AND user_id = ?", chatID, userID).
		Delete(&db.StudySession{}).Error
}
