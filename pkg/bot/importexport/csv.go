package importexport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"gorm.io/gorm"
)

type cardInput struct {
	Question string
	Answer   string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const maxDelimiterSampleRecords = 20

// ParseDeckCSV reads question/answer rows, tolerating a UTF-8 BOM, an
// optional header row and comma, tab or semicolon delimiters. It returns the
// parsed cards and the number of skipped rows.
func ParseDeckCSV(data []byte) ([]cardInput, int, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	delimiter := detectCSVDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	var cards []cardInput
	skipped := 0
	checkedHeader := false

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, err
		}
		if isEmptyCSVRecord(record) {
			skipped++
			continue
		}
		if !checkedHeader {
			checkedHeader = true
			if isHeaderRecord(record) {
				continue
			}
		}
		if len(record) < 2 {
			skipped++
			continue
		}
		question := strings.TrimSpace(record[0])
		answer := strings.TrimSpace(record[1])
		if question == "" || answer == "" {
			skipped++
			continue
		}
		cards = append(cards, cardInput{
			Question: question,
			Answer:   answer,
		})
	}

	return cards, skipped, nil
}

func detectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', '\t', ';'}
	bestDelimiter := candidates[0]
	bestScore := -1

	for _, delimiter := range candidates {
		score, err := scoreDelimiter(data, delimiter, maxDelimiterSampleRecords)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestDelimiter = delimiter
		}
	}

	if bestScore <= 0 {
		return ','
	}
	return bestDelimiter
}

func scoreDelimiter(data []byte, delimiter rune, maxRecords int) (int, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	counts := make(map[int]int)
	recordsSeen := 0

	for recordsSeen < maxRecords {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if isEmptyCSVRecord(record) {
			continue
		}
		recordsSeen++

		if len(record) < 2 {
			continue
		}
		counts[len(record)]++
	}

	best := 0
	for _, score := range counts {
		if score > best {
			best = score
		}
	}
	return best, nil
}

func isEmptyCSVRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func isHeaderRecord(record []string) bool {
	if len(record) < 2 {
		return false
	}
	left := strings.ToLower(strings.TrimSpace(record[0]))
	right := strings.ToLower(strings.TrimSpace(record[1]))
	headers := map[string]struct{}{
		"question": {},
		"answer":   {},
		"front":    {},
		"back":     {},
	}
	_, leftOK := headers[left]
	_, rightOK := headers[right]
	return leftOK && rightOK
}

// UpsertFlashcards merges parsed cards into a deck. A row whose question
// already exists in the deck updates the answer and keeps the card's review
// state; new rows start unreviewed, so they are due immediately.
func UpsertFlashcards(gdb *gorm.DB, userID int64, deckID uint, cards []cardInput) (int, int, error) {
	inserted := 0
	updated := 0

	if len(cards) == 0 {
		return inserted, updated, nil
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		for _, card := range cards {
			result := tx.Model(&db.Flashcard{}).
				Where("user_id = ? AND deck_id = ? AND question = ?", userID, deckID, card.Question).
				Update("answer", card.Answer)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				updated++
				continue
			}

			newCard := db.Flashcard{
				UserID:   userID,
				DeckID:   deckID,
				Question: card.Question,
				Answer:   card.Answer,
			}
			if err := tx.Create(&newCard).Error; err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return inserted, updated, nil
}

func BuildExportCSV(cards []db.Flashcard) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.Write(utf8BOM); err != nil {
		return nil, err
	}

	writer := csv.NewWriter(&buf)
	writer.UseCRLF = true

	for _, card := range cards {
		if err := writer.Write([]string{card.Question, card.Answer}); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ExportFilename(now time.Time) string {
	return fmt.Sprintf("flashcards-%s.csv", now.Format("20060102"))
}

func SortCardsForExport(cards []db.Flashcard) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Question == cards[j].Question {
			return cards[i].ID < cards[j].ID
		}
		return cards[i].Question < cards[j].Question
	})
}
