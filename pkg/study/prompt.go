package study

import (
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/msmirnov/tg-flashdeck/pkg/db"
)

const GradeCallbackPrefix = "s:grade:"

// BuildPrompt renders a card as question with the answer behind a spoiler.
func BuildPrompt(card db.Flashcard) string {
	return fmt.Sprintf("%s\n\n||%s||", bot.EscapeMarkdown(card.Question), bot.EscapeMarkdown(card.Answer))
}

func BuildKeyboard(token string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Hard", CallbackData: fmt.Sprintf("%s%s:hard", GradeCallbackPrefix, token)},
				{Text: "Medium", CallbackData: fmt.Sprintf("%s%s:medium", GradeCallbackPrefix, token)},
				{Text: "Easy", CallbackData: fmt.Sprintf("%s%s:easy", GradeCallbackPrefix, token)},
			},
		},
	}
}
