package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	appmodels "gitlab.com/yelinaung/smart-finance/internal/models"
)

const callbackDeletePrefix = "del:"

// buildDeleteKeyboard offers one delete button per listed expense, five per row.
func buildDeleteKeyboard(expenses []appmodels.Expense) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for i, e := range expenses {
		row = append(row, models.InlineKeyboardButton{
			Text:         fmt.Sprintf("🗑 %d", i+1),
			CallbackData: callbackDeletePrefix + e.ID,
		})
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// handleDeleteCallback handles presses of the delete buttons under /list.
func (b *Bot) handleDeleteCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteCallbackCore(ctx, tgBot, update)
}

// handleDeleteCallbackCore is the testable implementation of handleDeleteCallback.
func (b *Bot) handleDeleteCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	id := strings.TrimPrefix(query.Data, callbackDeletePrefix)
	result := b.deleteByRef(ctx, id)

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
	})

	msg := query.Message.Message
	if msg == nil {
		return
	}

	_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      result,
		ParseMode: models.ParseModeHTML,
	})
}
