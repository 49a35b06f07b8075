package bot

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
)

// handleFreeTextCore records any non-command text as an expense.
func (b *Bot) handleFreeTextCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🤔 未知命令，发送 /help 查看可用命令。",
		})
		return
	}

	expense, err := b.ledger.AddFromText(ctx, sessionKey(chatID), text)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("chat_hash", logger.HashChatID(chatID)).
			Msg("Failed to add expense from text")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      extractionErrorText(err),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      formatAddedExpense(expense),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send expense confirmation")
	}
}
