package bot

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/smart-finance/internal/extraction"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
)

// handleVoice handles voice messages for expense input.
func (b *Bot) handleVoice(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleVoiceCore(ctx, tgBot, update)
}

// handleVoiceCore is the testable implementation of handleVoice.
// A recording that cannot be transcribed is dropped without a reply.
func (b *Bot) handleVoiceCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.Voice == nil {
		return
	}

	chatID := update.Message.Chat.ID
	chatHash := logger.HashChatID(chatID)

	audio, err := b.downloadFile(ctx, tg, update.Message.Voice.FileID)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", chatHash).Msg("Failed to download voice file")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ 语音下载失败，请重试。",
		})
		return
	}

	mimeType := update.Message.Voice.MimeType
	if mimeType == "" {
		mimeType = "audio/ogg"
	}

	expense, err := b.ledger.AddFromVoice(ctx, sessionKey(chatID), audio, mimeType)
	if errors.Is(err, extraction.ErrVoiceCapture) {
		logger.Log.Info().Err(err).Str("chat_hash", chatHash).Msg("Voice capture abandoned")
		return
	}
	if err != nil {
		logger.Log.Warn().Err(err).Str("chat_hash", chatHash).Msg("Failed to add expense from voice")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      extractionErrorText(err),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      "🎙️ " + formatAddedExpense(expense),
		ParseMode: models.ParseModeHTML,
	})
}
