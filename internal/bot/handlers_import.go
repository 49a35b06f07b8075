package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/smart-finance/internal/extraction"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
)

// handlePhoto imports expenses from a receipt or statement photo.
func (b *Bot) handlePhoto(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handlePhotoCore(ctx, tgBot, update)
}

// handlePhotoCore is the testable implementation of handlePhoto.
func (b *Bot) handlePhotoCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || len(update.Message.Photo) == 0 {
		return
	}

	largest := update.Message.Photo[len(update.Message.Photo)-1]
	b.importFile(ctx, tg, update.Message.Chat.ID, largest.FileID, "image/jpeg")
}

// handleDocument imports expenses from an image or PDF sent as a file.
func (b *Bot) handleDocument(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDocumentCore(ctx, tgBot, update)
}

// handleDocumentCore is the testable implementation of handleDocument.
func (b *Bot) handleDocumentCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.Document == nil {
		return
	}

	doc := update.Message.Document
	if !extraction.SupportedDocument(doc.MimeType) {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ 只支持图片或 PDF 文件。",
		})
		return
	}
	if doc.FileSize > maxDownloadBytes {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ 文件太大，最大支持 20MB。",
		})
		return
	}

	b.importFile(ctx, tg, update.Message.Chat.ID, doc.FileID, doc.MimeType)
}

func (b *Bot) importFile(ctx context.Context, tg TelegramAPI, chatID int64, fileID, mimeType string) {
	chatHash := logger.HashChatID(chatID)

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "📄 正在解析文件…",
	})

	data, err := b.downloadFile(ctx, tg, fileID)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", chatHash).Msg("Failed to download file")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ 文件下载失败，请重试。",
		})
		return
	}

	res, err := b.ledger.ImportDocument(ctx, sessionKey(chatID), data, mimeType)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("chat_hash", chatHash).
			Str("mime_type", mimeType).
			Msg("Failed to import document")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      extractionErrorText(err),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	for _, chunk := range splitMessage(formatImported(res), maxMessageLength) {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      chunk,
			ParseMode: models.ParseModeHTML,
		})
	}
}
