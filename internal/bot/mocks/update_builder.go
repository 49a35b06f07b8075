package mocks

import (
	"github.com/go-telegram/bot/models"
)

// UpdateBuilder assembles Telegram updates the way a private chat with the bot produces them.
type UpdateBuilder struct {
	update *models.Update
}

// NewUpdateBuilder starts an empty update.
func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{update: &models.Update{}}
}

func privateChat(chatID int64) models.Chat {
	return models.Chat{ID: chatID, Type: "private"}
}

func sender(userID int64) models.User {
	return models.User{ID: userID, FirstName: "Test", Username: "testuser"}
}

// WithMessage sets a private-chat message.
func (b *UpdateBuilder) WithMessage(chatID, userID int64, text string) *UpdateBuilder {
	from := sender(userID)
	b.update.Message = &models.Message{ID: 1, Chat: privateChat(chatID), From: &from, Text: text}
	return b
}

// WithFrom replaces the sender on whichever of message or callback query is set.
func (b *UpdateBuilder) WithFrom(userID int64, username, firstName, lastName string) *UpdateBuilder {
	user := models.User{ID: userID, Username: username, FirstName: firstName, LastName: lastName}
	if b.update.Message != nil {
		b.update.Message.From = &user
	}
	if b.update.CallbackQuery != nil {
		b.update.CallbackQuery.From = user
	}
	return b
}

// WithCallbackQuery sets an inline button press on a previously sent message.
func (b *UpdateBuilder) WithCallbackQuery(callbackID string, chatID, userID int64, messageID int, data string) *UpdateBuilder {
	b.update.CallbackQuery = &models.CallbackQuery{
		ID:   callbackID,
		From: sender(userID),
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: messageID, Chat: privateChat(chatID)},
		},
		Data: data,
	}
	return b
}

func (b *UpdateBuilder) message() *models.Message {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	return b.update.Message
}

// WithPhoto attaches a receipt photo in two sizes; handlers pick the largest.
func (b *UpdateBuilder) WithPhoto(fileID string) *UpdateBuilder {
	b.message().Photo = []models.PhotoSize{
		{FileID: fileID + "_thumb", FileUniqueID: fileID + "_thumb_u", Width: 320, Height: 240},
		{FileID: fileID, FileUniqueID: fileID + "_u", Width: 1280, Height: 960},
	}
	return b
}

// WithDocument attaches a statement or receipt file.
func (b *UpdateBuilder) WithDocument(fileID, fileName, mimeType string) *UpdateBuilder {
	b.message().Document = &models.Document{
		FileID:       fileID,
		FileUniqueID: fileID + "_u",
		FileName:     fileName,
		MimeType:     mimeType,
	}
	return b
}

// WithVoice attaches an OGG voice note.
func (b *UpdateBuilder) WithVoice(fileID string, duration int) *UpdateBuilder {
	b.message().Voice = &models.Voice{
		FileID:       fileID,
		FileUniqueID: fileID + "_u",
		Duration:     duration,
		MimeType:     "audio/ogg",
	}
	return b
}

// Build returns the update.
func (b *UpdateBuilder) Build() *models.Update {
	return b.update
}

// MessageUpdate is a plain text message, such as "吃午饭20元".
func MessageUpdate(chatID, userID int64, text string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, text).Build()
}

// CommandUpdate is a slash command with optional arguments.
func CommandUpdate(chatID, userID int64, command string) *models.Update {
	return MessageUpdate(chatID, userID, command)
}

// CallbackQueryUpdate is a press of an inline button carrying data.
func CallbackQueryUpdate(chatID, userID int64, messageID int, data string) *models.Update {
	return NewUpdateBuilder().WithCallbackQuery("callback-query-id", chatID, userID, messageID, data).Build()
}

// DocumentUpdate is an uploaded file.
func DocumentUpdate(chatID, userID int64, fileID, fileName, mimeType string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, "").WithDocument(fileID, fileName, mimeType).Build()
}

// PhotoUpdate is an uploaded photo.
func PhotoUpdate(chatID, userID int64, fileID string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, "").WithPhoto(fileID).Build()
}

// VoiceUpdate is a recorded voice note.
func VoiceUpdate(chatID, userID int64, fileID string, duration int) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, "").WithVoice(fileID, duration).Build()
}
