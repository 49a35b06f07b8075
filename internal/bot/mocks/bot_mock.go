// Package mocks provides an in-memory Telegram double for the expense handlers.
package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramAPI is the slice of the Bot API the expense handlers call.
// It is declared here so the bot package can alias it without a cycle.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
}

// SentMessage is a chat reply: confirmations, lists, totals and advice.
type SentMessage struct {
	ChatID      any
	Text        string
	ParseMode   models.ParseMode
	ReplyMarkup models.ReplyMarkup
}

// EditedMessage is an in-place rewrite, used after a delete button press.
type EditedMessage struct {
	ChatID    any
	MessageID int
	Text      string
}

// AnsweredCallback is the toast shown for a button press.
type AnsweredCallback struct {
	CallbackQueryID string
	Text            string
}

// SentDocument is an uploaded attachment such as a chart PNG or CSV export.
type SentDocument struct {
	ChatID   any
	Filename string
	Data     []byte
	Caption  string
}

var _ TelegramAPI = (*MockBot)(nil)

// MockBot records outbound traffic and serves canned file lookups.
type MockBot struct {
	mu sync.Mutex

	SentMessages      []SentMessage
	EditedMessages    []EditedMessage
	AnsweredCallbacks []AnsweredCallback
	SentDocuments     []SentDocument

	SendMessageError  error
	SendDocumentError error
	GetFileError      error

	// FileDownloadLinkToReturn usually points at an httptest server holding the upload.
	FileDownloadLinkToReturn string

	nextID int
}

// NewMockBot returns an empty MockBot.
func NewMockBot() *MockBot {
	return &MockBot{nextID: 1000}
}

func (m *MockBot) reply(chatID any) *models.Message {
	m.nextID++
	return &models.Message{ID: m.nextID, Chat: models.Chat{ID: chatIDToInt64(chatID)}}
}

// SendMessage records the reply unless SendMessageError is set.
func (m *MockBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendMessageError != nil {
		return nil, m.SendMessageError
	}
	m.SentMessages = append(m.SentMessages, SentMessage{
		ChatID:      params.ChatID,
		Text:        params.Text,
		ParseMode:   params.ParseMode,
		ReplyMarkup: params.ReplyMarkup,
	})

	msg := m.reply(params.ChatID)
	msg.Text = params.Text
	return msg, nil
}

// EditMessageText records the rewrite.
func (m *MockBot) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EditedMessages = append(m.EditedMessages, EditedMessage{
		ChatID:    params.ChatID,
		MessageID: params.MessageID,
		Text:      params.Text,
	})
	return &models.Message{ID: params.MessageID, Chat: models.Chat{ID: chatIDToInt64(params.ChatID)}, Text: params.Text}, nil
}

// AnswerCallbackQuery records the toast.
func (m *MockBot) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AnsweredCallbacks = append(m.AnsweredCallbacks, AnsweredCallback{
		CallbackQueryID: params.CallbackQueryID,
		Text:            params.Text,
	})
	return true, nil
}

// GetFile resolves any file id to a fixed path unless GetFileError is set.
func (m *MockBot) GetFile(_ context.Context, params *bot.GetFileParams) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetFileError != nil {
		return nil, m.GetFileError
	}
	return &models.File{FileID: params.FileID, FilePath: "uploads/" + params.FileID}, nil
}

// FileDownloadLink returns FileDownloadLinkToReturn, or an unroutable URL when unset.
func (m *MockBot) FileDownloadLink(f *models.File) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FileDownloadLinkToReturn != "" {
		return m.FileDownloadLinkToReturn
	}
	return "http://127.0.0.1:0/" + f.FilePath
}

// SendDocument records the upload body unless SendDocumentError is set.
func (m *MockBot) SendDocument(_ context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendDocumentError != nil {
		return nil, m.SendDocumentError
	}

	doc := SentDocument{ChatID: params.ChatID, Caption: params.Caption}
	if upload, ok := params.Document.(*models.InputFileUpload); ok {
		doc.Filename = upload.Filename
		if upload.Data != nil {
			doc.Data, _ = io.ReadAll(upload.Data)
		}
	}
	m.SentDocuments = append(m.SentDocuments, doc)

	msg := m.reply(params.ChatID)
	msg.Caption = params.Caption
	msg.Document = &models.Document{FileID: "doc-" + doc.Filename, FileName: doc.Filename}
	return msg, nil
}

func last[T any](m *MockBot, pick func(*MockBot) []T) *T {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := pick(m)
	if len(items) == 0 {
		return nil
	}
	item := items[len(items)-1]
	return &item
}

// LastSentMessage returns the newest reply, or nil.
func (m *MockBot) LastSentMessage() *SentMessage {
	return last(m, func(m *MockBot) []SentMessage { return m.SentMessages })
}

// LastEditedMessage returns the newest rewrite, or nil.
func (m *MockBot) LastEditedMessage() *EditedMessage {
	return last(m, func(m *MockBot) []EditedMessage { return m.EditedMessages })
}

// LastSentDocument returns the newest upload, or nil.
func (m *MockBot) LastSentDocument() *SentDocument {
	return last(m, func(m *MockBot) []SentDocument { return m.SentDocuments })
}

// Messages returns every reply text, oldest first.
func (m *MockBot) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.SentMessages))
	for _, msg := range m.SentMessages {
		out = append(out, msg.Text)
	}
	return out
}

// SentMessageCount returns the number of replies.
func (m *MockBot) SentMessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SentMessages)
}

// SentDocumentCount returns the number of uploads.
func (m *MockBot) SentDocumentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SentDocuments)
}

// LastCallbackData returns the callback payloads of the newest reply's inline keyboard.
func (m *MockBot) LastCallbackData() []string {
	msg := m.LastSentMessage()
	if msg == nil {
		return nil
	}
	kb, ok := msg.ReplyMarkup.(*models.InlineKeyboardMarkup)
	if !ok || kb == nil {
		return nil
	}
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, button := range row {
			data = append(data, button.CallbackData)
		}
	}
	return data
}

func chatIDToInt64(chatID any) int64 {
	switch v := chatID.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
