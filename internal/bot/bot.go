// Package bot provides the Telegram front-end for the expense ledger.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/smart-finance/internal/config"
	"gitlab.com/yelinaung/smart-finance/internal/ledger"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const pollTimeout = time.Minute

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot        *bot.Bot
	cfg        *config.Config
	ledger     *ledger.Service
	httpClient *http.Client
	now        func() time.Time
}

// New creates a new Bot instance.
func New(cfg *config.Config, svc *ledger.Service) (*Bot, error) {
	b := newBot(cfg, svc)

	opts := []bot.Option{
		bot.WithMiddlewares(b.whitelistMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithHTTPClient(pollTimeout, &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, svc *ledger.Service) *Bot {
	return &Bot{
		cfg:    cfg,
		ledger: svc,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   downloadTimeout,
		},
		now: time.Now,
	}
}

// Start begins polling for updates. It returns when ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// registerHandlers sets up command handlers.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleHelp)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/list", bot.MatchTypePrefix, b.handleList)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/total", bot.MatchTypePrefix, b.handleTotal)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/delete", bot.MatchTypePrefix, b.handleDelete)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/chart", bot.MatchTypePrefix, b.handleChart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/advice", bot.MatchTypePrefix, b.handleAdvice)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/export", bot.MatchTypePrefix, b.handleExport)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackDeletePrefix, bot.MatchTypePrefix, b.handleDeleteCallback)
	b.bot.RegisterHandlerMatchFunc(isVoice, b.handleVoice)
	b.bot.RegisterHandlerMatchFunc(isPhoto, b.handlePhoto)
	b.bot.RegisterHandlerMatchFunc(isDocument, b.handleDocument)
}

func isVoice(update *tgmodels.Update) bool {
	return update.Message != nil && update.Message.Voice != nil
}

func isPhoto(update *tgmodels.Update) bool {
	return update.Message != nil && len(update.Message.Photo) > 0
}

func isDocument(update *tgmodels.Update) bool {
	return update.Message != nil && update.Message.Document != nil
}

// whitelistMiddleware checks if the user is whitelisted before processing.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if !b.authorize(ctx, tgBot, update) {
			return
		}
		next(ctx, tgBot, update)
	}
}

// authorize reports whether the sender may use the bot, replying to
// rejected senders.
func (b *Bot) authorize(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) bool {
	userID := extractUserID(update)
	if userID == 0 {
		return false
	}

	username := extractUsername(update)
	logUserAction(userID, update)

	if b.cfg.IsUserWhitelisted(userID, username) {
		return true
	}

	logger.Log.Warn().
		Str("user_hash", logger.HashUserID(userID)).
		Msg("Blocked non-whitelisted user")
	if update.Message != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "⛔ 抱歉，你没有使用此机器人的权限。",
		})
	}
	return false
}

// logUserAction logs the kind of input without its content.
func logUserAction(userID int64, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("chat_hash", logger.HashChatID(msg.Chat.ID))

		switch {
		case msg.Voice != nil:
			event = event.Str("type", "voice").Int("duration", msg.Voice.Duration)
		case len(msg.Photo) > 0:
			event = event.Str("type", "photo")
		case msg.Document != nil:
			event = event.Str("type", "document").Str("mime_type", msg.Document.MimeType)
		default:
			event = event.Str("type", "text").Int("length", len(msg.Text))
		}

		event.Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Msg("Callback query")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	return ""
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// sessionKey identifies the chat for the ledger's in-flight guard.
func sessionKey(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

// defaultHandler treats any other text as an expense description.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleFreeTextCore(ctx, tgBot, update)
}
