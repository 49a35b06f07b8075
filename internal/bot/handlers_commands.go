package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"gitlab.com/yelinaung/smart-finance/internal/report"
)

const listLimit = 10

// extractCommandArgs strips the command and an optional @botname suffix.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// formatGreeting returns a greeting suffix with the user's name.
func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return "，" + escapeHTML(firstName)
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 你好%s！

我是你的智能记账助手。直接告诉我你花了什么钱，我会自动识别金额、类别，以及它是 Need (必须) 还是 Want (想要)。

<b>快速开始：</b>
• 发送文字：<code>吃午饭20元</code>
• 发送语音：说出你的消费
• 发送小票照片或账单 PDF：批量导入

发送 /help 查看全部命令。`, formatGreeting(firstName))

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `📚 <b>可用命令</b>

<b>记账：</b>
• 直接发送文字，如 <code>打车 35</code>
• 发送语音消息
• 发送小票照片、图片或 PDF 账单

<b>查看：</b>
• /list - 最近的记录
• /total - 总支出与分类汇总
• /chart [category|type] - 分类或 Need/Want 饼图
• /export - 导出 CSV

<b>管理：</b>
• /delete &lt;ID&gt; - 删除一条记录

<b>理财：</b>
• /advice - AI 理财建议`

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
}

// handleList handles the /list command.
func (b *Bot) handleList(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleListCore(ctx, tgBot, update)
}

// handleListCore is the testable implementation of handleList.
func (b *Bot) handleListCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	recent := b.ledger.Recent(listLimit)
	if len(recent) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   msgNoRecords,
		})
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 <b>最近 %d 笔</b> (共 %d 笔)\n\n", len(recent), len(b.ledger.List()))
	for i, e := range recent {
		sb.WriteString(formatExpenseLine(i+1, e))
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n💰 总支出: %s", report.FormatAmount(b.ledger.Total()))

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        sb.String(),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: buildDeleteKeyboard(recent),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send expense list")
	}
}

// handleTotal handles the /total command.
func (b *Bot) handleTotal(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleTotalCore(ctx, tgBot, update)
}

// handleTotalCore is the testable implementation of handleTotal.
func (b *Bot) handleTotalCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      formatSummary(b.ledger.Summary()),
		ParseMode: models.ParseModeHTML,
	})
}

// handleDelete handles the /delete command.
func (b *Bot) handleDelete(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteCore(ctx, tgBot, update)
}

// handleDeleteCore is the testable implementation of handleDelete.
func (b *Bot) handleDeleteCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	arg := extractCommandArgs(update.Message.Text, "/delete")
	if arg == "" {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "用法: <code>/delete &lt;ID&gt;</code>\n在 /list 中可以看到每笔记录的 ID。",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      b.deleteByRef(ctx, arg),
		ParseMode: models.ParseModeHTML,
	})
}

// deleteByRef deletes the expense whose ID equals or uniquely starts with
// ref and returns the reply text.
func (b *Bot) deleteByRef(ctx context.Context, ref string) string {
	expense, err := b.ledger.Resolve(ref)
	if err != nil {
		return "❌ 找不到这笔记录。"
	}

	removed, err := b.ledger.Delete(ctx, expense.ID)
	if err != nil {
		logger.Log.Error().Err(err).Str("expense_id", expense.ID).Msg("Failed to delete expense")
		return "❌ 删除失败，请稍后重试。"
	}
	if !removed {
		return "❌ 找不到这笔记录。"
	}

	return fmt.Sprintf("🗑 已删除: %s %s", escapeHTML(expense.Description), report.FormatAmount(expense.Amount))
}

// handleAdvice handles the /advice command.
func (b *Bot) handleAdvice(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAdviceCore(ctx, tgBot, update)
}

// handleAdviceCore is the testable implementation of handleAdvice.
// Advice is sent as plain text since model Markdown is not reliably valid
// Telegram markup.
func (b *Bot) handleAdviceCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	if len(b.ledger.List()) > 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🤔 正在分析你的消费记录…",
		})
	}

	advice, err := b.ledger.Advice(ctx)
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      extractionErrorText(err),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	for _, chunk := range splitMessage(advice, maxMessageLength) {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		})
	}
}

// handleExport handles the /export command.
func (b *Bot) handleExport(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExportCore(ctx, tgBot, update)
}

// handleExportCore is the testable implementation of handleExport.
func (b *Bot) handleExportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	records := b.ledger.List()
	if len(records) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   msgNoRecords,
		})
		return
	}

	data, err := report.ExportCSV(records)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate CSV")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ 导出失败，请稍后重试。",
		})
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: report.ExportFilename(b.now()), Data: bytes.NewReader(data)},
		Caption:  fmt.Sprintf("📤 共 %d 笔，合计 %s", len(records), report.FormatAmount(b.ledger.Total())),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send CSV document")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ 发送文件失败，请稍后重试。",
		})
	}
}
