package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"gitlab.com/yelinaung/smart-finance/internal/report"
)

// handleChart handles the /chart command to generate breakdown charts.
func (b *Bot) handleChart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleChartCore(ctx, tgBot, update)
}

// handleChartCore is the testable implementation of handleChart.
func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	kind, err := report.ParseChartKind(extractCommandArgs(update.Message.Text, "/chart"))
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "❌ 图表类型无效。用法: <code>/chart category</code> 或 <code>/chart type</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	title := "消费分类"
	if kind == report.ChartNecessity {
		title = "Need vs Want"
	}

	records := b.ledger.List()
	chartData, err := report.Chart(kind, records)
	if errors.Is(err, report.ErrNoData) {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   msgNoChartData,
		})
		return
	}
	if err != nil {
		logger.Log.Error().Err(err).Str("kind", kind).Msg("Failed to generate chart")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ 生成图表失败，请稍后重试。",
		})
		return
	}

	caption := fmt.Sprintf("📊 <b>%s</b>\n\n总支出: %s\n共 %d 笔",
		title, report.FormatAmount(b.ledger.Total()), len(records))

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: report.ChartFilename(kind, b.now()), Data: bytes.NewReader(chartData)},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send chart document")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ 发送图表失败，请稍后重试。",
		})
		return
	}

	logger.Log.Info().
		Str("kind", kind).
		Int("expense_count", len(records)).
		Msg("Chart generated successfully")
}
