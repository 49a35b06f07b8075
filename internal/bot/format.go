package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gitlab.com/yelinaung/smart-finance/internal/extraction"
	"gitlab.com/yelinaung/smart-finance/internal/ledger"
	appmodels "gitlab.com/yelinaung/smart-finance/internal/models"
	"gitlab.com/yelinaung/smart-finance/internal/report"
)

// maxMessageLength is Telegram's limit for a single text message.
const maxMessageLength = 4096

const (
	msgExtractionFailed = "❌ 无法识别这笔消费，请换个说法再试一次。\n例如：<code>午饭 25元</code>"
	msgBusy             = "⏳ 上一条记录还在处理中，请稍候。"
	msgNotConfigured    = "⚙️ AI 功能未配置，暂时无法识别消费。"
	msgSaveFailed       = "❌ 保存失败，请稍后重试。"
	msgNoRecords        = "📭 暂无记录，发送一条消息开始记账吧！"
	msgNoChartData      = "📊 暂无数据，快去记一笔吧！"
)

// escapeHTML escapes user content for HTML parse mode.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func typeLabel(t appmodels.ExpenseType) string {
	switch t {
	case appmodels.ExpenseTypeNeed:
		return "Need (必须)"
	case appmodels.ExpenseTypeWant:
		return "Want (想要)"
	default:
		return string(t)
	}
}

func formatAddedExpense(e appmodels.Expense) string {
	return fmt.Sprintf(`✅ <b>已记录</b>

📝 %s
💰 %s
📁 %s
🏷 %s
📅 %s
🆔 <code>%s</code>`,
		escapeHTML(e.Description),
		report.FormatAmount(e.Amount),
		escapeHTML(e.Category),
		typeLabel(e.Type),
		e.Date.Format(time.DateOnly),
		e.ID)
}

func formatExpenseLine(i int, e appmodels.Expense) string {
	return fmt.Sprintf("%d. %s %s · %s (%s) [%s]\n    <code>%s</code>",
		i,
		e.Date.Format("01-02"),
		escapeHTML(e.Description),
		report.FormatAmount(e.Amount),
		escapeHTML(e.Category),
		e.Type,
		shortID(e.ID))
}

// shortID is the prefix shown in lists and accepted by /delete.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func formatImported(res ledger.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ <b>已导入 %d 笔消费</b>\n\n", res.Count)
	total := report.Summarize(res.Records).Total
	for i, e := range res.Records {
		sb.WriteString(formatExpenseLine(i+1, e))
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n合计: %s", report.FormatAmount(total))
	return sb.String()
}

func formatSummary(s report.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 <b>总支出: %s</b>\n共 %d 笔\n", report.FormatAmount(s.Total), s.Count)

	if len(s.ByType) > 0 {
		sb.WriteString("\n<b>Need vs Want</b>\n")
		for _, sl := range s.ByType {
			fmt.Fprintf(&sb, "• %s: %s (%s)\n", sl.Name, report.FormatAmount(sl.Amount), percent(sl, s))
		}
	}
	if len(s.ByCategory) > 0 {
		sb.WriteString("\n<b>分类</b>\n")
		for _, sl := range s.ByCategory {
			fmt.Fprintf(&sb, "• %s: %s\n", escapeHTML(sl.Name), report.FormatAmount(sl.Amount))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func percent(part report.Slice, s report.Summary) string {
	if s.Total.IsZero() {
		return "0%"
	}
	return part.Amount.Div(s.Total).Shift(2).StringFixed(1) + "%"
}

// extractionErrorText maps a ledger error to the reply shown to the user.
// Every extraction failure shares one message.
func extractionErrorText(err error) string {
	switch {
	case errors.Is(err, ledger.ErrBusy):
		return msgBusy
	case errors.Is(err, ledger.ErrNotConfigured):
		return msgNotConfigured
	case errors.Is(err, extraction.ErrUnsupportedMedia):
		return "❌ 只支持图片或 PDF 文件。"
	case errors.Is(err, extraction.ErrExtractionFailed):
		return msgExtractionFailed
	default:
		return msgSaveFailed
	}
}

// splitMessage breaks text into chunks Telegram will accept, preferring
// line boundaries.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for line := range strings.SplitAfterSeq(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if n+lineLen > limit {
			flush()
		}
		for lineLen > limit {
			runes := []rune(line)
			chunks = append(chunks, string(runes[:limit]))
			line = string(runes[limit:])
			lineLen -= limit
		}
		cur.WriteString(line)
		n += lineLen
	}
	flush()

	return chunks
}
