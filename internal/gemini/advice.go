package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"google.golang.org/genai"
)

// GenerateAdvice asks the model for a Markdown report on the given expense ledger.
// The ledger is one "- date: description (category) - amount [type]" line per record.
func (c *Client) GenerateAdvice(ctx context.Context, ledger string) (string, error) {
	if strings.TrimSpace(ledger) == "" {
		return "", errors.New("ledger is required")
	}

	logger.Log.Debug().
		Int("ledger_lines", strings.Count(ledger, "\n")+1).
		Msg("GenerateAdvice called")

	raw, err := c.generate(ctx, "generate_advice", c.timeouts.Advice,
		userContent(&genai.Part{Text: buildAdvicePrompt(ledger)}), nil)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(raw), nil
}

func buildAdvicePrompt(ledger string) string {
	return fmt.Sprintf(`作为一位专业的理财顾问，请根据以下用户的近期消费记录进行深度分析并给出建议。

消费记录:
%s

请按以下结构生成一份中文 Markdown 报告:
1. **消费概览**: 总支出，以及 "Need" vs "Want" 的比例。
2. **消费习惯分析**: 识别哪些是不必要的开支 (Want)，哪些习惯可以改进。
3. **省钱与投资建议**: 具体建议可以省下多少钱，这些钱如果用于投资（如指数基金、理财产品）可能带来的长远收益。
4. **鼓励**: 鼓励用户养成更好的理财习惯。

语气要专业、诚恳且具有鼓励性。`, ledger)
}
