package extraction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/smart-finance/internal/exchange"
	"gitlab.com/yelinaung/smart-finance/internal/gemini"
	"gitlab.com/yelinaung/smart-finance/internal/models"
)

type mockParser struct {
	mu sync.Mutex

	text       *gemini.ExpenseCandidate
	textErr    error
	items      []gemini.ExpenseCandidate
	itemsErr   error
	transcript string
	voiceErr   error

	textCalls     int
	documentCalls int
	lastText      string
	lastMIME      string
	lastLanguage  string
}

func (m *mockParser) ParseExpenseText(_ context.Context, text string) (*gemini.ExpenseCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textCalls++
	m.lastText = text
	return m.text, m.textErr
}

func (m *mockParser) ParseExpenseDocument(_ context.Context, _ []byte, mimeType string) ([]gemini.ExpenseCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documentCalls++
	m.lastMIME = mimeType
	return m.items, m.itemsErr
}

func (m *mockParser) TranscribeVoice(_ context.Context, _ []byte, _ string, language string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLanguage = language
	return m.transcript, m.voiceErr
}

type stubConverter struct {
	result exchange.ConversionResult
	err    error
}

func (s stubConverter) Convert(_ context.Context, _ decimal.Decimal, _, _ string) (exchange.ConversionResult, error) {
	return s.result, s.err
}

func amountPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestGateway(p Parser, opts ...Option) *Gateway {
	return NewGateway(p, append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrExtractionFailed)
	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, kind, ee.Kind)
}

func TestExtractFromText(t *testing.T) {
	t.Parallel()

	t.Run("lunch example", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{text: &gemini.ExpenseCandidate{
			Description: "吃午饭", Amount: amountPtr("20"), Category: "餐饮", Type: "Need", Currency: "CNY",
		}}
		g := newTestGateway(p)

		fields, err := g.ExtractFromText(context.Background(), "  吃午饭20元  ")
		require.NoError(t, err)
		require.Equal(t, "吃午饭", fields.Description)
		require.True(t, decimal.NewFromInt(20).Equal(fields.Amount))
		require.Equal(t, "餐饮", fields.Category)
		require.Equal(t, models.ExpenseTypeNeed, fields.Type)
		require.Equal(t, fixedNow, fields.Date)
		require.Equal(t, "吃午饭20元", p.lastText)
	})

	t.Run("type is normalised and blank category defaults", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{text: &gemini.ExpenseCandidate{
			Description: "电影票", Amount: amountPtr("45.5"), Type: " want ",
		}}
		fields, err := newTestGateway(p).ExtractFromText(context.Background(), "电影票45.5")
		require.NoError(t, err)
		require.Equal(t, models.ExpenseTypeWant, fields.Type)
		require.Equal(t, models.DefaultCategory, fields.Category)
	})

	t.Run("empty input makes no call", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{}
		_, err := newTestGateway(p).ExtractFromText(context.Background(), "   ")
		requireKind(t, err, KindInput)
		require.ErrorIs(t, err, ErrEmptyInput)
		require.Zero(t, p.textCalls)
	})

	invalid := []struct {
		name      string
		candidate gemini.ExpenseCandidate
	}{
		{"missing amount", gemini.ExpenseCandidate{Description: "咖啡", Category: "餐饮", Type: "Want"}},
		{"zero amount", gemini.ExpenseCandidate{Description: "咖啡", Amount: amountPtr("0"), Type: "Want"}},
		{"negative amount", gemini.ExpenseCandidate{Description: "咖啡", Amount: amountPtr("-3"), Type: "Want"}},
		{"missing description", gemini.ExpenseCandidate{Amount: amountPtr("12"), Type: "Want"}},
		{"unknown type", gemini.ExpenseCandidate{Description: "咖啡", Amount: amountPtr("12"), Type: "Maybe"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &mockParser{text: &tt.candidate}
			_, err := newTestGateway(p).ExtractFromText(context.Background(), "咖啡")
			requireKind(t, err, KindParse)
		})
	}

	clientErrors := []struct {
		name string
		err  error
		kind Kind
	}{
		{"malformed", gemini.ErrMalformedResponse, KindParse},
		{"empty", gemini.ErrEmptyResponse, KindParse},
		{"timeout", gemini.ErrTimeout, KindService},
		{"network", errors.New("connection reset"), KindService},
	}
	for _, tt := range clientErrors {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &mockParser{textErr: tt.err}
			_, err := newTestGateway(p).ExtractFromText(context.Background(), "咖啡12")
			requireKind(t, err, tt.kind)
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestExtractFromText_Currency(t *testing.T) {
	t.Parallel()

	usd := gemini.ExpenseCandidate{
		Description: "Coffee", Amount: amountPtr("5"), Category: "餐饮", Type: "Want", Currency: "usd",
	}

	t.Run("converted", func(t *testing.T) {
		t.Parallel()
		conv := stubConverter{result: exchange.ConversionResult{
			Amount:   decimal.RequireFromString("36.125"),
			Rate:     decimal.RequireFromString("7.225"),
			RateDate: time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		}}
		c := usd
		g := newTestGateway(&mockParser{text: &c}, WithConverter(conv))

		fields, err := g.ExtractFromText(context.Background(), "coffee 5 dollars")
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("36.13").Equal(fields.Amount))
		require.Equal(t, "Coffee [orig: 5.00 USD -> 36.13 CNY @ 7.2250 (2026-03-13)]", fields.Description)
	})

	t.Run("lookup failure keeps amount", func(t *testing.T) {
		t.Parallel()
		c := usd
		g := newTestGateway(&mockParser{text: &c}, WithConverter(stubConverter{err: errors.New("down")}))

		fields, err := g.ExtractFromText(context.Background(), "coffee 5 dollars")
		require.NoError(t, err)
		require.True(t, decimal.NewFromInt(5).Equal(fields.Amount))
		require.Equal(t, "Coffee [fx_unavailable: kept USD, target CNY]", fields.Description)
	})

	t.Run("no converter", func(t *testing.T) {
		t.Parallel()
		c := usd
		fields, err := newTestGateway(&mockParser{text: &c}).ExtractFromText(context.Background(), "coffee")
		require.NoError(t, err)
		require.Contains(t, fields.Description, "[fx_unavailable:")
	})

	t.Run("base currency untouched", func(t *testing.T) {
		t.Parallel()
		c := usd
		c.Currency = "CNY"
		g := newTestGateway(&mockParser{text: &c}, WithConverter(stubConverter{err: errors.New("unused")}))
		fields, err := g.ExtractFromText(context.Background(), "coffee")
		require.NoError(t, err)
		require.Equal(t, "Coffee", fields.Description)
	})

	t.Run("custom base currency", func(t *testing.T) {
		t.Parallel()
		c := usd
		g := newTestGateway(&mockParser{text: &c}, WithBaseCurrency("usd"))
		fields, err := g.ExtractFromText(context.Background(), "coffee")
		require.NoError(t, err)
		require.Equal(t, "Coffee", fields.Description)

		c.Currency = "CNY"
		fields, err = newTestGateway(&mockParser{text: &c}, WithBaseCurrency("usd")).
			ExtractFromText(context.Background(), "coffee")
		require.NoError(t, err)
		require.Equal(t, "Coffee [fx_unavailable: kept CNY, target USD]", fields.Description)
	})

	t.Run("RMB is the base currency", func(t *testing.T) {
		t.Parallel()
		c := usd
		c.Currency = "rmb"
		g := newTestGateway(&mockParser{text: &c}, WithConverter(stubConverter{err: errors.New("unused")}))
		fields, err := g.ExtractFromText(context.Background(), "coffee")
		require.NoError(t, err)
		require.Equal(t, "Coffee", fields.Description)
		require.True(t, decimal.NewFromInt(5).Equal(fields.Amount))
	})
}

func TestExtractFromText_KeepsModelValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		description string
		amount      string
		want        string
	}{
		{name: "three decimals", description: "加油", amount: "12.345", want: "加油"},
		{name: "sub-cent amount", description: "短信费", amount: "0.004", want: "短信费"},
		{name: "quotes kept", description: `他说"好"的书`, amount: "39", want: `他说"好"的书`},
		{name: "whitespace trimmed", description: "  咖啡  ", amount: "18", want: "咖啡"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &mockParser{text: &gemini.ExpenseCandidate{
				Description: tt.description, Amount: amountPtr(tt.amount), Type: "Want", Currency: "CNY",
			}}
			fields, err := newTestGateway(p).ExtractFromText(context.Background(), "x")
			require.NoError(t, err)
			require.True(t, decimal.RequireFromString(tt.amount).Equal(fields.Amount), fields.Amount.String())
			require.Equal(t, tt.want, fields.Description)
		})
	}

	t.Run("long description is capped", func(t *testing.T) {
		t.Parallel()
		long := strings.Repeat("书", gemini.MaxDescriptionLength+20)
		p := &mockParser{text: &gemini.ExpenseCandidate{Description: long, Amount: amountPtr("1"), Type: "Want"}}
		fields, err := newTestGateway(p).ExtractFromText(context.Background(), "x")
		require.NoError(t, err)
		require.Len(t, []rune(fields.Description), gemini.MaxDescriptionLength)
	})
}

func TestExtractFromFile(t *testing.T) {
	t.Parallel()

	t.Run("dates are normalised", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{items: []gemini.ExpenseCandidate{
			{Description: "超市", Amount: amountPtr("88.8"), Category: "购物", Type: "Need", Date: "2026-03-01"},
			{Description: "奶茶", Amount: amountPtr("15"), Category: "餐饮", Type: "Want"},
		}}
		out, err := newTestGateway(p).ExtractFromFile(context.Background(), []byte("%PDF"), "application/pdf")
		require.NoError(t, err)
		require.Len(t, out, 2)
		require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), out[0].Date)
		require.Equal(t, fixedNow, out[1].Date)
		require.Equal(t, "application/pdf", p.lastMIME)
	})

	t.Run("mime parameters are stripped", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{items: []gemini.ExpenseCandidate{
			{Description: "打车", Amount: amountPtr("30"), Category: "交通", Type: "Need"},
		}}
		_, err := newTestGateway(p).ExtractFromFile(context.Background(), []byte{0xff}, "Image/PNG; charset=binary")
		require.NoError(t, err)
		require.Equal(t, "image/png", p.lastMIME)
	})

	t.Run("one bad item rejects the batch", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{items: []gemini.ExpenseCandidate{
			{Description: "超市", Amount: amountPtr("88.8"), Category: "购物", Type: "Need"},
			{Description: "奶茶", Category: "餐饮", Type: "Want"},
		}}
		out, err := newTestGateway(p).ExtractFromFile(context.Background(), []byte{1}, "image/jpeg")
		requireKind(t, err, KindParse)
		require.Contains(t, err.Error(), "item 1")
		require.Nil(t, out)
	})

	t.Run("bad date rejects the batch", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{items: []gemini.ExpenseCandidate{
			{Description: "超市", Amount: amountPtr("88.8"), Category: "购物", Type: "Need", Date: "03/01"},
		}}
		_, err := newTestGateway(p).ExtractFromFile(context.Background(), []byte{1}, "image/jpeg")
		requireKind(t, err, KindParse)
		require.Contains(t, err.Error(), "item 0")
	})

	t.Run("unsupported media", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{}
		_, err := newTestGateway(p).ExtractFromFile(context.Background(), []byte{1}, "text/plain")
		requireKind(t, err, KindInput)
		require.ErrorIs(t, err, ErrUnsupportedMedia)
		require.Zero(t, p.documentCalls)
	})

	t.Run("empty payload", func(t *testing.T) {
		t.Parallel()
		_, err := newTestGateway(&mockParser{}).ExtractFromFile(context.Background(), nil, "image/png")
		requireKind(t, err, KindInput)
		require.ErrorIs(t, err, ErrEmptyInput)
	})

	noRecords := []struct {
		name  string
		items []gemini.ExpenseCandidate
		err   error
	}{
		{"empty array", nil, nil},
		{"not an array", nil, gemini.ErrNoRecords},
		{"empty response", nil, gemini.ErrEmptyResponse},
	}
	for _, tt := range noRecords {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &mockParser{items: tt.items, itemsErr: tt.err}
			_, err := newTestGateway(p).ExtractFromFile(context.Background(), []byte{1}, "image/png")
			requireKind(t, err, KindNoRecords)
		})
	}

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{itemsErr: gemini.ErrMalformedResponse}
		_, err := newTestGateway(p).ExtractFromFile(context.Background(), []byte{1}, "image/png")
		requireKind(t, err, KindParse)
	})
}

func TestExtractFromVoice(t *testing.T) {
	t.Parallel()

	t.Run("transcript feeds text extraction", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{
			transcript: "打车三十元",
			text:       &gemini.ExpenseCandidate{Description: "打车", Amount: amountPtr("30"), Category: "交通", Type: "Need"},
		}
		fields, err := newTestGateway(p, WithVoiceLanguage("zh-TW")).
			ExtractFromVoice(context.Background(), []byte{1, 2}, "audio/ogg")
		require.NoError(t, err)
		require.Equal(t, "打车", fields.Description)
		require.Equal(t, "打车三十元", p.lastText)
		require.Equal(t, "zh-TW", p.lastLanguage)
	})

	t.Run("capture failure", func(t *testing.T) {
		t.Parallel()
		p := &mockParser{voiceErr: gemini.ErrEmptyResponse}
		_, err := newTestGateway(p).ExtractFromVoice(context.Background(), []byte{1}, "audio/ogg")
		require.ErrorIs(t, err, ErrVoiceCapture)
		require.ErrorIs(t, err, ErrExtractionFailed)
		require.Zero(t, p.textCalls)
		require.Equal(t, gemini.DefaultVoiceLanguage, p.lastLanguage)
	})

	t.Run("empty recording", func(t *testing.T) {
		t.Parallel()
		_, err := newTestGateway(&mockParser{}).ExtractFromVoice(context.Background(), nil, "audio/ogg")
		requireKind(t, err, KindInput)
	})

	for _, mime := range []string{"application/pdf", "image/png", "", "text/plain"} {
		t.Run("rejects "+mime, func(t *testing.T) {
			t.Parallel()
			p := &mockParser{transcript: "unused"}
			_, err := newTestGateway(p).ExtractFromVoice(context.Background(), []byte{1}, mime)
			requireKind(t, err, KindInput)
			require.ErrorIs(t, err, ErrUnsupportedMedia)
			require.Empty(t, p.lastLanguage)
		})
	}
}

func TestSupportedAudio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mime string
		want bool
	}{
		{"audio/ogg", true},
		{"Audio/MPEG", true},
		{"audio/ogg; codecs=opus", true},
		{"video/mp4", false},
		{"application/pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, SupportedAudio(tt.mime))
		})
	}
}

func TestSupportedDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mime string
		want bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"IMAGE/WEBP", true},
		{"application/pdf", true},
		{"application/pdf; qs=0.5", true},
		{"text/plain", false},
		{"audio/ogg", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, SupportedDocument(tt.mime))
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "parse", KindParse.String())
	require.Equal(t, "no_records", KindNoRecords.String())
	require.Equal(t, "input", KindInput.String())
	require.Equal(t, "service", KindService.String())
	require.Equal(t, KindService, KindOf(errors.New("other")))
}
