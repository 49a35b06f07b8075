package bot

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/smart-finance/internal/bot/mocks"
	appmodels "gitlab.com/yelinaung/smart-finance/internal/models"
)

func TestBuildDeleteKeyboard(t *testing.T) {
	t.Parallel()

	var expenses []appmodels.Expense
	for i := range 7 {
		expenses = append(expenses, appmodels.Expense{ID: fmt.Sprintf("id-%d", i)})
	}

	kb := buildDeleteKeyboard(expenses)
	require.Len(t, kb.InlineKeyboard, 2)
	require.Len(t, kb.InlineKeyboard[0], 5)
	require.Len(t, kb.InlineKeyboard[1], 2)
	require.Equal(t, "🗑 1", kb.InlineKeyboard[0][0].Text)
	require.Equal(t, "del:id-6", kb.InlineKeyboard[1][1].CallbackData)

	require.Empty(t, buildDeleteKeyboard(nil).InlineKeyboard)
}

func TestHandleDeleteCallbackCore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("deletes and edits the list message", func(t *testing.T) {
		t.Parallel()
		ext := &fakeExtractor{}
		b := setupTestBot(t, ext, nil)
		records := seed(t, b, ext, receiptBatch()...)
		mockBot := mocks.NewMockBot()

		b.handleDeleteCallbackCore(ctx, mockBot, mocks.CallbackQueryUpdate(1, 123456, 77, callbackDeletePrefix+records[1].ID))

		require.Len(t, mockBot.AnsweredCallbacks, 1)
		require.Equal(t, "callback-query-id", mockBot.AnsweredCallbacks[0].CallbackQueryID)
		edited := mockBot.LastEditedMessage()
		require.NotNil(t, edited)
		require.Equal(t, 77, edited.MessageID)
		require.Contains(t, edited.Text, "已删除: 奶茶")
		require.Len(t, b.ledger.List(), 1)
	})

	t.Run("already deleted", func(t *testing.T) {
		t.Parallel()
		ext := &fakeExtractor{}
		b := setupTestBot(t, ext, nil)
		records := seed(t, b, ext, lunchFields())
		mockBot := mocks.NewMockBot()
		update := mocks.CallbackQueryUpdate(1, 123456, 77, callbackDeletePrefix+records[0].ID)

		b.handleDeleteCallbackCore(ctx, mockBot, update)
		b.handleDeleteCallbackCore(ctx, mockBot, update)

		require.Len(t, mockBot.AnsweredCallbacks, 2)
		require.Contains(t, mockBot.LastEditedMessage().Text, "找不到")
	})

	t.Run("no callback query", func(t *testing.T) {
		t.Parallel()
		b := setupTestBot(t, &fakeExtractor{}, nil)
		mockBot := mocks.NewMockBot()

		b.handleDeleteCallbackCore(ctx, mockBot, mocks.MessageUpdate(1, 123456, "hi"))

		require.Empty(t, mockBot.AnsweredCallbacks)
	})
}
