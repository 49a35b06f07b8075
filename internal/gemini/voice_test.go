package gemini

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTranscribeVoice(t *testing.T) {
	t.Parallel()

	t.Run("returns transcript", func(t *testing.T) {
		t.Parallel()
		gen := &mockGenerator{response: textResponse("  打车去机场 八十五块\n")}
		c := NewClientWithGenerator(gen)

		got, err := c.TranscribeVoice(context.Background(), []byte("OggS"), "audio/ogg", "zh-CN")
		require.NoError(t, err)
		require.Equal(t, "打车去机场 八十五块", got)
		require.Equal(t, "audio/ogg", gen.lastParts[0].InlineData.MIMEType)
		require.Contains(t, gen.promptText(), "zh-CN")
	})

	t.Run("defaults mime type and language", func(t *testing.T) {
		t.Parallel()
		gen := &mockGenerator{response: textResponse("咖啡 30")}
		c := NewClientWithGenerator(gen)

		_, err := c.TranscribeVoice(context.Background(), []byte("OggS"), "", "")
		require.NoError(t, err)
		require.Equal(t, "audio/ogg", gen.lastParts[0].InlineData.MIMEType)
		require.Contains(t, gen.promptText(), DefaultVoiceLanguage)
	})

	t.Run("blank transcript", func(t *testing.T) {
		t.Parallel()
		c := NewClientWithGenerator(&mockGenerator{response: textResponse("   ")})

		_, err := c.TranscribeVoice(context.Background(), []byte("OggS"), "audio/ogg", "zh-CN")
		require.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		c := NewClientWithGenerator(&mockGenerator{block: true},
			WithTimeouts(Timeouts{Voice: 10 * time.Millisecond}))

		_, err := c.TranscribeVoice(context.Background(), []byte("OggS"), "audio/ogg", "zh-CN")
		require.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("empty audio", func(t *testing.T) {
		t.Parallel()
		c := NewClientWithGenerator(&mockGenerator{})

		_, err := c.TranscribeVoice(context.Background(), nil, "audio/ogg", "zh-CN")
		require.Error(t, err)
	})
}
