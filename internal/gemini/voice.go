package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"google.golang.org/genai"
)

// DefaultVoiceLanguage is the locale used when none is configured.
const DefaultVoiceLanguage = "zh-CN"

// MaxTranscriptLength bounds the transcript handed to text extraction.
const MaxTranscriptLength = 500

// TranscribeVoice converts a recording into a single final transcript.
func (c *Client) TranscribeVoice(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("audio data is required")
	}
	if mimeType == "" {
		mimeType = "audio/ogg"
	}
	if language == "" {
		language = DefaultVoiceLanguage
	}

	audioHash := hashBytes(audio)
	logger.Log.Debug().
		Str("audio_hash", audioHash).
		Str("mime_type", mimeType).
		Str("language", language).
		Msg("TranscribeVoice called")

	temp := float32(0)
	raw, err := c.generate(ctx, "transcribe_voice", c.timeouts.Voice,
		userContent(
			&genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: audio}},
			&genai.Part{Text: buildTranscriptionPrompt(language)},
		),
		&genai.GenerateContentConfig{Temperature: &temp})
	if err != nil {
		return "", err
	}

	transcript := SanitizeForPrompt(stripCodeFence(raw), MaxTranscriptLength)
	if transcript == "" {
		return "", ErrEmptyResponse
	}

	logger.Log.Debug().
		Str("audio_hash", audioHash).
		Str("transcript", logger.SanitizeText(transcript)).
		Msg("TranscribeVoice: transcript ready")

	return transcript, nil
}

func buildTranscriptionPrompt(language string) string {
	return fmt.Sprintf(`Transcribe this voice message verbatim. The speaker uses locale %s.
Return ONLY the final transcript as plain text in the spoken language.
Do not translate, summarise, or add commentary. Write spoken numbers as digits.`, strings.TrimSpace(language))
}
