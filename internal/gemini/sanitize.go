package gemini

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"gitlab.com/yelinaung/smart-finance/internal/models"
)

// MaxDescriptionLength is the maximum allowed length for expense descriptions.
const MaxDescriptionLength = 200

// MaxInputLength bounds free text embedded in a prompt.
const MaxInputLength = 1000

// SanitizeForPrompt sanitizes user input to prevent prompt injection attacks.
// It removes or escapes characters that could break prompt structure,
// and truncates to maxLength runes.
func SanitizeForPrompt(input string, maxLength int) string {
	input = strings.ReplaceAll(input, `"`, `'`)
	input = strings.ReplaceAll(input, "`", "'")
	input = strings.ReplaceAll(input, "\x00", "")

	// Collapses newlines and runs of spaces.
	input = strings.Join(strings.Fields(input), " ")

	if runes := []rune(input); len(runes) > maxLength {
		input = strings.TrimSpace(string(runes[:maxLength]))
	}

	return input
}

// SanitizeCategoryName sanitizes a category name for safe embedding in prompts.
func SanitizeCategoryName(name string) string {
	return SanitizeForPrompt(name, models.MaxCategoryNameLength)
}

// stripCodeFence removes a surrounding Markdown code block.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// extractJSON extracts a JSON object from text that may contain preamble.
// Gemini sometimes returns responses like "Here is the JSON:\n{...}" even
// when ResponseMIMEType is set to application/json.
func extractJSON(text string) string {
	return extractBetween(stripCodeFence(text), "{", "}")
}

// extractJSONArray is extractJSON for array responses.
func extractJSONArray(text string) string {
	return extractBetween(stripCodeFence(text), "[", "]")
}

func extractBetween(text, open, closing string) string {
	start := strings.Index(text, open)
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(text, closing)
	if end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}

// hashInput creates a SHA256 hash of user input for secure logging.
func hashInput(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}

// hashBytes is hashInput for binary payloads.
func hashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
