package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

const defaultHashSalt = "default-salt-change-in-production"

// MinHashSaltLength is the shortest LOG_HASH_SALT accepted by InitHashSalt.
const MinHashSaltLength = 32

var hashSalt = defaultHashSalt

// InitHashSalt installs the salt used by the hashing helpers.
// An empty salt keeps the built-in default.
func InitHashSalt(salt string) error {
	if salt == "" {
		Log.Warn().Msg("LOG_HASH_SALT not set, using default salt")
		hashSalt = defaultHashSalt
		return nil
	}
	if len(salt) < MinHashSaltLength {
		return fmt.Errorf("LOG_HASH_SALT must be at least %d characters", MinHashSaltLength)
	}
	hashSalt = salt
	return nil
}

// InitHashSaltForTesting sets the salt without validation.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

func hashWithSalt(value string) string {
	hash := sha256.Sum256([]byte(value + ":" + hashSalt))
	return hex.EncodeToString(hash[:])[:8]
}

// HashUserID creates a privacy-preserving hash of a user ID.
// This allows tracking user actions without exposing actual user IDs.
func HashUserID(userID int64) string {
	return hashWithSalt(fmt.Sprintf("%d", userID))
}

// HashChatID creates a privacy-preserving hash of a chat ID.
func HashChatID(chatID int64) string {
	return hashWithSalt(fmt.Sprintf("%d", chatID))
}

// HashSession hashes an opaque session key such as a client IP.
func HashSession(key string) string {
	if key == "" {
		return "<none>"
	}
	return hashWithSalt(key)
}

// SanitizeDescription removes or truncates sensitive information from descriptions.
// This redacts the description but preserves length information for debugging.
func SanitizeDescription(desc string) string {
	if desc == "" {
		return "<empty>"
	}

	words := strings.Fields(desc)
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(words), utf8.RuneCountInString(desc))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	runes := []rune(text)
	if len(runes) <= 10 {
		return fmt.Sprintf("<%d chars>", len(runes))
	}

	return fmt.Sprintf("%s...<%d chars>", string(runes[:3]), len(runes))
}
