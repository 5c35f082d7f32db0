// Package validation provides input validation and sanitization for
// replication messages arriving at the hub.
package validation

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Message size and content limits.
const (
	MaxMessageSize    = 16 * 1024 // a boat update is small; 16KB is generous
	MaxBoatNameLen    = 32
	MaxMessagesPerMin = 2400 // 40 updates/s, comfortably above any sane tick rate
)

// Boat names allow alphanumerics, spaces and light punctuation.
var validBoatNameChars = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.()]+$`)

// MessageValidator provides validation for inbound hub messages
type MessageValidator struct {
	rateLimiter *RateLimiter
}

// NewMessageValidator creates a new message validator with rate limiting
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{
		rateLimiter: NewRateLimiter(MaxMessagesPerMin, time.Minute),
	}
}

// Close releases resources used by the message validator
func (v *MessageValidator) Close() {
	if v.rateLimiter != nil {
		v.rateLimiter.Close()
	}
}

// ValidateMessage validates a raw message against size, format and rate
// constraints.
func (v *MessageValidator) ValidateMessage(data []byte, clientID string) error {
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(data), MaxMessageSize)
	}

	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON format")
	}

	if !v.rateLimiter.Allow(clientID) {
		return fmt.Errorf("rate limit exceeded: max %d messages per minute", MaxMessagesPerMin)
	}

	return nil
}

// ValidateBoatName validates and sanitizes a boat name
func ValidateBoatName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("boat name cannot be empty")
	}

	if len(name) > MaxBoatNameLen {
		return "", fmt.Errorf("boat name too long: %d characters (max %d)", len(name), MaxBoatNameLen)
	}

	if !utf8.ValidString(name) {
		return "", fmt.Errorf("boat name contains invalid UTF-8 characters")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("boat name cannot be only whitespace")
	}

	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("boat name contains control characters")
		}
	}

	if !validBoatNameChars.MatchString(trimmed) {
		return "", fmt.Errorf("boat name contains invalid characters")
	}

	// Names travel to browser clients; escape HTML to prevent XSS.
	return html.EscapeString(trimmed), nil
}
