// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BR"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// FromChatID extracts the phone number portion of a WhatsApp chat id
// ("5511999990000@s.whatsapp.net" -> "+5511999990000" after normalization).
func FromChatID(chatID string) string {
	number := chatID
	if idx := strings.Index(number, "@"); idx >= 0 {
		number = number[:idx]
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}
	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}
	return NormalizeE164(number)
}
