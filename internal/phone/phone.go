package phone

import "strings"

// DefaultCountryCode is used when a caller has no configured country code.
const DefaultCountryCode = "+91"

// cleanDigits strips everything except digits and a leading plus.
func cleanDigits(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Normalize canonicalizes a raw phone string to E.164 form. defaultCC is the
// country code prepended to bare national numbers (e.g. "+91"). Unparseable
// input yields an empty string; already-canonical input passes through, so the
// function is idempotent.
func Normalize(raw, defaultCC string) string {
	s := cleanDigits(raw)
	if s == "" {
		return ""
	}
	if defaultCC == "" {
		defaultCC = DefaultCountryCode
	}

	if strings.HasPrefix(s, "+") {
		return s
	}

	s = strings.TrimLeft(s, "0")
	if s == "" {
		return ""
	}

	ccDigits := strings.TrimPrefix(defaultCC, "+")

	// 12 digits beginning with the default country code: assume CC + national.
	if len(s) == 12 && strings.HasPrefix(s, ccDigits) {
		return "+" + s
	}
	// Bare 10-digit national number.
	if len(s) == 10 && allDigits(s) {
		return defaultCC + s
	}
	// Plausible international length without the plus.
	if len(s) >= 11 && len(s) <= 15 && allDigits(s) {
		return "+" + s
	}
	if allDigits(s) {
		return "+" + s
	}
	return s
}

// WhatsAppAddress prefixes an E.164 number with the whatsapp: scheme Twilio
// expects. Already-prefixed values pass through.
func WhatsAppAddress(e164 string) string {
	if e164 == "" {
		return ""
	}
	if strings.HasPrefix(e164, "whatsapp:") {
		return e164
	}
	return "whatsapp:" + e164
}

// StripWhatsApp removes the whatsapp: scheme if present.
func StripWhatsApp(addr string) string {
	return strings.TrimPrefix(addr, "whatsapp:")
}

// ChatID converts an E.164 number to the Green API chat id form ("digits@c.us").
func ChatID(e164 string) string {
	if e164 == "" {
		return ""
	}
	if strings.HasSuffix(e164, "@c.us") {
		return e164
	}
	return strings.TrimPrefix(e164, "+") + "@c.us"
}

// FromChatID extracts the phone digits from a Green API chat id.
func FromChatID(chatID string) string {
	return strings.TrimSuffix(chatID, "@c.us")
}
