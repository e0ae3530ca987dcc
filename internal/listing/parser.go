package listing

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnparseable is returned when a message body cannot be split into a
// product name and quantity.
var ErrUnparseable = errors.New("listing: message does not match [product] [quantity]")

var (
	digitsRe         = regexp.MustCompile(`^\d+$`)
	unitRe           = regexp.MustCompile(`(?i)^(kg|kgs|ton|tons|quintal|quintals)$`)
	digitsWithUnitRe = regexp.MustCompile(`(?i)^\d+(kg|kgs|ton|tons|quintal|quintals)$`)
)

// Parsed is the structured result of a farmer's listing message.
type Parsed struct {
	ProductName string
	Quantity    string
}

// ParseMessage extracts a (product name, quantity) pair from a free-text
// message such as "Tomato 30 kg" or "Onion 50kg". The last one or two tokens
// are treated as the quantity; a trailing token with no recognized unit is
// still accepted as a quantity ("Tomato 30" lists 30 of unspecified unit).
func ParseMessage(body string) (Parsed, error) {
	words := strings.Fields(strings.TrimSpace(body))
	if len(words) < 2 {
		return Parsed{}, ErrUnparseable
	}

	lastWord := words[len(words)-1]
	secondLastWord := ""
	if len(words) > 2 {
		secondLastWord = words[len(words)-2]
	}

	var productName, quantity string
	switch {
	case digitsRe.MatchString(lastWord) && unitRe.MatchString(secondLastWord):
		// "Tomato kg 30" style: unit then number.
		quantity = secondLastWord + " " + lastWord
		productName = strings.Join(words[:len(words)-2], " ")
	case digitsWithUnitRe.MatchString(lastWord):
		// "Onion 50kg"
		quantity = lastWord
		productName = strings.Join(words[:len(words)-1], " ")
	case len(words) >= 3 && digitsRe.MatchString(secondLastWord) && unitRe.MatchString(lastWord):
		// "Potato 20 kg"
		quantity = secondLastWord + " " + lastWord
		productName = strings.Join(words[:len(words)-2], " ")
	default:
		// Assume the last word is the quantity, units and all.
		quantity = lastWord
		productName = strings.Join(words[:len(words)-1], " ")
	}

	if productName == "" || quantity == "" {
		return Parsed{}, ErrUnparseable
	}
	return Parsed{ProductName: productName, Quantity: quantity}, nil
}
