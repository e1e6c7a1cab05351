package residency

import (
	"net/url"
	"strings"

	"github.com/iannini25/auxiliosindico-web/core"
)

const (
	whatsAppBaseURL = "https://wa.me/"
	brazilDialCode  = "55"
)

// componentEscaper turns url.QueryEscape output into URI component encoding: spaces are %20 and the
// marks !'()* stay literal.
var componentEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent percent-encodes s for use inside a URI component.
func EscapeComponent(s string) string {
	return componentEscaper.Replace(url.QueryEscape(s))
}

// WhatsAppHref builds a wa.me link to phone, assumed Brazilian unless it already starts with 55.
// msg, when given, pre-fills the conversation.
func WhatsAppHref(phone, msg string) string {
	digits := core.DigitsOnly(phone)
	if digits == "" {
		return whatsAppBaseURL
	}
	if !strings.HasPrefix(digits, brazilDialCode) {
		digits = brazilDialCode + digits
	}
	href := whatsAppBaseURL + digits
	if msg != "" {
		href += "?text=" + EscapeComponent(msg)
	}
	return href
}

// ContactHref links to the raw phone digits, without assuming a country code.
func ContactHref(phone string) string {
	digits := core.DigitsOnly(phone)
	if digits == "" {
		return ""
	}
	return whatsAppBaseURL + digits
}
