// Package validate holds the input validators for the webhook wizard.
package validate

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	tokenRe      = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]{20,}$`)
	idRe         = regexp.MustCompile(`^\d+$`)
	negativeIDRe = regexp.MustCompile(`^-?\d+$`)
)

// Token reports whether s looks like a Telegram bot token
// (numeric bot id, colon, secret of at least 20 token characters).
func Token(s string) bool {
	return tokenRe.MatchString(strings.TrimSpace(s))
}

// HTTPSURL reports whether s is a well-formed https:// URL.
func HTTPSURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host != ""
}

// TelegramID reports whether s is a plausible Telegram id. Chats may be
// negative (groups/channels); user ids may not. Zero is never valid.
func TelegramID(s string, allowNegative bool) bool {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return false
	}
	if allowNegative {
		return negativeIDRe.MatchString(s)
	}
	return idRe.MatchString(s)
}
