package validate

import "testing"

func TestToken(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{name: "valid", raw: "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1", ok: true},
		{name: "valid with dash and underscore", raw: "42:AAHdq-Tcv_H1vGWJxfSeofSAs0K5PALD", ok: true},
		{name: "missing colon", raw: "123456789AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1", ok: false},
		{name: "secret too short", raw: "123456789:shortsecret", ok: false},
		{name: "non numeric id", raw: "abc:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1", ok: false},
		{name: "illegal chars in secret", raw: "123:AAHdqTcvCH1vGWJxfSeofSAs0K5PALD$aw", ok: false},
		{name: "empty", raw: "", ok: false},
		{name: "surrounding whitespace", raw: "  123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1  ", ok: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Token(tt.raw); got != tt.ok {
				t.Fatalf("Token(%q) = %v, want %v", tt.raw, got, tt.ok)
			}
		})
	}
}

func TestHTTPSURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{name: "https", raw: "https://example.com/webhook", ok: true},
		{name: "https with port", raw: "https://bot.example.com:8443/hook", ok: true},
		{name: "plain http", raw: "http://example.com/webhook", ok: false},
		{name: "no scheme", raw: "example.com/webhook", ok: false},
		{name: "empty host", raw: "https://", ok: false},
		{name: "garbage", raw: "://nope", ok: false},
		{name: "empty", raw: "", ok: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPSURL(tt.raw); got != tt.ok {
				t.Fatalf("HTTPSURL(%q) = %v, want %v", tt.raw, got, tt.ok)
			}
		})
	}
}

func TestTelegramID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		raw           string
		allowNegative bool
		ok            bool
	}{
		{name: "user id", raw: "123456789", ok: true},
		{name: "zero", raw: "0", ok: false},
		{name: "negative rejected by default", raw: "-1001234567890", ok: false},
		{name: "negative chat id allowed", raw: "-1001234567890", allowNegative: true, ok: true},
		{name: "not a number", raw: "abc", ok: false},
		{name: "trailing junk", raw: "123x", ok: false},
		{name: "empty", raw: "", ok: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := TelegramID(tt.raw, tt.allowNegative); got != tt.ok {
				t.Fatalf("TelegramID(%q, %v) = %v, want %v", tt.raw, tt.allowNegative, got, tt.ok)
			}
		})
	}
}
