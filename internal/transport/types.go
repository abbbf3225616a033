package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

type Callback struct {
	ID        string
	FromID    int64
	ChatID    int64
	MessageID int
	Data      string
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode          string
	DisablePreview     bool
	ReplyMarkupAdapter any // adapter-specific markup (Telegram: *telebot.ReplyMarkup)
}

// DeliveryResult is the outcome of one broadcast delivery attempt.
//
// Deliverers never return Go errors for remote failures: a failed send is an
// ordinary result with OK=false and a human-readable Description. The broadcast
// engine records it and moves on.
type DeliveryResult struct {
	OK          bool
	Description string
}

// Deliverer sends one broadcast payload to one recipient.
type Deliverer interface {
	SendText(ctx context.Context, recipient int64, text string) DeliveryResult
	Forward(ctx context.Context, recipient int64, fromChatID int64, messageID int) DeliveryResult
}

// Adapter is the chat transport used by the router for interactive replies.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	AnswerCallback(ctx context.Context, callbackID string, text string, alert bool) error

	// ChatMemberStatus reports a user's membership status in a channel
	// ("member", "administrator", "creator", "left", ...).
	ChatMemberStatus(ctx context.Context, channel string, userID int64) (string, error)
}

// APIResult is the decoded envelope of a raw Bot API call made with a
// user-supplied token (webhook management for third-party bots).
type APIResult struct {
	OK          bool
	Description string
	ResultJSON  string
}

// WebhookManager performs webhook operations against arbitrary bot tokens.
// The bot's own Adapter is bound to the bot's token, so these calls go through
// a separate raw API client.
type WebhookManager interface {
	SetWebhook(ctx context.Context, token, url string) APIResult
	DeleteWebhook(ctx context.Context, token string) APIResult
	ResetWebhook(ctx context.Context, token, url string) APIResult
	WebhookInfo(ctx context.Context, token string) APIResult
}
