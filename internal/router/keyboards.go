package router

import (
	tele "gopkg.in/telebot.v4"
)

func mainUserKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{{Text: "🔗 Set webhook", Data: "set_webhook"}},
		{
			{Text: "💠 Webhook status", Data: "webhook_status"},
			{Text: "♻️ Reset webhook", Data: "reset_webhook"},
		},
		{
			{Text: "❌ Delete webhook", Data: "delete_webhook"},
			{Text: "💬 Support", Data: "support"},
		},
		{{Text: "🔄 Back", Data: "main_menu"}},
	}}
}

func joinKeyboard(channel string) *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{{Text: "📢 Join the channel", URL: "https://t.me/" + channel}},
		{{Text: "✅ Check membership", Data: "check_join"}},
	}}
}

func adminKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{{Text: "📊 Bot stats", Data: "stats"}},
		{
			{Text: "📢 Broadcast", Data: "broadcast"},
			{Text: "🔄 Forward to all", Data: "forward"},
		},
		{
			{Text: "👤 User panel", Data: "user_panel"},
			{Text: "❌ Close panel", Data: "close_panel"},
		},
	}}
}

func backKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{{Text: "🔙 Back", Data: "main_menu"}},
	}}
}
