package router

import (
	"context"
	"strings"

	"hookbot/internal/transport"
	"hookbot/internal/validate"
	logx "hookbot/pkg/logx"
)

// Wizard steps follow the pattern "webhook:{op}:{stage}" where op is
// set | reset | delete and stage is token | url. The delete op skips the url
// stage. Invalid input re-prompts without touching step or context, so the
// user can correct a typo without restarting.

func (r *Router) startWizard(ctx context.Context, chatID, userID int64, op string) {
	if err := r.store.SetStep(ctx, chatID, "webhook:"+op+":token"); err != nil {
		r.log.Warn("failed to set step", logx.Int64("chat_id", chatID), logx.Err(err))
		return
	}
	if err := r.store.SaveContext(ctx, chatID, map[string]any{"operation": op, "user_id": userID}); err != nil {
		r.log.Warn("failed to save context", logx.Int64("chat_id", chatID), logx.Err(err))
	}
	r.send(ctx, chatID, "🛡️ Please send your bot token:", nil)
}

// handleWizard consumes a message while a webhook wizard step is active.
// Returns false if the step is not a wizard step.
func (r *Router) handleWizard(ctx context.Context, chatID int64, text, step string) bool {
	if !strings.HasPrefix(step, "webhook:") {
		return false
	}

	kv, err := r.store.Context(ctx, chatID)
	if err != nil {
		r.log.Warn("failed to read context", logx.Int64("chat_id", chatID), logx.Err(err))
		return true
	}
	op, _ := kv["operation"].(string)
	if op == "" {
		op = "set"
	}

	switch {
	case strings.HasSuffix(step, ":token"):
		if !validate.Token(text) {
			r.send(ctx, chatID, "❌ That token is not valid. Please send it again.", nil)
			return true
		}
		kv["token"] = strings.TrimSpace(text)
		if err := r.store.SaveContext(ctx, chatID, kv); err != nil {
			r.log.Warn("failed to save context", logx.Int64("chat_id", chatID), logx.Err(err))
			return true
		}
		if op == "delete" {
			r.finishWizard(ctx, chatID, kv, "")
			return true
		}
		if err := r.store.SetStep(ctx, chatID, "webhook:"+op+":url"); err != nil {
			r.log.Warn("failed to set step", logx.Int64("chat_id", chatID), logx.Err(err))
			return true
		}
		r.send(ctx, chatID, "🔗 Please send the HTTPS webhook URL:", nil)
		return true

	case strings.HasSuffix(step, ":url"):
		if !validate.HTTPSURL(text) {
			r.send(ctx, chatID, "❌ That URL is not valid. It must start with https.", nil)
			return true
		}
		kv["url"] = text
		if err := r.store.SaveContext(ctx, chatID, kv); err != nil {
			r.log.Warn("failed to save context", logx.Int64("chat_id", chatID), logx.Err(err))
			return true
		}
		r.finishWizard(ctx, chatID, kv, text)
		return true
	}

	return false
}

// finishWizard runs the terminal webhook operation, reports the outcome, and
// resets the chat to idle with context cleared.
func (r *Router) finishWizard(ctx context.Context, chatID int64, kv map[string]any, url string) {
	op, _ := kv["operation"].(string)
	token, _ := kv["token"].(string)
	token = strings.TrimSpace(token)
	if token == "" {
		token = r.cfg.BotToken
	}
	if url == "" {
		url = r.cfg.DefaultWebhookURL
	}

	var res transport.APIResult
	switch op {
	case "reset":
		res = r.hooks.ResetWebhook(ctx, token, url)
	case "delete":
		res = r.hooks.DeleteWebhook(ctx, token)
	default:
		res = r.hooks.SetWebhook(ctx, token, url)
	}

	status := "✅ Operation completed."
	if !res.OK {
		desc := res.Description
		if desc == "" {
			desc = "failed to reach Telegram"
		}
		status = "❌ Error: " + desc
	}
	r.send(ctx, chatID, status, backKeyboard())

	if err := r.store.SetStep(ctx, chatID, ""); err != nil {
		r.log.Warn("failed to clear step", logx.Int64("chat_id", chatID), logx.Err(err))
	}
	if err := r.store.ClearContext(ctx, chatID); err != nil {
		r.log.Warn("failed to clear context", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}
