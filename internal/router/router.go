// Package router interprets incoming updates: the /start join gate, the
// webhook wizard, the admin panel, and the broadcast steps. Every inbound
// update first sweeps pending broadcast jobs so backlog drains even when the
// only triggers are user traffic.
package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"hookbot/internal/services/broadcast"
	"hookbot/internal/storage"
	"hookbot/internal/transport"
	logx "hookbot/pkg/logx"
)

type Config struct {
	AdminIDs          []int64
	Channel           string
	SupportContacts   []string
	DefaultWebhookURL string
	BotToken          string

	// LogFile, when set, feeds the recent-error count on the stats panel.
	LogFile string
}

type Router struct {
	cfg     Config
	adapter transport.Adapter
	hooks   transport.WebhookManager
	store   storage.Store
	engine  *broadcast.Service
	log     logx.Logger
}

func New(cfg Config, adapter transport.Adapter, hooks transport.WebhookManager, store storage.Store, engine *broadcast.Service, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{cfg: cfg, adapter: adapter, hooks: hooks, store: store, engine: engine, log: log}
}

// Run consumes updates until the context ends.
func (r *Router) Run(ctx context.Context, updates <-chan transport.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-updates:
			r.Handle(ctx, up)
		}
	}
}

// Handle processes one update. Panics are contained here: they get an opaque
// error id, a log entry, and a best-effort alert to the first admin chat.
func (r *Router) Handle(ctx context.Context, up transport.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			errorID := uuid.NewString()[:12]
			r.log.Error("unhandled error in update handler",
				logx.String("error_id", errorID),
				logx.Any("panic", rec),
				logx.Stack(string(debug.Stack())))
			r.alertAdmin(ctx, fmt.Sprintf("⚠️ Bot error\nerror id: %s\n%v", errorID, rec))
		}
	}()

	// Clear broadcast backlog before handling the new update.
	if _, err := r.engine.SweepPending(ctx); err != nil {
		r.log.Warn("sweep failed", logx.Err(err))
	}

	switch up.Kind {
	case transport.UpdateMessage:
		if up.Message != nil {
			r.handleMessage(ctx, up.Message)
		}
	case transport.UpdateCallback:
		if up.Callback != nil {
			r.handleCallback(ctx, up.Callback)
		}
	default:
		r.log.Warn("unsupported update kind", logx.String("kind", string(up.Kind)))
	}
}

func (r *Router) handleMessage(ctx context.Context, m *transport.Message) {
	if m.ChatID == 0 || m.FromID == 0 {
		r.log.Warn("missing identifiers in message", logx.Int("message_id", m.ID))
		return
	}

	if err := r.store.AddRecipient(ctx, m.FromID); err != nil {
		r.log.Warn("failed to record recipient", logx.Int64("user_id", m.FromID), logx.Err(err))
	}

	text := strings.TrimSpace(m.Text)

	if text == "/start" {
		r.handleStart(ctx, m.ChatID, m.FromID)
		return
	}
	if text == "/panel" && r.isAdmin(m.FromID) {
		r.showAdminPanel(ctx, m.ChatID)
		return
	}

	step, err := r.store.Step(ctx, m.ChatID)
	if err != nil {
		r.log.Warn("failed to read step", logx.Int64("chat_id", m.ChatID), logx.Err(err))
		return
	}
	if step == "" {
		return
	}
	if r.handleWizard(ctx, m.ChatID, text, step) {
		return
	}
	r.handleAdminStep(ctx, m, step)
}

func (r *Router) handleCallback(ctx context.Context, cb *transport.Callback) {
	if cb.ChatID == 0 || cb.FromID == 0 || cb.ID == "" {
		r.log.Warn("invalid callback payload", logx.String("data", cb.Data))
		return
	}

	switch cb.Data {
	case "check_join":
		r.handleJoinCheck(ctx, cb)
		return
	case "main_menu":
		r.sendMainMenu(ctx, cb)
		return
	}

	if r.isAdmin(cb.FromID) && r.handleAdminCallback(ctx, cb) {
		return
	}
	r.handleUserCallback(ctx, cb)
}

func (r *Router) handleStart(ctx context.Context, chatID, userID int64) {
	if r.isChannelMember(ctx, userID) {
		if err := r.store.Verify(ctx, userID); err != nil {
			r.log.Warn("failed to mark verified", logx.Int64("user_id", userID), logx.Err(err))
		}
		r.send(ctx, chatID, "🤖 Welcome to the webhook manager bot!\n\n🔧 Pick an option:", mainUserKeyboard())
		return
	}
	r.send(ctx, chatID, "👋 To use the bot, join the channel first, then press «✅ Check membership».", joinKeyboard(r.cfg.Channel))
}

func (r *Router) handleJoinCheck(ctx context.Context, cb *transport.Callback) {
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	if r.isChannelMember(ctx, cb.FromID) {
		if err := r.store.Verify(ctx, cb.FromID); err != nil {
			r.log.Warn("failed to mark verified", logx.Int64("user_id", cb.FromID), logx.Err(err))
		}
		r.edit(ctx, ref, "✅ Membership confirmed!\n\n🤖 Welcome to the webhook manager bot!", mainUserKeyboard())
		r.answer(ctx, cb.ID, "Membership confirmed!", false)
		return
	}
	r.edit(ctx, ref, "❌ You haven't joined the channel yet!\n\nJoin first, then try again.", joinKeyboard(r.cfg.Channel))
	r.answer(ctx, cb.ID, "Membership not confirmed", true)
}

func (r *Router) sendMainMenu(ctx context.Context, cb *transport.Callback) {
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	verified, err := r.store.IsVerified(ctx, cb.FromID)
	if err != nil {
		r.log.Warn("failed to read verification", logx.Int64("user_id", cb.FromID), logx.Err(err))
	}
	if verified {
		r.edit(ctx, ref, "🤖 Pick an option:", mainUserKeyboard())
	} else {
		r.edit(ctx, ref, "❌ Join the channel first.", joinKeyboard(r.cfg.Channel))
	}
	r.answer(ctx, cb.ID, "", false)
}

func (r *Router) handleUserCallback(ctx context.Context, cb *transport.Callback) {
	switch cb.Data {
	case "support":
		r.send(ctx, cb.ChatID, supportText(r.cfg.SupportContacts), backKeyboard())
		r.answer(ctx, cb.ID, "", false)
	case "webhook_status":
		info := r.hooks.WebhookInfo(ctx, r.cfg.BotToken)
		r.send(ctx, cb.ChatID, formatWebhookInfo(info), backKeyboard())
		r.answer(ctx, cb.ID, "", false)
	case "set_webhook", "reset_webhook", "delete_webhook":
		op := map[string]string{
			"set_webhook":    "set",
			"reset_webhook":  "reset",
			"delete_webhook": "delete",
		}[cb.Data]
		r.startWizard(ctx, cb.ChatID, cb.FromID, op)
		r.answer(ctx, cb.ID, "", false)
	}
}

func (r *Router) isAdmin(userID int64) bool {
	for _, id := range r.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *Router) isChannelMember(ctx context.Context, userID int64) bool {
	if strings.TrimSpace(r.cfg.Channel) == "" {
		return true
	}
	status, err := r.adapter.ChatMemberStatus(ctx, r.cfg.Channel, userID)
	if err != nil {
		r.log.Warn("membership check failed", logx.Int64("user_id", userID), logx.Err(err))
		return false
	}
	switch status {
	case "member", "administrator", "creator":
		return true
	}
	return false
}

func (r *Router) alertAdmin(ctx context.Context, text string) {
	if len(r.cfg.AdminIDs) == 0 {
		return
	}
	if _, err := r.adapter.SendText(ctx, transport.ChatTarget{ChatID: r.cfg.AdminIDs[0]}, text, nil); err != nil {
		r.log.Warn("failed to notify admin", logx.Err(err))
	}
}

// ---- small send helpers ----

func (r *Router) send(ctx context.Context, chatID int64, text string, markup any) transport.MessageRef {
	ref, err := r.adapter.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, &transport.SendOptions{ReplyMarkupAdapter: markup})
	if err != nil {
		r.log.Warn("send failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
	return ref
}

func (r *Router) edit(ctx context.Context, ref transport.MessageRef, text string, markup any) {
	if err := r.adapter.EditText(ctx, ref, text, &transport.SendOptions{ReplyMarkupAdapter: markup}); err != nil {
		r.log.Warn("edit failed", logx.Int64("chat_id", ref.ChatID), logx.Err(err))
	}
}

func (r *Router) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := r.adapter.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		r.log.Warn("callback answer failed", logx.Err(err))
	}
}
