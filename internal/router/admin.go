package router

import (
	"context"
	"fmt"
	"time"

	"hookbot/internal/storage"
	"hookbot/internal/transport"
	logx "hookbot/pkg/logx"
)

func (r *Router) showAdminPanel(ctx context.Context, chatID int64) {
	ref := r.send(ctx, chatID, "🛠️ Bot admin panel", adminKeyboard())
	if ref.MessageID == 0 {
		return
	}
	if err := r.store.SetPanelMessage(ctx, chatID, ref.MessageID); err != nil {
		r.log.Warn("failed to store panel message id", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

// handleAdminStep consumes an admin message while a one-shot broadcast or
// forward step is active: enqueue, run the first batch immediately, report
// the summary, and drop back to idle.
func (r *Router) handleAdminStep(ctx context.Context, m *transport.Message, step string) {
	if !r.isAdmin(m.FromID) {
		return
	}

	var (
		jobID string
		err   error
	)
	switch step {
	case "broadcast":
		jobID, err = r.engine.Enqueue(ctx, storage.JobText, storage.JobPayload{Text: m.Text}, nil)
	case "forward":
		jobID, err = r.engine.Enqueue(ctx, storage.JobForward, storage.JobPayload{FromChatID: m.ChatID, MessageID: m.ID}, nil)
	default:
		return
	}
	if err != nil {
		r.log.Error("enqueue failed", logx.String("step", step), logx.Err(err))
		r.send(ctx, m.ChatID, "❌ Queue error: "+err.Error(), nil)
		return
	}

	sum, err := r.engine.ProcessBatch(ctx, jobID, 0)
	if err != nil {
		r.log.Error("first batch failed", logx.String("job", jobID), logx.Err(err))
		r.send(ctx, m.ChatID, "❌ Queue error: "+err.Error(), nil)
	} else {
		r.send(ctx, m.ChatID, formatSummary(sum), nil)
	}

	if err := r.store.SetStep(ctx, m.ChatID, ""); err != nil {
		r.log.Warn("failed to clear step", logx.Int64("chat_id", m.ChatID), logx.Err(err))
	}
}

// handleAdminCallback handles panel buttons. Callbacks are only honored when
// they originate from the stored panel message for that chat, so stale panels
// go inert after a new /panel.
func (r *Router) handleAdminCallback(ctx context.Context, cb *transport.Callback) bool {
	panelID, ok, err := r.store.PanelMessage(ctx, cb.ChatID)
	if err != nil {
		r.log.Warn("failed to read panel message id", logx.Int64("chat_id", cb.ChatID), logx.Err(err))
		return false
	}
	if !ok || panelID != cb.MessageID {
		return false
	}
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}

	switch cb.Data {
	case "stats":
		r.edit(ctx, ref, r.statsText(ctx), adminKeyboard())
		r.answer(ctx, cb.ID, "", false)
		return true

	case "broadcast":
		if err := r.store.SetStep(ctx, cb.ChatID, "broadcast"); err != nil {
			r.log.Warn("failed to set step", logx.Int64("chat_id", cb.ChatID), logx.Err(err))
		}
		r.send(ctx, cb.ChatID, "📝 Send the broadcast text.", nil)
		r.answer(ctx, cb.ID, "", false)
		return true

	case "forward":
		if err := r.store.SetStep(ctx, cb.ChatID, "forward"); err != nil {
			r.log.Warn("failed to set step", logx.Int64("chat_id", cb.ChatID), logx.Err(err))
		}
		r.send(ctx, cb.ChatID, "📎 Send the message to forward.", nil)
		r.answer(ctx, cb.ID, "", false)
		return true

	case "close_panel":
		if err := r.adapter.DeleteMessage(ctx, ref); err != nil {
			r.log.Warn("failed to delete panel", logx.Int64("chat_id", cb.ChatID), logx.Err(err))
		}
		r.answer(ctx, cb.ID, "Panel closed", false)
		return true

	case "user_panel":
		r.edit(ctx, ref, "🔧 Webhook manager user panel", mainUserKeyboard())
		r.answer(ctx, cb.ID, "", false)
		return true
	}

	return false
}

func (r *Router) statsText(ctx context.Context) string {
	total, err := r.store.CountRecipients(ctx)
	if err != nil {
		r.log.Warn("failed to count recipients", logx.Err(err))
	}
	verified, err := r.store.CountVerified(ctx)
	if err != nil {
		r.log.Warn("failed to count verified", logx.Err(err))
	}
	growth := 0.0
	if total > 0 {
		growth = float64(verified) / float64(total) * 100
	}
	return fmt.Sprintf(
		"📊 Bot stats:\n👥 Users: %d\n✅ Verified: %d\n📈 Growth: %.1f%%\n🚨 Recent errors: %d\n🕐 %s",
		total, verified, growth, recentErrorCount(r.cfg.LogFile, 200), time.Now().Format("15:04:05"),
	)
}
