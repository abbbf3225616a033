// Package telegram adapts the Telegram Bot API to the transport interfaces.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"
	"golang.org/x/time/rate"

	"hookbot/internal/transport"
	logx "hookbot/pkg/logx"
)

type Config struct {
	Token string

	// Mode selects the update source: "longpoll" (default) or "webhook".
	Mode             string
	WebhookListen    string
	WebhookPublicURL string

	PollTimeout time.Duration

	// RatePerSec caps outgoing sends (broadcast deliveries included).
	RatePerSec int
}

type Adapter struct {
	cfg Config
	log logx.Logger

	bot     *tele.Bot
	api     *apiClient
	limiter *rate.Limiter

	runCancel context.CancelFunc
	runWG     sync.WaitGroup
	runMu     sync.Mutex
	running   bool

	// droppedUpdates counts updates dropped because the consumer was slower
	// than the poll loop. Logged periodically to avoid per-update spam.
	droppedUpdates uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	var poller tele.Poller
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", "longpoll":
		timeout := cfg.PollTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		poller = &tele.LongPoller{Timeout: timeout}
	case "webhook":
		if strings.TrimSpace(cfg.WebhookPublicURL) == "" {
			return nil, errors.New("telegram webhook mode needs webhook_public_url")
		}
		listen := cfg.WebhookListen
		if listen == "" {
			listen = ":8443"
		}
		poller = &tele.Webhook{
			Listen:   listen,
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.WebhookPublicURL},
		}
	default:
		return nil, errors.New("unknown telegram mode: " + cfg.Mode)
	}

	b, err := tele.NewBot(tele.Settings{Token: cfg.Token, Poller: poller})
	if err != nil {
		return nil, err
	}

	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 20
	}
	return &Adapter{
		cfg:     cfg,
		log:     log,
		bot:     b,
		api:     newAPIClient(log),
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// API exposes the raw Bot API client used for operations on user-supplied
// tokens (webhook management for third-party bots).
func (a *Adapter) API() transport.WebhookManager { return a.api }

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runWG.Add(2)
	a.runMu.Unlock()

	go func() {
		defer a.runWG.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-rctx.Done():
				if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
					a.log.Warn("incoming updates dropped (channel full)", logx.Any("count", n))
				}
				return
			case <-ticker.C:
				if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
					a.log.Warn("incoming updates dropped (channel full)", logx.Any("count", n))
				}
			}
		}
	}()

	// One handler for every message shape: the router needs the ids even when
	// there is no text (media forwarded through the admin forward step).
	enqueueMessage := func(c tele.Context) error {
		up, ok := messageUpdate(c.Message())
		if !ok {
			return nil
		}
		select {
		case out <- up:
		default:
			atomic.AddUint64(&a.droppedUpdates, 1)
		}
		return nil
	}
	for _, event := range []string{tele.OnText, tele.OnMedia, tele.OnContact, tele.OnLocation} {
		a.bot.Handle(event, enqueueMessage)
	}

	a.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		m := c.Message()
		if cb == nil || m == nil {
			return nil
		}
		up := transport.Update{
			Kind: transport.UpdateCallback,
			Callback: &transport.Callback{
				ID:        cb.ID,
				ChatID:    m.Chat.ID,
				FromID:    cb.Sender.ID,
				MessageID: m.ID,
				Data:      strings.TrimSpace(cb.Data),
			},
		}
		select {
		case out <- up:
		default:
			atomic.AddUint64(&a.droppedUpdates, 1)
		}
		return nil
	})

	go func() {
		defer a.runWG.Done()
		go func() {
			<-rctx.Done()
			a.bot.Stop()
		}()
		a.log.Info("update polling started", logx.String("mode", a.cfg.Mode))
		a.bot.Start() // blocks until Stop() called
	}()

	return nil
}

// messageUpdate maps an incoming Telegram message to the transport form. Media
// messages carry no Text; the caption stands in when one is present.
func messageUpdate(m *tele.Message) (transport.Update, bool) {
	if m == nil || m.Sender == nil || m.Chat == nil {
		return transport.Update{}, false
	}
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	return transport.Update{
		Kind: transport.UpdateMessage,
		Message: &transport.Message{
			ID:           m.ID,
			ChatID:       m.Chat.ID,
			FromID:       m.Sender.ID,
			FromUsername: m.Sender.Username,
			Text:         text,
		},
	}, true
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	if a.bot != nil {
		go a.bot.Stop()
	}

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()

	// Grace window: keep shutdown snappy even if a long-poll is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		a.log.Info("update polling stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		a.log.Warn("telegram stop grace elapsed; continuing shutdown")
		return nil
	}
}

// ---- router surface ----

func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return transport.MessageRef{}, err
	}
	msg, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, text, sendOptions(opt))
	if err != nil {
		return transport.MessageRef{}, err
	}
	return transport.MessageRef{ChatID: to.ChatID, MessageID: msg.ID}, nil
}

func (a *Adapter) EditText(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error {
	_ = ctx
	m := &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
	_, err := a.bot.Edit(m, text, sendOptions(opt))
	return err
}

func (a *Adapter) DeleteMessage(ctx context.Context, ref transport.MessageRef) error {
	_ = ctx
	return a.bot.Delete(&tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}})
}

func (a *Adapter) AnswerCallback(ctx context.Context, callbackID string, text string, alert bool) error {
	_ = ctx
	return a.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text, ShowAlert: alert})
}

func (a *Adapter) ChatMemberStatus(ctx context.Context, channel string, userID int64) (string, error) {
	// The adapter's telebot instance could do this, but the raw client keeps
	// channel-by-username addressing in one place.
	return a.api.chatMemberStatus(ctx, a.cfg.Token, channel, userID)
}

// ---- broadcast delivery surface ----

func (a *Adapter) DeliverText(ctx context.Context, recipient int64, text string) transport.DeliveryResult {
	if err := a.limiter.Wait(ctx); err != nil {
		return transport.DeliveryResult{OK: false, Description: err.Error()}
	}
	_, err := a.bot.Send(&tele.Chat{ID: recipient}, text, &tele.SendOptions{ParseMode: tele.ModeHTML})
	if err != nil {
		return transport.DeliveryResult{OK: false, Description: err.Error()}
	}
	return transport.DeliveryResult{OK: true}
}

func (a *Adapter) DeliverForward(ctx context.Context, recipient int64, fromChatID int64, messageID int) transport.DeliveryResult {
	if err := a.limiter.Wait(ctx); err != nil {
		return transport.DeliveryResult{OK: false, Description: err.Error()}
	}
	src := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: fromChatID}
	_, err := a.bot.Forward(&tele.Chat{ID: recipient}, src)
	if err != nil {
		return transport.DeliveryResult{OK: false, Description: err.Error()}
	}
	return transport.DeliveryResult{OK: true}
}

// Deliverer wraps the adapter's delivery surface as transport.Deliverer.
// Kept as a separate type so the broadcast engine cannot reach the
// interactive methods.
type Deliverer struct{ A *Adapter }

func (d Deliverer) SendText(ctx context.Context, recipient int64, text string) transport.DeliveryResult {
	return d.A.DeliverText(ctx, recipient, text)
}

func (d Deliverer) Forward(ctx context.Context, recipient int64, fromChatID int64, messageID int) transport.DeliveryResult {
	return d.A.DeliverForward(ctx, recipient, fromChatID, messageID)
}

func sendOptions(opt *transport.SendOptions) *tele.SendOptions {
	if opt == nil {
		opt = &transport.SendOptions{ParseMode: tele.ModeHTML}
	}
	so := &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
	}
	if opt.ReplyMarkupAdapter != nil {
		if rm, ok := opt.ReplyMarkupAdapter.(*tele.ReplyMarkup); ok {
			so.ReplyMarkup = rm
		}
	}
	return so
}
