package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hookbot/internal/transport"
	logx "hookbot/pkg/logx"
)

const apiBase = "https://api.telegram.org/bot"

// apiClient is a thin Bot API HTTP client that takes the token per call.
// The telebot adapter is bound to the bot's own token; webhook management
// operates on tokens users submit through the wizard, so those calls go
// straight to the API.
type apiClient struct {
	http *http.Client
	log  logx.Logger
}

func newAPIClient(log logx.Logger) *apiClient {
	return &apiClient{
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

func (c *apiClient) call(ctx context.Context, token, method string, payload map[string]any) transport.APIResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return transport.APIResult{OK: false, Description: err.Error()}
	}

	url := apiBase + token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return transport.APIResult{OK: false, Description: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("bot api request failed", logx.String("method", method), logx.Err(err))
		return transport.APIResult{OK: false, Description: err.Error()}
	}
	defer resp.Body.Close()

	var out struct {
		OK          bool            `json:"ok"`
		ErrorCode   int             `json:"error_code"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return transport.APIResult{OK: false, Description: fmt.Sprintf("invalid api response (http %d)", resp.StatusCode)}
	}
	if !out.OK {
		c.log.Warn("bot api returned error",
			logx.String("method", method),
			logx.Int("code", out.ErrorCode),
			logx.String("description", out.Description))
	}
	return transport.APIResult{OK: out.OK, Description: out.Description, ResultJSON: string(out.Result)}
}

func (c *apiClient) SetWebhook(ctx context.Context, token, url string) transport.APIResult {
	return c.call(ctx, token, "setWebhook", map[string]any{"url": url})
}

func (c *apiClient) DeleteWebhook(ctx context.Context, token string) transport.APIResult {
	return c.call(ctx, token, "deleteWebhook", map[string]any{})
}

// ResetWebhook deletes then re-registers the webhook. The short pause lets
// Telegram settle the deletion before the new registration.
func (c *apiClient) ResetWebhook(ctx context.Context, token, url string) transport.APIResult {
	if res := c.DeleteWebhook(ctx, token); !res.OK {
		return res
	}
	select {
	case <-ctx.Done():
		return transport.APIResult{OK: false, Description: ctx.Err().Error()}
	case <-time.After(250 * time.Millisecond):
	}
	return c.SetWebhook(ctx, token, url)
}

func (c *apiClient) WebhookInfo(ctx context.Context, token string) transport.APIResult {
	return c.call(ctx, token, "getWebhookInfo", map[string]any{})
}

func (c *apiClient) chatMemberStatus(ctx context.Context, token, channel string, userID int64) (string, error) {
	res := c.call(ctx, token, "getChatMember", map[string]any{
		"chat_id": "@" + channel,
		"user_id": userID,
	})
	if !res.OK {
		return "", fmt.Errorf("getChatMember: %s", res.Description)
	}
	var member struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(res.ResultJSON), &member); err != nil {
		return "", err
	}
	return member.Status, nil
}
