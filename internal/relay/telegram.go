package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type updatesResp struct {
	OK          bool     `json:"ok"`
	Description string   `json:"description"`
	Result      []Update `json:"result"`
}

type sendReq struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendResp struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Telegram is a minimal Bot API client: long-poll getUpdates and sendMessage.
type Telegram struct {
	base        string
	pollTimeout time.Duration
	rest        *resty.Client
}

// NewTelegram creates a client for the bot identified by token. The HTTP
// timeout leaves headroom over the long-poll timeout.
func NewTelegram(apiURL, token string, pollTimeout time.Duration) *Telegram {
	r := resty.New()
	r.SetTimeout(pollTimeout + 10*time.Second)
	return &Telegram{
		base:        strings.TrimRight(apiURL, "/") + "/bot" + token,
		pollTimeout: pollTimeout,
		rest:        r,
	}
}

// GetUpdates long-polls for updates with an id of at least offset.
func (t *Telegram) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	params := map[string]string{
		"timeout":         strconv.Itoa(int(t.pollTimeout.Seconds())),
		"allowed_updates": `["message"]`,
	}
	if offset > 0 {
		params["offset"] = strconv.FormatInt(offset, 10)
	}

	resp := &updatesResp{}
	r, err := t.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(resp).
		SetError(resp).
		Get(t.base + "/getUpdates")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("telegram: status %d %s", r.StatusCode(), resp.Description)
	}
	return resp.Result, nil
}

// SendMessage sends text to chatID, with parse_mode=HTML when html is set.
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string, html bool) error {
	body := sendReq{ChatID: chatID, Text: text}
	if html {
		body.ParseMode = "HTML"
	}

	resp := &sendResp{}
	r, err := t.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(resp).
		SetError(resp).
		Post(t.base + "/sendMessage")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram: status %d %s", r.StatusCode(), resp.Description)
	}
	return nil
}
