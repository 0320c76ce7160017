// Package bot wraps the LINE Messaging API client: webhook event parsing,
// the one-reply-per-event contract, and push messages.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// Handler consumes inbound events and returns the single reply text for
// each. The handler must be set before the webhook starts receiving.
type Handler interface {
	HandleText(ctx context.Context, userID, text string) string
	HandleFollow(ctx context.Context, userID string) string
}

// Bot wraps the LINE client.
type Bot struct {
	client  *linebot.Client
	handler Handler
}

// New creates a Bot from the channel secret and access token.
func New(channelSecret, channelToken string) (*Bot, error) {
	client, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, err
	}
	return &Bot{client: client}, nil
}

// SetHandler wires the dispatcher into the bot.
func (b *Bot) SetHandler(h Handler) {
	b.handler = h
}

// Push sends a one-way message outside any reply context (used by the
// approval notifier).
func (b *Bot) Push(ctx context.Context, userID, text string) error {
	_, err := b.client.PushMessage(userID, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	return err
}

// ServeWebhook is the LINE webhook endpoint. ParseRequest verifies the
// request signature; a bad signature gets a 400 so LINE stops retrying it.
func (b *Bot) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	events, err := b.client.ParseRequest(r)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			w.WriteHeader(http.StatusBadRequest)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}
	for _, ev := range events {
		b.handleEvent(r.Context(), ev)
	}
	w.WriteHeader(http.StatusOK)
}

func (b *Bot) handleEvent(ctx context.Context, ev *linebot.Event) {
	if ev.Source == nil || ev.Source.UserID == "" {
		return
	}
	if b.handler == nil {
		slog.Warn("event received but handler not set, dropping", "user_id", ev.Source.UserID)
		return
	}
	userID := ev.Source.UserID

	var reply string
	switch ev.Type {
	case linebot.EventTypeFollow:
		reply = b.handler.HandleFollow(ctx, userID)
	case linebot.EventTypeMessage:
		msg, ok := ev.Message.(*linebot.TextMessage)
		if !ok {
			return
		}
		reply = b.handler.HandleText(ctx, userID, msg.Text)
	default:
		return
	}
	if reply == "" {
		return
	}
	if _, err := b.client.ReplyMessage(ev.ReplyToken, linebot.NewTextMessage(reply)).WithContext(ctx).Do(); err != nil {
		slog.Error("reply failed", "user_id", userID, "error", err)
	}
}
