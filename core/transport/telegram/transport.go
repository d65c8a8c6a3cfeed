// Package telegram adapts the Telegram Bot API to the engine's
// transport interface.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"wabot/core/engine"
)

// defaultSendRate is the outbound API call budget per second. Telegram
// throttles bots around 30 messages per second globally.
const defaultSendRate = 25.0

// Transport implements engine.Transport over a telebot bot.
type Transport struct {
	bot     *tele.Bot
	limiter *rate.Limiter
}

// NewTransport wraps the bot. sendRate caps outbound calls per second;
// 0 selects the default.
func NewTransport(bot *tele.Bot, sendRate float64) *Transport {
	if sendRate <= 0 {
		sendRate = defaultSendRate
	}
	return &Transport{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(sendRate), 1),
	}
}

var _ engine.Transport = (*Transport)(nil)

func (t *Transport) Reply(ctx context.Context, to *engine.Message, text string) (engine.SendResult, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return engine.SendResult{}, err
	}
	msgID, err := strconv.Atoi(to.ID)
	if err != nil {
		return engine.SendResult{}, fmt.Errorf("reply to %q: bad message id: %w", to.ID, err)
	}
	chatID, err := parseChatID(to.Chat.ID)
	if err != nil {
		return engine.SendResult{}, err
	}
	sent, err := t.bot.Reply(
		&tele.Message{ID: msgID, Chat: &tele.Chat{ID: chatID}},
		text,
	)
	if err != nil {
		return engine.SendResult{}, err
	}
	return engine.SendResult{MessageID: strconv.Itoa(sent.ID)}, nil
}

func (t *Transport) Send(ctx context.Context, chatID, text string) (engine.SendResult, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return engine.SendResult{}, err
	}
	id, err := parseChatID(chatID)
	if err != nil {
		return engine.SendResult{}, err
	}
	sent, err := t.bot.Send(&tele.Chat{ID: id}, text)
	if err != nil {
		return engine.SendResult{}, err
	}
	return engine.SendResult{MessageID: strconv.Itoa(sent.ID)}, nil
}

func (t *Transport) GroupInfo(ctx context.Context, chatID string) (*engine.GroupInfo, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return nil, err
	}
	chat, err := t.bot.ChatByID(id)
	if err != nil {
		return nil, fmt.Errorf("chat %s lookup: %w", chatID, err)
	}
	members, err := t.bot.AdminsOf(chat)
	if err != nil {
		return nil, fmt.Errorf("chat %s admins: %w", chatID, err)
	}

	info := &engine.GroupInfo{
		ID:      chatID,
		Subject: chat.Title,
	}
	selfID := t.bot.Me.ID
	for _, m := range members {
		if m.User == nil {
			continue
		}
		if m.User.ID == selfID {
			info.BotIsAdmin = true
			continue
		}
		info.Admins = append(info.Admins, identityOf(m.User))
	}
	return info, nil
}

func (t *Transport) ResolveIdentity(ctx context.Context, raw string) (engine.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return engine.Identity{}, fmt.Errorf("empty identifier")
	}
	if strings.HasPrefix(raw, "@") {
		chat, err := t.bot.ChatByUsername(raw)
		if err != nil {
			return engine.Identity{}, fmt.Errorf("resolve %s: %w", raw, err)
		}
		return engine.Identity{
			Primary:   strconv.FormatInt(chat.ID, 10),
			Secondary: chat.Username,
		}, nil
	}
	id, err := parseChatID(raw)
	if err != nil {
		return engine.Identity{}, err
	}
	chat, err := t.bot.ChatByID(id)
	if err != nil {
		return engine.Identity{}, fmt.Errorf("resolve %s: %w", raw, err)
	}
	return engine.Identity{
		Primary:   strconv.FormatInt(chat.ID, 10),
		Secondary: chat.Username,
	}, nil
}

func (t *Transport) Self() engine.Identity {
	return identityOf(t.bot.Me)
}

func identityOf(u *tele.User) engine.Identity {
	return engine.Identity{
		Primary:   strconv.FormatInt(u.ID, 10),
		Secondary: u.Username,
	}
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad chat id %q: %w", s, err)
	}
	return id, nil
}
