package telegram

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"wabot/core/engine"
)

// fromTele converts an incoming telebot message into the engine's
// transport-neutral form.
func fromTele(m *tele.Message, self *tele.User) *engine.Message {
	chatType := engine.ChatGroup
	if m.Chat != nil && m.Chat.Type == tele.ChatPrivate {
		chatType = engine.ChatPrivate
	}

	msg := &engine.Message{
		ID:        strconv.Itoa(m.ID),
		Text:      m.Text,
		Timestamp: m.Time(),
	}
	if m.Chat != nil {
		msg.Chat = engine.Chat{
			ID:   strconv.FormatInt(m.Chat.ID, 10),
			Type: chatType,
		}
	}
	if m.Sender != nil {
		msg.Sender = identityOf(m.Sender)
		msg.FromSelf = self != nil && m.Sender.ID == self.ID
	}
	return msg
}
