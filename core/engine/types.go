package engine

import (
	"context"
	"time"
)

// ChatType classifies the conversation a message arrived in.
type ChatType string

const (
	// ChatPrivate is a one-on-one conversation with the bot.
	ChatPrivate ChatType = "private"
	// ChatGroup is a multi-participant conversation.
	ChatGroup ChatType = "group"
)

// Identity addresses one user. The platform may know the same person under two
// stable identifiers (e.g. a phone-number id and a server-assigned one), so
// equality checks always consider both.
type Identity struct {
	Primary   string
	Secondary string
}

// Matches reports whether two identities refer to the same user, comparing
// every non-empty identifier pair.
func (id Identity) Matches(other Identity) bool {
	for _, a := range []string{id.Primary, id.Secondary} {
		if a == "" {
			continue
		}
		if a == other.Primary || a == other.Secondary {
			return true
		}
	}
	return false
}

// MatchesRaw compares the identity against a bare identifier string.
func (id Identity) MatchesRaw(raw string) bool {
	if raw == "" {
		return false
	}
	return raw == id.Primary || raw == id.Secondary
}

// String returns the primary identifier, falling back to the secondary one.
func (id Identity) String() string {
	if id.Primary != "" {
		return id.Primary
	}
	return id.Secondary
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   string
	Type ChatType
}

// IsGroup reports whether the chat is a group conversation.
func (c Chat) IsGroup() bool { return c.Type == ChatGroup }

// Message is one inbound chat event as the engine sees it.
type Message struct {
	ID        string
	Chat      Chat
	Sender    Identity
	Text      string
	Timestamp time.Time
	// FromSelf marks messages authored by the bot's own account.
	FromSelf bool
}

// GroupInfo describes a group chat as reported by the transport.
type GroupInfo struct {
	ID         string
	Subject    string
	Admins     []Identity
	BotIsAdmin bool
}

// SendResult is returned by outbound transport operations.
type SendResult struct {
	MessageID string
}

// Transport is the collaborator contract the engine needs from the chat
// platform. Implementations live outside the engine; every operation may fail
// and blocks until the platform acknowledges or the context is done.
type Transport interface {
	// Reply sends text into the chat the original message came from.
	Reply(ctx context.Context, to *Message, text string) (SendResult, error)
	// Send sends text to an arbitrary chat id.
	Send(ctx context.Context, chatID, text string) (SendResult, error)
	// GroupInfo resolves admin membership for a group chat.
	GroupInfo(ctx context.Context, chatID string) (*GroupInfo, error)
	// ResolveIdentity expands a bare identifier into the full dual identity.
	ResolveIdentity(ctx context.Context, raw string) (Identity, error)
	// Self returns the bot's own identity.
	Self() Identity
}
