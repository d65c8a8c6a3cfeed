package logger

import (
	"context"
	"strings"
	"unicode"
)

// contextKey is a private type to avoid collisions in context.
type contextKey string

const (
	ctxRID       contextKey = "rid"
	ctxMessageID contextKey = "message_id"
	ctxUser      contextKey = "user"
	ctxChatID    contextKey = "chat_id"
	ctxStage     contextKey = "stage"
)

// WithRID attaches a request correlation id to the context.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts the rid from context if present.
func RIDFrom(ctx context.Context) string {
	return stringFrom(ctx, ctxRID)
}

// WithMessageMeta attaches the common message identifiers to context.
// Chat and user ids are platform strings, not numbers.
func WithMessageMeta(ctx context.Context, messageID, chatID, user string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxMessageID, messageID)
	ctx = context.WithValue(ctx, ctxChatID, chatID)
	ctx = context.WithValue(ctx, ctxUser, user)
	return ctx
}

// WithStage records the pipeline stage currently processing the message.
func WithStage(ctx context.Context, stage string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxStage, stage)
}

// StageFrom returns the pipeline stage recorded in context, if any.
func StageFrom(ctx context.Context) string {
	return stringFrom(ctx, ctxStage)
}

// MessageIDFrom extracts the message id from context.
func MessageIDFrom(ctx context.Context) string {
	return stringFrom(ctx, ctxMessageID)
}

// ChatIDFrom extracts the chat id from context.
func ChatIDFrom(ctx context.Context) string {
	return stringFrom(ctx, ctxChatID)
}

// UserFrom extracts the sender identifier from context.
func UserFrom(ctx context.Context) string {
	return stringFrom(ctx, ctxUser)
}

func stringFrom(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// BuildRID returns a correlation identifier built from message coordinates.
func BuildRID(messageID, chatID string) string {
	if messageID == "" && chatID == "" {
		return ""
	}
	return messageID + "@" + chatID
}

// Sanitize trims non-printable runes from s to keep logs clean. It removes
// control characters except tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	b := strings.Builder{}
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and limits the output length in runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	cleaned := Sanitize(s)
	if len([]rune(cleaned)) <= max {
		return cleaned
	}
	r := []rune(cleaned)
	return string(r[:max])
}
