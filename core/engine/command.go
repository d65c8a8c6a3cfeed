package engine

import "time"

// Scope restricts where a command may be invoked.
type Scope int

const (
	// ScopeAny allows invocation from any chat.
	ScopeAny Scope = iota
	// ScopePrivate allows invocation only in private chats.
	ScopePrivate
	// ScopeGroup allows invocation only in group chats.
	ScopeGroup
)

// Command is an immutable command descriptor. Instances are created during
// registry load; runtime enable/disable goes through the registry's disabled
// set, not through this struct.
type Command struct {
	// Name is the canonical lower-case key.
	Name        string
	Aliases     []string
	Description string
	// Usage is shown in help output, e.g. "mute <user>".
	Usage    string
	Category string

	Enabled bool
	Scope   Scope

	OwnerOnly        bool
	AdminOnly        bool
	BotAdminRequired bool

	// Cooldown between invocations per user. Zero falls back to the
	// limiter's configured default.
	Cooldown time.Duration

	// ErrorReply overrides the generic failure message shown to the
	// triggering user when the handler returns an error.
	ErrorReply string

	// Hidden commands are omitted from help listings.
	Hidden bool

	Handler HandlerFunc
}
