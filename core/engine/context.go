package engine

import (
	"context"
	"sync"
)

// Context carries one inbound message through the pipeline. It is created per
// event, never shared across events, and discarded when Execute returns.
type Context struct {
	transport Transport
	msg       *Message
	ctx       context.Context

	// Parsed command fields, populated by the dispatch stage.
	Args    []string
	RawArgs string

	mu     sync.Mutex
	extras map[string]any
}

// NewContext builds a pipeline context for one inbound message.
func NewContext(ctx context.Context, t Transport, msg *Message) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{transport: t, msg: msg, ctx: ctx}
}

// Ctx returns the request-scoped context.Context for transport calls and logs.
func (c *Context) Ctx() context.Context { return c.ctx }

// WithCtx replaces the request-scoped context, e.g. to enrich logging metadata.
func (c *Context) WithCtx(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
}

// Message returns the inbound message.
func (c *Context) Message() *Message { return c.msg }

// Transport returns the transport handle.
func (c *Context) Transport() Transport { return c.transport }

// Chat returns the chat the message arrived in.
func (c *Context) Chat() Chat { return c.msg.Chat }

// Sender returns the message author.
func (c *Context) Sender() Identity { return c.msg.Sender }

// Reply sends text back into the originating chat.
func (c *Context) Reply(text string) (SendResult, error) {
	return c.transport.Reply(c.ctx, c.msg, text)
}

// Send sends text to an arbitrary chat.
func (c *Context) Send(chatID, text string) (SendResult, error) {
	return c.transport.Send(c.ctx, chatID, text)
}

// Set stores a value in the per-message extras bag. Upstream stages use it to
// pass data to downstream stages without widening the context shape.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.extras == nil {
		c.extras = make(map[string]any)
	}
	c.extras[key] = value
}

// Get reads a value from the extras bag, or nil when absent.
func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extras[key]
}
