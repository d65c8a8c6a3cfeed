package engine

import (
	"runtime/debug"

	"wabot/core/logger"
	"log/slog"
)

// HandlerFunc processes a message context. It is the shape of both pipeline
// links and command bodies.
type HandlerFunc func(c *Context) error

// MiddlewareFunc wraps the next handler in the chain. A middleware that never
// invokes next short-circuits the rest of the pipeline for that message; that
// is the only supported short-circuit mechanism.
type MiddlewareFunc func(next HandlerFunc) HandlerFunc

// Stage is one named pipeline step. Order is fixed at construction and
// significant: e.g. the self-mode filter must run before anything that would
// act on the bot's own messages, and dispatch runs last.
type Stage struct {
	Name string
	Use  MiddlewareFunc
}

// Pipeline is an ordered middleware chain composed once at construction.
type Pipeline struct {
	names []string
	chain HandlerFunc
}

// NewPipeline composes the stages around a terminal no-op. Each stage records
// its name in the request context before running, so log lines carry the stage
// that emitted them.
func NewPipeline(stages ...Stage) *Pipeline {
	chain := HandlerFunc(func(*Context) error { return nil })
	names := make([]string, 0, len(stages))
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i].Use == nil {
			continue
		}
		name := stages[i].Name
		inner := stages[i].Use(chain)
		chain = func(c *Context) error {
			c.WithCtx(logger.WithStage(c.Ctx(), name))
			return inner(c)
		}
		names = append(names, name)
	}
	return &Pipeline{names: names, chain: chain}
}

// Execute runs the message through the chain. It is the top-level event
// handler: stage errors are logged here, and a panic that escapes every stage
// is contained so one message can never take the process down.
func (p *Pipeline) Execute(c *Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(c.Ctx(), "engine", "pipeline.panic",
				slog.Any("err", r),
				slog.String("stack", logger.SanitizeLimit(string(debug.Stack()), 2048)),
			)
		}
	}()
	if err := p.chain(c); err != nil {
		logger.Error(c.Ctx(), "engine", "pipeline.failed",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}
