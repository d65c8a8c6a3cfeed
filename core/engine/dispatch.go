package engine

import (
	"fmt"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"wabot/core/logger"
	"log/slog"
)

// ownerIdentityKey caches the resolved owner identity in the extras bag so
// the transport lookup happens at most once per message.
const ownerIdentityKey = "owner_identity"

// DispatchConfig wires the terminal pipeline stage.
type DispatchConfig struct {
	Registry *Registry
	Limiter  *Limiter
	Reporter *Reporter
	// Owner is the configured owner identifier; owners bypass rate limits.
	Owner string
	// SuggestLimit caps "did you mean" entries; zero means 3.
	SuggestLimit int
}

// Dispatch returns the terminal pipeline stage: parse, authorize, rate-limit,
// execute. Gate failures are resolved here and never reach the reporter; only
// command-body failures do. The stage calls next only for non-command text.
func Dispatch(cfg DispatchConfig) Stage {
	if cfg.SuggestLimit <= 0 {
		cfg.SuggestLimit = 3
	}
	return Stage{
		Name: "dispatch",
		Use: func(next HandlerFunc) HandlerFunc {
			return func(c *Context) error {
				return dispatch(cfg, c, next)
			}
		},
	}
}

func dispatch(cfg DispatchConfig, c *Context, next HandlerFunc) error {
	msg := c.Message()

	parsed, ok := cfg.Registry.ParsePrefix(msg.Text)
	if !ok {
		// Not a command; let any later stages have their turn.
		return next(c)
	}
	c.RawArgs = parsed.RawArgs
	c.Args = parsed.Args

	cmd, status := cfg.Registry.Resolve(parsed.Token)
	switch status {
	case StatusNotFound:
		replyNotFound(cfg, c, parsed.Token)
		logSkip(c, parsed.Token, "not_found")
		return nil
	case StatusDisabled:
		sendReply(c, fmt.Sprintf("The %s command is currently disabled.", cmd.Name))
		logSkip(c, cmd.Name, "disabled")
		return nil
	}

	owner := resolveOwner(cfg, c)
	isOwner := cfg.Owner != "" && msg.Sender.Matches(owner)

	perm := Evaluate(cmd, PermissionInput{
		Sender:          msg.Sender,
		Owner:           owner,
		Chat:            msg.Chat,
		RuntimeDisabled: cfg.Registry.IsDisabled(cmd.Name),
	}.withGroupInfo(c, cmd))
	if !perm.Allowed {
		if text := perm.Reason.Message(); text != "" {
			sendReply(c, text)
		}
		logSkip(c, cmd.Name, "permission_denied")
		return nil
	}

	user := msg.Sender.String()
	if !isOwner {
		if cfg.Limiter.IsLimited(user, cmd.Name, cmd.Cooldown) {
			remaining := cfg.Limiter.Remaining(user, cmd.Name, cmd.Cooldown)
			sendReply(c, fmt.Sprintf("Slow down. Try again in %.1fs.", remaining.Seconds()))
			logger.Warn(c.Ctx(), "engine.dispatch", "command.rate_limited",
				slog.String("status", "rate_limited"),
				slog.String("command", cmd.Name),
				slog.String("user", user),
				slog.Duration("remaining", remaining),
			)
			return nil
		}
		// Book the invocation before the body runs so a slow command
		// cannot be re-entered by its own user inside the cooldown.
		cfg.Limiter.Record(user, cmd.Name)
	}

	if s := StatsFrom(c); s != nil {
		s.IncCommand(cmd.Name)
	}

	logger.Debug(c.Ctx(), "engine.dispatch", "command.start",
		slog.String("command", cmd.Name),
		slog.String("user", user),
		slog.String("chat_id", msg.Chat.ID),
	)

	start := time.Now()
	stack, err := runBody(cmd, c)
	if err != nil {
		cfg.Reporter.Report(c.Ctx(), msg, cmd.Name, err, stack)
		sendReply(c, cfg.Reporter.UserReply(msg, isOwner, err, cmd.ErrorReply))
	}

	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	attrs := []slog.Attr{
		slog.String("status", outcome),
		slog.String("command", cmd.Name),
		slog.String("user", user),
		slog.String("chat_id", msg.Chat.ID),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	logger.Info(c.Ctx(), "engine.dispatch", "command.handled", attrs...)
	return nil
}

// runBody executes the command handler, converting a panic into an error with
// its stack so exactly one report reaches the reporter either way.
func runBody(cmd *Command, c *Context) (stack []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack = debug.Stack()
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return nil, cmd.Handler(c)
}

// withGroupInfo fills in admin membership, fetched only when a gate needs it.
// A failed lookup leaves the fields empty so admin gates fail closed.
func (in PermissionInput) withGroupInfo(c *Context, cmd *Command) PermissionInput {
	if !in.Chat.IsGroup() || (!cmd.AdminOnly && !cmd.BotAdminRequired) {
		return in
	}
	info, err := c.Transport().GroupInfo(c.Ctx(), in.Chat.ID)
	if err != nil {
		logger.Warn(c.Ctx(), "engine.dispatch", "group_info.failed",
			slog.String("chat_id", in.Chat.ID),
			slog.String("err", err.Error()),
		)
		return in
	}
	in.GroupAdmins = info.Admins
	in.BotIsAdmin = info.BotIsAdmin
	return in
}

func resolveOwner(cfg DispatchConfig, c *Context) Identity {
	if cfg.Owner == "" {
		return Identity{}
	}
	if cached, ok := c.Get(ownerIdentityKey).(Identity); ok {
		return cached
	}
	owner, err := c.Transport().ResolveIdentity(c.Ctx(), cfg.Owner)
	if err != nil {
		logger.Debug(c.Ctx(), "engine.dispatch", "owner.resolve_failed",
			slog.String("err", err.Error()),
		)
		owner = Identity{Primary: cfg.Owner}
	}
	c.Set(ownerIdentityKey, owner)
	return owner
}

func replyNotFound(cfg DispatchConfig, c *Context, token string) {
	text := fmt.Sprintf("Unknown command %q.", token)
	if suggestions := cfg.Registry.Suggest(token, cfg.SuggestLimit); len(suggestions) > 0 {
		prefix := cfg.Registry.Prefix()
		if regexp.QuoteMeta(prefix) != prefix {
			// Regex prefixes have no single printable form.
			prefix = ""
		}
		for i, s := range suggestions {
			suggestions[i] = prefix + s
		}
		text += " Did you mean: " + strings.Join(suggestions, ", ") + "?"
	}
	sendReply(c, text)
}

func logSkip(c *Context, command, reason string) {
	logger.Debug(c.Ctx(), "engine.dispatch", "command.skip",
		slog.String("status", "skip"),
		slog.String("command", command),
		slog.String("cause", reason),
	)
}

func sendReply(c *Context, text string) {
	if text == "" {
		return
	}
	if _, err := c.Reply(text); err != nil {
		logger.Warn(c.Ctx(), "engine.dispatch", "reply.failed",
			slog.String("err", err.Error()),
		)
	}
}
