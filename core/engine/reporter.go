package engine

import (
	"context"
	"fmt"
	"strings"

	"wabot/core/logger"
	"log/slog"

	"github.com/google/uuid"
)

const maxReportStack = 1500

// Reporter turns command failures into structured reports delivered to the
// configured owner, or to the bot's own chat as a self-note when no owner is
// set. Delivery failures are logged and swallowed; Report never raises.
type Reporter struct {
	transport Transport
	// owner is the configured owner identifier; empty means unset.
	owner string
}

// NewReporter builds a reporter delivering to the given owner identifier.
func NewReporter(t Transport, owner string) *Reporter {
	return &Reporter{transport: t, owner: owner}
}

// Report builds the failure report and attempts delivery. The returned report
// id correlates the owner notification with the log line.
func (r *Reporter) Report(ctx context.Context, msg *Message, command string, cause error, stack []byte) string {
	id := uuid.NewString()

	var b strings.Builder
	fmt.Fprintf(&b, "⚠ Command failure %s\n", id)
	fmt.Fprintf(&b, "command: %s\n", command)
	fmt.Fprintf(&b, "sender: %s\n", msg.Sender.String())
	fmt.Fprintf(&b, "chat: %s (%s)\n", msg.Chat.ID, msg.Chat.Type)
	fmt.Fprintf(&b, "error: %T: %v\n", cause, cause)
	if len(stack) > 0 {
		trace := logger.SanitizeLimit(string(stack), maxReportStack)
		fmt.Fprintf(&b, "stack:\n%s", trace)
	}

	target := r.owner
	if target == "" {
		// No owner configured: keep the report as a self-note.
		target = r.transport.Self().String()
	}

	logger.Error(ctx, "reporter", "command.failed",
		slog.String("report_id", id),
		slog.String("command", command),
		slog.String("user", msg.Sender.String()),
		slog.String("chat_id", msg.Chat.ID),
		slog.String("err", logger.SanitizeLimit(cause.Error(), 256)),
	)

	if target == "" {
		return id
	}
	if _, err := r.transport.Send(ctx, target, b.String()); err != nil {
		logger.Warn(ctx, "reporter", "report.delivery_failed",
			slog.String("report_id", id),
			slog.String("target", target),
			slog.String("err", err.Error()),
		)
	}
	return id
}

// UserReply decides what the triggering user sees. The owner debugging in
// their own private chat gets the raw error; everyone else gets a generic
// localized line, unless the command supplies its own.
func (r *Reporter) UserReply(msg *Message, senderIsOwner bool, cause error, override string) string {
	if senderIsOwner && !msg.Chat.IsGroup() {
		return fmt.Sprintf("%T: %v", cause, cause)
	}
	if override != "" {
		return override
	}
	return genericFailureReply
}
