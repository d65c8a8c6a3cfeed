package middleware

import (
	"log/slog"
	"strings"

	"wabot/core/engine"
	"wabot/core/logger"
	"wabot/core/settings"
)

// Triggers answers messages containing a configured trigger phrase with
// its canned reply. Matching is case-insensitive on substrings. The
// message continues down the pipeline either way.
func Triggers(st settings.Store) engine.Stage {
	return engine.Stage{
		Name: "triggers",
		Use: func(next engine.HandlerFunc) engine.HandlerFunc {
			return func(c *engine.Context) error {
				if c.Message().FromSelf {
					return next(c)
				}
				table, err := settings.Triggers(c.Ctx(), st, c.Chat().ID)
				if err != nil {
					logger.Warn(c.Ctx(), "engine", "settings.read_failed",
						slog.String("err", err.Error()),
					)
					return next(c)
				}
				if len(table) > 0 {
					text := strings.ToLower(c.Message().Text)
					for phrase, reply := range table {
						if phrase != "" && strings.Contains(text, strings.ToLower(phrase)) {
							if _, err := c.Reply(reply); err != nil {
								logger.Warn(c.Ctx(), "engine", "reply.failed",
									slog.String("err", err.Error()),
								)
							}
							break
						}
					}
				}
				return next(c)
			}
		},
	}
}
