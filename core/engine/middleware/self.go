package middleware

import (
	"log/slog"

	"wabot/core/engine"
	"wabot/core/logger"
	"wabot/core/settings"
)

// SelfFilter drops the bot's own outgoing messages unless self mode is
// enabled. With self mode on they flow through the pipeline like any
// other message, which lets the owner drive the bot from its own
// account.
func SelfFilter(st settings.Store) engine.Stage {
	return engine.Stage{
		Name: "self_filter",
		Use: func(next engine.HandlerFunc) engine.HandlerFunc {
			return func(c *engine.Context) error {
				if !c.Message().FromSelf {
					return next(c)
				}
				on, err := settings.SelfMode(c.Ctx(), st)
				if err != nil {
					logger.Warn(c.Ctx(), "engine", "settings.read_failed",
						slog.String("err", err.Error()),
					)
				}
				if !on {
					return nil
				}
				return next(c)
			}
		},
	}
}
