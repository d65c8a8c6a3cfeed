package middleware

import (
	"log/slog"

	"wabot/core/engine"
	"wabot/core/logger"
	"wabot/core/settings"
)

// MuteFilter silently drops group messages from muted users.
func MuteFilter(st settings.Store) engine.Stage {
	return engine.Stage{
		Name: "mute_filter",
		Use: func(next engine.HandlerFunc) engine.HandlerFunc {
			return func(c *engine.Context) error {
				if !c.Chat().IsGroup() || c.Message().FromSelf {
					return next(c)
				}
				muted, err := settings.Muted(c.Ctx(), st, c.Chat().ID)
				if err != nil {
					logger.Warn(c.Ctx(), "engine", "settings.read_failed",
						slog.String("err", err.Error()),
					)
					return next(c)
				}
				sender := c.Sender()
				for _, id := range muted {
					if sender.MatchesRaw(id) {
						logger.Debug(c.Ctx(), "engine", "message.muted",
							slog.String("status", "skip"),
						)
						return nil
					}
				}
				return next(c)
			}
		},
	}
}
