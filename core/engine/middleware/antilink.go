package middleware

import (
	"fmt"
	"log/slog"
	"regexp"

	"wabot/core/engine"
	"wabot/core/logger"
	"wabot/core/settings"
)

var linkRe = regexp.MustCompile(`(?i)\b(?:https?://|www\.|t\.me/)\S+`)

// maxLinkWarnings is how many warnings a user gets before the counter
// stops climbing and the reply switches to a final notice.
const maxLinkWarnings = 3

// AntiLink warns users who post links in groups where link removal is
// enabled. The message is still dropped from further processing.
func AntiLink(st settings.Store) engine.Stage {
	return engine.Stage{
		Name: "antilink",
		Use: func(next engine.HandlerFunc) engine.HandlerFunc {
			return func(c *engine.Context) error {
				if !c.Chat().IsGroup() || c.Message().FromSelf {
					return next(c)
				}
				if !linkRe.MatchString(c.Message().Text) {
					return next(c)
				}
				on, err := settings.AntiLink(c.Ctx(), st, c.Chat().ID)
				if err != nil {
					logger.Warn(c.Ctx(), "engine", "settings.read_failed",
						slog.String("err", err.Error()),
					)
					return next(c)
				}
				if !on {
					return next(c)
				}

				chatID := c.Chat().ID
				user := c.Sender().String()
				warnings, err := settings.Warnings(c.Ctx(), st, chatID)
				if err != nil {
					return err
				}
				if warnings[user] < maxLinkWarnings {
					warnings[user]++
					if err := st.SetChat(c.Ctx(), chatID, settings.KeyWarnings, warnings); err != nil {
						return err
					}
				}

				logger.Info(c.Ctx(), "engine", "antilink.warned",
					slog.Int("count", warnings[user]),
				)
				if warnings[user] >= maxLinkWarnings {
					_, err = c.Reply("Links are not allowed here. This is your final warning.")
					return err
				}
				_, err = c.Reply(fmt.Sprintf("Links are not allowed here. Warning %d/%d.",
					warnings[user], maxLinkWarnings))
				return err
			}
		},
	}
}
