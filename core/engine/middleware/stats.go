package middleware

import "wabot/core/engine"

// Stats counts every message that reaches this stage and exposes the
// counters to downstream handlers through the context.
func Stats(s *engine.Stats) engine.Stage {
	return engine.Stage{
		Name: "stats",
		Use: func(next engine.HandlerFunc) engine.HandlerFunc {
			return func(c *engine.Context) error {
				s.IncMessage()
				c.Set(engine.StatsKey, s)
				return next(c)
			}
		},
	}
}
