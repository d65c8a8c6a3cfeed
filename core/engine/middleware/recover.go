// Package middleware provides the pipeline stages that run ahead of
// command dispatch.
package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"wabot/core/engine"
	"wabot/core/logger"
)

// Recover converts panics in downstream stages into logged errors so a
// single malformed update cannot take the engine down.
func Recover() engine.Stage {
	return engine.Stage{
		Name: "recover",
		Use: func(next engine.HandlerFunc) engine.HandlerFunc {
			return func(c *engine.Context) (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("stage panic: %v", r)
						logger.Error(c.Ctx(), "engine", "stage.panic",
							slog.String("err", fmt.Sprint(r)),
							slog.String("stack", logger.SanitizeLimit(string(debug.Stack()), 1500)),
						)
					}
				}()
				return next(c)
			}
		},
	}
}
