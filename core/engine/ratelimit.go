package engine

import (
	"context"
	"sync"
	"time"

	"wabot/core/logger"
	"log/slog"
)

// LimiterConfig is the rate-limit section of the runtime configuration.
type LimiterConfig struct {
	Enabled bool
	// UserCooldown is the minimum interval between any two commands from
	// the same user, regardless of which commands they are.
	UserCooldown time.Duration
	// CommandCooldown is the per-(user,command) cooldown applied when a
	// command does not specify its own.
	CommandCooldown time.Duration
	// BurstLimit caps total accepted invocations per user inside
	// BurstWindow. Zero disables the burst guard.
	BurstLimit  int
	BurstWindow time.Duration
}

type limitKey struct {
	user    string
	command string
}

// Limiter tracks per-(user,command) cooldowns and a per-user sliding burst
// window. Maps are guarded by a mutex since messages are handled on
// independent goroutines; critical sections contain no blocking calls.
type Limiter struct {
	mu     sync.Mutex
	cfg    LimiterConfig
	last   map[limitKey]time.Time
	recent map[string][]time.Time

	now func() time.Time
}

// NewLimiter returns a limiter with empty state.
func NewLimiter(cfg LimiterConfig) *Limiter {
	return &Limiter{
		cfg:    cfg,
		last:   make(map[limitKey]time.Time),
		recent: make(map[string][]time.Time),
		now:    time.Now,
	}
}

// SetConfig swaps the limiter configuration; existing records are kept.
func (l *Limiter) SetConfig(cfg LimiterConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
}

func (l *Limiter) cooldownFor(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return l.cfg.CommandCooldown
}

// IsLimited answers whether the user may invoke the command right now. It
// checks the per-command cooldown, the per-user interval, and the burst
// window, pruning stale burst entries as a side effect.
func (l *Limiter) IsLimited(user, command string, cooldown time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.cfg.Enabled {
		return false
	}
	now := l.now()

	cd := l.cooldownFor(cooldown)
	if cd > 0 {
		if last, ok := l.last[limitKey{user, command}]; ok && now.Sub(last) < cd {
			return true
		}
	}

	window := l.pruneLocked(user, now)
	if l.cfg.UserCooldown > 0 && len(window) > 0 {
		if now.Sub(window[len(window)-1]) < l.cfg.UserCooldown {
			return true
		}
	}
	if l.cfg.BurstLimit > 0 && len(window) >= l.cfg.BurstLimit {
		return true
	}
	return false
}

// Record books one accepted invocation. It must be called exactly once per
// accepted call, before the command body runs, so a long-running command
// cannot be re-entered by its own user within the cooldown.
func (l *Limiter) Record(user, command string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.last[limitKey{user, command}] = now
	window := append(l.pruneLocked(user, now), now)
	// Bound the slice; the burst check never needs more than BurstLimit
	// entries inside the window.
	if max := l.cfg.BurstLimit + 1; max > 1 && len(window) > max {
		window = window[len(window)-max:]
	}
	l.recent[user] = window
}

// Remaining reports how long the user must wait before the command is
// accepted again. It never returns a negative duration.
func (l *Limiter) Remaining(user, command string, cooldown time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.cfg.Enabled {
		return 0
	}
	now := l.now()
	var remaining time.Duration

	if cd := l.cooldownFor(cooldown); cd > 0 {
		if last, ok := l.last[limitKey{user, command}]; ok {
			if d := cd - now.Sub(last); d > remaining {
				remaining = d
			}
		}
	}

	window := l.pruneLocked(user, now)
	if len(window) > 0 {
		if l.cfg.UserCooldown > 0 {
			if d := l.cfg.UserCooldown - now.Sub(window[len(window)-1]); d > remaining {
				remaining = d
			}
		}
		if l.cfg.BurstLimit > 0 && len(window) >= l.cfg.BurstLimit {
			oldest := window[len(window)-l.cfg.BurstLimit]
			if d := l.cfg.BurstWindow - now.Sub(oldest); d > remaining {
				remaining = d
			}
		}
	}

	if remaining < 0 {
		return 0
	}
	return remaining
}

// pruneLocked drops burst entries older than the window. Callers hold l.mu.
func (l *Limiter) pruneLocked(user string, now time.Time) []time.Time {
	window := l.recent[user]
	if len(window) == 0 || l.cfg.BurstWindow <= 0 {
		return window
	}
	cutoff := now.Add(-l.cfg.BurstWindow)
	i := 0
	for i < len(window) && !window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		window = window[i:]
		if len(window) == 0 {
			delete(l.recent, user)
		} else {
			l.recent[user] = window
		}
	}
	return window
}

// Sweep evicts records whose last activity predates the largest configured
// window, bounding per-user memory growth.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	horizon := l.cfg.BurstWindow
	if l.cfg.CommandCooldown > horizon {
		horizon = l.cfg.CommandCooldown
	}
	if l.cfg.UserCooldown > horizon {
		horizon = l.cfg.UserCooldown
	}
	if horizon <= 0 {
		horizon = time.Hour
	}
	cutoff := now.Add(-horizon)

	evicted := 0
	for k, ts := range l.last {
		if ts.Before(cutoff) {
			delete(l.last, k)
			evicted++
		}
	}
	for user, window := range l.recent {
		if len(window) == 0 || window[len(window)-1].Before(cutoff) {
			delete(l.recent, user)
			evicted++
		}
	}
	return evicted
}

// RunSweeper prunes expired rate records periodically until ctx is done.
func (l *Limiter) RunSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				logger.Debug(ctx, "engine", "ratelimit.sweep",
					slog.Int("evicted", n),
				)
			}
		}
	}
}
