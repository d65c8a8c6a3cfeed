package engine

import "sync"

// StatsKey is the extras-bag key under which the stats stage publishes its
// counters handle for the dispatch stage.
const StatsKey = "stats"

// Stats counts processed messages and executed commands. One instance is
// shared across all messages, so access is mutex-guarded.
type Stats struct {
	mu       sync.Mutex
	messages uint64
	commands map[string]uint64
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{commands: make(map[string]uint64)}
}

// IncMessage counts one processed inbound message.
func (s *Stats) IncMessage() {
	s.mu.Lock()
	s.messages++
	s.mu.Unlock()
}

// IncCommand counts one executed command invocation.
func (s *Stats) IncCommand(name string) {
	s.mu.Lock()
	s.commands[name]++
	s.mu.Unlock()
}

// Messages returns the total processed message count.
func (s *Stats) Messages() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages
}

// Commands returns a copy of the per-command invocation counts.
func (s *Stats) Commands() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.commands))
	for k, v := range s.commands {
		out[k] = v
	}
	return out
}

// StatsFrom extracts the counters handle from the context extras bag, or nil
// when the stats stage is not part of the pipeline.
func StatsFrom(c *Context) *Stats {
	s, _ := c.Get(StatsKey).(*Stats)
	return s
}
