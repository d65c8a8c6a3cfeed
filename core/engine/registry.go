package engine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"wabot/core/logger"
	"log/slog"

	"github.com/hashicorp/go-multierror"
)

// ResolveStatus is the outcome of a registry lookup. Disabled is distinct
// from NotFound so dispatch can answer "disabled" instead of "did you mean".
type ResolveStatus int

const (
	// StatusFound means the token resolved to an invocable command.
	StatusFound ResolveStatus = iota
	// StatusNotFound means no command or alias matched the token.
	StatusNotFound
	// StatusDisabled means the token matched a runtime-disabled command.
	StatusDisabled
)

// RuntimeConfig is the externally-owned configuration surface the registry
// consumes on Reload.
type RuntimeConfig struct {
	Prefix           string
	Aliases          map[string]string
	DisabledCommands []string
}

// Registry owns the canonical-name and alias maps plus the prefix matcher.
// All maps are guarded by one RWMutex; lookups dominate, mutation happens at
// load time and on Reload.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
	aliases  map[string]string
	// static aliases win over config-table ones on Reload.
	staticAliases map[string]struct{}
	// disabled holds the config-file list; overrides holds runtime toggles,
	// which win over the config list and survive Reload.
	disabled  map[string]struct{}
	overrides map[string]bool

	prefix string
	// Derived matcher state, recomputed lazily when prefix changes.
	compiledFor string
	prefixRe    *regexp.Regexp
}

// NewRegistry returns an empty registry with the default "/" prefix.
func NewRegistry() *Registry {
	return &Registry{
		commands:      make(map[string]*Command),
		aliases:       make(map[string]string),
		staticAliases: make(map[string]struct{}),
		disabled:      make(map[string]struct{}),
		overrides:     make(map[string]bool),
		prefix:        "/",
	}
}

// Register inserts a command under its canonical name and every alias.
// An alias that is already taken is overwritten silently; last registration
// wins. The conflict is logged but non-fatal.
func (r *Registry) Register(cmd *Command) {
	if cmd == nil || cmd.Name == "" || cmd.Handler == nil {
		logger.Warn(context.Background(), "engine", "register.skip",
			slog.String("reason", "invalid"),
		)
		return
	}
	name := strings.ToLower(cmd.Name)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = cmd
	r.aliases[name] = name
	r.staticAliases[name] = struct{}{}
	for _, a := range cmd.Aliases {
		alias := strings.ToLower(a)
		if alias == "" {
			continue
		}
		if prev, taken := r.aliases[alias]; taken && prev != name {
			logger.Warn(context.Background(), "engine", "register.alias.conflict",
				slog.String("alias", alias),
				slog.String("was", prev),
				slog.String("now", name),
			)
		}
		r.aliases[alias] = name
		r.staticAliases[alias] = struct{}{}
	}
}

// Resolve maps a token to a command. The alias table is consulted first, then
// the canonical map. A hit on a runtime-disabled command reports
// StatusDisabled with the command still returned for messaging.
func (r *Registry) Resolve(token string) (*Command, ResolveStatus) {
	key := strings.ToLower(strings.TrimSpace(token))
	if key == "" {
		return nil, StatusNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.aliases[key]
	if !ok {
		canonical = key
	}
	cmd, ok := r.commands[canonical]
	if !ok {
		return nil, StatusNotFound
	}
	if r.disabledLocked(canonical) {
		return cmd, StatusDisabled
	}
	return cmd, StatusFound
}

// disabledLocked resolves the effective disabled state: a runtime toggle
// wins over the config list. Callers hold r.mu.
func (r *Registry) disabledLocked(name string) bool {
	if off, ok := r.overrides[name]; ok {
		return off
	}
	_, off := r.disabled[name]
	return off
}

// known reports whether the token maps to any command, disabled or not.
// Used by empty-prefix parsing so plain sentences are never swallowed.
func (r *Registry) known(token string) bool {
	key := strings.ToLower(token)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.aliases[key]; ok {
		return true
	}
	_, ok := r.commands[key]
	return ok
}

// Parsed is the outcome of splitting an inbound text into command parts.
type Parsed struct {
	Token   string
	RawArgs string
	Args    []string
}

// ParsePrefix splits text into a command token and arguments. The configured
// prefix is a literal string unless it contains regex metacharacters, in
// which case it is compiled anchored at the start. An empty prefix means no
// prefix is required, and then a leading token only counts as a command when
// it resolves in the registry.
func (r *Registry) ParsePrefix(text string) (Parsed, bool) {
	prefix, re := r.matcher()

	rest := ""
	switch {
	case re != nil:
		loc := re.FindStringIndex(text)
		if loc == nil || loc[0] != 0 {
			return Parsed{}, false
		}
		rest = text[loc[1]:]
	case prefix != "":
		if !strings.HasPrefix(text, prefix) {
			return Parsed{}, false
		}
		rest = text[len(prefix):]
	default:
		rest = text
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Parsed{}, false
	}

	token := rest
	rawArgs := ""
	if i := strings.IndexFunc(rest, isSpace); i >= 0 {
		token = rest[:i]
		rawArgs = strings.TrimSpace(rest[i:])
	}

	if prefix == "" && re == nil && !r.known(token) {
		return Parsed{}, false
	}

	return Parsed{
		Token:   strings.ToLower(token),
		RawArgs: rawArgs,
		Args:    strings.Fields(rawArgs),
	}, true
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

// matcher returns the current prefix and, for regex prefixes, the compiled
// pattern. Recompilation only happens when the prefix string changed since
// the last call; the equality check keeps the hot path cheap.
func (r *Registry) matcher() (string, *regexp.Regexp) {
	r.mu.RLock()
	if r.prefix == r.compiledFor {
		prefix, re := r.prefix, r.prefixRe
		r.mu.RUnlock()
		return prefix, re
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prefix != r.compiledFor {
		r.prefixRe = nil
		if r.prefix != "" && regexp.QuoteMeta(r.prefix) != r.prefix {
			re, err := regexp.Compile("^(?:" + r.prefix + ")")
			if err != nil {
				logger.Warn(context.Background(), "engine", "prefix.compile_failed",
					slog.String("prefix", r.prefix),
					slog.String("err", err.Error()),
				)
			} else {
				r.prefixRe = re
			}
		}
		r.compiledFor = r.prefix
	}
	return r.prefix, r.prefixRe
}

// SetPrefix updates the configured prefix. The matcher is rebuilt lazily on
// the next parse.
func (r *Registry) SetPrefix(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefix = prefix
}

// Prefix returns the configured prefix string.
func (r *Registry) Prefix() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefix
}

// SetDisabled records a runtime toggle for the command. A toggle overrides
// the config-file disabled list in both directions and is kept across Reload.
func (r *Registry) SetDisabled(name string, disabled bool) {
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[key] = disabled
}

// IsDisabled reports whether the command is disabled, by runtime toggle or
// by the config list.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disabledLocked(strings.ToLower(name))
}

// Reload swaps in a fresh runtime snapshot: prefix, config-table aliases, and
// the disabled-commands list. Static aliases keep precedence over config ones,
// and runtime toggles set through SetDisabled are left in place.
// Validation findings are accumulated and returned; the snapshot is applied
// regardless so a bad alias cannot block a prefix change.
func (r *Registry) Reload(cfg RuntimeConfig) error {
	var errs *multierror.Error

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefix = cfg.Prefix

	// Rebuild the alias table from static entries, then layer config aliases.
	aliases := make(map[string]string, len(r.aliases))
	for a := range r.staticAliases {
		aliases[a] = r.aliases[a]
	}
	for alias, target := range cfg.Aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		target = strings.ToLower(strings.TrimSpace(target))
		if alias == "" || target == "" {
			continue
		}
		if _, ok := r.commands[target]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("alias %q targets unknown command %q", alias, target))
			continue
		}
		if _, static := r.staticAliases[alias]; static {
			errs = multierror.Append(errs, fmt.Errorf("alias %q conflicts with a built-in name", alias))
			continue
		}
		aliases[alias] = target
	}
	r.aliases = aliases

	disabled := make(map[string]struct{}, len(cfg.DisabledCommands))
	for _, name := range cfg.DisabledCommands {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := r.commands[name]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("disabled entry %q is not a registered command", name))
			continue
		}
		disabled[name] = struct{}{}
	}
	r.disabled = disabled

	return errs.ErrorOrNil()
}

// All returns every registered command sorted by canonical name.
func (r *Registry) All() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
