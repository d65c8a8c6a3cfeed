package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"wabot/core/engine"
	"wabot/core/settings"
)

// deps carries what the built-in command handlers need.
type deps struct {
	registry  *engine.Registry
	store     settings.Store
	startedAt time.Time
}

func registerCommands(r *engine.Registry, d *deps) {
	r.Register(&engine.Command{
		Name:        "ping",
		Description: "Check that the bot is alive",
		Category:    "general",
		Enabled:     true,
		Cooldown:    3 * time.Second,
		Handler:     d.ping,
	})
	r.Register(&engine.Command{
		Name:        "help",
		Aliases:     []string{"commands"},
		Description: "List available commands",
		Usage:       "help [command]",
		Category:    "general",
		Enabled:     true,
		Handler:     d.help,
	})
	r.Register(&engine.Command{
		Name:        "stats",
		Description: "Show message and command counters",
		Category:    "general",
		Enabled:     true,
		Handler:     d.stats,
	})
	r.Register(&engine.Command{
		Name:        "prefix",
		Description: "Change the command prefix",
		Usage:       "prefix <new-prefix>",
		Category:    "admin",
		Enabled:     true,
		OwnerOnly:   true,
		Handler:     d.prefix,
	})
	r.Register(&engine.Command{
		Name:        "toggle",
		Description: "Enable or disable a command at runtime",
		Usage:       "toggle <command>",
		Category:    "admin",
		Enabled:     true,
		OwnerOnly:   true,
		Handler:     d.toggle,
	})
	r.Register(&engine.Command{
		Name:        "selfmode",
		Description: "Process the bot's own messages",
		Usage:       "selfmode on|off",
		Category:    "admin",
		Enabled:     true,
		OwnerOnly:   true,
		Hidden:      true,
		Handler:     d.selfmode,
	})
	r.Register(&engine.Command{
		Name:        "mute",
		Description: "Mute a user in this group",
		Usage:       "mute <@user|id>",
		Category:    "moderation",
		Enabled:     true,
		Scope:       engine.ScopeGroup,
		AdminOnly:   true,
		Handler:     d.mute,
	})
	r.Register(&engine.Command{
		Name:        "unmute",
		Description: "Unmute a user in this group",
		Usage:       "unmute <@user|id>",
		Category:    "moderation",
		Enabled:     true,
		Scope:       engine.ScopeGroup,
		AdminOnly:   true,
		Handler:     d.unmute,
	})
	r.Register(&engine.Command{
		Name:        "antilink",
		Description: "Toggle link removal in this group",
		Usage:       "antilink on|off",
		Category:    "moderation",
		Enabled:     true,
		Scope:       engine.ScopeGroup,
		AdminOnly:   true,
		Handler:     d.antilink,
	})
	r.Register(&engine.Command{
		Name:        "trigger",
		Description: "Manage auto-reply triggers",
		Usage:       "trigger add <phrase> | <reply>, trigger del <phrase>, trigger list",
		Category:    "moderation",
		Enabled:     true,
		Scope:       engine.ScopeGroup,
		AdminOnly:   true,
		Handler:     d.trigger,
	})
}

func (d *deps) ping(c *engine.Context) error {
	up := time.Since(d.startedAt).Round(time.Second)
	_, err := c.Reply(fmt.Sprintf("pong (up %s)", up))
	return err
}

func (d *deps) help(c *engine.Context) error {
	prefix := d.registry.Prefix()

	if len(c.Args) > 0 {
		cmd, status := d.registry.Resolve(c.Args[0])
		if status != engine.StatusFound {
			_, err := c.Reply(fmt.Sprintf("Unknown command: %s", c.Args[0]))
			return err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s%s - %s", prefix, cmd.Name, cmd.Description)
		if cmd.Usage != "" {
			fmt.Fprintf(&b, "\nUsage: %s%s", prefix, cmd.Usage)
		}
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&b, "\nAliases: %s", strings.Join(cmd.Aliases, ", "))
		}
		_, err := c.Reply(b.String())
		return err
	}

	byCategory := make(map[string][]*engine.Command)
	for _, cmd := range d.registry.All() {
		if cmd.Hidden || d.registry.IsDisabled(cmd.Name) {
			continue
		}
		byCategory[cmd.Category] = append(byCategory[cmd.Category], cmd)
	}
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, cat := range categories {
		fmt.Fprintf(&b, "\n[%s]\n", cat)
		for _, cmd := range byCategory[cat] {
			fmt.Fprintf(&b, "%s%s - %s\n", prefix, cmd.Name, cmd.Description)
		}
	}
	_, err := c.Reply(strings.TrimRight(b.String(), "\n"))
	return err
}

func (d *deps) stats(c *engine.Context) error {
	s := engine.StatsFrom(c)
	if s == nil {
		_, err := c.Reply("No counters yet.")
		return err
	}

	var total uint64
	top := ""
	var topCount uint64
	for name, n := range s.Commands() {
		total += n
		if n > topCount {
			top, topCount = name, n
		}
	}

	text := fmt.Sprintf("Messages seen: %d\nCommands handled: %d", s.Messages(), total)
	if top != "" {
		text += fmt.Sprintf("\nMost used: %s (%d)", top, topCount)
	}
	_, err := c.Reply(text)
	return err
}

func (d *deps) prefix(c *engine.Context) error {
	if len(c.Args) != 1 {
		_, err := c.Reply("Usage: prefix <new-prefix>")
		return err
	}
	d.registry.SetPrefix(c.Args[0])
	_, err := c.Reply(fmt.Sprintf("Prefix changed to %q", c.Args[0]))
	return err
}

func (d *deps) toggle(c *engine.Context) error {
	if len(c.Args) != 1 {
		_, err := c.Reply("Usage: toggle <command>")
		return err
	}
	name := c.Args[0]
	cmd, status := d.registry.Resolve(name)
	if status == engine.StatusNotFound {
		_, err := c.Reply(fmt.Sprintf("Unknown command: %s", name))
		return err
	}
	disabled := !d.registry.IsDisabled(cmd.Name)
	d.registry.SetDisabled(cmd.Name, disabled)
	if err := settings.SetDisabledToggle(c.Ctx(), d.store, cmd.Name, disabled); err != nil {
		return err
	}
	state := "enabled"
	if disabled {
		state = "disabled"
	}
	_, err := c.Reply(fmt.Sprintf("The %s command is now %s.", cmd.Name, state))
	return err
}

func (d *deps) selfmode(c *engine.Context) error {
	on, ok := parseOnOff(c.Args)
	if !ok {
		_, err := c.Reply("Usage: selfmode on|off")
		return err
	}
	if err := settings.SetSelfMode(c.Ctx(), d.store, on); err != nil {
		return err
	}
	_, err := c.Reply(fmt.Sprintf("Self mode %s.", onOff(on)))
	return err
}

func (d *deps) mute(c *engine.Context) error {
	if len(c.Args) != 1 {
		_, err := c.Reply("Usage: mute <@user|id>")
		return err
	}
	id, err := c.Transport().ResolveIdentity(c.Ctx(), c.Args[0])
	if err != nil {
		_, rerr := c.Reply(fmt.Sprintf("Cannot resolve %s.", c.Args[0]))
		return rerr
	}

	chatID := c.Chat().ID
	muted, err := settings.Muted(c.Ctx(), d.store, chatID)
	if err != nil {
		return err
	}
	for _, m := range muted {
		if id.MatchesRaw(m) {
			_, err := c.Reply("Already muted.")
			return err
		}
	}
	muted = append(muted, id.Primary)
	if err := d.store.SetChat(c.Ctx(), chatID, settings.KeyMuted, muted); err != nil {
		return err
	}
	_, err = c.Reply(fmt.Sprintf("Muted %s.", id.String()))
	return err
}

func (d *deps) unmute(c *engine.Context) error {
	if len(c.Args) != 1 {
		_, err := c.Reply("Usage: unmute <@user|id>")
		return err
	}
	id, err := c.Transport().ResolveIdentity(c.Ctx(), c.Args[0])
	if err != nil {
		_, rerr := c.Reply(fmt.Sprintf("Cannot resolve %s.", c.Args[0]))
		return rerr
	}

	chatID := c.Chat().ID
	muted, err := settings.Muted(c.Ctx(), d.store, chatID)
	if err != nil {
		return err
	}
	kept := muted[:0]
	for _, m := range muted {
		if !id.MatchesRaw(m) {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(muted) {
		_, err := c.Reply("That user is not muted.")
		return err
	}
	if err := d.store.SetChat(c.Ctx(), chatID, settings.KeyMuted, kept); err != nil {
		return err
	}
	_, err = c.Reply(fmt.Sprintf("Unmuted %s.", id.String()))
	return err
}

func (d *deps) antilink(c *engine.Context) error {
	on, ok := parseOnOff(c.Args)
	if !ok {
		_, err := c.Reply("Usage: antilink on|off")
		return err
	}
	if err := d.store.SetChat(c.Ctx(), c.Chat().ID, settings.KeyAntiLink, on); err != nil {
		return err
	}
	_, err := c.Reply(fmt.Sprintf("Anti-link %s.", onOff(on)))
	return err
}

func (d *deps) trigger(c *engine.Context) error {
	chatID := c.Chat().ID
	if len(c.Args) == 0 {
		_, err := c.Reply("Usage: trigger add <phrase> | <reply>, trigger del <phrase>, trigger list")
		return err
	}

	table, err := settings.Triggers(c.Ctx(), d.store, chatID)
	if err != nil {
		return err
	}
	if table == nil {
		table = make(map[string]string)
	}

	switch c.Args[0] {
	case "add":
		rest := strings.TrimSpace(strings.TrimPrefix(c.RawArgs, "add"))
		phrase, reply, found := strings.Cut(rest, "|")
		phrase, reply = strings.TrimSpace(phrase), strings.TrimSpace(reply)
		if !found || phrase == "" || reply == "" {
			_, err := c.Reply("Usage: trigger add <phrase> | <reply>")
			return err
		}
		table[strings.ToLower(phrase)] = reply
		if err := d.store.SetChat(c.Ctx(), chatID, settings.KeyTriggers, table); err != nil {
			return err
		}
		_, err := c.Reply(fmt.Sprintf("Trigger %q added.", phrase))
		return err
	case "del":
		if len(c.Args) < 2 {
			_, err := c.Reply("Usage: trigger del <phrase>")
			return err
		}
		phrase := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c.RawArgs, "del")))
		if _, ok := table[phrase]; !ok {
			_, err := c.Reply(fmt.Sprintf("No trigger %q.", phrase))
			return err
		}
		delete(table, phrase)
		if err := d.store.SetChat(c.Ctx(), chatID, settings.KeyTriggers, table); err != nil {
			return err
		}
		_, err := c.Reply(fmt.Sprintf("Trigger %q removed.", phrase))
		return err
	case "list":
		if len(table) == 0 {
			_, err := c.Reply("No triggers configured.")
			return err
		}
		phrases := make([]string, 0, len(table))
		for p := range table {
			phrases = append(phrases, p)
		}
		sort.Strings(phrases)
		var b strings.Builder
		b.WriteString("Triggers:\n")
		for _, p := range phrases {
			fmt.Fprintf(&b, "%s -> %s\n", p, table[p])
		}
		_, err := c.Reply(strings.TrimRight(b.String(), "\n"))
		return err
	default:
		_, err := c.Reply("Usage: trigger add|del|list")
		return err
	}
}

func parseOnOff(args []string) (on, ok bool) {
	if len(args) != 1 {
		return false, false
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		return true, true
	case "off", "false", "0":
		return false, true
	}
	return false, false
}

func onOff(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
