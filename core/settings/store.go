// Package settings persists global and per-chat runtime settings.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
)

// Well-known setting keys.
const (
	// KeySelfMode toggles processing of the bot's own messages (global).
	KeySelfMode = "selfmode"
	// KeyDisabled holds runtime command enable/disable toggles (global).
	KeyDisabled = "disabled"
	// KeyMuted lists muted user identifiers (per chat).
	KeyMuted = "muted"
	// KeyAntiLink toggles link removal in groups (per chat).
	KeyAntiLink = "antilink"
	// KeyTriggers maps trigger phrases to canned replies (per chat).
	KeyTriggers = "triggers"
	// KeyWarnings counts anti-link warnings per user (per chat).
	KeyWarnings = "warnings"
)

// Store reads and writes settings. Global values are plain strings,
// per-chat values are JSON documents.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error

	// GetChat unmarshals the chat-scoped value into out. The bool reports
	// whether the key exists.
	GetChat(ctx context.Context, chatID, key string, out any) (bool, error)
	SetChat(ctx context.Context, chatID, key string, val any) error
}

// SelfMode reports whether the engine should process the bot's own messages.
func SelfMode(ctx context.Context, st Store) (bool, error) {
	v, ok, err := st.Get(ctx, KeySelfMode)
	if err != nil || !ok {
		return false, err
	}
	return v == "true", nil
}

// SetSelfMode stores the self-mode flag.
func SetSelfMode(ctx context.Context, st Store, on bool) error {
	v := "false"
	if on {
		v = "true"
	}
	return st.Set(ctx, KeySelfMode, v)
}

// DisabledToggles returns the persisted runtime command toggles, a map of
// command name to disabled state.
func DisabledToggles(ctx context.Context, st Store) (map[string]bool, error) {
	raw, ok, err := st.Get(ctx, KeyDisabled)
	if err != nil || !ok || raw == "" {
		return map[string]bool{}, err
	}
	toggles := make(map[string]bool)
	if err := json.Unmarshal([]byte(raw), &toggles); err != nil {
		return map[string]bool{}, fmt.Errorf("settings: decode %s: %w", KeyDisabled, err)
	}
	return toggles, nil
}

// SetDisabledToggle persists one command's runtime toggle.
func SetDisabledToggle(ctx context.Context, st Store, name string, disabled bool) error {
	toggles, err := DisabledToggles(ctx, st)
	if err != nil {
		return err
	}
	toggles[name] = disabled
	raw, err := json.Marshal(toggles)
	if err != nil {
		return err
	}
	return st.Set(ctx, KeyDisabled, string(raw))
}

// Muted returns the muted user identifiers for a chat.
func Muted(ctx context.Context, st Store, chatID string) ([]string, error) {
	var users []string
	if _, err := st.GetChat(ctx, chatID, KeyMuted, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AntiLink reports whether link removal is enabled for a chat.
func AntiLink(ctx context.Context, st Store, chatID string) (bool, error) {
	var on bool
	if _, err := st.GetChat(ctx, chatID, KeyAntiLink, &on); err != nil {
		return false, err
	}
	return on, nil
}

// Triggers returns the trigger phrase table for a chat.
func Triggers(ctx context.Context, st Store, chatID string) (map[string]string, error) {
	var t map[string]string
	if _, err := st.GetChat(ctx, chatID, KeyTriggers, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// Warnings returns the per-user anti-link warning counters for a chat.
func Warnings(ctx context.Context, st Store, chatID string) (map[string]int, error) {
	var w map[string]int
	if _, err := st.GetChat(ctx, chatID, KeyWarnings, &w); err != nil {
		return nil, err
	}
	if w == nil {
		w = make(map[string]int)
	}
	return w, nil
}
