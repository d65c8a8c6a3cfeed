package settings

import (
	"context"
	"testing"
)

func TestMemoryGlobal(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	if _, ok, _ := st.Get(ctx, KeySelfMode); ok {
		t.Fatal("empty store should report missing keys")
	}
	if err := SetSelfMode(ctx, st, true); err != nil {
		t.Fatal(err)
	}
	on, err := SelfMode(ctx, st)
	if err != nil || !on {
		t.Fatalf("SelfMode = %v, %v", on, err)
	}
}

func TestDisabledToggles(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	toggles, err := DisabledToggles(ctx, st)
	if err != nil || len(toggles) != 0 {
		t.Fatalf("DisabledToggles on empty store = %v, %v", toggles, err)
	}

	if err := SetDisabledToggle(ctx, st, "ping", true); err != nil {
		t.Fatal(err)
	}
	if err := SetDisabledToggle(ctx, st, "help", false); err != nil {
		t.Fatal(err)
	}
	toggles, err = DisabledToggles(ctx, st)
	if err != nil {
		t.Fatal(err)
	}
	if off, ok := toggles["ping"]; !ok || !off {
		t.Fatalf("toggles = %v, want ping disabled", toggles)
	}
	if off, ok := toggles["help"]; !ok || off {
		t.Fatalf("toggles = %v, want help enabled", toggles)
	}

	// Flipping back overwrites the earlier entry.
	if err := SetDisabledToggle(ctx, st, "ping", false); err != nil {
		t.Fatal(err)
	}
	toggles, _ = DisabledToggles(ctx, st)
	if toggles["ping"] {
		t.Fatal("ping toggle should have been flipped back")
	}
}

func TestMemoryChatScoped(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	muted, err := Muted(ctx, st, "g1")
	if err != nil || muted != nil {
		t.Fatalf("Muted on empty store = %v, %v", muted, err)
	}

	if err := st.SetChat(ctx, "g1", KeyMuted, []string{"300", "400"}); err != nil {
		t.Fatal(err)
	}
	muted, err = Muted(ctx, st, "g1")
	if err != nil || len(muted) != 2 {
		t.Fatalf("Muted = %v, %v", muted, err)
	}

	// Other chats stay isolated.
	if muted, _ := Muted(ctx, st, "g2"); len(muted) != 0 {
		t.Fatalf("Muted(g2) = %v", muted)
	}

	if err := st.SetChat(ctx, "g1", KeyTriggers, map[string]string{"hi": "hello"}); err != nil {
		t.Fatal(err)
	}
	triggers, err := Triggers(ctx, st, "g1")
	if err != nil || triggers["hi"] != "hello" {
		t.Fatalf("Triggers = %v, %v", triggers, err)
	}

	w, err := Warnings(ctx, st, "g1")
	if err != nil || w == nil {
		t.Fatalf("Warnings = %v, %v", w, err)
	}
	w["300"] = 2
	if err := st.SetChat(ctx, "g1", KeyWarnings, w); err != nil {
		t.Fatal(err)
	}
	w, _ = Warnings(ctx, st, "g1")
	if w["300"] != 2 {
		t.Fatalf("Warnings after update = %v", w)
	}
}
