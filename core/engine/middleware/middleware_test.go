package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wabot/core/engine"
	"wabot/core/settings"
)

type fakeTransport struct {
	replies  []string
	replyErr error
}

func (f *fakeTransport) Reply(_ context.Context, _ *engine.Message, text string) (engine.SendResult, error) {
	f.replies = append(f.replies, text)
	return engine.SendResult{}, f.replyErr
}

func (f *fakeTransport) Send(_ context.Context, _, text string) (engine.SendResult, error) {
	f.replies = append(f.replies, text)
	return engine.SendResult{}, nil
}

func (f *fakeTransport) GroupInfo(context.Context, string) (*engine.GroupInfo, error) {
	return &engine.GroupInfo{}, nil
}

func (f *fakeTransport) ResolveIdentity(_ context.Context, raw string) (engine.Identity, error) {
	return engine.Identity{Primary: raw}, nil
}

func (f *fakeTransport) Self() engine.Identity { return engine.Identity{Primary: "self"} }

func runStage(t *testing.T, stage engine.Stage, ft *fakeTransport, msg *engine.Message) (reachedNext bool) {
	t.Helper()
	h := stage.Use(func(*engine.Context) error {
		reachedNext = true
		return nil
	})
	if err := h(engine.NewContext(context.Background(), ft, msg)); err != nil {
		t.Fatalf("stage %s: %v", stage.Name, err)
	}
	return reachedNext
}

func groupMsg(sender, text string) *engine.Message {
	return &engine.Message{
		ID:     "1",
		Chat:   engine.Chat{ID: "g1", Type: engine.ChatGroup},
		Sender: engine.Identity{Primary: sender},
		Text:   text,
	}
}

func TestSelfFilter(t *testing.T) {
	st := settings.NewMemory()
	ft := &fakeTransport{}
	stage := SelfFilter(st)

	self := groupMsg("self", "hello")
	self.FromSelf = true

	if runStage(t, stage, ft, self) {
		t.Fatal("self message should be dropped with self mode off")
	}
	if !runStage(t, stage, ft, groupMsg("300", "hello")) {
		t.Fatal("other users' messages must pass")
	}

	if err := settings.SetSelfMode(context.Background(), st, true); err != nil {
		t.Fatal(err)
	}
	if !runStage(t, stage, ft, self) {
		t.Fatal("self message should pass with self mode on")
	}
}

func TestMuteFilter(t *testing.T) {
	st := settings.NewMemory()
	ft := &fakeTransport{}
	ctx := context.Background()
	if err := st.SetChat(ctx, "g1", settings.KeyMuted, []string{"300"}); err != nil {
		t.Fatal(err)
	}
	stage := MuteFilter(st)

	if runStage(t, stage, ft, groupMsg("300", "hello")) {
		t.Fatal("muted user's message should be dropped")
	}
	if !runStage(t, stage, ft, groupMsg("400", "hello")) {
		t.Fatal("unmuted user's message must pass")
	}

	// Mutes are per chat; private chats are unaffected.
	private := &engine.Message{
		ID:     "2",
		Chat:   engine.Chat{ID: "300", Type: engine.ChatPrivate},
		Sender: engine.Identity{Primary: "300"},
		Text:   "hello",
	}
	if !runStage(t, stage, ft, private) {
		t.Fatal("mute must not apply to private chats")
	}
}

func TestAntiLink(t *testing.T) {
	st := settings.NewMemory()
	ft := &fakeTransport{}
	ctx := context.Background()
	if err := st.SetChat(ctx, "g1", settings.KeyAntiLink, true); err != nil {
		t.Fatal(err)
	}
	stage := AntiLink(st)

	if runStage(t, stage, ft, groupMsg("300", "check https://example.com out")) {
		t.Fatal("link message should not continue down the pipeline")
	}
	if len(ft.replies) != 1 || !strings.Contains(ft.replies[0], "Warning 1/3") {
		t.Fatalf("replies = %v", ft.replies)
	}

	w, err := settings.Warnings(ctx, st, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if w["300"] != 1 {
		t.Fatalf("warnings = %v", w)
	}

	if !runStage(t, stage, ft, groupMsg("300", "no links here")) {
		t.Fatal("plain message must pass")
	}

	// Chats without the setting are untouched.
	other := groupMsg("300", "https://example.com")
	other.Chat.ID = "g2"
	if !runStage(t, stage, ft, other) {
		t.Fatal("anti-link must be off by default")
	}
}

func TestAntiLinkFinalWarning(t *testing.T) {
	st := settings.NewMemory()
	ft := &fakeTransport{}
	ctx := context.Background()
	if err := st.SetChat(ctx, "g1", settings.KeyAntiLink, true); err != nil {
		t.Fatal(err)
	}
	stage := AntiLink(st)

	for i := 0; i < 4; i++ {
		runStage(t, stage, ft, groupMsg("300", "www.example.com"))
	}
	w, err := settings.Warnings(ctx, st, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if w["300"] != 3 {
		t.Fatalf("warnings should cap at 3, got %d", w["300"])
	}
	last := ft.replies[len(ft.replies)-1]
	if !strings.Contains(last, "final warning") {
		t.Fatalf("last reply = %q", last)
	}
}

func TestAntiLinkReplyError(t *testing.T) {
	st := settings.NewMemory()
	ctx := context.Background()
	if err := st.SetChat(ctx, "g1", settings.KeyAntiLink, true); err != nil {
		t.Fatal(err)
	}
	ft := &fakeTransport{replyErr: errors.New("send failed")}

	h := AntiLink(st).Use(func(*engine.Context) error {
		t.Fatal("link message must not continue")
		return nil
	})
	err := h(engine.NewContext(ctx, ft, groupMsg("300", "https://example.com")))
	if err == nil || !strings.Contains(err.Error(), "send failed") {
		t.Fatalf("err = %v, want reply failure surfaced", err)
	}
}

func TestTriggers(t *testing.T) {
	st := settings.NewMemory()
	ft := &fakeTransport{}
	ctx := context.Background()
	if err := st.SetChat(ctx, "g1", settings.KeyTriggers, map[string]string{"good morning": "Morning!"}); err != nil {
		t.Fatal(err)
	}
	stage := Triggers(st)

	if !runStage(t, stage, ft, groupMsg("300", "Good Morning everyone")) {
		t.Fatal("triggers must not short-circuit the pipeline")
	}
	if len(ft.replies) != 1 || ft.replies[0] != "Morning!" {
		t.Fatalf("replies = %v", ft.replies)
	}

	if !runStage(t, stage, ft, groupMsg("300", "unrelated")) {
		t.Fatal("non-matching message must pass")
	}
	if len(ft.replies) != 1 {
		t.Fatalf("no extra reply expected, got %v", ft.replies)
	}

	// Reply failures are logged and do not stop the message.
	fe := &fakeTransport{replyErr: errors.New("send failed")}
	if !runStage(t, stage, fe, groupMsg("300", "good morning all")) {
		t.Fatal("reply failure must not block the pipeline")
	}
}

func TestStatsStage(t *testing.T) {
	s := engine.NewStats()
	ft := &fakeTransport{}
	stage := Stats(s)

	var got *engine.Stats
	h := stage.Use(func(c *engine.Context) error {
		got = engine.StatsFrom(c)
		return nil
	})
	c := engine.NewContext(context.Background(), ft, groupMsg("300", "hello"))
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if s.Messages() != 1 {
		t.Fatalf("messages = %d, want 1", s.Messages())
	}
	if got != s {
		t.Fatal("stats must be reachable through the context")
	}
}

func TestRecoverStage(t *testing.T) {
	stage := Recover()
	h := stage.Use(func(*engine.Context) error { panic("boom") })
	c := engine.NewContext(context.Background(), &fakeTransport{}, groupMsg("300", "hello"))
	if err := h(c); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v, want contained panic", err)
	}
}
