package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type sentNote struct {
	chat string
	text string
}

type fakeTransport struct {
	replies []string
	sends   []sentNote

	self       Identity
	group      *GroupInfo
	groupErr   error
	identities map[string]Identity
}

func (f *fakeTransport) Reply(_ context.Context, _ *Message, text string) (SendResult, error) {
	f.replies = append(f.replies, text)
	return SendResult{MessageID: "r1"}, nil
}

func (f *fakeTransport) Send(_ context.Context, chatID, text string) (SendResult, error) {
	f.sends = append(f.sends, sentNote{chat: chatID, text: text})
	return SendResult{MessageID: "s1"}, nil
}

func (f *fakeTransport) GroupInfo(_ context.Context, chatID string) (*GroupInfo, error) {
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	if f.group != nil {
		return f.group, nil
	}
	return &GroupInfo{ID: chatID}, nil
}

func (f *fakeTransport) ResolveIdentity(_ context.Context, raw string) (Identity, error) {
	if id, ok := f.identities[raw]; ok {
		return id, nil
	}
	return Identity{}, fmt.Errorf("unknown identifier %q", raw)
}

func (f *fakeTransport) Self() Identity { return f.self }

type dispatchEnv struct {
	ft       *fakeTransport
	registry *Registry
	limiter  *Limiter
	handler  HandlerFunc
	next     int // count of next() invocations
}

func newDispatchEnv() *dispatchEnv {
	return &dispatchEnv{
		ft: &fakeTransport{
			self: Identity{Primary: "self"},
			identities: map[string]Identity{
				"100": {Primary: "100", Secondary: "owner-alt"},
			},
		},
		registry: NewRegistry(),
		limiter:  NewLimiter(LimiterConfig{}),
	}
}

func (e *dispatchEnv) run(msg *Message) error {
	stage := Dispatch(DispatchConfig{
		Registry: e.registry,
		Limiter:  e.limiter,
		Reporter: NewReporter(e.ft, "100"),
		Owner:    "100",
	})
	h := stage.Use(func(*Context) error {
		e.next++
		return nil
	})
	c := NewContext(context.Background(), e.ft, msg)
	return h(c)
}

func privateMsg(sender Identity, text string) *Message {
	return &Message{
		ID:     "1",
		Chat:   Chat{ID: "chat1", Type: ChatPrivate},
		Sender: sender,
		Text:   text,
	}
}

func groupMsg(sender Identity, text string) *Message {
	return &Message{
		ID:     "2",
		Chat:   Chat{ID: "g1", Type: ChatGroup},
		Sender: sender,
		Text:   text,
	}
}

func TestDispatchPassesNonCommands(t *testing.T) {
	e := newDispatchEnv()
	e.registry.Register(testCommand("ping"))

	if err := e.run(privateMsg(member, "just chatting")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if e.next != 1 {
		t.Fatalf("next calls = %d, want 1", e.next)
	}
	if len(e.ft.replies) != 0 {
		t.Fatalf("unexpected replies: %v", e.ft.replies)
	}
}

func TestDispatchUnknownSuggests(t *testing.T) {
	e := newDispatchEnv()
	e.registry.Register(testCommand("ping"))

	if err := e.run(privateMsg(member, "/pingg")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if e.next != 0 {
		t.Fatal("command attempts must not fall through to next")
	}
	if len(e.ft.replies) != 1 {
		t.Fatalf("replies = %v", e.ft.replies)
	}
	if !strings.Contains(e.ft.replies[0], "Did you mean: /ping") {
		t.Fatalf("reply = %q", e.ft.replies[0])
	}
}

func TestDispatchDisabledReply(t *testing.T) {
	e := newDispatchEnv()
	e.registry.Register(testCommand("ping"))
	e.registry.SetDisabled("ping", true)

	if err := e.run(privateMsg(member, "/ping")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(e.ft.replies) != 1 || !strings.Contains(e.ft.replies[0], "currently disabled") {
		t.Fatalf("replies = %v", e.ft.replies)
	}
}

func TestDispatchScopeDenial(t *testing.T) {
	e := newDispatchEnv()
	called := false
	e.registry.Register(&Command{
		Name:    "kick",
		Enabled: true,
		Scope:   ScopeGroup,
		Handler: func(*Context) error { called = true; return nil },
	})

	if err := e.run(privateMsg(member, "/kick")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if called {
		t.Fatal("handler must not run on scope denial")
	}
	if len(e.ft.replies) != 1 || e.ft.replies[0] != DenyGroupOnly.Message() {
		t.Fatalf("replies = %v", e.ft.replies)
	}
	if len(e.ft.sends) != 0 {
		t.Fatal("gate denials must not reach the reporter")
	}
}

func TestDispatchOwnerOnlySilent(t *testing.T) {
	e := newDispatchEnv()
	e.registry.Register(&Command{
		Name:      "secret",
		Enabled:   true,
		OwnerOnly: true,
		Handler:   noopHandler,
	})

	if err := e.run(privateMsg(member, "/secret")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(e.ft.replies) != 0 {
		t.Fatalf("owner-only denial must be silent, got %v", e.ft.replies)
	}
}

func TestDispatchErrorContainment(t *testing.T) {
	e := newDispatchEnv()
	e.registry.Register(&Command{
		Name:    "boom",
		Enabled: true,
		Handler: func(*Context) error { return errors.New("database exploded") },
	})

	if err := e.run(groupMsg(member, "/boom")); err != nil {
		t.Fatalf("dispatch must contain handler errors, got %v", err)
	}

	if len(e.ft.sends) != 1 {
		t.Fatalf("reports = %d, want exactly 1", len(e.ft.sends))
	}
	if e.ft.sends[0].chat != "100" {
		t.Fatalf("report went to %s, want owner", e.ft.sends[0].chat)
	}
	if !strings.Contains(e.ft.sends[0].text, "database exploded") {
		t.Fatalf("report text = %q", e.ft.sends[0].text)
	}

	if len(e.ft.replies) != 1 {
		t.Fatalf("replies = %v", e.ft.replies)
	}
	if e.ft.replies[0] != genericFailureReply {
		t.Fatalf("non-owner should see the generic line, got %q", e.ft.replies[0])
	}
}

func TestDispatchPanicContainment(t *testing.T) {
	e := newDispatchEnv()
	e.registry.Register(&Command{
		Name:    "crash",
		Enabled: true,
		Handler: func(*Context) error { panic("nil map write") },
	})

	if err := e.run(groupMsg(member, "/crash")); err != nil {
		t.Fatalf("dispatch must contain panics, got %v", err)
	}
	if len(e.ft.sends) != 1 {
		t.Fatalf("reports = %d, want exactly 1", len(e.ft.sends))
	}
	if !strings.Contains(e.ft.sends[0].text, "panic") {
		t.Fatalf("report text = %q", e.ft.sends[0].text)
	}
	if !strings.Contains(e.ft.sends[0].text, "stack:") {
		t.Fatal("panic report should carry a stack trace")
	}
}

func TestDispatchOwnerSeesRawError(t *testing.T) {
	e := newDispatchEnv()
	e.registry.Register(&Command{
		Name:    "boom",
		Enabled: true,
		Handler: func(*Context) error { return errors.New("raw cause") },
	})

	ownerSender := Identity{Primary: "owner-alt"}
	if err := e.run(privateMsg(ownerSender, "/boom")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(e.ft.replies) != 1 || !strings.Contains(e.ft.replies[0], "raw cause") {
		t.Fatalf("owner reply = %v", e.ft.replies)
	}
}

func TestDispatchErrorReplyOverride(t *testing.T) {
	e := newDispatchEnv()
	e.registry.Register(&Command{
		Name:       "fetch",
		Enabled:    true,
		ErrorReply: "Could not fetch that right now.",
		Handler:    func(*Context) error { return errors.New("timeout") },
	})

	if err := e.run(groupMsg(member, "/fetch")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(e.ft.replies) != 1 || e.ft.replies[0] != "Could not fetch that right now." {
		t.Fatalf("replies = %v", e.ft.replies)
	}
}

func TestDispatchRateLimitsNonOwners(t *testing.T) {
	e := newDispatchEnv()
	e.limiter.SetConfig(LimiterConfig{Enabled: true, CommandCooldown: time.Hour})
	calls := 0
	e.registry.Register(&Command{
		Name:    "ping",
		Enabled: true,
		Handler: func(*Context) error { calls++; return nil },
	})

	for i := 0; i < 2; i++ {
		if err := e.run(privateMsg(member, "/ping")); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	found := false
	for _, r := range e.ft.replies {
		if strings.Contains(r, "Slow down") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a rate-limit reply, got %v", e.ft.replies)
	}
}

func TestDispatchOwnerBypassesRateLimit(t *testing.T) {
	e := newDispatchEnv()
	e.limiter.SetConfig(LimiterConfig{Enabled: true, CommandCooldown: time.Hour})
	calls := 0
	e.registry.Register(&Command{
		Name:    "ping",
		Enabled: true,
		Handler: func(*Context) error { calls++; return nil },
	})

	ownerSender := Identity{Primary: "100"}
	for i := 0; i < 3; i++ {
		if err := e.run(privateMsg(ownerSender, "/ping")); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if calls != 3 {
		t.Fatalf("handler calls = %d, want 3 for the owner", calls)
	}
}

func TestDispatchAdminGateFailsClosedOnLookupError(t *testing.T) {
	e := newDispatchEnv()
	e.ft.groupErr = errors.New("network down")
	called := false
	e.registry.Register(&Command{
		Name:      "mute",
		Enabled:   true,
		Scope:     ScopeGroup,
		AdminOnly: true,
		Handler:   func(*Context) error { called = true; return nil },
	})

	if err := e.run(groupMsg(admin, "/mute")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if called {
		t.Fatal("admin gate must fail closed when membership is unknown")
	}
}

func TestDispatchAdminGatePasses(t *testing.T) {
	e := newDispatchEnv()
	e.ft.group = &GroupInfo{ID: "g1", Admins: []Identity{admin}, BotIsAdmin: true}
	called := false
	e.registry.Register(&Command{
		Name:             "mute",
		Enabled:          true,
		Scope:            ScopeGroup,
		AdminOnly:        true,
		BotAdminRequired: true,
		Handler:          func(*Context) error { called = true; return nil },
	})

	if err := e.run(groupMsg(admin, "/mute target")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !called {
		t.Fatalf("handler not called; replies = %v", e.ft.replies)
	}
}

func TestDispatchArgsPopulated(t *testing.T) {
	e := newDispatchEnv()
	var gotArgs []string
	var gotRaw string
	e.registry.Register(&Command{
		Name:    "echo",
		Enabled: true,
		Handler: func(c *Context) error {
			gotArgs = append([]string(nil), c.Args...)
			gotRaw = c.RawArgs
			return nil
		},
	})

	if err := e.run(privateMsg(member, "/echo  hello   world")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotRaw != "hello   world" {
		t.Fatalf("RawArgs = %q", gotRaw)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "hello" || gotArgs[1] != "world" {
		t.Fatalf("Args = %v", gotArgs)
	}
}

func TestDispatchCountsCommands(t *testing.T) {
	e := newDispatchEnv()
	e.registry.Register(testCommand("ping"))
	stats := NewStats()

	stage := Dispatch(DispatchConfig{
		Registry: e.registry,
		Limiter:  e.limiter,
		Reporter: NewReporter(e.ft, "100"),
		Owner:    "100",
	})
	h := stage.Use(func(*Context) error { return nil })
	c := NewContext(context.Background(), e.ft, privateMsg(member, "/ping"))
	c.Set(StatsKey, stats)
	if err := h(c); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := stats.Commands()["ping"]; got != 1 {
		t.Fatalf("command count = %d, want 1", got)
	}
}
