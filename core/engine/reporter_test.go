package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestReportFallsBackToSelfNote(t *testing.T) {
	ft := &fakeTransport{self: Identity{Primary: "self"}}
	r := NewReporter(ft, "")

	id := r.Report(context.Background(), groupMsg(member, "/x"), "x", errors.New("boom"), nil)
	if id == "" {
		t.Fatal("expected a report id")
	}
	if len(ft.sends) != 1 || ft.sends[0].chat != "self" {
		t.Fatalf("sends = %v, want self-note", ft.sends)
	}
}

func TestReportIncludesContext(t *testing.T) {
	ft := &fakeTransport{}
	r := NewReporter(ft, "100")

	id := r.Report(context.Background(), groupMsg(member, "/x"), "mute", errors.New("boom"), []byte("goroutine 1\nmain.go:10"))
	text := ft.sends[0].text
	for _, want := range []string{id, "mute", member.Primary, "g1", "boom", "stack:"} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

func TestUserReply(t *testing.T) {
	r := NewReporter(&fakeTransport{}, "100")
	cause := errors.New("boom")

	if got := r.UserReply(privateMsg(owner, "/x"), true, cause, ""); !strings.Contains(got, "boom") {
		t.Fatalf("owner reply = %q", got)
	}
	// Owner in a group still gets the generic line.
	if got := r.UserReply(groupMsg(owner, "/x"), true, cause, ""); got != genericFailureReply {
		t.Fatalf("owner group reply = %q", got)
	}
	if got := r.UserReply(groupMsg(member, "/x"), false, cause, "custom"); got != "custom" {
		t.Fatalf("override reply = %q", got)
	}
}
