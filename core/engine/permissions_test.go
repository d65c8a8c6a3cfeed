package engine

import "testing"

var (
	owner  = Identity{Primary: "100", Secondary: "owner-alt"}
	admin  = Identity{Primary: "200", Secondary: "admin-alt"}
	member = Identity{Primary: "300"}
)

func privateChat() Chat { return Chat{ID: "p1", Type: ChatPrivate} }
func groupChat() Chat   { return Chat{ID: "g1", Type: ChatGroup} }

func TestEvaluateGates(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		in      PermissionInput
		allowed bool
		reason  DenyReason
	}{
		{
			name:    "disabled denies everyone including owner",
			cmd:     Command{Enabled: false},
			in:      PermissionInput{Sender: owner, Owner: owner, Chat: privateChat()},
			allowed: false,
			reason:  DenyNone,
		},
		{
			name:    "private only in group",
			cmd:     Command{Enabled: true, Scope: ScopePrivate},
			in:      PermissionInput{Sender: member, Chat: groupChat()},
			allowed: false,
			reason:  DenyPrivateOnly,
		},
		{
			name:    "group only in private",
			cmd:     Command{Enabled: true, Scope: ScopeGroup},
			in:      PermissionInput{Sender: member, Chat: privateChat()},
			allowed: false,
			reason:  DenyGroupOnly,
		},
		{
			name:    "owner only denied silently",
			cmd:     Command{Enabled: true, OwnerOnly: true},
			in:      PermissionInput{Sender: member, Owner: owner, Chat: privateChat()},
			allowed: false,
			reason:  DenyNone,
		},
		{
			name: "owner matched through secondary identifier",
			cmd:  Command{Enabled: true, OwnerOnly: true},
			in: PermissionInput{
				Sender: Identity{Primary: "9999", Secondary: "owner-alt"},
				Owner:  owner,
				Chat:   privateChat(),
			},
			allowed: true,
		},
		{
			name: "admin matched through secondary identifier",
			cmd:  Command{Enabled: true, AdminOnly: true},
			in: PermissionInput{
				Sender:      Identity{Primary: "7777", Secondary: "admin-alt"},
				Chat:        groupChat(),
				GroupAdmins: []Identity{admin},
			},
			allowed: true,
		},
		{
			name: "admin only denied for member",
			cmd:  Command{Enabled: true, AdminOnly: true},
			in: PermissionInput{
				Sender:      member,
				Chat:        groupChat(),
				GroupAdmins: []Identity{admin},
			},
			allowed: false,
			reason:  DenyAdminRequired,
		},
		{
			name:    "admin only passes in private chat",
			cmd:     Command{Enabled: true, AdminOnly: true},
			in:      PermissionInput{Sender: member, Chat: privateChat()},
			allowed: true,
		},
		{
			name: "bot admin required",
			cmd:  Command{Enabled: true, BotAdminRequired: true},
			in: PermissionInput{
				Sender:     member,
				Chat:       groupChat(),
				BotIsAdmin: false,
			},
			allowed: false,
			reason:  DenyBotAdminRequired,
		},
		{
			name:    "runtime disabled checked last",
			cmd:     Command{Enabled: true, Scope: ScopeGroup},
			in:      PermissionInput{Sender: member, Chat: privateChat(), RuntimeDisabled: true},
			allowed: false,
			reason:  DenyGroupOnly, // scope gate fires before the runtime list
		},
		{
			name: "admin gate fires before bot admin gate",
			cmd:  Command{Enabled: true, AdminOnly: true, BotAdminRequired: true},
			in: PermissionInput{
				Sender:      member,
				Chat:        groupChat(),
				GroupAdmins: []Identity{admin},
				BotIsAdmin:  false,
			},
			allowed: false,
			reason:  DenyAdminRequired,
		},
		{
			name:    "runtime disabled denies silently",
			cmd:     Command{Enabled: true},
			in:      PermissionInput{Sender: member, Chat: privateChat(), RuntimeDisabled: true},
			allowed: false,
			reason:  DenyNone,
		},
		{
			name:    "plain command allowed",
			cmd:     Command{Enabled: true},
			in:      PermissionInput{Sender: member, Chat: groupChat()},
			allowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(&tt.cmd, tt.in)
			if got.Allowed != tt.allowed {
				t.Fatalf("allowed = %v, want %v", got.Allowed, tt.allowed)
			}
			if !got.Allowed && got.Reason != tt.reason {
				t.Fatalf("reason = %v, want %v", got.Reason, tt.reason)
			}
		})
	}
}

func TestIdentityMatches(t *testing.T) {
	a := Identity{Primary: "1", Secondary: "s1"}
	if !a.Matches(Identity{Primary: "s1"}) {
		t.Fatal("secondary vs primary should match")
	}
	if !a.Matches(Identity{Secondary: "1"}) {
		t.Fatal("primary vs secondary should match")
	}
	if a.Matches(Identity{}) {
		t.Fatal("empty identity must never match")
	}
	if (Identity{}).Matches(a) {
		t.Fatal("empty identity must never match")
	}
	if !a.MatchesRaw("s1") || a.MatchesRaw("") {
		t.Fatal("MatchesRaw mismatch")
	}
}
