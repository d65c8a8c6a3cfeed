package engine

// PermissionInput carries everything Evaluate needs. Callers resolve group
// membership and runtime-disabled state up front so the evaluation itself
// stays a pure function with no side effects.
type PermissionInput struct {
	Sender Identity
	Owner  Identity
	Chat   Chat

	// GroupAdmins and BotIsAdmin are only consulted for group chats.
	GroupAdmins []Identity
	BotIsAdmin  bool

	// RuntimeDisabled reflects the runtime disabled-commands list.
	RuntimeDisabled bool
}

// Evaluate applies the permission gates strictly in order; the first failing
// gate wins and later gates are not consulted.
//
// Gate order: enabled flag, chat scope, owner-only, admin-only, bot-admin,
// runtime disabled list. Owner and admin comparisons go through
// Identity.Matches so either of a user's two identifiers satisfies them.
func Evaluate(cmd *Command, in PermissionInput) PermissionResult {
	if !cmd.Enabled {
		return PermissionResult{Allowed: false, Reason: DenyNone}
	}

	switch cmd.Scope {
	case ScopePrivate:
		if in.Chat.IsGroup() {
			return PermissionResult{Allowed: false, Reason: DenyPrivateOnly}
		}
	case ScopeGroup:
		if !in.Chat.IsGroup() {
			return PermissionResult{Allowed: false, Reason: DenyGroupOnly}
		}
	}

	if cmd.OwnerOnly && !in.Sender.Matches(in.Owner) {
		return PermissionResult{Allowed: false, Reason: DenyNone}
	}

	if cmd.AdminOnly && in.Chat.IsGroup() && !isGroupAdmin(in.Sender, in.GroupAdmins) {
		return PermissionResult{Allowed: false, Reason: DenyAdminRequired}
	}

	if cmd.BotAdminRequired && in.Chat.IsGroup() && !in.BotIsAdmin {
		return PermissionResult{Allowed: false, Reason: DenyBotAdminRequired}
	}

	if in.RuntimeDisabled {
		return PermissionResult{Allowed: false, Reason: DenyNone}
	}

	return PermissionResult{Allowed: true}
}

func isGroupAdmin(sender Identity, admins []Identity) bool {
	for _, a := range admins {
		if sender.Matches(a) {
			return true
		}
	}
	return false
}
