package engine

// DenyReason classifies a permission denial. Silent reasons carry no
// user-visible message so privileged commands never reveal their existence.
type DenyReason int

const (
	// DenyNone means the denial is silent (disabled or owner-only gates).
	DenyNone DenyReason = iota
	// DenyPrivateOnly means the command only works in private chats.
	DenyPrivateOnly
	// DenyGroupOnly means the command only works in group chats.
	DenyGroupOnly
	// DenyAdminRequired means the sender is not a group admin.
	DenyAdminRequired
	// DenyBotAdminRequired means the bot itself lacks admin rights.
	DenyBotAdminRequired
)

// Message returns the localized user-facing text for the reason, or "" when
// the denial is silent.
func (r DenyReason) Message() string {
	switch r {
	case DenyPrivateOnly:
		return "This command only works in a private chat with me."
	case DenyGroupOnly:
		return "This command only works in group chats."
	case DenyAdminRequired:
		return "Only group admins can use this command."
	case DenyBotAdminRequired:
		return "I need admin rights in this group to do that."
	default:
		return ""
	}
}

// PermissionResult is the outcome of evaluating the permission gates.
type PermissionResult struct {
	Allowed bool
	Reason  DenyReason
}

// genericFailureReply is shown to non-owner users when a command body fails.
const genericFailureReply = "Something went wrong while running that command. The incident has been reported."
