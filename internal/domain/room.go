package domain

// MemberStatus mirrors the Bot API chat member status strings.
type MemberStatus string

const (
	MemberStatusCreator       MemberStatus = "creator"
	MemberStatusAdministrator MemberStatus = "administrator"
	MemberStatusMember        MemberStatus = "member"
	MemberStatusRestricted    MemberStatus = "restricted"
	MemberStatusLeft          MemberStatus = "left"
	MemberStatusBanned        MemberStatus = "kicked"
)

// IsMember reports whether the account can take part in the room's call as is.
func (s MemberStatus) IsMember() bool {
	switch s {
	case MemberStatusCreator, MemberStatusAdministrator, MemberStatusMember:
		return true
	default:
		return false
	}
}

type RoomKind string

const (
	RoomKindPrivate    RoomKind = "private"
	RoomKindGroup      RoomKind = "group"
	RoomKindSupergroup RoomKind = "supergroup"
	RoomKindChannel    RoomKind = "channel"
)

// RoomKindFromID guesses the kind from the id sign when the chat cannot be looked up.
func RoomKindFromID(chatID int64) RoomKind {
	if chatID > 0 {
		return RoomKindPrivate
	}
	return RoomKindSupergroup
}
