package service

import (
	"fmt"
	"time"

	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
)

// CallState holds the short-lived lookups shared by the pool and the join
// protocol: room assignments, assistant membership, invite links and room kinds.
type CallState struct {
	assignments *TTLCache[int64, string]
	membership  *TTLCache[string, domain.MemberStatus]
	invites     *TTLCache[int64, string]
	roomKinds   *TTLCache[int64, domain.RoomKind]
}

func NewCallState(now func() time.Time) *CallState {
	return &CallState{
		assignments: NewTTLCache[int64, string](config.AssignmentCacheTTL, now),
		membership:  NewTTLCache[string, domain.MemberStatus](config.MembershipCacheTTL, now),
		invites:     NewTTLCache[int64, string](config.InviteCacheTTL, now),
		roomKinds:   NewTTLCache[int64, domain.RoomKind](config.RoomKindCacheTTL, now),
	}
}

func membershipKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

func (s *CallState) Assignment(chatID int64) (string, bool) {
	return s.assignments.Get(chatID)
}

func (s *CallState) SetAssignment(chatID int64, assistant string) {
	s.assignments.Set(chatID, assistant)
}

func (s *CallState) Membership(chatID, userID int64) (domain.MemberStatus, bool) {
	return s.membership.Get(membershipKey(chatID, userID))
}

func (s *CallState) SetMembership(chatID, userID int64, status domain.MemberStatus) {
	s.membership.Set(membershipKey(chatID, userID), status)
}

func (s *CallState) Invite(chatID int64) (string, bool) {
	return s.invites.Get(chatID)
}

func (s *CallState) SetInvite(chatID int64, link string) {
	s.invites.Set(chatID, link)
}

func (s *CallState) DropInvite(chatID int64) {
	s.invites.Delete(chatID)
}

func (s *CallState) RoomKind(chatID int64) (domain.RoomKind, bool) {
	return s.roomKinds.Get(chatID)
}

func (s *CallState) SetRoomKind(chatID int64, kind domain.RoomKind) {
	s.roomKinds.Set(chatID, kind)
}

// Prune drops expired entries from every cache.
func (s *CallState) Prune() int {
	return s.assignments.Prune() + s.membership.Prune() + s.invites.Prune() + s.roomKinds.Prune()
}
