package orgs

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Role is a member's privilege level inside one organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

var roleLevel = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// IsValid reports whether r is one of the four roles.
func (r Role) IsValid() bool {
	_, ok := roleLevel[r]
	return ok
}

// Assignable reports whether r may be granted through invites or role changes.
func (r Role) Assignable() bool {
	return r == RoleAdmin || r == RoleEditor || r == RoleViewer
}

// AtLeast reports whether r carries the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return r.IsValid() && roleLevel[r] >= roleLevel[min]
}

// CanWrite reports whether r may create, update or delete resources.
func (r Role) CanWrite() bool {
	return r.AtLeast(RoleEditor)
}

// Member is one entry of an organization's membership list.
type Member struct {
	UID   uuid.UUID `json:"uid"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

// Organization is the tenant record. Members is the source of truth;
// MemberUIDs is a lookup mirror that stores rewrite from Members on every write.
type Organization struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	Name           string          `json:"name"`
	Members        []Member        `json:"members"`
	MemberUIDs     []uuid.UUID     `json:"member_uids"`
	PendingInvites []string        `json:"pending_invites"`
	InviteRoles    map[string]Role `json:"invite_roles,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`

	// memberIndexMissing marks legacy rows whose mirror was never written.
	memberIndexMissing bool
}

// Member returns the membership entry for uid.
func (o *Organization) Member(uid uuid.UUID) (Member, bool) {
	for _, m := range o.Members {
		if m.UID == uid {
			return m, true
		}
	}
	return Member{}, false
}

// MemberByEmail returns the membership entry whose normalized email matches.
func (o *Organization) MemberByEmail(email string) (Member, bool) {
	for _, m := range o.Members {
		if normalizeEmail(m.Email) == email {
			return m, true
		}
	}
	return Member{}, false
}

// HasPendingInvite reports whether email (normalized) is pending on o.
func (o *Organization) HasPendingInvite(email string) bool {
	return slices.Contains(o.PendingInvites, email)
}

// InviteRole is the role the inviter selected for email, viewer if unknown.
func (o *Organization) InviteRole(email string) Role {
	if role, ok := o.InviteRoles[email]; ok && role.Assignable() {
		return role
	}
	return RoleViewer
}

// DeriveMemberUIDs computes the mirror from Members, first occurrence wins.
func (o *Organization) DeriveMemberUIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(o.Members))
	seen := make(map[uuid.UUID]struct{}, len(o.Members))
	for _, m := range o.Members {
		if _, dup := seen[m.UID]; dup {
			continue
		}
		seen[m.UID] = struct{}{}
		out = append(out, m.UID)
	}
	return out
}

// MemberIndexInSync reports whether MemberUIDs equals the derived set.
func (o *Organization) MemberIndexInSync() bool {
	if o.memberIndexMissing {
		return false
	}
	want := o.DeriveMemberUIDs()
	if len(want) != len(o.MemberUIDs) {
		return false
	}
	have := make(map[uuid.UUID]struct{}, len(o.MemberUIDs))
	for _, id := range o.MemberUIDs {
		have[id] = struct{}{}
	}
	if len(have) != len(want) {
		return false
	}
	for _, id := range want {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

// removeInvite drops email from the pending list and its selected role.
func (o *Organization) removeInvite(email string) bool {
	i := slices.Index(o.PendingInvites, email)
	if i < 0 {
		return false
	}
	o.PendingInvites = slices.Delete(o.PendingInvites, i, i+1)
	delete(o.InviteRoles, email)
	return true
}

// Clone returns a deep copy.
func (o *Organization) Clone() *Organization {
	c := *o
	c.Members = slices.Clone(o.Members)
	c.MemberUIDs = slices.Clone(o.MemberUIDs)
	c.PendingInvites = slices.Clone(o.PendingInvites)
	if o.InviteRoles != nil {
		c.InviteRoles = make(map[string]Role, len(o.InviteRoles))
		for k, v := range o.InviteRoles {
			c.InviteRoles[k] = v
		}
	}
	return &c
}

// SessionState is the outcome of resolving an identity.
type SessionState string

const (
	StateActiveMember  SessionState = "active_member"
	StatePendingInvite SessionState = "pending_invite"
	StateUnassigned    SessionState = "unassigned"
)

// PendingInvite is what an invited identity may see before accepting.
type PendingInvite struct {
	OrgID   uuid.UUID `json:"org_id"`
	OrgName string    `json:"org_name"`
}

// Session is the resolved state of an identity. Organization and Role are set
// only for active members; Invite only for pending invites.
type Session struct {
	State        SessionState   `json:"state"`
	Organization *Organization  `json:"organization,omitempty"`
	Role         Role           `json:"role,omitempty"`
	Invite       *PendingInvite `json:"invite,omitempty"`
}

// Invitation is handed to the Mailer after an invite is recorded.
type Invitation struct {
	OrgID        uuid.UUID
	OrgName      string
	Email        string
	Role         Role
	InviterEmail string
}
