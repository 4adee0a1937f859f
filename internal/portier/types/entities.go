package types

import "time"

// Role gates the management API.  Administrators manage scanners, tags and
// users; moderators additionally approve or disapprove access requests;
// basic users only create and view their own requests.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleModerator     Role = "moderator"
	RoleBasic         Role = "basic"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleModerator, RoleBasic:
		return true
	}
	return false
}

// CanModerate reports whether the role may approve/disapprove requests and
// see other users' rules.
func (r Role) CanModerate() bool {
	return r == RoleAdministrator || r == RoleModerator
}

// User rows are owned by the external user-management collaborator; the
// engine only ever reads them as foreign keys.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Scanner is a physical reader.  UID is assigned by the hardware and is
// the key used on the message bus.
type Scanner struct {
	ID          int64      `json:"id"`
	UID         string     `json:"uid"`
	Description string     `json:"description,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
}

// Tag is a physical credential.  OwnerUserID is nil for tags that were
// auto-registered on first sighting and not yet assigned by an admin.
type Tag struct {
	ID          int64  `json:"id"`
	UID         string `json:"uid"`
	Description string `json:"description,omitempty"`
	OwnerUserID *int64 `json:"owner_user_id,omitempty"`
}
