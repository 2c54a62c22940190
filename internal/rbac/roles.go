package rbac

import (
	"encoding/json"
	"fmt"
)

// MemberRole is the privilege level a user holds inside one class.
// The numeric value is the rank: lower rank means more privilege.
// The same value is what the members table stores in its role column.
type MemberRole int

const (
	// RoleServiceInternal is reserved for trusted internal callers (the bot).
	// It is never stored on a membership.
	RoleServiceInternal MemberRole = -1
	RoleOwner           MemberRole = 0
	RoleAdmin           MemberRole = 1
	RoleMember          MemberRole = 2
	RolePending         MemberRole = 3
	RoleBanned          MemberRole = 4
)

// roleTable is the single mapping between ranks, wire names and storage codes.
// Keep these stable; they are part of the API and the database contract.
var roleTable = []struct {
	role MemberRole
	name string
}{
	{RoleServiceInternal, "serviceInternal"},
	{RoleOwner, "owner"},
	{RoleAdmin, "admin"},
	{RoleMember, "member"},
	{RolePending, "pending"},
	{RoleBanned, "banned"},
}

// Rank returns the ordering value of the role.
func (r MemberRole) Rank() int { return int(r) }

// HasElevatedRights reports whether the role may manage class membership.
func (r MemberRole) HasElevatedRights() bool { return r.Rank() <= RoleAdmin.Rank() }

// IsParticipant reports whether the role belongs to an accepted, non-banned member.
func (r MemberRole) IsParticipant() bool { return r.Rank() <= RoleMember.Rank() }

func (r MemberRole) Valid() bool {
	for _, e := range roleTable {
		if e.role == r {
			return true
		}
	}
	return false
}

func (r MemberRole) String() string {
	for _, e := range roleTable {
		if e.role == r {
			return e.name
		}
	}
	return fmt.Sprintf("MemberRole(%d)", int(r))
}

// ParseRole maps a wire name back to its role.
func ParseRole(name string) (MemberRole, error) {
	for _, e := range roleTable {
		if e.name == name {
			return e.role, nil
		}
	}
	return 0, fmt.Errorf("rbac: unknown member role %q", name)
}

// FromStorage maps a stored role code to a role. ServiceInternal is never a
// valid stored value.
func FromStorage(code int) (MemberRole, error) {
	r := MemberRole(code)
	if !r.Valid() || r == RoleServiceInternal {
		return 0, fmt.Errorf("rbac: invalid stored member role %d", code)
	}
	return r, nil
}

// StorageCode is the value written to the role column.
func (r MemberRole) StorageCode() int { return int(r) }

func (r MemberRole) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("rbac: cannot marshal %s", r)
	}
	return json.Marshal(r.String())
}

func (r *MemberRole) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	parsed, err := ParseRole(name)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Less orders members for listings: by rank, then alphabetically by display name.
func Less(roleA MemberRole, nameA string, roleB MemberRole, nameB string) bool {
	if roleA != roleB {
		return roleA.Rank() < roleB.Rank()
	}
	return nameA < nameB
}
