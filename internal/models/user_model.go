package models

import "fmt"

// Role is a user's position in the membership approval flow.
// pending -> member and pending -> rejected are the only transitions.
type Role string

const (
	RolePending  Role = "pending"
	RoleMember   Role = "member"
	RoleRejected Role = "rejected"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePending, RoleMember, RoleRejected:
		return true
	}
	return false
}

// User represents a club user.
type User struct {
	ID    string  `json:"id" firestore:"-"` // Identity UID, also the document ID
	Role  Role    `json:"role" firestore:"role"`
	Email string  `json:"email" firestore:"email"`
	Total float64 `json:"total" firestore:"total"` // Only ever incremented by settlements
}

// NewPendingUser returns the record written at registration.
func NewPendingUser(id, email string) *User {
	return &User{ID: id, Role: RolePending, Email: email, Total: 0}
}

// IsMember reports whether the user has been accepted.
func (u *User) IsMember() bool {
	return u != nil && u.Role == RoleMember
}

// Fields returns the stored representation of the user.
func (u *User) Fields() map[string]interface{} {
	return map[string]interface{}{
		"role":  string(u.Role),
		"email": u.Email,
		"total": u.Total,
	}
}

// DecodeUser builds a User from raw document fields.
// An unknown role is rejected rather than passed through.
func DecodeUser(id string, data map[string]interface{}) (*User, error) {
	rawRole, _ := data["role"].(string)
	role := Role(rawRole)
	if !role.Valid() {
		return nil, fmt.Errorf("user '%s': invalid role %q", id, rawRole)
	}
	email, _ := data["email"].(string)
	var total float64
	if v, ok := data["total"]; ok && v != nil {
		n, ok := ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("user '%s': total is not numeric (%T)", id, v)
		}
		total = n
	}
	return &User{ID: id, Role: role, Email: email, Total: total}, nil
}

// ToFloat converts the numeric types a document store may hand back.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
