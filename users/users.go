package users

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a backend identifier. The REST API emits ids as either JSON strings or numbers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Profile carries the fields every principal has regardless of role.
type Profile struct {
	ID       ID     `json:"id"`                  // Backend user id
	FullName string `json:"full_name,omitempty"` // Display name
	Email    string `json:"email,omitempty"`     // Login email
	Role     string `json:"role,omitempty"`      // Role tag as sent by the backend
}

// Student is the principal of a student session.
type Student struct {
	Profile
	BranchID  ID     `json:"branch_id,omitempty"`
	CourseIDs []ID   `json:"course_ids,omitempty"`
	Belt      string `json:"belt,omitempty"`
}

// Coach is the principal of a coach session.
type Coach struct {
	Profile
	BranchIDs []ID   `json:"branch_ids,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// BranchManager is the principal of a branch manager session.
type BranchManager struct {
	Profile
	BranchID   ID     `json:"branch_id,omitempty"`
	BranchName string `json:"branch_name,omitempty"`
}

// SuperAdmin is the principal of a super admin session.
type SuperAdmin struct {
	Profile
	Permissions []string `json:"permissions,omitempty"`
}

// Identity extracts the id and role tag from a raw principal object. ok is false when the
// JSON is not an object.
func Identity(raw json.RawMessage) (p Profile, ok bool) {
	if !IsObject(raw) {
		return Profile{}, false
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, false
	}
	return p, true
}

// IsObject reports whether raw holds a JSON object.
func IsObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	return json.Valid(raw)
}
