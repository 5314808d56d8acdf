package credentials

import (
	"strings"
	"time"
)

// AccessToken is a directory bearer token. Records are immutable; a refresh
// replaces the whole value.
type AccessToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token can still be used at now.
func (t *AccessToken) Valid(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.ExpiresAt)
}

// RoleTable maps role names to directory role ids.
type RoleTable struct {
	IDs       map[string]string `json:"ids"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// NewRoleTable copies ids so the table cannot be mutated after publication.
func NewRoleTable(ids map[string]string, expiresAt time.Time) *RoleTable {
	cp := make(map[string]string, len(ids))
	for name, id := range ids {
		cp[name] = id
	}
	return &RoleTable{IDs: cp, ExpiresAt: expiresAt}
}

// Valid reports whether the table can still be used at now.
func (r *RoleTable) Valid(now time.Time) bool {
	return r != nil && r.IDs != nil && now.Before(r.ExpiresAt)
}

// Lookup finds a role id by name, ignoring case.
func (r *RoleTable) Lookup(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	if id, ok := r.IDs[name]; ok {
		return id, true
	}
	for roleName, id := range r.IDs {
		if strings.EqualFold(roleName, name) {
			return id, true
		}
	}
	return "", false
}
