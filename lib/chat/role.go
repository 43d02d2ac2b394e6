// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"errors"
	"fmt"
)

// Role is the author role of a message. The set is closed.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ErrUnknownRole is returned when a role string is not one of the five
// known roles.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole converts a lowercase role string to a Role.
func ParseRole(value string) (Role, error) {
	role := Role(value)
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
	return role, nil
}

// Valid reports whether role is one of the known roles.
func (role Role) Valid() bool {
	switch role {
	case RoleSystem, RoleDeveloper, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

func (role Role) String() string {
	return string(role)
}

// MarshalText implements encoding.TextMarshaler.
func (role Role) MarshalText() ([]byte, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
	}
	return []byte(role), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown roles are
// rejected.
func (role *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*role = parsed
	return nil
}

// Author identifies who wrote a message. Name distinguishes
// sub-identities, such as the tool ("browser.search") that produced a
// tool-role message.
type Author struct {
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}

// NewAuthor returns an author with a role and a name.
func NewAuthor(role Role, name string) Author {
	return Author{Role: role, Name: name}
}
