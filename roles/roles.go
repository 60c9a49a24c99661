// Package roles derives access-control role identifiers and holds the
// role-to-menu table that decides which categories and items each role sees.
package roles

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"xdao.co/facetreg/selector"
)

// ID returns the identifier for label. The label is hashed exactly as given,
// so it is validated rather than normalised: labels that are empty, not
// UTF-8, or carry surrounding whitespace are rejected.
func ID(label string) (selector.RoleID, error) {
	if err := CheckLabel(label); err != nil {
		return selector.RoleID{}, err
	}
	return selector.ComputeRoleID(label), nil
}

// MustID is like ID but panics on an invalid label.
func MustID(label string) selector.RoleID {
	id, err := ID(label)
	if err != nil {
		panic(err)
	}
	return id
}

// CheckLabel validates a role label.
func CheckLabel(label string) error {
	switch {
	case label == "":
		return fmt.Errorf("roles: empty label")
	case !utf8.ValidString(label):
		return fmt.Errorf("roles: label %q is not valid UTF-8", label)
	case strings.TrimSpace(label) != label:
		return fmt.Errorf("roles: label %q has surrounding whitespace", label)
	}
	return nil
}
