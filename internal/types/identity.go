package types

import "strings"

// Identity is the resolved caller identity threaded through every mutating
// operation. Role checks are performed against identities held by the state
// handles; nothing is inferred from ambient context.
type Identity string

const ZeroIdentity Identity = ""

func (i Identity) String() string {
	return string(i)
}

func (i Identity) IsZero() bool {
	return strings.TrimSpace(string(i)) == ""
}

// NormalizeIdentity lowercases and trims an identity for consistent storage
// and comparison.
func NormalizeIdentity(s string) Identity {
	return Identity(strings.ToLower(strings.TrimSpace(s)))
}
