// Package access implements authorization and path resolution for exported
// directory roots.
//
// An Engine owns the immutable directory-root table and the network-origin
// allowlist. It turns untrusted virtual paths of the form "<root>/<relative>"
// into absolute filesystem paths confined under a configured root, enforcing
// the root's read/write permission on the way.
//
// Two independent traversal defenses are applied on every resolution:
//  1. Syntactic rejection of ".." segments and root markers in the relative path
//  2. A post-join containment check against the root's absolute path
//
// Thread safety:
// An Engine is read-only after construction and safe for concurrent use.
package access

import (
	"fmt"
	"strings"
)

// Permission is the access level of a directory root.
type Permission int

const (
	// ReadOnly roots accept Stat, List and Read.
	ReadOnly Permission = iota

	// ReadWrite roots additionally accept Write and Delete.
	ReadWrite
)

// String returns the configuration label of the permission.
func (p Permission) String() string {
	switch p {
	case ReadOnly:
		return "read-only"
	case ReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("Permission(%d)", int(p))
	}
}

// ParsePermission parses a configuration label ("read-only" or "read-write").
func ParsePermission(label string) (Permission, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "read-only":
		return ReadOnly, nil
	case "read-write":
		return ReadWrite, nil
	default:
		return 0, fmt.Errorf("invalid permission %q: must be read-only or read-write", label)
	}
}

// Operation is the kind of access requested on a directory root.
type Operation int

const (
	Read Operation = iota
	Write
)

func (o Operation) String() string {
	switch o {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// DirectoryRoot is a named, independently permissioned filesystem subtree.
type DirectoryRoot struct {
	// Name is the unique key clients use as the first virtual path segment.
	Name string

	// Path is the absolute, cleaned filesystem path of the root.
	Path string

	// Permission controls which operations are allowed under the root.
	Permission Permission
}

// allows reports whether op is permitted on the root.
func (d DirectoryRoot) allows(op Operation) bool {
	switch op {
	case Read:
		return true
	case Write:
		return d.Permission == ReadWrite
	default:
		return false
	}
}

// ResolvedPath is the outcome of a successful authorization.
//
// Path is guaranteed to be lexically confined under Root.Path.
type ResolvedPath struct {
	Path string
	Root DirectoryRoot

	// Relative is the validated relative path that was joined onto the root.
	Relative string
}
