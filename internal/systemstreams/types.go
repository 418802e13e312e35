// Package systemstreams builds and validates the immutable tree of reserved
// and operator-declared "system" streams that turn account attributes into
// first-class events.
package systemstreams

import "time"

// Prefix constants for system stream ids. The separator and prefix are
// stable across versions.
const (
	PrefixBuiltin = ":_system:"
	PrefixCustom  = ":system:"
)

// Reserved root stream ids. Custom streams are declared under one of these.
const (
	RootAccount = "account"
	RootOther   = "other"
)

// Helper marker stream ids, appended to an event's streamIds rather than
// addressed on their own; kept in the catalogue so downstream components can
// query IsShown/IsIndexed/etc. for them uniformly.
const (
	MarkerActive = ".active"
	MarkerUnique = ".unique"
)

// UnknownDate is the sentinel "unknown-date" timestamp used for
// system-seeded built-ins' created/modified fields.
var UnknownDate = time.Time{}

// SystemStream is one node of the built tree.
type SystemStream struct {
	ID       string
	Name     string
	Type     string
	ParentID string
	Children []*SystemStream

	Default any

	IsIndexed              bool
	IsUnique               bool
	IsShown                bool
	IsEditable             bool
	IsRequiredInValidation bool
	RegexValidation        string

	CreatedBy  string
	ModifiedBy string
	Created    time.Time
	Modified   time.Time
}

// IsLeaf reports whether the stream has no children.
func (s *SystemStream) IsLeaf() bool {
	return len(s.Children) == 0
}

// StreamSpec is the pre-build, operator- or built-in-supplied description of
// a stream. Optional boolean fields are pointers so Build can distinguish
// "not specified, apply the default" from "explicitly set to false".
type StreamSpec struct {
	ID       string
	Name     string
	Type     string
	Default  any
	Children []StreamSpec

	// Root names which reserved root ("account" or "other") an
	// operator-declared custom stream attaches under. Empty means "other".
	Root string

	IsIndexed              *bool
	IsUnique               *bool
	IsShown                *bool
	IsEditable             *bool
	IsRequiredInValidation *bool
	RegexValidation        string
}

func boolPtr(b bool) *bool { return &b }
