// Package accesslogic turns a raw persisted access record into a policy
// object answering the can* questions method handlers consult before
// touching a stream or event.
package accesslogic

// AccessType is the tagged discriminator for an access's kind: a free
// function dispatches on Type rather than a class hierarchy of
// Personal/App/Shared accesses.
type AccessType string

const (
	Personal AccessType = "personal"
	App      AccessType = "app"
	Shared   AccessType = "shared"
)

// PermissionKind discriminates the tagged sum a Permission carries in
// place of dynamic feature flags.
type PermissionKind string

const (
	StreamPermission  PermissionKind = "stream"
	TagPermission     PermissionKind = "tag"
	FeaturePermission PermissionKind = "feature"
)

// Permission is one persisted grant. Which fields are meaningful depends on
// Kind: StreamPermission uses StoreID/StreamID/Level, TagPermission uses
// Tag/Level, FeaturePermission uses Feature/Setting.
type Permission struct {
	Kind PermissionKind

	StoreID  string
	StreamID string

	Tag string

	Feature string
	Setting string

	Level Level
}

// Access is the persisted capability-token record.
type Access struct {
	ID          string
	Token       string
	Type        AccessType
	Name        string
	DeviceName  string
	Permissions []Permission
	Calls       int64
	Expires     *float64
	Deleted     *float64
	Integrity   string

	// CreatedBy names the access that created this one, empty for
	// operator-seeded personal accesses. Used by deletion authority
	// ("app accesses may delete accesses they created").
	CreatedBy string
}

// IsPersonal reports whether a is the all-powerful personal access type.
func (a *Access) IsPersonal() bool { return a.Type == Personal }
