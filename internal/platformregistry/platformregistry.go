// Package platformregistry federates with an external service-register for
// cross-node uniqueness checks and indexed-field visibility.
// In DNS-less (standalone) mode no implementation of PlatformRegistryPort is
// ever consulted; callers check config.PlatformConfig.DNSLess() before
// reaching for one.
package platformregistry

import "context"

// ValidateUserRequest is the register-side pre-check payload sent before a
// local user is created.
type ValidateUserRequest struct {
	Username        string
	InvitationToken string
	UniqueFields    map[string]string
	Core            string
}

// ValidateUserResult reports whether the register accepted the proposed
// username/unique-field set.
type ValidateUserResult struct {
	OK bool
}

// FieldUpdate is one entry of the `{field: [{value, isUnique, isActive,
// creation}]}` wire shape used for indexed-field updates.
type FieldUpdate struct {
	Value    string
	IsUnique bool
	IsActive bool
	Creation bool
}

// CreateUserPayload is the body of the register-side user-creation POST.
type CreateUserPayload struct {
	Username string
	Fields   map[string][]FieldUpdate
}

// UpdateUserRequest is the body of the register-side user-update PUT,
// also used for field deletions via FieldsToDelete.
type UpdateUserRequest struct {
	Username       string
	Fields         map[string][]FieldUpdate
	FieldsToDelete map[string]string
}

// PlatformRegistryPort is the collaborator the registration pipeline
// depends on; defined as an interface rather than a concrete client so
// tests can supply an in-memory fake with no HTTP monkey-patching.
type PlatformRegistryPort interface {
	ValidateUser(ctx context.Context, req ValidateUserRequest) (*ValidateUserResult, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, payload CreateUserPayload) error
	UpdateUser(ctx context.Context, req UpdateUserRequest) error
	DeleteUser(ctx context.Context, username string, onlyReg bool) error
}
