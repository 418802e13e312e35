package accesslogic

import "github.com/streamhub/corehub/internal/apierror"

// constraint is one entry of the can(methodId) table: a method may be
// restricted to personal-only callers, forbidden to shared accesses, or
// forbidden to personal accesses.
type constraint int

const (
	constraintNone constraint = iota
	constraintPersonalOnly
	constraintNonShared
	constraintNonPersonal
)

// MethodRegistry is the static method-id -> constraint table consulted by
// MethodContext before AccessLogic's stream-level checks run.
type MethodRegistry struct {
	constraints map[string]constraint
}

// NewMethodRegistry builds the registry from the fixed method-constraint
// table.
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		constraints: map[string]constraint{
			"account.*":            constraintPersonalOnly,
			"followedSlices.*":     constraintPersonalOnly,
			"accesses.checkApp":    constraintPersonalOnly,
			"profile.*":            constraintPersonalOnly,
			"accesses.get":         constraintNonShared,
			"accesses.create":      constraintNonShared,
			"webhooks.create":      constraintNonPersonal,
		},
	}
}

// Check enforces the method-id constraint (if any) against accessType,
// matching "<namespace>.*" entries against methodID's namespace prefix.
func (r *MethodRegistry) Check(methodID string, accessType AccessType) error {
	c, ok := r.lookup(methodID)
	if !ok {
		return nil
	}

	switch c {
	case constraintPersonalOnly:
		if accessType != Personal {
			return apierror.New(apierror.Forbidden, "method "+methodID+" requires a personal access")
		}
	case constraintNonShared:
		if accessType == Shared {
			return apierror.New(apierror.Forbidden, "method "+methodID+" is not available to shared accesses")
		}
	case constraintNonPersonal:
		if accessType == Personal {
			return apierror.New(apierror.Forbidden, "method "+methodID+" is not available to personal accesses")
		}
	}
	return nil
}

func (r *MethodRegistry) lookup(methodID string) (constraint, bool) {
	if c, ok := r.constraints[methodID]; ok {
		return c, true
	}
	if namespace, ok := splitNamespace(methodID); ok {
		if c, ok := r.constraints[namespace+".*"]; ok {
			return c, true
		}
	}
	return constraintNone, false
}

func splitNamespace(methodID string) (string, bool) {
	for i := 0; i < len(methodID); i++ {
		if methodID[i] == '.' {
			return methodID[:i], true
		}
	}
	return "", false
}
