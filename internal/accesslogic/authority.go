package accesslogic

import "github.com/streamhub/corehub/internal/apierror"

// CreateAccessRequest is the set of permissions a caller wants the new
// access to carry.
type CreateAccessRequest struct {
	Permissions []Permission
	SelfRevoke  string // "", "forbidden", or another operator-defined setting
}

// CanCreateAccess reports whether creator may mint an access carrying
// req's permissions: a personal access may create anything; an app access
// may only delegate permissions it itself holds, never create-only ones,
// and may only require selfRevoke=forbidden if it carries that setting
// itself; a shared access may never create accesses.
// creator is the AccessLogic of the access performing the creation.
func CanCreateAccess(creator *AccessLogic, req CreateAccessRequest) error {
	switch creator.access.Type {
	case Personal:
		return nil
	case App:
		for _, p := range req.Permissions {
			if p.Kind != StreamPermission {
				continue
			}
			if p.Level.CreateOnly {
				return apierror.New(apierror.Forbidden, "create-only permissions may not be delegated")
			}
			held := creator.ResolveLevel(p.StoreID, p.StreamID)
			if held.CreateOnly || p.Level.Rank > held.Rank {
				return apierror.New(apierror.Forbidden, "requested permission exceeds the creating access's own level")
			}
		}
		if req.SelfRevoke == "forbidden" && !creator.effectiveSelfRevokeForbidden() {
			return apierror.New(apierror.Forbidden, "selfRevoke=forbidden requires the creator to carry the same effective setting")
		}
		return nil
	case Shared:
		return apierror.New(apierror.Forbidden, "shared accesses may not create accesses")
	default:
		return apierror.New(apierror.Forbidden, "unknown access type")
	}
}

// CanDeleteAccess reports whether actor may delete target: a personal
// access may delete anything; an access may revoke itself unless
// selfRevoke is forbidden; an app access may delete an access it created.
// actor is the AccessLogic of the access performing the deletion; target
// is the access being deleted.
func CanDeleteAccess(actor *AccessLogic, target *Access) error {
	if actor.access.IsPersonal() {
		return nil
	}

	if actor.access.ID == target.ID {
		if actor.effectiveSelfRevokeForbidden() {
			return apierror.New(apierror.Forbidden, "self-revoke is forbidden for this access")
		}
		return nil
	}

	if actor.access.Type == App && target.CreatedBy == actor.access.ID {
		return nil
	}

	return apierror.New(apierror.Forbidden, "access is not permitted to delete this access")
}

// effectiveSelfRevokeForbidden reports whether the access's inherited
// selfRevoke setting is "forbidden".
func (al *AccessLogic) effectiveSelfRevokeForbidden() bool {
	return al.hasFeatureSetting("selfRevoke", "forbidden")
}
