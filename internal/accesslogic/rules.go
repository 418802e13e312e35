package accesslogic

import (
	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/rules"
)

// CheckStreamTypeRule evaluates the operator-declared CEL constraint (if
// any) for eventType/op, after the caller has already confirmed the
// stream-level check passes — CEL rules only ever run as an additional
// restriction on top of a grant AccessLogic already allows, never as a
// substitute for it. A nil engine or missing rule both mean "no extra
// constraint."
func CheckStreamTypeRule(engine *rules.Engine, eventType string, op rules.Operation, ctx *rules.EvalContext) error {
	if engine == nil {
		return nil
	}
	if err := engine.CheckAccess(eventType, op, ctx); err != nil {
		return apierror.New(apierror.Forbidden, "denied by operator-declared rule for "+eventType)
	}
	return nil
}

// AccessEvalVars renders al's access into the map shape rules.EvalContext
// expects for its "access" variable.
func AccessEvalVars(al *AccessLogic) map[string]any {
	return map[string]any{
		"id":   al.access.ID,
		"type": string(al.access.Type),
		"name": al.access.Name,
	}
}
