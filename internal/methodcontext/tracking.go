package methodcontext

// InitTrackingProperties stamps created/createdBy on a fresh record;
// createdBy composes the access id with an optional callerId via a single
// space.
func (mc *MethodContext) InitTrackingProperties(now float64) (created float64, createdBy string) {
	return now, mc.trackingBy()
}

// UpdateTrackingProperties stamps modified/modifiedBy on an existing
// record, using the same accessId[+" "+callerId] composition.
func (mc *MethodContext) UpdateTrackingProperties(now float64) (modified float64, modifiedBy string) {
	return now, mc.trackingBy()
}

func (mc *MethodContext) trackingBy() string {
	if mc.CallerID == "" {
		return mc.Access.ID
	}
	return mc.Access.ID + " " + mc.CallerID
}
