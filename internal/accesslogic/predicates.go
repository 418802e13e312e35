package accesslogic

// CanListStream reports whether al may see that store/streamID exists at
// all when listing the stream tree: level >= read.
func (al *AccessLogic) CanListStream(store, streamID string) bool {
	return al.ResolveLevel(store, streamID).AtLeast(LevelRead)
}

// CanGetEventsOnStream reports whether al may read events on the stream:
// level >= read AND not create-only (create-only never grants read).
func (al *AccessLogic) CanGetEventsOnStream(store, streamID string) bool {
	level := al.ResolveLevel(store, streamID)
	return level.AtLeast(LevelRead) && !level.CreateOnly
}

// CanCreateEventsOnStream reports whether al may create events on the
// stream: level >= contribute (create-only qualifies, since it grants
// exactly event creation).
func (al *AccessLogic) CanCreateEventsOnStream(store, streamID string) bool {
	return al.ResolveLevel(store, streamID).AtLeast(LevelContribute)
}

// CanUpdateEventsOnStream reports whether al may update/delete events on
// the stream: canCreate AND not create-only.
func (al *AccessLogic) CanUpdateEventsOnStream(store, streamID string) bool {
	level := al.ResolveLevel(store, streamID)
	return level.AtLeast(LevelContribute) && !level.CreateOnly
}

// CanCreateChildOnStream reports whether al may create a child stream:
// level >= manage AND not create-only.
func (al *AccessLogic) CanCreateChildOnStream(store, streamID string) bool {
	return al.canManage(store, streamID)
}

// CanDeleteStream reports whether al may delete the stream: level >=
// manage AND not create-only.
func (al *AccessLogic) CanDeleteStream(store, streamID string) bool {
	return al.canManage(store, streamID)
}

// CanUpdateStream reports whether al may rename/move the stream: level >=
// manage AND not create-only.
func (al *AccessLogic) CanUpdateStream(store, streamID string) bool {
	return al.canManage(store, streamID)
}

func (al *AccessLogic) canManage(store, streamID string) bool {
	level := al.ResolveLevel(store, streamID)
	return level.AtLeast(LevelManage) && !level.CreateOnly
}

// CanGetEventsWithAnyTag reports whether al's tag permissions grant
// unrestricted read across tags (an explicit {tag:*, level>=read}).
func (al *AccessLogic) CanGetEventsWithAnyTag() bool {
	if al.access.IsPersonal() {
		return true
	}
	return al.TagLevel("*").AtLeast(LevelRead)
}

// CanGetEventsOnStreamAndWithTags composes the stream-level and tag-level
// checks: the stream must be readable, and either tags are unrestricted or
// at least one of the given tags is individually readable.
func (al *AccessLogic) CanGetEventsOnStreamAndWithTags(store, streamID string, tags []string) bool {
	if !al.CanGetEventsOnStream(store, streamID) {
		return false
	}
	if al.CanGetEventsWithAnyTag() {
		return true
	}
	for _, tag := range tags {
		if al.TagLevel(tag).AtLeast(LevelRead) {
			return true
		}
	}
	return false
}

// CanCreateEventsOnStreamWithTags mirrors
// CanGetEventsOnStreamAndWithTags for the create-only-compatible
// contribute check.
func (al *AccessLogic) CanCreateEventsOnStreamWithTags(store, streamID string, tags []string) bool {
	if !al.CanCreateEventsOnStream(store, streamID) {
		return false
	}
	if al.CanGetEventsWithAnyTag() {
		return true
	}
	for _, tag := range tags {
		if al.TagLevel(tag).AtLeast(LevelContribute) {
			return true
		}
	}
	return false
}
