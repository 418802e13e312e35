package systemstreams

// builtinAccountStreams returns the reserved children of the "account"
// root. "username" and "passwordHash" are defined here too and Build
// catalogues them like the others; the registration pipeline special-cases
// them: password is stored by accountstorage, not materialized as a content
// event, while username still gets a catalogue entry so readable/editable
// derivations see it consistently.
func builtinAccountStreams() []StreamSpec {
	return []StreamSpec{
		{ID: "username", Type: "identifier/string", IsIndexed: boolPtr(true), IsUnique: boolPtr(true), IsEditable: boolPtr(false), IsRequiredInValidation: boolPtr(true)},
		{ID: "passwordHash", Type: "identifier/string", IsShown: boolPtr(false), IsEditable: boolPtr(false)},
		{ID: "language", Type: "language/iso-639-1", Default: "en"},
		{ID: "appId", Type: "identifier/string"},
		{ID: "invitationToken", Type: "identifier/string", Default: "no-token"},
		{ID: "referer", Type: "identifier/string"},
		{ID: "storageUsed", Type: "data-quantity/b", IsEditable: boolPtr(false), Children: []StreamSpec{
			{ID: "dbDocuments", Type: "data-quantity/b", IsEditable: boolPtr(false)},
			{ID: "attachedFiles", Type: "data-quantity/b", IsEditable: boolPtr(false)},
		}},
	}
}

// builtinMarkerStreams returns the ".active"/".unique" helper streams. These
// are addressed as extra entries in an event's
// streamIds, never as a standalone resource, but still need catalogue
// entries so IsShown/IsIndexed queries treat them uniformly.
func builtinMarkerStreams() []StreamSpec {
	return []StreamSpec{
		{ID: MarkerActive, Type: "marker/flag", IsShown: boolPtr(false), IsEditable: boolPtr(false)},
		{ID: MarkerUnique, Type: "marker/flag", IsShown: boolPtr(false), IsEditable: boolPtr(false)},
	}
}
