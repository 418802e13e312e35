package systemstreams

// buildDerivedQueries computes the memoized readable/editable/account/
// indexed/unique/leaf sets. Called once from Build; the Catalogue is
// immutable afterwards so every query below is a simple map/slice read.
func (c *Catalogue) buildDerivedQueries() {
	c.readableMap = make(map[string]*SystemStream)
	c.editableMap = make(map[string]*SystemStream)
	c.accountMap = make(map[string]*SystemStream)
	c.forbiddenForReading = make(map[string]struct{})
	c.forbiddenForEditing = make(map[string]struct{})

	accountRoot := c.byID[RootAccount]

	for id, s := range c.byID {
		if s.IsShown {
			c.readableMap[id] = s
		} else {
			c.forbiddenForReading[id] = struct{}{}
		}
		if s.IsEditable {
			c.editableMap[id] = s
		} else {
			c.forbiddenForEditing[id] = struct{}{}
		}
		if s.IsIndexed {
			c.indexedIDs = append(c.indexedIDs, unprefix(id))
		}
		if s.IsUnique {
			c.uniqueIDs = append(c.uniqueIDs, unprefix(id))
		}
		if s.IsLeaf() && id != RootAccount && id != RootOther {
			c.leaves = append(c.leaves, s)
		}
	}

	if accountRoot != nil {
		c.collectAccountSubtree(accountRoot)
		for _, child := range accountRoot.Children {
			if child.IsRequiredInValidation || child.IsIndexed {
				c.accountRootIDsRequiringRead = append(c.accountRootIDsRequiringRead, child.ID)
			}
		}
	}
}

func (c *Catalogue) collectAccountSubtree(node *SystemStream) {
	c.accountMap[node.ID] = node
	for _, child := range node.Children {
		c.collectAccountSubtree(child)
	}
}

// ReadableMap returns every stream whose IsShown flag is true, keyed by id.
func (c *Catalogue) ReadableMap() map[string]*SystemStream { return c.readableMap }

// EditableMap returns every stream whose IsEditable flag is true, keyed by id.
func (c *Catalogue) EditableMap() map[string]*SystemStream { return c.editableMap }

// AccountMap returns every stream in the "account" subtree, keyed by id.
func (c *Catalogue) AccountMap() map[string]*SystemStream { return c.accountMap }

// IndexedIDs returns the unprefixed ids of every indexed stream.
func (c *Catalogue) IndexedIDs() []string { return c.indexedIDs }

// UniqueIDs returns the unprefixed ids of every unique stream.
func (c *Catalogue) UniqueIDs() []string { return c.uniqueIDs }

// ForbiddenForReading reports whether id must never be returned to clients.
func (c *Catalogue) ForbiddenForReading(id string) bool {
	_, ok := c.forbiddenForReading[id]
	return ok
}

// ForbiddenForEditing reports whether id must never be modified by clients.
func (c *Catalogue) ForbiddenForEditing(id string) bool {
	_, ok := c.forbiddenForEditing[id]
	return ok
}

// Leaves returns every stream with no children.
func (c *Catalogue) Leaves() []*SystemStream { return c.leaves }

// AccountRootIDsRequiringRead returns the direct children of "account" that
// are indexed or required-at-registration, i.e. the set AccessLogic must
// tombstone with an explicit forbidden-by-default permission.
func (c *Catalogue) AccountRootIDsRequiringRead() []string { return c.accountRootIDsRequiringRead }
