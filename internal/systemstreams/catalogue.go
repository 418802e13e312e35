package systemstreams

import (
	"fmt"
	"regexp"

	"github.com/streamhub/corehub/internal/apierror"
)

var (
	typeRegexp = regexp.MustCompile(`^[a-z0-9-]+/[a-z0-9-]+$`)
)

// CatalogueConfig parametrizes the Build algorithm: the
// backward-compatibility-prefix toggle and operator-supplied custom streams.
type CatalogueConfig struct {
	// BackwardCompatibilityPrefix additionally enforces global id
	// uniqueness on the unprefixed id, for deployments still carrying
	// pre-prefix data.
	BackwardCompatibilityPrefix bool
}

// Catalogue is the immutable, validated tree of system streams built once at
// startup. All derived queries are memoized on first call.
type Catalogue struct {
	cfg   CatalogueConfig
	byID  map[string]*SystemStream
	roots []*SystemStream

	readableMap                map[string]*SystemStream
	editableMap                map[string]*SystemStream
	accountMap                 map[string]*SystemStream
	indexedIDs                 []string
	uniqueIDs                  []string
	forbiddenForReading        map[string]struct{}
	forbiddenForEditing        map[string]struct{}
	leaves                     []*SystemStream
	accountRootIDsRequiringRead []string
}

// Build assembles the builtin account/marker streams with any
// operator-declared custom streams, validates the result, and indexes it for
// the derived queries. Any validation failure is returned (and is fatal at
// startup: callers are expected to os.Exit(2) rather than serve with an
// invalid catalogue).
func Build(custom []StreamSpec, cfg CatalogueConfig) (*Catalogue, error) {
	cat := &Catalogue{
		cfg:  cfg,
		byID: make(map[string]*SystemStream),
	}

	account := applyDefaults(builtinAccountStreams(), true)
	markers := applyDefaults(builtinMarkerStreams(), true)
	other := applyDefaults(nil, true)

	for i := range custom {
		applyCustomDefaults(&custom[i])
	}

	// Split operator-supplied custom streams into the account/other roots
	// they were declared under; everything else is rejected up front.
	var customAccount, customOther []StreamSpec
	for _, spec := range custom {
		switch spec.ParentRoot() {
		case RootAccount:
			customAccount = append(customAccount, spec)
		case RootOther:
			if err := validateOtherStreamConstraints(spec); err != nil {
				return nil, err
			}
			customOther = append(customOther, spec)
		default:
			return nil, apierror.New(apierror.InvalidParametersFormat,
				fmt.Sprintf("system stream %q must be declared under %q or %q", spec.ID, RootAccount, RootOther))
		}
	}

	accountRoot := &SystemStream{ID: RootAccount, Name: RootAccount, Type: "root/root", IsShown: true, IsEditable: false}
	otherRoot := &SystemStream{ID: RootOther, Name: RootOther, Type: "root/root", IsShown: true, IsEditable: true}

	if err := cat.attachChildren(accountRoot, append(account, customAccount...), true); err != nil {
		return nil, err
	}
	if err := cat.attachChildren(otherRoot, append(other, customOther...), false); err != nil {
		return nil, err
	}
	if err := cat.attachChildren(nil, markers, true); err != nil {
		return nil, err
	}

	cat.roots = []*SystemStream{accountRoot, otherRoot}
	for _, m := range markers {
		// markers were registered in byID by attachChildren(nil, ...);
		// look them back up to expose as pseudo-roots.
		cat.roots = append(cat.roots, cat.byID[prefixID(m.ID, true)])
	}
	cat.byID[accountRoot.ID] = accountRoot
	cat.byID[otherRoot.ID] = otherRoot

	if err := cat.enforceGlobalUniqueness(); err != nil {
		return nil, err
	}

	cat.buildDerivedQueries()
	return cat, nil
}

// attachChildren validates and registers specs as children of parent
// (or as standalone roots when parent is nil, used for marker streams),
// recursing into nested Children. builtin controls the :_system:/:system:
// prefix applied to each id.
func (c *Catalogue) attachChildren(parent *SystemStream, specs []StreamSpec, builtin bool) error {
	for _, spec := range specs {
		node, err := c.buildNode(spec, builtin)
		if err != nil {
			return err
		}
		if parent != nil {
			node.ParentID = parent.ID
			parent.Children = append(parent.Children, node)
		}
		if _, dup := c.byID[node.ID]; dup {
			return apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("duplicate system stream id %q", node.ID))
		}
		c.byID[node.ID] = node

		if len(spec.Children) > 0 {
			if err := c.attachChildren(node, spec.Children, builtin); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Catalogue) buildNode(spec StreamSpec, builtin bool) (*SystemStream, error) {
	id := prefixID(spec.ID, builtin)

	if len(id) < len(prefixFor(builtin))+2 {
		return nil, apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("system stream id %q must be at least 2 characters excluding its prefix", spec.ID))
	}
	if spec.Type == "" || !typeRegexp.MatchString(spec.Type) {
		return nil, apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("system stream %q has invalid type %q", id, spec.Type))
	}

	isIndexed := derefOr(spec.IsIndexed, false)
	isUnique := derefOr(spec.IsUnique, false)
	isShown := derefOr(spec.IsShown, true)
	isEditable := derefOr(spec.IsEditable, true)
	isRequired := derefOr(spec.IsRequiredInValidation, false)

	if isUnique && !isIndexed {
		return nil, apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("system stream %q: isUnique requires isIndexed", id))
	}

	name := spec.Name
	if name == "" {
		name = spec.ID
	}

	return &SystemStream{
		ID:                     id,
		Name:                   name,
		Type:                   spec.Type,
		Default:                spec.Default,
		IsIndexed:              isIndexed,
		IsUnique:               isUnique,
		IsShown:                isShown,
		IsEditable:             isEditable,
		IsRequiredInValidation: isRequired,
		RegexValidation:        spec.RegexValidation,
		CreatedBy:              "system",
		ModifiedBy:             "system",
		Created:                UnknownDate,
		Modified:               UnknownDate,
	}, nil
}

// validateOtherStreamConstraints enforces the constraints a custom stream
// placed under "other" must satisfy: not unique, not indexed, editable,
// shown, and not required at registration.
func validateOtherStreamConstraints(spec StreamSpec) error {
	id := spec.ID
	if derefOr(spec.IsUnique, false) {
		return apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("custom stream %q under %q must not be unique", id, RootOther))
	}
	if derefOr(spec.IsIndexed, false) {
		return apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("custom stream %q under %q must not be indexed", id, RootOther))
	}
	if !derefOr(spec.IsEditable, true) {
		return apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("custom stream %q under %q must be editable", id, RootOther))
	}
	if derefOr(spec.IsRequiredInValidation, false) {
		return apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("custom stream %q under %q must not be required at registration", id, RootOther))
	}
	if !derefOr(spec.IsShown, true) {
		return apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("custom stream %q under %q must be shown", id, RootOther))
	}
	return nil
}

// enforceGlobalUniqueness requires ids to be unique both with and (when
// BackwardCompatibilityPrefix is set) without their prefix.
func (c *Catalogue) enforceGlobalUniqueness() error {
	// Per-insertion collisions within the prefixed id space are already
	// rejected by attachChildren; here we additionally guard the
	// unprefixed id space when backward compatibility demands it.
	if !c.cfg.BackwardCompatibilityPrefix {
		return nil
	}

	seenUnprefixed := make(map[string]struct{}, len(c.byID))
	for id := range c.byID {
		unprefixed := unprefix(id)
		if _, dup := seenUnprefixed[unprefixed]; dup {
			return apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("duplicate system stream id %q once unprefixed", unprefixed))
		}
		seenUnprefixed[unprefixed] = struct{}{}
	}
	return nil
}

func applyDefaults(specs []StreamSpec, _ bool) []StreamSpec {
	return specs
}

// applyCustomDefaults defaults a custom spec's Name to its ID; the boolean
// flags are defaulted later, by buildNode's deref-or-default logic.
func applyCustomDefaults(spec *StreamSpec) {
	if spec.Name == "" {
		spec.Name = spec.ID
	}
}

// ParentRoot reports which reserved root ("account" or "other") a custom
// StreamSpec declares itself under, read from its Root field; an empty Root
// means "other".
func (s StreamSpec) ParentRoot() string {
	if s.Root != "" {
		return s.Root
	}
	return RootOther
}

func prefixFor(builtin bool) string {
	if builtin {
		return PrefixBuiltin
	}
	return PrefixCustom
}

// prefixID adds the builtin/custom prefix exactly once: idempotent, never
// double-prefixes an already-prefixed id.
func prefixID(id string, builtin bool) string {
	p := prefixFor(builtin)
	if len(id) >= len(PrefixBuiltin) && id[:len(PrefixBuiltin)] == PrefixBuiltin {
		return id
	}
	if len(id) >= len(PrefixCustom) && id[:len(PrefixCustom)] == PrefixCustom {
		return id
	}
	return p + id
}

func unprefix(id string) string {
	if len(id) >= len(PrefixBuiltin) && id[:len(PrefixBuiltin)] == PrefixBuiltin {
		return id[len(PrefixBuiltin):]
	}
	if len(id) >= len(PrefixCustom) && id[:len(PrefixCustom)] == PrefixCustom {
		return id[len(PrefixCustom):]
	}
	return id
}

// Unprefix strips a system stream id's ":_system:" or ":system:" prefix, if
// present. Callers outside this package use it to match a stream id against
// the unprefixed field names carried in registration params and register
// payloads.
func Unprefix(id string) string {
	return unprefix(id)
}

func derefOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

// Get returns the stream for id, or nil if not present.
func (c *Catalogue) Get(id string) *SystemStream {
	return c.byID[id]
}

// Parent returns id's parent stream, or nil at a root.
func (c *Catalogue) Parent(id string) *SystemStream {
	node := c.byID[id]
	if node == nil || node.ParentID == "" {
		return nil
	}
	return c.byID[node.ParentID]
}

// Roots returns the top-level streams (account, other, and the marker
// pseudo-roots).
func (c *Catalogue) Roots() []*SystemStream {
	return c.roots
}
