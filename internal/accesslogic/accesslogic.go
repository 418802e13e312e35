package accesslogic

import (
	"fmt"
	"strings"
	"sync"

	"github.com/streamhub/corehub/internal/config"
	"github.com/streamhub/corehub/internal/systemstreams"
)

// storeLocal is the storeId every permission without an explicit
// ":<storeId>:" prefix belongs to.
const storeLocal = "local"

// rootForbidden is the sentinel level account roots are tombstoned with,
// distinguishing "explicitly denied by default" from "no grant seen yet"
// (both resolve to LevelNone, but the tombstone must never be overridden
// by a wildcard fallback during stream-level resolution).
var rootForbidden = LevelNone

// StoreRegistry abstracts the data-store registry consulted when
// propagating a local "*" permission into every store included in star
// permissions.
type StoreRegistry interface {
	StarPermissionStores() []string
}

// AccessLogic is the built policy object for one access. Immutable after
// BuildAccessLogic; stream-level resolution memoizes into resolveCache.
type AccessLogic struct {
	access    *Access
	catalogue *systemstreams.Catalogue
	cfg       config.AccessConfig

	streamPermissions  map[string]map[string]Permission // storeId -> streamId -> perm
	tagPermissions     map[string]Permission             // tag -> perm
	featurePermissions map[string]Permission             // feature -> perm
	forcedStreams      map[string][]string               // storeId -> streamIds

	resolveCache sync.Map // (storeId, streamId) -> Level
}

// BuildAccessLogic compiles access's raw permission list into the indexed
// lookup tables AccessLogic's predicates check against.
func BuildAccessLogic(access *Access, catalogue *systemstreams.Catalogue, storeRegistry StoreRegistry, cfg config.AccessConfig) *AccessLogic {
	al := &AccessLogic{
		access:             access,
		catalogue:          catalogue,
		cfg:                cfg,
		streamPermissions:  make(map[string]map[string]Permission),
		tagPermissions:     make(map[string]Permission),
		featurePermissions: make(map[string]Permission),
		forcedStreams:      make(map[string][]string),
	}

	if access.IsPersonal() {
		return al
	}

	// Tombstone account roots requiring read before real grants are
	// folded in, so an explicit higher grant can still override it.
	if catalogue != nil {
		for _, id := range catalogue.AccountRootIDsRequiringRead() {
			al.setStreamPermission(storeLocal, id, Permission{
				Kind: StreamPermission, StoreID: storeLocal, StreamID: id, Level: rootForbidden,
			})
		}
	}

	for _, p := range access.Permissions {
		switch p.Kind {
		case StreamPermission:
			storeID, streamID := parseStorePrefix(p.StreamID)
			if p.StoreID != "" {
				storeID = p.StoreID
				streamID = p.StreamID
			}
			al.setStreamPermission(storeID, streamID, Permission{
				Kind: StreamPermission, StoreID: storeID, StreamID: streamID, Level: p.Level,
			})

			if storeID == storeLocal && streamID == "*" && storeRegistry != nil {
				for _, star := range storeRegistry.StarPermissionStores() {
					al.setStreamPermission(star, "*", Permission{
						Kind: StreamPermission, StoreID: star, StreamID: "*", Level: p.Level,
					})
				}
			}
		case TagPermission:
			al.mergeTagPermission(p)
		case FeaturePermission:
			al.featurePermissions[p.Feature] = p
			if p.Feature == "forcedStreams" {
				storeID, streamID := parseStorePrefix(p.Setting)
				al.forcedStreams[storeID] = append(al.forcedStreams[storeID], streamID)
			}
		}
	}

	if cfg.SelfAuditEnabled && !al.hasFeatureSetting("selfAudit", "forbidden") {
		auditStream := fmt.Sprintf(":_audit:access-%s", access.ID)
		al.setStreamPermission(storeLocal, auditStream, Permission{
			Kind: StreamPermission, StoreID: storeLocal, StreamID: auditStream, Level: LevelRead,
		})
	}

	if len(al.tagPermissions) == 0 && al.hasAnyStreamPermission() {
		al.tagPermissions["*"] = Permission{Kind: TagPermission, Tag: "*", Level: LevelRead}
	}

	return al
}

func (al *AccessLogic) setStreamPermission(storeID, streamID string, p Permission) {
	if al.streamPermissions[storeID] == nil {
		al.streamPermissions[storeID] = make(map[string]Permission)
	}
	al.streamPermissions[storeID][streamID] = p
}

func (al *AccessLogic) mergeTagPermission(p Permission) {
	existing, ok := al.tagPermissions[p.Tag]
	if !ok || p.Level.Rank > existing.Level.Rank {
		al.tagPermissions[p.Tag] = p
	}
}

func (al *AccessLogic) hasFeatureSetting(feature, setting string) bool {
	p, ok := al.featurePermissions[feature]
	return ok && p.Setting == setting
}

func (al *AccessLogic) hasAnyStreamPermission() bool {
	for _, m := range al.streamPermissions {
		if len(m) > 0 {
			return true
		}
	}
	return false
}

// parseStorePrefix splits a ":<storeId>:<rest>" id into (storeId, rest);
// anything else belongs to the local store.
func parseStorePrefix(id string) (string, string) {
	if len(id) == 0 || id[0] != ':' {
		return storeLocal, id
	}
	rest := id[1:]
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return storeLocal, id
	}
	storeID := rest[:idx]
	if storeID == "" {
		return storeLocal, id
	}
	return storeID, rest[idx+1:]
}

// ResolveLevel returns the resolved permission level for (store, streamId)
// via four-step stream-level resolution, memoized per instance.
func (al *AccessLogic) ResolveLevel(store, streamID string) Level {
	if al.access.IsPersonal() {
		return LevelManage
	}

	cacheKey := store + "\x00" + streamID
	if cached, ok := al.resolveCache.Load(cacheKey); ok {
		return cached.(Level)
	}

	level := al.resolveLevelUncached(store, streamID)
	al.resolveCache.Store(cacheKey, level)
	return level
}

func (al *AccessLogic) resolveLevelUncached(store, streamID string) Level {
	perms := al.streamPermissions[store]

	if p, ok := perms[streamID]; ok {
		return p.Level
	}

	isAccountStream := al.isAccountStream(store, streamID)

	if store == storeLocal && al.catalogue != nil {
		id := streamID
		for {
			parent := al.catalogue.Parent(id)
			if parent == nil {
				break
			}
			if p, ok := perms[parent.ID]; ok {
				return p.Level
			}
			id = parent.ID
		}
	}

	if isAccountStream {
		return LevelNone
	}

	if p, ok := perms["*"]; ok {
		return p.Level
	}
	return LevelNone
}

func (al *AccessLogic) isAccountStream(store, streamID string) bool {
	if store != storeLocal || al.catalogue == nil {
		return false
	}
	_, ok := al.catalogue.AccountMap()[streamID]
	return ok
}

// TagLevel returns the resolved permission level for a tag, or LevelNone if
// untagged-permission does not cover it.
func (al *AccessLogic) TagLevel(tag string) Level {
	if al.access.IsPersonal() {
		return LevelManage
	}
	if p, ok := al.tagPermissions[tag]; ok {
		return p.Level
	}
	if p, ok := al.tagPermissions["*"]; ok {
		return p.Level
	}
	return LevelNone
}

// ForcedStreams returns the streamIds forced onto every event created
// through this access for storeID (the "forcedStreams" feature).
func (al *AccessLogic) ForcedStreams(storeID string) []string {
	return al.forcedStreams[storeID]
}

// Access returns the underlying access record.
func (al *AccessLogic) Access() *Access { return al.access }
