package accesslogic

import (
	"testing"

	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/config"
	"github.com/streamhub/corehub/internal/systemstreams"
)

func testCatalogue(t *testing.T) *systemstreams.Catalogue {
	t.Helper()
	cat, err := systemstreams.Build(nil, systemstreams.CatalogueConfig{})
	if err != nil {
		t.Fatalf("building catalogue: %v", err)
	}
	return cat
}

func TestPersonalAccessAllowsEverything(t *testing.T) {
	cat := testCatalogue(t)
	access := &Access{ID: "a1", Type: Personal}

	al := BuildAccessLogic(access, cat, nil, config.AccessConfig{})

	if !al.CanGetEventsOnStream("local", ":_system:language") {
		t.Error("expected personal access to read account streams")
	}
	if !al.CanCreateChildOnStream("local", "diary") {
		t.Error("expected personal access to manage arbitrary streams")
	}
}

func TestStreamPermissionExactMatch(t *testing.T) {
	cat := testCatalogue(t)
	access := &Access{
		ID:   "a1",
		Type: Shared,
		Permissions: []Permission{
			{Kind: StreamPermission, StoreID: "local", StreamID: "diary", Level: LevelRead},
		},
	}

	al := BuildAccessLogic(access, cat, nil, config.AccessConfig{})

	if !al.CanGetEventsOnStream("local", "diary") {
		t.Error("expected explicit read grant to allow reading")
	}
	if al.CanCreateEventsOnStream("local", "diary") {
		t.Error("expected read-only grant to forbid creation")
	}
}

func TestAccountStreamsNeverFallBackToStar(t *testing.T) {
	cat := testCatalogue(t)
	access := &Access{
		ID:   "a1",
		Type: Shared,
		Permissions: []Permission{
			{Kind: StreamPermission, StoreID: "local", StreamID: "*", Level: LevelRead},
		},
	}

	al := BuildAccessLogic(access, cat, nil, config.AccessConfig{})

	if al.CanGetEventsOnStream("local", ":_system:language") {
		t.Error("expected account stream to require an explicit grant, not fall back to *")
	}
	if !al.CanGetEventsOnStream("local", "diary") {
		t.Error("expected non-account stream to inherit the * grant")
	}
}

func TestCreateOnlyNeverGrantsReadOrUpdate(t *testing.T) {
	cat := testCatalogue(t)
	access := &Access{
		ID:   "a1",
		Type: Shared,
		Permissions: []Permission{
			{Kind: StreamPermission, StoreID: "local", StreamID: "diary", Level: LevelCreateOnly},
		},
	}

	al := BuildAccessLogic(access, cat, nil, config.AccessConfig{})

	if !al.CanCreateEventsOnStream("local", "diary") {
		t.Error("expected create-only to allow event creation")
	}
	if al.CanGetEventsOnStream("local", "diary") {
		t.Error("expected create-only to forbid reading")
	}
	if al.CanUpdateEventsOnStream("local", "diary") {
		t.Error("expected create-only to forbid updating")
	}
}

func TestImplicitTagFallback(t *testing.T) {
	cat := testCatalogue(t)
	access := &Access{
		ID:   "a1",
		Type: Shared,
		Permissions: []Permission{
			{Kind: StreamPermission, StoreID: "local", StreamID: "diary", Level: LevelRead},
		},
	}

	al := BuildAccessLogic(access, cat, nil, config.AccessConfig{})

	if !al.CanGetEventsWithAnyTag() {
		t.Error("expected an implicit {tag:*, level:read} when only stream permissions are set")
	}
}

func TestSelfAuditGrant(t *testing.T) {
	cat := testCatalogue(t)
	access := &Access{ID: "a1", Type: Shared}

	al := BuildAccessLogic(access, cat, nil, config.AccessConfig{SelfAuditEnabled: true})

	if !al.CanGetEventsOnStream("local", ":_audit:access-a1") {
		t.Error("expected an implicit self-audit read grant")
	}
}

func TestSelfAuditSuppressedByFeature(t *testing.T) {
	cat := testCatalogue(t)
	access := &Access{
		ID:   "a1",
		Type: Shared,
		Permissions: []Permission{
			{Kind: FeaturePermission, Feature: "selfAudit", Setting: "forbidden"},
		},
	}

	al := BuildAccessLogic(access, cat, nil, config.AccessConfig{SelfAuditEnabled: true})

	if al.CanGetEventsOnStream("local", ":_audit:access-a1") {
		t.Error("expected selfAudit=forbidden to suppress the implicit audit grant")
	}
}

func TestAncestryWalk(t *testing.T) {
	custom := []systemstreams.StreamSpec{
		{ID: "parent", Root: systemstreams.RootOther, Type: "root/root", Children: []systemstreams.StreamSpec{
			{ID: "child", Type: "leaf/leaf"},
		}},
	}
	cat, err := systemstreams.Build(custom, systemstreams.CatalogueConfig{})
	if err != nil {
		t.Fatalf("building catalogue: %v", err)
	}

	access := &Access{
		ID:   "a1",
		Type: Shared,
		Permissions: []Permission{
			{Kind: StreamPermission, StoreID: "local", StreamID: ":system:parent", Level: LevelManage},
		},
	}

	al := BuildAccessLogic(access, cat, nil, config.AccessConfig{})

	if !al.CanGetEventsOnStream("local", ":system:child") {
		t.Error("expected a child stream to inherit its parent's explicit grant")
	}
}

type fakeStoreRegistry struct{ stores []string }

func (f fakeStoreRegistry) StarPermissionStores() []string { return f.stores }

func TestStarPropagatesToRegisteredStores(t *testing.T) {
	cat := testCatalogue(t)
	access := &Access{
		ID:   "a1",
		Type: Shared,
		Permissions: []Permission{
			{Kind: StreamPermission, StoreID: "local", StreamID: "*", Level: LevelRead},
		},
	}

	al := BuildAccessLogic(access, cat, fakeStoreRegistry{stores: []string{"ext"}}, config.AccessConfig{})

	if !al.CanGetEventsOnStream("ext", "anything") {
		t.Error("expected local * to propagate into a store registered for star permissions")
	}
}

func TestCanCreateAccessAuthority(t *testing.T) {
	cat := testCatalogue(t)

	appAccess := &Access{
		ID:   "app1",
		Type: App,
		Permissions: []Permission{
			{Kind: StreamPermission, StoreID: "local", StreamID: "diary", Level: LevelContribute},
		},
	}
	appAL := BuildAccessLogic(appAccess, cat, nil, config.AccessConfig{})

	err := CanCreateAccess(appAL, CreateAccessRequest{
		Permissions: []Permission{
			{Kind: StreamPermission, StoreID: "local", StreamID: "diary", Level: LevelRead},
		},
	})
	if err != nil {
		t.Errorf("expected app access to delegate a lesser permission, got %v", err)
	}

	err = CanCreateAccess(appAL, CreateAccessRequest{
		Permissions: []Permission{
			{Kind: StreamPermission, StoreID: "local", StreamID: "diary", Level: LevelManage},
		},
	})
	if !apierror.Is(err, apierror.Forbidden) {
		t.Errorf("expected app access to be forbidden from delegating a higher permission, got %v", err)
	}

	sharedAccess := &Access{ID: "s1", Type: Shared}
	sharedAL := BuildAccessLogic(sharedAccess, cat, nil, config.AccessConfig{})
	err = CanCreateAccess(sharedAL, CreateAccessRequest{})
	if !apierror.Is(err, apierror.Forbidden) {
		t.Errorf("expected shared access to be forbidden from creating accesses, got %v", err)
	}
}

func TestCanDeleteAccessAuthority(t *testing.T) {
	cat := testCatalogue(t)

	target := &Access{ID: "target", Type: Shared, CreatedBy: "app1"}

	appAccess := &Access{ID: "app1", Type: App}
	appAL := BuildAccessLogic(appAccess, cat, nil, config.AccessConfig{})
	if err := CanDeleteAccess(appAL, target); err != nil {
		t.Errorf("expected creator app access to delete its own created access, got %v", err)
	}

	otherShared := &Access{ID: "other", Type: Shared}
	otherAL := BuildAccessLogic(otherShared, cat, nil, config.AccessConfig{})
	if err := CanDeleteAccess(otherAL, target); !apierror.Is(err, apierror.Forbidden) {
		t.Errorf("expected unrelated shared access to be forbidden from deleting another access, got %v", err)
	}

	selfAL := BuildAccessLogic(target, cat, nil, config.AccessConfig{})
	if err := CanDeleteAccess(selfAL, target); err != nil {
		t.Errorf("expected an access to delete itself, got %v", err)
	}
}

func TestMethodRegistryConstraints(t *testing.T) {
	reg := NewMethodRegistry()

	if err := reg.Check("account.get", Shared); !apierror.Is(err, apierror.Forbidden) {
		t.Errorf("expected account.* to require a personal access, got %v", err)
	}
	if err := reg.Check("account.get", Personal); err != nil {
		t.Errorf("expected account.* to allow a personal access, got %v", err)
	}
	if err := reg.Check("accesses.create", Shared); !apierror.Is(err, apierror.Forbidden) {
		t.Errorf("expected accesses.create to be forbidden to shared accesses, got %v", err)
	}
	if err := reg.Check("webhooks.create", Personal); !apierror.Is(err, apierror.Forbidden) {
		t.Errorf("expected webhooks.create to be forbidden to personal accesses, got %v", err)
	}
	if err := reg.Check("events.create", Shared); err != nil {
		t.Errorf("expected an unconstrained method to be allowed, got %v", err)
	}
}
