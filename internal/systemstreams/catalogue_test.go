package systemstreams

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuild_Defaults(t *testing.T) {
	cat, err := Build(nil, CatalogueConfig{})
	require.NoError(t, err)

	username := cat.Get(PrefixBuiltin + "username")
	require.NotNil(t, username)
	require.True(t, username.IsIndexed)
	require.True(t, username.IsUnique)
	require.False(t, username.IsEditable)

	language := cat.Get(PrefixBuiltin + "language")
	require.NotNil(t, language)
	require.Equal(t, "en", language.Default)
	require.True(t, language.IsEditable)
}

func TestBuild_IdempotentPrefix(t *testing.T) {
	require.Equal(t, PrefixBuiltin+"foo", prefixID("foo", true))
	require.Equal(t, PrefixBuiltin+"foo", prefixID(PrefixBuiltin+"foo", true))
}

func TestBuild_UniqueRequiresIndexed(t *testing.T) {
	custom := []StreamSpec{
		{ID: "badStream", Type: "custom/thing", Root: RootAccount, IsUnique: boolPtr(true), IsIndexed: boolPtr(false)},
	}
	_, err := Build(custom, CatalogueConfig{})
	require.Error(t, err)
}

func TestBuild_OtherStreamConstraints(t *testing.T) {
	custom := []StreamSpec{
		{ID: "hobby", Type: "custom/thing", Root: RootOther, IsUnique: boolPtr(true)},
	}
	_, err := Build(custom, CatalogueConfig{})
	require.Error(t, err, "unique custom stream under other must be rejected")

	custom = []StreamSpec{
		{ID: "hobby", Type: "custom/thing", Root: RootOther},
	}
	cat, err := Build(custom, CatalogueConfig{})
	require.NoError(t, err)
	require.NotNil(t, cat.Get(PrefixCustom+"hobby"))
}

func TestBuild_DuplicateIDRejected(t *testing.T) {
	custom := []StreamSpec{
		{ID: "language", Type: "custom/thing", Root: RootAccount},
	}
	_, err := Build(custom, CatalogueConfig{})
	require.Error(t, err)
}

func TestDerivedQueries(t *testing.T) {
	cat, err := Build(nil, CatalogueConfig{})
	require.NoError(t, err)

	require.Contains(t, cat.UniqueIDs(), "username")
	require.Contains(t, cat.IndexedIDs(), "username")
	require.True(t, cat.ForbiddenForEditing(PrefixBuiltin+"username"))
	require.NotEmpty(t, cat.AccountMap())
	require.NotEmpty(t, cat.Leaves())
}
