package astindex_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloudCIX/docgen/internal/docgen"
	"github.com/CloudCIX/docgen/internal/source/astindex"
)

// The membership fixture is a fully documented application: indexing it and
// running the generator must produce a clean document.
func TestGenerateFromSource(t *testing.T) {
	idx, err := astindex.Load(filepath.Join("testdata", "membership"))
	require.NoError(t, err)

	agg := docgen.NewAggregator()
	doc := docgen.New(idx, docgen.Options{
		ContactEmail: "developers@cloudcix.com",
		ServerURL:    "https://%s.api.cloudcix.com/",
	}, zerolog.Nop(), agg).Run()

	require.Zero(t, agg.Len(), "expected a clean run, got: %v", agg.Errors())

	assert.Equal(t, "Membership", doc.Info.Title)
	assert.Equal(t, "1.2.3", doc.Info.Version)

	require.Contains(t, doc.Paths, "/user/")
	require.Contains(t, doc.Paths, "/user/{pk}/")
	collection := doc.Paths["/user/"]
	resource := doc.Paths["/user/{pk}/"]
	require.NotNil(t, collection.Get)
	require.NotNil(t, collection.Post)
	require.NotNil(t, resource.Get)
	require.NotNil(t, resource.Put)
	require.NotNil(t, resource.Patch)
	require.NotNil(t, resource.Delete)

	for _, name := range []string{"User", "UserResponse", "UserList", "UserCreate", "UserUpdate"} {
		assert.Contains(t, doc.Components.Schemas, name)
	}

	assert.Contains(t, collection.Get.Description, "## Filtering")
	assert.Contains(t, collection.Get.Description, "- name (default)")
	assert.Contains(t, collection.Get.Description, "## Permissions")
	assert.Contains(t, resource.Patch.Description, "treat all of the Update schema as optional")
}

func TestGenerateFromSourceIsDeterministic(t *testing.T) {
	render := func() string {
		idx, err := astindex.Load(filepath.Join("testdata", "membership"))
		require.NoError(t, err)
		agg := docgen.NewAggregator()
		doc := docgen.New(idx, docgen.Options{}, zerolog.Nop(), agg).Run()
		require.Zero(t, agg.Len())
		out, err := json.MarshalIndent(doc, "", "  ")
		require.NoError(t, err)
		return string(out)
	}
	assert.Equal(t, render(), render())
}
