package docgen

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloudCIX/docgen/internal/source"
)

// newUserIndex builds an in-memory index for a small but complete
// application: one collection view, one resource view, a serializer, the
// three controllers and a permission construct. A run over it is clean.
func newUserIndex() *source.Index {
	idx := source.NewIndex(source.App{
		Name:        "membership",
		Version:     "1.2.3",
		Description: source.Doc{Text: "The Membership application manages users.", Line: 1},
	})
	idx.AddModule(source.Module{Name: "user", Doc: source.Doc{Text: "Services for managing user records.", Line: 1}})

	idx.Add(&source.Construct{
		Category: source.View,
		Name:     "UserCollection",
		Module:   "user",
		Methods: []source.Method{
			{Name: "get", Doc: source.Doc{Line: 10, Text: "summary: List users\n" +
				"description: Retrieve a list of user records\n" +
				"responses:\n" +
				"  200:\n" +
				"    description: A list of user records\n" +
				"  400:\n"}},
			{Name: "post", Doc: source.Doc{Line: 30, Text: "summary: Create a user\n" +
				"description: Create a new user record\n" +
				"responses:\n" +
				"  201:\n" +
				"    description: The created user record\n" +
				"  400:\n"}},
		},
	})
	idx.Add(&source.Construct{
		Category: source.View,
		Name:     "UserResource",
		Module:   "user",
		Methods: []source.Method{
			{Name: "get", Doc: source.Doc{Line: 10, Text: "summary: Read a user\n" +
				"description: Retrieve one user record\n" +
				"path_params:\n" +
				"  pk:\n" +
				"    type: integer\n" +
				"    description: The id of the user to read\n" +
				"responses:\n" +
				"  200:\n" +
				"    description: The user record\n" +
				"  404:\n"}},
			{Name: "put", Doc: source.Doc{Line: 40, Text: "summary: Update a user\n" +
				"description: Update the details of a user record\n" +
				"path_params:\n" +
				"  pk:\n" +
				"    type: integer\n" +
				"    description: The id of the user to update\n" +
				"responses:\n" +
				"  200:\n" +
				"    description: The updated user record\n" +
				"  400:\n" +
				"  404:\n"}},
			{Name: "patch", Doc: source.Doc{}},
			{Name: "delete", Doc: source.Doc{Line: 70, Text: "summary: Delete a user\n" +
				"description: Delete a user record\n" +
				"path_params:\n" +
				"  pk:\n" +
				"    type: integer\n" +
				"    description: The id of the user to delete\n" +
				"responses:\n" +
				"  204:\n" +
				"  404:\n"}},
		},
	})

	idx.Add(&source.Construct{
		Category: source.Serializer,
		Name:     "UserSerializer",
		Fields:   []string{"id", "name", "email"},
		Doc: source.Doc{Line: 5, Text: "id:\n" +
			"  type: integer\n" +
			"  description: The id of the user\n" +
			"name:\n" +
			"  type: string\n" +
			"  description: The name of the user\n" +
			"email:\n" +
			"  type: string\n" +
			"  description: The email address of the user\n"},
	})

	idx.Add(&source.Construct{
		Category:        source.Controller,
		Name:            "UserListController",
		SearchFields:    []source.SearchField{{Name: "name", Modifiers: []string{"icontains"}}, {Name: "email"}},
		AllowedOrdering: []string{"name", "id"},
	})
	idx.Add(&source.Construct{
		Category:        source.Controller,
		Name:            "UserCreateController",
		ValidationOrder: []string{"name", "email"},
		Methods: []source.Method{
			{Name: "ValidateName", Doc: source.Doc{Line: 12, Text: "type: string\ndescription: The name of the user"}},
			{Name: "ValidateEmail", Doc: source.Doc{Line: 20, Text: "type: string\ndescription: The email address of the user"}},
		},
	})
	idx.Add(&source.Construct{
		Category:        source.Controller,
		Name:            "UserUpdateController",
		ValidationOrder: []string{"name", "email"},
		Methods: []source.Method{
			{Name: "ValidateName", Doc: source.Doc{Line: 12, Text: "type: string\ndescription: The name of the user"}},
			{Name: "ValidateEmail", Doc: source.Doc{Line: 20, Text: "required: false\ntype: string\ndescription: The email address of the user"}},
		},
	})

	idx.Add(&source.Construct{
		Category: source.Permission,
		Name:     "user",
		Methods: []source.Method{
			{Name: "list", Doc: source.Doc{Line: 8, Text: "The requesting user must be a member of the address that owns the records."}},
			{Name: "read", Doc: source.Doc{Line: 12, Text: "The requesting user must be able to see the requested user."}},
			{Name: "create", Doc: source.Doc{Line: 16, Text: "The requesting user must be an administrator."}},
			{Name: "update", Doc: source.Doc{Line: 20, Text: "The requesting user must be an administrator of the same address."}},
			{Name: "delete", Doc: source.Doc{Line: 24, Text: "The requesting user must be a global administrator."}},
		},
	})

	idx.Add(&source.Construct{Category: source.URLEntry, Name: "user/", Pattern: "user/", ViewName: "UserCollection"})
	idx.Add(&source.Construct{Category: source.URLEntry, Name: "user/<int:pk>/", Pattern: "user/<int:pk>/", ViewName: "UserResource"})
	return idx
}

func runGenerator(idx *source.Index) (*Document, *Aggregator) {
	agg := NewAggregator()
	g := New(idx, Options{
		ContactEmail: "developers@cloudcix.com",
		ServerURL:    "https://%s.api.cloudcix.com/",
		DocsURL:      "https://docs.cloudcix.com/?%s",
	}, zerolog.Nop(), agg)
	return g.Run(), agg
}

func TestGeneratorCleanRun(t *testing.T) {
	doc, agg := runGenerator(newUserIndex())
	require.Zero(t, agg.Len(), "expected a clean run, got: %v", agg.Errors())

	assert.Equal(t, "3.0.0", doc.OpenAPI)
	assert.Equal(t, "Membership", doc.Info.Title)
	assert.Equal(t, "1.2.3", doc.Info.Version)
	require.NotNil(t, doc.Info.Contact)
	assert.Equal(t, "developers@cloudcix.com", doc.Info.Contact.Email)
	require.Len(t, doc.Servers, 1)
	assert.Equal(t, "https://membership.api.cloudcix.com/", doc.Servers[0].URL)

	require.Len(t, doc.Tags, 1)
	assert.Equal(t, "User", doc.Tags[0].Name)

	require.Contains(t, doc.Paths, "/user/")
	require.Contains(t, doc.Paths, "/user/{pk}/")

	collection := doc.Paths["/user/"]
	require.NotNil(t, collection.Get)
	require.NotNil(t, collection.Post)
	assert.Nil(t, collection.Put)

	resource := doc.Paths["/user/{pk}/"]
	require.NotNil(t, resource.Get)
	require.NotNil(t, resource.Put)
	require.NotNil(t, resource.Patch)
	require.NotNil(t, resource.Delete)

	schemas := doc.Components.Schemas
	for _, name := range []string{"User", "UserResponse", "UserList", "UserCreate", "UserUpdate"} {
		assert.Contains(t, schemas, name)
	}
	assert.Equal(t, []string{"name", "email"}, schemas["UserCreate"].Required)
	assert.Equal(t, []string{"name"}, schemas["UserUpdate"].Required)
}

func TestGeneratorListOperation(t *testing.T) {
	doc, agg := runGenerator(newUserIndex())
	require.Zero(t, agg.Len())

	get := doc.Paths["/user/"].Get
	assert.Contains(t, get.Description, "## Filtering")
	assert.Contains(t, get.Description, "- name (icontains)")
	assert.Contains(t, get.Description, "## Ordering")
	assert.Contains(t, get.Description, "- name (default)")
	assert.Contains(t, get.Description, "## Permissions")
	assert.Contains(t, get.Description, "member of the address that owns the records")

	// The default list parameters come after any path parameters.
	var names []string
	for _, p := range get.Parameters {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"exclude", "limit", "order", "page", "search"}, names)

	resp := get.Responses["200"]
	require.NotNil(t, resp)
	assert.Equal(t, "#/components/schemas/UserList", resp.Content["application/json"].Schema.Ref)
}

func TestGeneratorRequestBodies(t *testing.T) {
	doc, agg := runGenerator(newUserIndex())
	require.Zero(t, agg.Len())

	post := doc.Paths["/user/"].Post
	require.NotNil(t, post.RequestBody)
	assert.Equal(t, "Data required to create a record", post.RequestBody.Description)
	assert.True(t, post.RequestBody.Required)
	assert.Equal(t, "#/components/schemas/UserCreate",
		post.RequestBody.Content["application/json"].Schema.Ref)

	put := doc.Paths["/user/{pk}/"].Put
	require.NotNil(t, put.RequestBody)
	assert.Equal(t, "Data required to update a record", put.RequestBody.Description)
}

func TestGeneratorPatchDerivedFromPut(t *testing.T) {
	doc, agg := runGenerator(newUserIndex())
	require.Zero(t, agg.Len())

	resource := doc.Paths["/user/{pk}/"]
	patch := resource.Patch
	require.NotNil(t, patch)
	assert.Equal(t, resource.Put.Summary, patch.Summary)
	assert.True(t, strings.HasPrefix(patch.Description, resource.Put.Description))
	assert.Contains(t, patch.Description, "treat all of the Update schema as optional")

	// The clone is independent of the put operation.
	patch.Responses["418"] = &Response{Description: "teapot"}
	assert.NotContains(t, resource.Put.Responses, "418")
}

func TestGeneratorPatchWithoutPut(t *testing.T) {
	idx := newUserIndex()
	view := idx.Lookup(source.View, "UserResource")
	var kept []source.Method
	for _, m := range view.Methods {
		if m.Name != "put" {
			kept = append(kept, m)
		}
	}
	view.Methods = kept

	_, agg := runGenerator(idx)
	var found bool
	for _, e := range agg.Errors() {
		if e.Method == "patch" && strings.Contains(e.Message, "no PUT data found") {
			found = true
		}
	}
	assert.True(t, found, "expected a patch error, got: %v", agg.Errors())
}

func TestGeneratorResponseDefaults(t *testing.T) {
	doc, agg := runGenerator(newUserIndex())
	require.Zero(t, agg.Len())

	get := doc.Paths["/user/{pk}/"].Get
	assert.Equal(t, "#/components/responses/404", get.Responses["404"].Ref)
	assert.Equal(t, "#/components/responses/401", get.Responses["401"].Ref)
	assert.Equal(t, "#/components/schemas/UserResponse",
		get.Responses["200"].Content["application/json"].Schema.Ref)

	del := doc.Paths["/user/{pk}/"].Delete
	assert.Equal(t, "No Content", del.Responses["204"].Description)
	assert.Nil(t, del.Responses["204"].Content)
}

func TestGeneratorPathParameters(t *testing.T) {
	doc, agg := runGenerator(newUserIndex())
	require.Zero(t, agg.Len())

	get := doc.Paths["/user/{pk}/"].Get
	require.NotEmpty(t, get.Parameters)
	pk := get.Parameters[0]
	assert.Equal(t, "pk", pk.Name)
	assert.Equal(t, "path", pk.In)
	assert.True(t, pk.Required)
	assert.Equal(t, "integer", pk.Schema.Type)
	assert.Equal(t, "The id of the user to read", pk.Description)
}

// A syntax error in one method contributes an error for that method only;
// the rest of the run is unaffected.
func TestGeneratorErrorDoesNotStopRun(t *testing.T) {
	idx := newUserIndex()
	view := idx.Lookup(source.View, "UserCollection")
	for i, m := range view.Methods {
		if m.Name == "get" {
			view.Methods[i].Doc.Text = "summary: List users\nsummary: duplicated key"
		}
	}

	doc, agg := runGenerator(idx)
	require.Equal(t, 1, agg.Len())
	err := agg.Errors()[0]
	assert.Equal(t, "UserCollection", err.Construct)
	assert.Equal(t, "get", err.Method)
	assert.Contains(t, err.Message, "could not parse embedded schema")
	assert.Contains(t, err.Message, "duplicate key")
	assert.Equal(t, 11, err.Line)

	// The broken method contributes nothing, its siblings still do.
	assert.Nil(t, doc.Paths["/user/"].Get)
	assert.NotNil(t, doc.Paths["/user/"].Post)
	assert.NotNil(t, doc.Paths["/user/{pk}/"].Get)
}

func TestGeneratorMissingMethodDoc(t *testing.T) {
	idx := newUserIndex()
	view := idx.Lookup(source.View, "UserCollection")
	for i, m := range view.Methods {
		if m.Name == "post" {
			view.Methods[i].Doc = source.Doc{}
		}
	}

	doc, agg := runGenerator(idx)
	require.Equal(t, 1, agg.Len())
	assert.Equal(t, "method was expected to have a docstring but it does not", agg.Errors()[0].Message)
	assert.Nil(t, doc.Paths["/user/"].Post)
}

func TestGeneratorUnknownFieldReference(t *testing.T) {
	idx := newUserIndex()
	ctrl := idx.Lookup(source.Controller, "UserCreateController")
	ctrl.ValidationOrder = append(ctrl.ValidationOrder, "phone")
	ctrl.Methods = append(ctrl.Methods, source.Method{
		Name: "ValidatePhone",
		Doc:  source.Doc{Line: 28, Text: "type: string\ndescription: The phone number of the user"},
	})

	_, agg := runGenerator(idx)
	require.Equal(t, 1, agg.Len())
	err := agg.Errors()[0]
	assert.Equal(t, "UserCreateController", err.Construct)
	assert.Equal(t, "ValidatePhone", err.Method)
	assert.Equal(t, `UnknownFieldReference: field "phone" is not documented by the User serializer`, err.Message)
}

func TestGeneratorMissingValidateMethod(t *testing.T) {
	idx := newUserIndex()
	ctrl := idx.Lookup(source.Controller, "UserCreateController")
	ctrl.ValidationOrder = append(ctrl.ValidationOrder, "phone")

	doc, agg := runGenerator(idx)
	require.Equal(t, 1, agg.Len())
	assert.Contains(t, agg.Errors()[0].Message, "could not find ValidatePhone in UserCreateController")

	// All-or-nothing: the whole controller contributes nothing.
	assert.NotContains(t, doc.Components.Schemas, "UserCreate")
	assert.Nil(t, doc.Paths["/user/"].Post.RequestBody)
}

func TestGeneratorEmptyOrdering(t *testing.T) {
	idx := newUserIndex()
	ctrl := idx.Lookup(source.Controller, "UserListController")
	ctrl.AllowedOrdering = nil

	doc, agg := runGenerator(idx)
	require.Equal(t, 1, agg.Len())
	assert.Contains(t, agg.Errors()[0].Message, "declares no allowed ordering fields")

	// The details section is suppressed but the default parameters are not.
	get := doc.Paths["/user/"].Get
	assert.NotContains(t, get.Description, "## Filtering")
	assert.Len(t, get.Parameters, 5)
}

func TestGeneratorUnknownView(t *testing.T) {
	idx := newUserIndex()
	idx.Add(&source.Construct{
		Category: source.URLEntry,
		Name:     "group/",
		Pattern:  "group/",
		ViewName: "GroupCollection",
	})

	doc, agg := runGenerator(idx)
	require.Equal(t, 1, agg.Len())
	assert.Equal(t, "view GroupCollection is not defined", agg.Errors()[0].Message)
	assert.NotContains(t, doc.Paths, "/group/")
}

func TestGeneratorSerializerValidatedOnce(t *testing.T) {
	idx := newUserIndex()
	ser := idx.Lookup(source.Serializer, "UserSerializer")
	ser.Doc.Text = "id:\n  type: integer\n  description: The id\n" // name, email missing

	_, agg := runGenerator(idx)
	// Both URL entries reach UserSerializer, but it is validated once.
	var count int
	for _, e := range agg.Errors() {
		if e.Construct == "UserSerializer" {
			count++
		}
	}
	assert.Equal(t, 2, count, "one error per missing field, reported once: %v", agg.Errors())
}

func TestGeneratorGenerativeFieldSkipped(t *testing.T) {
	idx := newUserIndex()
	ctrl := idx.Lookup(source.Controller, "UserCreateController")
	ctrl.ValidationOrder = append(ctrl.ValidationOrder, "token")
	ctrl.Methods = append(ctrl.Methods, source.Method{
		Name: "ValidateToken",
		Doc:  source.Doc{Line: 30, Text: "generative: true"},
	})

	doc, agg := runGenerator(idx)
	require.Zero(t, agg.Len(), "generative fields are not checked or emitted: %v", agg.Errors())
	create := doc.Components.Schemas["UserCreate"]
	assert.NotContains(t, create.Properties, "token")
	assert.NotContains(t, create.Required, "token")
}

// Two runs over the same index marshal to identical bytes.
func TestGeneratorDeterministic(t *testing.T) {
	first, agg1 := runGenerator(newUserIndex())
	second, agg2 := runGenerator(newUserIndex())
	require.Zero(t, agg1.Len())
	require.Zero(t, agg2.Len())

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
