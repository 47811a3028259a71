// Package source defines the source index: a pre-built, read-only table of
// the documentable constructs found in one application. Adapters (astindex,
// manifest) populate it; the docgen engine consumes it and never touches the
// underlying codebase representation itself.
package source

import "fmt"

// Category identifies the kind of a documentable construct.
type Category int

const (
	Controller Category = iota
	Permission
	Serializer
	URLEntry
	View
)

// Categories returns every category in its stable processing order.
func Categories() []Category {
	return []Category{Controller, Permission, Serializer, URLEntry, View}
}

func (c Category) String() string {
	switch c {
	case Controller:
		return "controller"
	case Permission:
		return "permission"
	case Serializer:
		return "serializer"
	case URLEntry:
		return "url"
	case View:
		return "view"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Doc is a raw doc comment attached to a construct or method. Text == ""
// means the doc is absent, which is not an error at this layer.
type Doc struct {
	Text string
	Line int
}

// Absent reports whether no doc text was found.
func (d Doc) Absent() bool { return d.Text == "" }

// Method is a named operation on a construct: an HTTP method on a view, a
// Validate* method on a controller, or a permission check.
type Method struct {
	Name string
	Doc  Doc
	Line int
}

// SearchField is one allowed filter field of a list controller, with the
// lookup modifiers it supports (gt, lt, icontains, ...).
type SearchField struct {
	Name      string
	Modifiers []string
}

// Construct is one documentable unit. Discovered once per run, immutable
// afterwards. Only the fields relevant to the construct's category are set.
type Construct struct {
	Category Category
	Name     string
	Module   string
	Doc      Doc
	Methods  []Method
	Line     int

	// Serializer: declared field names in declaration order.
	Fields []string

	// Controller metadata.
	ValidationOrder []string
	SearchFields    []SearchField
	AllowedOrdering []string

	// URL entry.
	Pattern  string
	ViewName string
}

// Method returns the named method and whether it is defined.
func (c *Construct) Method(name string) (Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// App carries the application-level metadata read from the codebase root.
type App struct {
	Name        string
	Version     string
	Description Doc
}

// Module is one view module (a view source file); its doc becomes a tag
// description in the output document.
type Module struct {
	Name string
	Doc  Doc
}

// Index is the full source index for one application: every construct of
// every category, in discovery order.
type Index struct {
	App     App
	Modules []Module

	byCategory map[Category][]*Construct
	byName     map[Category]map[string]*Construct
}

// NewIndex allocates an empty index for the given application.
func NewIndex(app App) *Index {
	return &Index{
		App:        app,
		byCategory: make(map[Category][]*Construct),
		byName:     make(map[Category]map[string]*Construct),
	}
}

// Add appends a construct to its category, preserving discovery order.
func (ix *Index) Add(c *Construct) {
	ix.byCategory[c.Category] = append(ix.byCategory[c.Category], c)
	if ix.byName[c.Category] == nil {
		ix.byName[c.Category] = make(map[string]*Construct)
	}
	ix.byName[c.Category][c.Name] = c
}

// AddModule records a view module.
func (ix *Index) AddModule(m Module) {
	ix.Modules = append(ix.Modules, m)
}

// Category returns the constructs of one category in discovery order.
func (ix *Index) Category(cat Category) []*Construct {
	return ix.byCategory[cat]
}

// Lookup returns the named construct of a category, or nil.
func (ix *Index) Lookup(cat Category, name string) *Construct {
	return ix.byName[cat][name]
}

// DiscoveryError reports that the named application could not be resolved.
// It is fatal: no construct is processed after it.
type DiscoveryError struct {
	App string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("could not discover application %q: %v", e.App, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }
