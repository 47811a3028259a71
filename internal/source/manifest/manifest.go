// Package manifest builds a source index from a pre-extracted YAML manifest
// instead of live source. It serves codebases whose constructs were indexed
// by another tool, and keeps engine tests independent of AST details.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/CloudCIX/docgen/internal/source"
)

type manifest struct {
	App struct {
		Name        string `yaml:"name"`
		Version     string `yaml:"version"`
		Description string `yaml:"description"`
	} `yaml:"app"`
	Modules []struct {
		Name string `yaml:"name"`
		Doc  string `yaml:"doc"`
	} `yaml:"modules"`
	Views       []construct `yaml:"views"`
	Serializers []construct `yaml:"serializers"`
	Controllers []construct `yaml:"controllers"`
	Permissions []construct `yaml:"permissions"`
	URLs        []struct {
		Pattern string `yaml:"pattern"`
		View    string `yaml:"view"`
	} `yaml:"urls"`
}

type construct struct {
	Name    string   `yaml:"name"`
	Module  string   `yaml:"module"`
	Line    int      `yaml:"line"`
	Doc     string   `yaml:"doc"`
	Fields  []string `yaml:"fields"`
	Methods []struct {
		Name string `yaml:"name"`
		Line int    `yaml:"line"`
		Doc  string `yaml:"doc"`
	} `yaml:"methods"`
	ValidationOrder []string `yaml:"validation_order"`
	AllowedOrdering []string `yaml:"allowed_ordering"`
	SearchFields    []struct {
		Field     string   `yaml:"field"`
		Modifiers []string `yaml:"modifiers"`
	} `yaml:"search_fields"`
}

// Load reads and resolves a manifest file. An unreadable or malformed
// manifest is a discovery failure: nothing is processed after it.
func Load(path string) (*source.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &source.DiscoveryError{App: path, Err: err}
	}
	return Parse(path, data)
}

// Parse resolves manifest bytes; name is used for error attribution.
func Parse(name string, data []byte) (*source.Index, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &source.DiscoveryError{App: name, Err: fmt.Errorf("invalid manifest: %w", err)}
	}
	if m.App.Name == "" {
		return nil, &source.DiscoveryError{App: name, Err: fmt.Errorf("manifest does not name an application")}
	}

	idx := source.NewIndex(source.App{
		Name:        m.App.Name,
		Version:     m.App.Version,
		Description: source.Doc{Text: m.App.Description},
	})

	for _, mod := range m.Modules {
		idx.AddModule(source.Module{Name: mod.Name, Doc: source.Doc{Text: mod.Doc}})
	}
	for _, c := range m.Controllers {
		idx.Add(c.resolve(source.Controller))
	}
	for _, c := range m.Permissions {
		idx.Add(c.resolve(source.Permission))
	}
	for _, c := range m.Serializers {
		idx.Add(c.resolve(source.Serializer))
	}
	for _, u := range m.URLs {
		idx.Add(&source.Construct{
			Category: source.URLEntry,
			Name:     u.Pattern,
			Pattern:  u.Pattern,
			ViewName: u.View,
		})
	}
	for _, c := range m.Views {
		idx.Add(c.resolve(source.View))
	}
	return idx, nil
}

func (c construct) resolve(cat source.Category) *source.Construct {
	out := &source.Construct{
		Category:        cat,
		Name:            c.Name,
		Module:          c.Module,
		Line:            c.Line,
		Doc:             source.Doc{Text: c.Doc, Line: c.Line},
		Fields:          c.Fields,
		ValidationOrder: c.ValidationOrder,
		AllowedOrdering: c.AllowedOrdering,
	}
	for _, sf := range c.SearchFields {
		out.SearchFields = append(out.SearchFields, source.SearchField{
			Name:      sf.Field,
			Modifiers: sf.Modifiers,
		})
	}
	for _, m := range c.Methods {
		out.Methods = append(out.Methods, source.Method{
			Name: m.Name,
			Line: m.Line,
			Doc:  source.Doc{Text: m.Doc, Line: m.Line},
		})
	}
	return out
}
