// Package docgen turns a source index into an OpenAPI document. The run
// visits every construct the index discovered, parses and validates the
// embedded schema blocks, and accumulates every failure into one aggregator:
// no failure short-circuits the traversal, and the document is only worth
// writing when the aggregator ends the run empty.
package docgen

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/CloudCIX/docgen/internal/schema"
	"github.com/CloudCIX/docgen/internal/source"
)

// Options carries the run parameters owned by the CLI and configuration
// layers, consumed here as plain values.
type Options struct {
	ContactEmail string
	// ServerURL is a template with one %s placeholder for the app name.
	ServerURL string
	// DocsURL is a template with one %s placeholder for the app name.
	DocsURL string
}

// Generator performs one single-threaded, single-pass run over one
// application's source index.
type Generator struct {
	idx  *source.Index
	opts Options
	log  zerolog.Logger
	agg  *Aggregator

	doc *Document
	asm *assembler

	// parsedModels guards against re-validating a serializer reachable from
	// several views or $refs; each serializer construct is validated once.
	parsedModels map[string]bool
}

// New creates a generator for one run. The aggregator is the run's only
// shared mutable state and is owned by the caller.
func New(idx *source.Index, opts Options, log zerolog.Logger, agg *Aggregator) *Generator {
	return &Generator{
		idx:          idx,
		opts:         opts,
		log:          log,
		agg:          agg,
		parsedModels: make(map[string]bool),
	}
}

// Run executes the full pass and returns the assembled document. The caller
// must check the aggregator before writing: a run with any collected error
// produces no output artifact.
func (g *Generator) Run() *Document {
	g.doc = DefaultDocument()
	g.asm = newAssembler(g.doc, g.agg)

	g.parseAppInfo()
	g.parseModules()
	for _, entry := range g.idx.Category(source.URLEntry) {
		g.parseURLEntry(entry)
	}

	// Deferred cross-reference resolution: the aggregator may still grow
	// here, after every per-construct validator has run.
	g.asm.Finish()
	return g.doc
}

func (g *Generator) parseAppInfo() {
	app := g.idx.App
	g.log.Debug().Str("app", app.Name).Msg("parsing application info")
	g.agg.AddAll(validateAppInfo(app))

	g.doc.Info = Info{
		Title:       capitalise(app.Name),
		Version:     app.Version,
		Description: strings.TrimSpace(app.Description.Text),
	}
	if g.opts.ContactEmail != "" {
		g.doc.Info.Contact = &Contact{Email: g.opts.ContactEmail}
	}
	if g.opts.ServerURL != "" {
		g.doc.Servers = []Server{{URL: fmt.Sprintf(g.opts.ServerURL, app.Name)}}
	}
	if g.opts.DocsURL != "" {
		g.doc.ExternalDocs = &ExternalDocs{
			Description: "View Docs in JSON format",
			URL:         fmt.Sprintf(g.opts.DocsURL, app.Name),
		}
	}
}

// parseModules emits one tag per view module. A module missing its doc still
// gets a tag so the document shape is stable, but the omission is an error.
func (g *Generator) parseModules() {
	for _, mod := range g.idx.Modules {
		g.log.Debug().Str("module", mod.Name).Msg("parsing view module")
		if mod.Doc.Absent() {
			g.agg.Addf(mod.Name, "", mod.Doc.Line, "view module was expected to have a docstring but it does not")
		}
		g.doc.Tags = append(g.doc.Tags, Tag{
			Name:        prettyModuleName(mod.Name),
			Description: strings.TrimSpace(mod.Doc.Text),
		})
	}
}

func (g *Generator) parseURLEntry(entry *source.Construct) {
	url := convertURL(entry.Pattern)
	g.log.Debug().Str("url", url).Msg("parsing url pattern")

	view := g.idx.Lookup(source.View, entry.ViewName)
	if view == nil {
		g.agg.Addf(entry.Name, "", entry.Line, "view %s is not defined", entry.ViewName)
		return
	}

	pathItem := &PathItem{}
	g.doc.Paths[url] = pathItem

	model := strings.ReplaceAll(strings.ReplaceAll(view.Name, "Collection", ""), "Resource", "")
	isList := strings.Contains(view.Name, "Collection")
	tag := prettyModuleName(view.Module)

	if s := g.idx.Lookup(source.Serializer, model+"Serializer"); s != nil {
		g.parseSerializer(model, s)
	}

	for _, name := range httpMethodNames {
		if name == "patch" {
			if _, ok := view.Method("patch"); ok {
				g.parsePatch(url, view, pathItem)
			}
			continue
		}
		m, ok := view.Method(name)
		if !ok {
			continue
		}
		g.parseViewMethod(view, m, url, pathItem, model, isList, tag)
	}
}

// parseViewMethod validates one view method doc and, when it is clean,
// contributes its operation fragment. Any error means the method contributes
// nothing; sibling methods are unaffected.
func (g *Generator) parseViewMethod(view *source.Construct, m source.Method, url string, pathItem *PathItem, model string, isList bool, tag string) {
	g.log.Debug().Str("view", view.Name).Str("method", m.Name).Msg("parsing view method")

	if m.Doc.Absent() {
		g.agg.Addf(view.Name, m.Name, m.Line, "method was expected to have a docstring but it does not")
		return
	}
	node, err := schema.Parse(m.Doc.Text, m.Doc.Line)
	if err != nil {
		g.agg.Add(syntaxError(view.Name, m.Name, err))
		return
	}
	if errs := validateViewMethod(view, m, node, url); len(errs) > 0 {
		g.agg.AddAll(errs)
		return
	}

	op := &Operation{Tags: []string{tag}}
	op.Summary, _ = node.Get("summary").Str()
	op.Description, _ = node.Get("description").Str()

	g.addPathParameters(op, node.Get("path_params"), url)

	drafts, codes := responseDrafts(node.Get("responses"))

	explicitController, _ := node.Get("controller").Str()
	switch {
	case m.Name == "get" && isList:
		g.addListDetails(op, model, explicitController)
	case m.Name == "post" || m.Name == "put":
		kind := "Create"
		if m.Name == "put" {
			kind = "Update"
		}
		name := explicitController
		if name == "" {
			name = model + kind + "Controller"
		}
		if ctrl := g.idx.Lookup(source.Controller, name); ctrl != nil {
			g.parseInputSchema(ctrl, model, m.Name, op)
		}
	}

	g.addPermissionDetails(op, model, m.Name, isList)
	installResponseDefaults(op, drafts, codes, model, m.Name, isList)
	pathItem.SetOperation(m.Name, op)
}

// addPathParameters contributes one path parameter per {param} in the URL,
// in order of appearance. Coverage was already validated.
func (g *Generator) addPathParameters(op *Operation, params *schema.Node, url string) {
	for _, match := range docParamPattern.FindAllStringSubmatch(url, -1) {
		name := match[1]
		details := params.Get(name)
		p := Parameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   &Schema{},
		}
		if details != nil {
			p.Schema.Type, _ = details.Get("type").Str()
			p.Schema.Format, _ = details.Get("format").Str()
			p.Description, _ = details.Get("description").Str()
		}
		op.Parameters = append(op.Parameters, p)
	}
}

// addListDetails appends the filtering/ordering section derived from the
// list controller's metadata and attaches the default list parameters. A
// controller with invalid metadata contributes no details, but the default
// parameters are attached either way.
func (g *Generator) addListDetails(op *Operation, model, explicitController string) {
	name := explicitController
	if name == "" {
		name = model + "ListController"
	}
	if ctrl := g.idx.Lookup(source.Controller, name); ctrl != nil {
		g.log.Debug().Str("controller", ctrl.Name).Msg("parsing list controller")
		if errs := validateListMeta(ctrl); len(errs) > 0 {
			g.agg.AddAll(errs)
		} else {
			op.Description += "\n\n" + listDetails(ctrl.SearchFields, ctrl.AllowedOrdering)
		}
	}
	op.Parameters = append(op.Parameters, DefaultListParameters()...)
}

// addPermissionDetails appends the verbatim permission doc for the method's
// permission check, when one is defined.
func (g *Generator) addPermissionDetails(op *Operation, model, httpMethod string, isList bool) {
	perm := g.idx.Lookup(source.Permission, strings.ToLower(model))
	if perm == nil {
		// No permission checking, which is fine.
		return
	}
	permName := permissionMethodNames[httpMethod]
	if httpMethod == "get" {
		permName = "read"
		if isList {
			permName = "list"
		}
	}
	pm, ok := perm.Method(permName)
	if !ok {
		return
	}
	if errs := validatePermissionMethod(perm, pm); len(errs) > 0 {
		g.agg.AddAll(errs)
		return
	}
	op.Description += "\n\n" + permissionDetails(pm.Doc.Text)
}

// parsePatch derives the PATCH operation from the validated PUT of the same
// URL, per convention: the update schema becomes optional.
func (g *Generator) parsePatch(url string, view *source.Construct, pathItem *PathItem) {
	g.log.Debug().Str("view", view.Name).Msg("deriving patch from put")
	if pathItem.Put == nil {
		g.agg.Addf(view.Name, "patch", 0, "no PUT data found for %s", url)
		return
	}
	if pathItem.Put.Description == "" {
		g.agg.Addf(view.Name, "patch", 0, "no PUT description found for %s", url)
		return
	}
	patch := pathItem.Put.Clone()
	patch.Description += "\n\nThe difference between `PUT` and `PATCH` is that you do not have to " +
		"send all of the record's data in order to update it. Therefore, treat all of the Update " +
		"schema as optional."
	pathItem.Patch = patch
}

// parseSerializer validates a serializer doc and contributes the <Model>,
// <Model>Response and <Model>List schemas. Each serializer is validated at
// most once per run, however many views or $refs reach it.
func (g *Generator) parseSerializer(model string, s *source.Construct) {
	if g.parsedModels[model] {
		return
	}
	g.parsedModels[model] = true
	g.log.Debug().Str("serializer", s.Name).Msg("parsing serializer")

	if s.Doc.Absent() {
		g.agg.Addf(s.Name, "", s.Line, "serializer was expected to have a docstring but it does not")
		return
	}
	node, err := schema.Parse(s.Doc.Text, s.Doc.Line)
	if err != nil {
		g.agg.Add(syntaxError(s.Name, "", err))
		return
	}
	if errs := validateSerializer(s, node); len(errs) > 0 {
		g.agg.AddAll(errs)
		return
	}

	properties := make(map[string]*Schema, len(node.Keys))
	required := make([]string, 0, len(node.Keys))
	for _, field := range node.Keys {
		entry := node.Children[field]
		properties[field] = schemaFromNode(entry)
		g.asm.collectRefs(s.Name, "", entry)
		required = append(required, field)
	}
	g.asm.addSerializerSchemas(model, required, properties)

	// Make sure referenced sub-serializers are parsed too; unresolved refs
	// are reported at assembly time.
	for _, field := range node.Keys {
		entry := node.Children[field]
		ref, ok := entry.Get("$ref").Str()
		if !ok {
			if items := entry.Get("items"); items != nil {
				ref, _ = items.Get("$ref").Str()
			}
		}
		if ref == "" {
			continue
		}
		sub := refName(ref)
		if sub == model {
			continue // recursive reference
		}
		if next := g.idx.Lookup(source.Serializer, sub+"Serializer"); next != nil {
			g.parseSerializer(sub, next)
		}
	}
}

// parseInputSchema builds the request body schema from a create/update
// controller's validation method docs. Any error in any of the controller's
// methods means the whole controller contributes nothing.
func (g *Generator) parseInputSchema(ctrl *source.Construct, model, httpMethod string, op *Operation) {
	g.log.Debug().Str("controller", ctrl.Name).Msg("parsing input schema")

	schemaName := strings.TrimSuffix(ctrl.Name, "Controller")
	operation := "update"
	if strings.Contains(schemaName, "Create") {
		operation = "create"
	}

	var errs []ValidationError
	properties := make(map[string]*Schema, len(ctrl.ValidationOrder))
	var required []string

	for _, field := range ctrl.ValidationOrder {
		methodName := "Validate" + exportedFieldName(field)
		m, ok := ctrl.Method(methodName)
		if !ok {
			errs = append(errs, errf(ctrl.Name, "", ctrl.Line,
				"could not find %s in %s", methodName, ctrl.Name))
			continue
		}
		node, err := schema.Parse(m.Doc.Text, m.Doc.Line)
		if err != nil {
			errs = append(errs, syntaxError(ctrl.Name, methodName, err))
			continue
		}
		fd, ferrs := validateControllerField(ctrl, m, node)
		if len(ferrs) > 0 {
			errs = append(errs, ferrs...)
			continue
		}
		if fd.Generative {
			continue
		}
		g.asm.recordFieldRef(ctrl.Name, methodName, m.Line, field, model)
		g.asm.collectRefs(ctrl.Name, methodName, node)
		if fd.Required {
			required = append(required, field)
		}
		properties[field] = schemaFromNode(node)
	}

	if len(errs) > 0 {
		g.agg.AddAll(errs)
		return
	}

	sch := &Schema{Type: "object", Properties: properties}
	if len(required) > 0 {
		sch.Required = required
	}
	g.doc.Components.Schemas[schemaName] = sch

	op.RequestBody = &RequestBody{
		Description: fmt.Sprintf("Data required to %s a record", operation),
		Required:    true,
		Content:     jsonContent("#/components/schemas/" + schemaName),
	}
}
