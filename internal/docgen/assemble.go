package docgen

import (
	"fmt"
	"strings"

	"github.com/CloudCIX/docgen/internal/schema"
	"github.com/CloudCIX/docgen/internal/source"
)

// refSite records a schema $ref found in a validated fragment, for
// assembly-time resolution against the final components section.
type refSite struct {
	Construct string
	Method    string
	Line      int
	Ref       string
}

// fieldRef records a controller validation method's field reference against
// the model's serializer fragment, resolved once assembly completes.
type fieldRef struct {
	Construct string
	Method    string
	Line      int
	Field     string
	Model     string
}

// assembler merges validator-accepted fragments into the document and
// performs the deferred cross-reference checks. It may append errors after
// every individual validator has run; the run is not final until Finish.
type assembler struct {
	doc *Document
	agg *Aggregator

	refs      []refSite
	fieldRefs []fieldRef

	// serializerFields holds the documented field set per assembled model
	// fragment, for controller field resolution.
	serializerFields map[string][]string
}

func newAssembler(doc *Document, agg *Aggregator) *assembler {
	return &assembler{
		doc:              doc,
		agg:              agg,
		serializerFields: make(map[string][]string),
	}
}

func (a *assembler) recordRef(construct, method string, line int, ref string) {
	a.refs = append(a.refs, refSite{Construct: construct, Method: method, Line: line, Ref: ref})
}

func (a *assembler) recordFieldRef(construct, method string, line int, field, model string) {
	a.fieldRefs = append(a.fieldRefs, fieldRef{
		Construct: construct, Method: method, Line: line, Field: field, Model: model,
	})
}

// addSerializerSchemas contributes the three schemas built from one
// serializer fragment: <Model>, <Model>Response and <Model>List.
func (a *assembler) addSerializerSchemas(model string, required []string, properties map[string]*Schema) {
	schemas := a.doc.Components.Schemas
	schemas[model] = &Schema{
		Type:       "object",
		Required:   required,
		Properties: properties,
	}
	schemas[model+"Response"] = &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"content": {Ref: "#/components/schemas/" + model},
		},
	}
	schemas[model+"List"] = &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"content": {
				Type:  "array",
				Items: &Schema{Ref: "#/components/schemas/" + model},
			},
			"_metadata": {Ref: "#/components/schemas/ListMetadata"},
		},
	}
	a.serializerFields[model] = required
}

// Finish resolves every recorded cross-reference. Unresolved references are
// appended to the aggregator through the same mechanism as parse and
// validation failures.
func (a *assembler) Finish() {
	for _, r := range a.refs {
		name := refName(r.Ref)
		if _, ok := a.doc.Components.Schemas[name]; !ok {
			a.agg.Addf(r.Construct, r.Method, r.Line, "unknown schema reference %q", r.Ref)
		}
	}
	for _, r := range a.fieldRefs {
		fields, ok := a.serializerFields[r.Model]
		if !ok {
			// No serializer fragment was assembled for the model; the field
			// set cannot be checked and any serializer error was already
			// reported in its own right.
			continue
		}
		if !containsString(fields, r.Field) {
			a.agg.Addf(r.Construct, r.Method, r.Line,
				"UnknownFieldReference: field %q is not documented by the %s serializer", r.Field, r.Model)
		}
	}
}

func refName(ref string) string {
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// schemaFromNode converts a validated field mapping into a Schema. It walks
// the restricted schema vocabulary; $ref sites are recorded by the caller.
func schemaFromNode(n *schema.Node) *Schema {
	if n == nil {
		return nil
	}
	if n.Kind != schema.Mapping {
		return nil
	}
	out := &Schema{}
	for _, key := range n.Keys {
		child := n.Children[key]
		switch key {
		case "$ref":
			out.Ref, _ = child.Str()
		case "type":
			out.Type, _ = child.Str()
		case "format":
			out.Format, _ = child.Str()
		case "description":
			out.Description, _ = child.Str()
		case "items":
			out.Items = schemaFromNode(child)
		case "properties":
			if child.Kind == schema.Mapping {
				out.Properties = make(map[string]*Schema, len(child.Keys))
				for _, prop := range child.Keys {
					out.Properties[prop] = schemaFromNode(child.Children[prop])
				}
			}
		case "required":
			if child.Kind == schema.Sequence {
				for _, item := range child.Items {
					if s, ok := item.Str(); ok {
						out.Required = append(out.Required, s)
					}
				}
			}
		case "enum":
			if child.Kind == schema.Sequence {
				for _, item := range child.Items {
					out.Enum = append(out.Enum, item.Value)
				}
			}
		case "minimum":
			out.Minimum = nodeFloat(child)
		case "maximum":
			out.Maximum = nodeFloat(child)
		case "default":
			if child.Kind == schema.Scalar {
				out.Default = child.Value
			}
		case "additionalProperties":
			out.AdditionalProperties = schemaFromNode(child)
		}
	}
	return out
}

// collectRefs walks a field node and records every $ref it carries.
func (a *assembler) collectRefs(construct, method string, n *schema.Node) {
	if n == nil || n.Kind != schema.Mapping {
		return
	}
	for _, key := range n.Keys {
		child := n.Children[key]
		if key == "$ref" {
			if ref, ok := child.Str(); ok {
				a.recordRef(construct, method, child.Line, ref)
			}
			continue
		}
		switch child.Kind {
		case schema.Mapping:
			a.collectRefs(construct, method, child)
		case schema.Sequence:
			for _, item := range child.Items {
				a.collectRefs(construct, method, item)
			}
		}
	}
}

func nodeFloat(n *schema.Node) *float64 {
	if n == nil || n.Kind != schema.Scalar {
		return nil
	}
	switch v := n.Value.(type) {
	case int64:
		f := float64(v)
		return &f
	case float64:
		return &v
	}
	return nil
}

// responseDraft is the intermediate shape of one documented response while
// defaults are installed. The literal value `none` marks a key for pruning
// after default installation, so `content: none` suppresses any content.
type responseDraft struct {
	description     string
	hasDescription  bool
	descriptionNone bool
	content         map[string]*MediaType
	hasContent      bool
	contentNone     bool
}

// responseDrafts converts the validated `responses` mapping into drafts
// keyed by status code, preserving declaration order in the returned keys.
func responseDrafts(responses *schema.Node) (map[string]*responseDraft, []string) {
	drafts := make(map[string]*responseDraft)
	var codes []string
	if responses == nil || responses.Kind != schema.Mapping {
		return drafts, codes
	}
	for _, code := range responses.Keys {
		entry := responses.Children[code]
		draft := &responseDraft{}
		if entry.Kind == schema.Mapping {
			if d := entry.Get("description"); d != nil {
				draft.hasDescription = true
				s, _ := d.Str()
				if s == "none" {
					draft.descriptionNone = true
				} else {
					draft.description = s
				}
			}
			if c := entry.Get("content"); c != nil {
				draft.hasContent = true
				if s, ok := c.Str(); ok && s == "none" {
					draft.contentNone = true
				} else if c.Kind == schema.Mapping {
					draft.content = make(map[string]*MediaType, len(c.Keys))
					for _, mt := range c.Keys {
						media := &MediaType{}
						if sn := c.Children[mt].Get("schema"); sn != nil {
							media.Schema = schemaFromNode(sn)
						}
						draft.content[mt] = media
					}
				}
			}
		}
		drafts[code] = draft
		codes = append(codes, code)
	}
	return drafts, codes
}

// installResponseDefaults fills the documented responses out to the final
// response set: bare 4xx entries become shared $refs, 2xx descriptions and
// content fall back to the standard table and the model wrappers, and a 401
// ref is always attached.
func installResponseDefaults(op *Operation, drafts map[string]*responseDraft, codes []string, model, method string, isList bool) {
	if op.Responses == nil {
		op.Responses = make(map[string]*Response)
	}
	for _, code := range codes {
		draft := drafts[code]

		// Bare 4xx responses reuse the shared component responses.
		if strings.HasPrefix(code, "4") && !draft.hasDescription && !draft.hasContent {
			op.Responses[code] = &Response{Ref: "#/components/responses/" + code}
			continue
		}

		if !draft.hasDescription {
			desc, ok := defaultResponseDescriptions[code]
			if !ok {
				desc = "none"
			}
			if desc != "none" {
				draft.description = desc
				draft.hasDescription = true
			}
		}

		// 204 carries no content; everything else defaults to the model
		// wrappers when the docstring stayed silent.
		if !draft.hasContent && code != "204" && model != "" {
			switch {
			case code == "201", code == "200" && (method != "get" || !isList):
				draft.content = jsonContent("#/components/schemas/" + model + "Response")
				draft.hasContent = true
			case code == "200" && method == "get" && isList:
				draft.content = jsonContent("#/components/schemas/" + model + "List")
				draft.hasContent = true
			}
		}

		resp := &Response{}
		if draft.hasDescription && !draft.descriptionNone {
			resp.Description = draft.description
		}
		if draft.hasContent && !draft.contentNone {
			resp.Content = draft.content
		}
		op.Responses[code] = resp
	}

	op.Responses["401"] = &Response{Ref: "#/components/responses/401"}
}

func jsonContent(ref string) map[string]*MediaType {
	return map[string]*MediaType{
		"application/json": {Schema: &Schema{Ref: ref}},
	}
}

// listDetails renders the filtering and ordering section appended to a list
// operation's description, derived from the controller's declared metadata.
func listDetails(search []source.SearchField, ordering []string) string {
	var filters []string
	for _, sf := range search {
		if len(sf.Modifiers) > 0 {
			filters = append(filters, fmt.Sprintf("- %s (%s)", sf.Name, strings.Join(sf.Modifiers, ", ")))
		} else {
			filters = append(filters, "- "+sf.Name)
		}
	}
	var orders []string
	for i, field := range ordering {
		if i == 0 {
			orders = append(orders, fmt.Sprintf("- %s (default)", field))
		} else {
			orders = append(orders, "- "+field)
		}
	}

	return strings.Join([]string{
		"## Filtering",
		"The following fields and modifiers can be used to filter records from the list;",
		"",
		strings.Join(filters, "\n"),
		"",
		"To search, simply add `?search[field]=value` to include records that match the request, " +
			"or `?exclude[field]=value` to exclude them. To use modifiers, simply add " +
			"`?search[field__modifier]` and `?exclude[field__modifier]`",
		"",
		"## Ordering",
		"The following fields can be used to order the results of the list;",
		"",
		strings.Join(orders, "\n"),
		"",
		"To reverse the ordering, simply prepend a `-` character to the request. So `?order=field` " +
			"orders by `field` in ascending order, while `?order=-field` orders in descending order instead.",
	}, "\n")
}

// permissionDetails renders the permissions section appended to an
// operation's description. The doc text is included verbatim.
func permissionDetails(doc string) string {
	return "## Permissions\n" + strings.TrimSpace(doc)
}
