package docgen

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/CloudCIX/docgen/internal/schema"
	"github.com/CloudCIX/docgen/internal/source"
)

var (
	semverPattern     = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	routeParamPattern = regexp.MustCompile(`<[a-z]+:([a-z_]+)>`)
	docParamPattern   = regexp.MustCompile(`\{([a-z_]+)\}`)
)

// viewMethodKeys are required at the top level of every view method doc.
var viewMethodKeys = []string{"summary", "description", "responses"}

// validateAppInfo checks the application-level metadata: a description doc
// and a SemVer version string.
func validateAppInfo(app source.App) []ValidationError {
	var errs []ValidationError
	if app.Description.Absent() {
		errs = append(errs, errf(app.Name, "", 0, "application is missing its description docstring"))
	}
	switch {
	case app.Version == "":
		errs = append(errs, errf(app.Name, "", 0, "application version is missing"))
	case !semverPattern.MatchString(app.Version):
		errs = append(errs, errf(app.Name, "", 0,
			"application version %q does not appear to follow SemVer", app.Version))
	}
	return errs
}

// validateViewMethod checks a parsed view method doc against the ruleset for
// its category: required top-level keys, responses keyed by status code and
// path parameter coverage for the URL the view is mounted on.
func validateViewMethod(view *source.Construct, m source.Method, doc *schema.Node, url string) []ValidationError {
	var errs []ValidationError
	if doc == nil {
		return []ValidationError{errf(view.Name, m.Name, m.Doc.Line,
			"docstring does not contain an embedded schema block")}
	}
	if doc.Kind != schema.Mapping {
		return []ValidationError{errf(view.Name, m.Name, doc.Line,
			"expected the docstring schema to be a mapping, found a %s", doc.Kind)}
	}

	var missing []string
	for _, key := range viewMethodKeys {
		if !doc.Has(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		errs = append(errs, errf(view.Name, m.Name, doc.Line,
			"necessary keys missing: [%s]", strings.Join(missing, ", ")))
	}

	for _, key := range []string{"summary", "description"} {
		if n := doc.Get(key); n != nil {
			if _, ok := n.Str(); !ok {
				errs = append(errs, errf(view.Name, m.Name, n.Line, "%s must be a string", key))
			}
		}
	}

	if responses := doc.Get("responses"); responses != nil {
		if responses.Kind != schema.Mapping {
			errs = append(errs, errf(view.Name, m.Name, responses.Line, "responses must be a mapping"))
		} else {
			for _, code := range responses.Keys {
				entry := responses.Children[code]
				if !isStatusCode(code) {
					errs = append(errs, errf(view.Name, m.Name, entry.Line,
						"response key %q is not an HTTP status code", code))
					continue
				}
				if entry.Kind == schema.Scalar && entry.Value != nil {
					errs = append(errs, errf(view.Name, m.Name, entry.Line,
						"response %s must be a mapping or empty", code))
				}
			}
		}
	}

	if ctrl := doc.Get("controller"); ctrl != nil {
		if _, ok := ctrl.Str(); !ok {
			errs = append(errs, errf(view.Name, m.Name, ctrl.Line, "controller must be a string"))
		}
	}

	errs = append(errs, validatePathParams(view, m, doc.Get("path_params"), doc.Line, url)...)
	return errs
}

// validatePathParams checks that every {param} in the URL is documented with
// a type, and that no extra parameters are documented.
func validatePathParams(view *source.Construct, m source.Method, params *schema.Node, docLine int, url string) []ValidationError {
	var errs []ValidationError
	if params != nil && params.Kind != schema.Mapping {
		return []ValidationError{errf(view.Name, m.Name, params.Line, "path_params must be a mapping")}
	}

	covered := make(map[string]bool)
	for _, match := range docParamPattern.FindAllStringSubmatch(url, -1) {
		name := match[1]
		covered[name] = true
		entry := params.Get(name)
		if entry == nil {
			errs = append(errs, errf(view.Name, m.Name, docLine,
				"path param %s in %s is not defined", name, url))
			continue
		}
		if entry.Kind != schema.Mapping {
			errs = append(errs, errf(view.Name, m.Name, entry.Line,
				"path param %s must be a mapping", name))
			continue
		}
		if !entry.Has("type") {
			errs = append(errs, errf(view.Name, m.Name, entry.Line,
				"path param %s in %s has no type data", name, url))
		}
	}

	if params != nil {
		var extra []string
		for _, key := range params.Keys {
			if !covered[key] {
				extra = append(extra, key)
			}
		}
		if len(extra) > 0 {
			errs = append(errs, errf(view.Name, m.Name, params.Line,
				"extra path params defined for %s: %s", url, strings.Join(extra, ", ")))
		}
	}
	return errs
}

// controllerFieldDoc is the validated shape of one Validate* method doc.
type controllerFieldDoc struct {
	Generative bool
	Required   bool
	Schema     *schema.Node
}

// validateControllerField checks the doc of one controller validation
// method: a mapping with type + description (or $ref), an optional required
// flag and an optional generative marker.
func validateControllerField(ctrl *source.Construct, m source.Method, doc *schema.Node) (controllerFieldDoc, []ValidationError) {
	out := controllerFieldDoc{Required: true, Schema: doc}
	if doc == nil {
		return out, []ValidationError{errf(ctrl.Name, m.Name, m.Doc.Line,
			"docstring does not contain an embedded schema block")}
	}
	if doc.Kind != schema.Mapping {
		return out, []ValidationError{errf(ctrl.Name, m.Name, doc.Line,
			"expected the docstring schema to be a mapping, found a %s", doc.Kind)}
	}

	if gen := doc.Get("generative"); gen != nil {
		b, ok := gen.Bool()
		if !ok {
			return out, []ValidationError{errf(ctrl.Name, m.Name, gen.Line, "generative must be a boolean")}
		}
		out.Generative = b
		if b {
			return out, nil
		}
	}

	if req := doc.Get("required"); req != nil {
		b, ok := req.Bool()
		if !ok {
			return out, []ValidationError{errf(ctrl.Name, m.Name, req.Line, "required must be a boolean")}
		}
		out.Required = b
	}

	if !doc.Has("$ref") {
		var missing []string
		for _, key := range []string{"description", "type"} {
			if !doc.Has(key) {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return out, []ValidationError{errf(ctrl.Name, m.Name, doc.Line,
				"missing required keys: %s", strings.Join(missing, ", "))}
		}
	}
	return out, nil
}

// validateSerializer checks a serializer doc against the declared field set:
// both directions must match exactly, and every field entry needs $ref or
// type + description (arrays additionally need items).
func validateSerializer(s *source.Construct, doc *schema.Node) []ValidationError {
	if doc == nil {
		return []ValidationError{errf(s.Name, "", s.Doc.Line,
			"docstring does not contain an embedded schema block")}
	}
	if doc.Kind != schema.Mapping {
		return []ValidationError{errf(s.Name, "", doc.Line,
			"expected the docstring schema to be a mapping, found a %s", doc.Kind)}
	}

	var errs []ValidationError
	documented := make(map[string]bool, len(doc.Keys))
	for _, key := range doc.Keys {
		documented[key] = true
	}

	for _, field := range s.Fields {
		if !documented[field] {
			errs = append(errs, errf(s.Name, "", doc.Line,
				"field %s is defined in the serializer but missing from the docstring", field))
			continue
		}
		delete(documented, field)

		entry := doc.Children[field]
		if entry.Kind != schema.Mapping {
			errs = append(errs, errf(s.Name, "", entry.Line, "field %s must be a mapping", field))
			continue
		}
		if entry.Has("$ref") {
			continue
		}
		if !entry.Has("description") || !entry.Has("type") {
			errs = append(errs, errf(s.Name, "", entry.Line,
				"field %s is missing required keys; it needs either $ref or both description and type", field))
			continue
		}
		if t, _ := entry.Get("type").Str(); t == "array" {
			if !entry.Has("items") {
				errs = append(errs, errf(s.Name, "", entry.Line,
					"field %s has its type set to array but no items key", field))
			}
		}
	}

	if len(documented) > 0 {
		var extra []string
		for _, key := range doc.Keys {
			if documented[key] {
				extra = append(extra, key)
			}
		}
		errs = append(errs, errf(s.Name, "", doc.Line,
			"fields %s were defined in the docstring but are not defined by the serializer",
			strings.Join(extra, ", ")))
	}
	return errs
}

// validatePermissionMethod requires a doc comment and rejects indented list
// markers, which break downstream rendering. Content is stored verbatim.
func validatePermissionMethod(p *source.Construct, m source.Method) []ValidationError {
	if m.Doc.Absent() {
		return []ValidationError{errf(p.Name, m.Name, m.Line,
			"permission method was expected to have a docstring but it does not")}
	}
	if strings.Contains(m.Doc.Text, " -") {
		return []ValidationError{errf(p.Name, m.Name, m.Doc.Line,
			"the list in the docstring appears to be indented; keep list markers in line "+
				"with the first line to avoid rendering errors")}
	}
	return nil
}

// validateListMeta checks the declared filtering and ordering metadata of a
// list controller: ordering must be non-empty (its first entry becomes the
// default) and filter fields must be simple identifiers.
func validateListMeta(ctrl *source.Construct) []ValidationError {
	var errs []ValidationError
	if len(ctrl.AllowedOrdering) == 0 {
		errs = append(errs, errf(ctrl.Name, "", ctrl.Line,
			"list controller advertises ordering but declares no allowed ordering fields"))
	}
	for _, field := range ctrl.AllowedOrdering {
		if !identifierPattern.MatchString(strings.TrimPrefix(field, "-")) {
			errs = append(errs, errf(ctrl.Name, "", ctrl.Line,
				"ordering field %q is not a simple identifier", field))
		}
	}
	for _, sf := range ctrl.SearchFields {
		if !identifierPattern.MatchString(sf.Name) {
			errs = append(errs, errf(ctrl.Name, "", ctrl.Line,
				"search field %q is not a simple identifier", sf.Name))
		}
		for _, mod := range sf.Modifiers {
			if !identifierPattern.MatchString(mod) {
				errs = append(errs, errf(ctrl.Name, "", ctrl.Line,
					"search field %s has invalid modifier %q", sf.Name, mod))
			}
		}
	}
	return errs
}

func isStatusCode(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 100 && n <= 599
}

// syntaxError converts a schema parse failure into an aggregated error
// attributed to the offending line.
func syntaxError(construct, method string, err error) ValidationError {
	if se, ok := err.(*schema.SyntaxError); ok {
		return errf(construct, method, se.Line, "could not parse embedded schema: %s", se.Msg)
	}
	return errf(construct, method, 0, "could not parse embedded schema: %v", err)
}

// capitalise title-cases every word of a string.
func capitalise(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// prettyModuleName turns a module file stem into a display name.
func prettyModuleName(module string) string {
	return capitalise(strings.ReplaceAll(module, "_", " "))
}

// exportedFieldName converts a snake_case field name into the exported Go
// method suffix used by controller validation methods.
func exportedFieldName(field string) string {
	parts := strings.Split(field, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}

// convertURL rewrites a route pattern (`user/<int:pk>/`) into an OpenAPI
// path (`/user/{pk}/`).
func convertURL(pattern string) string {
	if pattern == "" {
		return "/"
	}
	url := routeParamPattern.ReplaceAllString(pattern, "{$1}")
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return url
}
