package docgen

// Document is the OpenAPI 3.0 object model assembled by a run. Map-valued
// sections marshal with sorted keys, so output is byte-identical across
// runs over unchanged source.
type Document struct {
	OpenAPI      string                `json:"openapi"`
	Info         Info                  `json:"info"`
	Servers      []Server              `json:"servers,omitempty"`
	ExternalDocs *ExternalDocs         `json:"externalDocs,omitempty"`
	Tags         []Tag                 `json:"tags"`
	Security     []map[string][]string `json:"security,omitempty"`
	Paths        map[string]*PathItem  `json:"paths"`
	Components   *Components           `json:"components,omitempty"`
}

// Info is the document info object.
type Info struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version"`
	Contact     *Contact `json:"contact,omitempty"`
}

// Contact holds the maintainer contact details.
type Contact struct {
	Email string `json:"email,omitempty"`
}

// Server is one server entry.
type Server struct {
	URL string `json:"url"`
}

// ExternalDocs points at an external rendering of the document.
type ExternalDocs struct {
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

// Tag groups operations by view module.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PathItem holds the operations registered under one URL.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Patch  *Operation `json:"patch,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

// Operation returns the operation stored for an HTTP method name.
func (p *PathItem) Operation(method string) *Operation {
	switch method {
	case "get":
		return p.Get
	case "post":
		return p.Post
	case "put":
		return p.Put
	case "patch":
		return p.Patch
	case "delete":
		return p.Delete
	}
	return nil
}

// SetOperation stores the operation for an HTTP method name.
func (p *PathItem) SetOperation(method string, op *Operation) {
	switch method {
	case "get":
		p.Get = op
	case "post":
		p.Post = op
	case "put":
		p.Put = op
	case "patch":
		p.Patch = op
	case "delete":
		p.Delete = op
	}
}

// Operation is one documented API operation.
type Operation struct {
	Summary     string               `json:"summary,omitempty"`
	Description string               `json:"description,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Parameters  []Parameter          `json:"parameters,omitempty"`
	RequestBody *RequestBody         `json:"requestBody,omitempty"`
	Responses   map[string]*Response `json:"responses"`
}

// Clone deep-copies an operation; PATCH entries are derived from PUT.
func (o *Operation) Clone() *Operation {
	c := *o
	c.Tags = append([]string(nil), o.Tags...)
	c.Parameters = append([]Parameter(nil), o.Parameters...)
	if o.RequestBody != nil {
		rb := *o.RequestBody
		c.RequestBody = &rb
	}
	c.Responses = make(map[string]*Response, len(o.Responses))
	for code, r := range o.Responses {
		rc := *r
		c.Responses[code] = &rc
	}
	return &c
}

// Parameter is one operation parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required"`
	Schema      *Schema `json:"schema,omitempty"`
	Style       string  `json:"style,omitempty"`
	Explode     bool    `json:"explode,omitempty"`
}

// RequestBody describes an operation's input payload.
type RequestBody struct {
	Description string                `json:"description,omitempty"`
	Required    bool                  `json:"required"`
	Content     map[string]*MediaType `json:"content"`
}

// Response describes one response by status code.
type Response struct {
	Ref         string                `json:"$ref,omitempty"`
	Description string                `json:"description,omitempty"`
	Content     map[string]*MediaType `json:"content,omitempty"`
}

// MediaType wraps the schema for one content type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Components holds the reusable objects of the document.
type Components struct {
	Schemas         map[string]*Schema         `json:"schemas"`
	Responses       map[string]*Response       `json:"responses,omitempty"`
	SecuritySchemes map[string]*SecurityScheme `json:"securitySchemes,omitempty"`
}

// SecurityScheme describes an authentication scheme.
type SecurityScheme struct {
	Type string `json:"type"`
	In   string `json:"in,omitempty"`
	Name string `json:"name,omitempty"`
}

// Schema is a JSON Schema fragment, restricted to the vocabulary the
// embedded schema subset can express.
type Schema struct {
	Ref                  string             `json:"$ref,omitempty"`
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	Default              any                `json:"default,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	OneOf                []*Schema          `json:"oneOf,omitempty"`
}
