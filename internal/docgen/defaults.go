package docgen

func floatPtr(f float64) *float64 { return &f }

// defaultResponseDescriptions fills in 2xx/4xx responses whose docstrings
// did not describe themselves.
var defaultResponseDescriptions = map[string]string{
	"200": "OK",
	"201": "Created",
	"204": "No Content",
	"400": "Input data was invalid",
	"401": "No or invalid token provided",
	"403": "No permission for user",
	"404": "One of the resources specified could not be found",
}

// permissionMethodNames maps HTTP method names to the permission check each
// one is guarded by. GET resolves to list or read depending on the view.
var permissionMethodNames = map[string]string{
	"post":   "create",
	"put":    "update",
	"patch":  "update",
	"delete": "delete",
}

// httpMethodNames is the processing order for view methods. PATCH is last:
// it is derived from the validated PUT of the same URL.
var httpMethodNames = []string{"get", "post", "put", "patch", "delete"}

// DefaultDocument seeds a new document with the scaffolding every generated
// spec shares: the auth scheme, shared error responses and the schemas the
// assembled fragments reference.
func DefaultDocument() *Document {
	return &Document{
		OpenAPI: "3.0.0",
		Tags:    []Tag{},
		Security: []map[string][]string{
			{"XAuthToken": {}},
		},
		Paths: make(map[string]*PathItem),
		Components: &Components{
			Schemas: map[string]*Schema{
				"ListMetadata": {
					Type:     "object",
					Required: []string{"total_records", "page", "limit", "order", "warnings"},
					Properties: map[string]*Schema{
						"total_records": {
							Type:        "integer",
							Description: "The total number of records found for the given search",
						},
						"page": {
							Type:        "integer",
							Description: "The value of page that was used for the request",
						},
						"limit": {
							Type:        "integer",
							Description: "The value of limit that was used for the request",
						},
						"order": {
							Type:        "string",
							Description: "The value of order that was used for the request",
						},
						"warnings": {
							Type:  "array",
							Items: &Schema{Type: "string"},
							Description: "A list of warnings generated during execution. Any invalid " +
								"search filters used will cause a warning to be generated, for example.",
						},
					},
				},
				"Error": {
					Type:     "object",
					Required: []string{"error_code", "detail"},
					Properties: map[string]*Schema{
						"error_code": {
							Type:        "string",
							Description: "CloudCIX error code for the error",
						},
						"detail": {
							Type:        "string",
							Description: "Verbose version of the error message",
						},
					},
				},
				"MultiError": {
					Type: "object",
					Description: "A map of field names to Error objects representing an error that " +
						"was found with the data supplied for that field",
					Required: []string{"errors"},
					Properties: map[string]*Schema{
						"errors": {
							Type:                 "object",
							AdditionalProperties: &Schema{Ref: "#/components/schemas/Error"},
						},
					},
				},
			},
			Responses: map[string]*Response{
				"400": {
					Description: "Input data was invalid",
					Content: map[string]*MediaType{
						"application/json": {
							Schema: &Schema{
								OneOf: []*Schema{
									{Ref: "#/components/schemas/Error"},
									{Ref: "#/components/schemas/MultiError"},
								},
							},
						},
					},
				},
				"401": {
					Description: "No / invalid token provided",
					Content: map[string]*MediaType{
						"application/json": {
							Schema: &Schema{
								Type: "object",
								Properties: map[string]*Schema{
									"detail": {
										Type:        "string",
										Description: "Verbose error message explaining the error",
									},
								},
							},
						},
					},
				},
				"403": {
					Description: "Permission denied for this user",
					Content: map[string]*MediaType{
						"application/json": {
							Schema: &Schema{Ref: "#/components/schemas/Error"},
						},
					},
				},
				"404": {
					Description: "One of the specified resources could not be found",
					Content: map[string]*MediaType{
						"application/json": {
							Schema: &Schema{Ref: "#/components/schemas/Error"},
						},
					},
				},
			},
			SecuritySchemes: map[string]*SecurityScheme{
				"XAuthToken": {
					Type: "apiKey",
					In:   "header",
					Name: "X-Auth-Token",
				},
			},
		},
	}
}

// DefaultListParameters are attached to every list operation alongside the
// filter and ordering details derived from the controller metadata.
func DefaultListParameters() []Parameter {
	return []Parameter{
		{
			Name: "exclude",
			In:   "query",
			Description: "Filter the result to objects that do not match the specified filters. " +
				"Possible filters are outlined in the individual list method descriptions.",
			Schema:  &Schema{Type: "object"},
			Style:   "deepObject",
			Explode: true,
		},
		{
			Name:        "limit",
			In:          "query",
			Description: "The limit of the number of objects returned per page",
			Schema: &Schema{
				Type:    "number",
				Minimum: floatPtr(0),
				Maximum: floatPtr(100),
				Default: 50,
			},
		},
		{
			Name: "order",
			In:   "query",
			Description: "The field to use for ordering. Possible fields and the default are " +
				"outlined in the individual method descriptions.",
			Schema: &Schema{Type: "string"},
		},
		{
			Name:        "page",
			In:          "query",
			Description: "The page of records to return, assuming `limit` number of records per page.",
			Schema: &Schema{
				Type:    "number",
				Minimum: floatPtr(0),
				Default: 0,
			},
		},
		{
			Name: "search",
			In:   "query",
			Description: "Filter the result to objects that match the specified filters. " +
				"Possible filters are outlined in the individual list method descriptions.",
			Schema:  &Schema{Type: "object"},
			Style:   "deepObject",
			Explode: true,
		},
	}
}
