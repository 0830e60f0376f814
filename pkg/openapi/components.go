package openapi

import "maps"

// NewComponents creates Components carrying the Error schema and the
// standard error responses that reference it.
func NewComponents() *Components {
	c := &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type:       "object",
				Properties: map[string]*Schema{"error": {Type: "string"}},
				Required:   []string{"error"},
			},
		},
		Responses: make(map[string]*Response),
	}

	for name, desc := range map[string]string{
		"BadRequest":         "Invalid request",
		"NotFound":           "Resource not found",
		"Conflict":           "Resource state conflict",
		"ServiceUnavailable": "Dependency unavailable",
	} {
		c.Responses[name] = ResponseJSON(desc, "Error")
	}

	return c
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}
