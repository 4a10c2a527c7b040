package toolbox

// SchemaBuilder assembles a JSON Schema object for tool parameters.
type SchemaBuilder struct {
	properties map[string]any
	required   []string
}

// NewSchema starts an object schema.
func NewSchema() *SchemaBuilder {
	return &SchemaBuilder{
		properties: make(map[string]any),
	}
}

// AddParam adds a scalar parameter.
func (b *SchemaBuilder) AddParam(name, typ, description string, required bool) *SchemaBuilder {
	b.properties[name] = map[string]any{
		"type":        typ,
		"description": description,
	}
	if required {
		b.required = append(b.required, name)
	}
	return b
}

// AddArrayParam adds an array parameter with the given item schema.
func (b *SchemaBuilder) AddArrayParam(name, description string, items map[string]any, required bool) *SchemaBuilder {
	b.properties[name] = map[string]any{
		"type":        "array",
		"description": description,
		"items":       items,
	}
	if required {
		b.required = append(b.required, name)
	}
	return b
}

// Build returns the completed schema.
func (b *SchemaBuilder) Build() map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": b.properties,
	}
	if len(b.required) > 0 {
		schema["required"] = b.required
	}
	return schema
}
