package agent

import (
	"reflect"
	"strings"
)

// Schema represents the subset of JSON Schema used to describe tool parameters
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// SchemaFor derives the JSON schema of T.
// Struct fields are named after their json tag and may carry a jsonschema tag such as
// `jsonschema:"description=The input,required,enum=a,enum=b"`.
func SchemaFor[T any]() *Schema {
	return schemaOf(reflect.TypeFor[T]())
}

func schemaOf(typ reflect.Type) *Schema {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	switch typ.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}
	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: schemaOf(typ.Elem())}
	case reflect.Map:
		return &Schema{Type: "object"}
	case reflect.Struct:
		return structSchema(typ)
	default:
		return &Schema{}
	}
}

func structSchema(typ reflect.Type) *Schema {
	schema := &Schema{Type: "object", Properties: map[string]*Schema{}}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			if tagName, _, _ := strings.Cut(tag, ","); tagName != "" {
				name = tagName
			}
		}

		fieldSchema := schemaOf(field.Type)
		for _, option := range strings.Split(field.Tag.Get("jsonschema"), ",") {
			key, value, _ := strings.Cut(strings.TrimSpace(option), "=")
			switch key {
			case "description":
				fieldSchema.Description = value
			case "required":
				schema.Required = append(schema.Required, name)
			case "enum":
				fieldSchema.Enum = append(fieldSchema.Enum, value)
			}
		}
		schema.Properties[name] = fieldSchema
	}
	return schema
}
