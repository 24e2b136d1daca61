package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is the subset of JSON Schema used to describe function tool
// parameters to a model.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Description          string             `json:"description,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Defs                 map[string]*Schema `json:"$defs,omitempty"`
}

// GenerateJSONSchema derives a Schema from T by reflection.
//
// Struct fields follow their json tags: "-" skips a field, the tag name
// replaces the field name, and a field is required unless it is a pointer
// or tagged omitempty. A jsonschema tag adds "description=...",
// "enum=..." (repeatable) and "required". Struct types that reach
// themselves are emitted once under $defs and referenced with $ref.
func GenerateJSONSchema[T any]() (*Schema, error) {
	g := &generator{
		defined: make(map[reflect.Type]string),
		defs:    make(map[string]*Schema),
	}

	schema, err := g.schemaFor(reflect.TypeFor[T](), true)
	if err != nil {
		return nil, err
	}
	if len(g.defs) > 0 {
		schema.Defs = g.defs
	}
	return schema, nil
}

type generator struct {
	defined map[reflect.Type]string // recursive struct types already under $defs
	defs    map[string]*Schema
}

func (g *generator) schemaFor(t reflect.Type, root bool) (*Schema, error) {
	switch t.Kind() {
	case reflect.Pointer:
		return g.schemaFor(t.Elem(), root)
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Slice, reflect.Array:
		items, err := g.schemaFor(t.Elem(), false)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Map:
		values, err := g.schemaFor(t.Elem(), false)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil
	case reflect.Struct:
		return g.structSchema(t, root)
	default:
		return &Schema{Type: "object"}, nil
	}
}

func (g *generator) structSchema(t reflect.Type, root bool) (*Schema, error) {
	if name, ok := g.defined[t]; ok {
		return &Schema{Ref: "#/$defs/" + name}, nil
	}

	recursive := refersTo(t, t, make(map[reflect.Type]bool))
	var defName string
	if recursive {
		defName = definitionName(t)
		g.defined[t] = defName
	}

	schema := &Schema{Type: "object", Properties: make(map[string]*Schema)}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}

		fieldSchema, err := g.schemaFor(field.Type, false)
		if err != nil {
			return nil, err
		}

		requiredByTag := false
		if fieldSchema.Ref == "" {
			requiredByTag, err = applyTag(field, fieldSchema)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", t.Name(), field.Name, err)
			}
		}
		schema.Properties[name] = fieldSchema

		if (field.Type.Kind() != reflect.Pointer && !omitEmpty) || requiredByTag {
			schema.Required = append(schema.Required, name)
		}
	}

	if !recursive {
		return schema, nil
	}
	g.defs[defName] = schema
	if root {
		return &Schema{Type: schema.Type, Properties: schema.Properties, Required: schema.Required}, nil
	}
	return &Schema{Ref: "#/$defs/" + defName}, nil
}

func jsonName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, options, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	return name, strings.Contains(options, "omitempty"), false
}

// applyTag reads the jsonschema tag into schema and reports whether the
// field is marked required.
func applyTag(field reflect.StructField, schema *Schema) (bool, error) {
	tag := field.Tag.Get("jsonschema")
	if tag == "" {
		return false, nil
	}

	required := false
	for _, item := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(item, "=")
		switch {
		case !hasValue && key == "required":
			required = true
		case key == "description":
			schema.Description = value
		case key == "enum":
			enumValue, err := parseEnum(field.Type, value)
			if err != nil {
				return false, err
			}
			schema.Enum = append(schema.Enum, enumValue)
		}
	}
	return required, nil
}

func parseEnum(t reflect.Type, value string) (any, error) {
	switch t.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not an integer: %w", value, err)
		}
		return n, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a number: %w", value, err)
		}
		return f, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a boolean: %w", value, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("enum not supported for %v", t)
	}
}

// refersTo reports whether target is reachable from the fields of current,
// through pointers, slices, arrays and nested structs.
func refersTo(target, current reflect.Type, visited map[reflect.Type]bool) bool {
	if visited[current] {
		return false
	}
	visited[current] = true

	for i := 0; i < current.NumField(); i++ {
		field := current.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldType := field.Type
		for fieldType.Kind() == reflect.Pointer || fieldType.Kind() == reflect.Slice || fieldType.Kind() == reflect.Array {
			fieldType = fieldType.Elem()
		}
		if fieldType == target {
			return true
		}
		if fieldType.Kind() == reflect.Struct && refersTo(target, fieldType, visited) {
			return true
		}
	}
	return false
}

func definitionName(t reflect.Type) string {
	if t.Name() != "" {
		return strings.ToLower(t.Name())
	}
	return "anonymousStruct"
}

// String returns the compact JSON form of the schema.
func (s *Schema) String() string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(encoded)
}
