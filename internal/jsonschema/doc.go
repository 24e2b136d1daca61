// Package jsonschema derives JSON Schema documents from Go types by
// reflection. It describes the parameters of function tools offered to the
// model.
//
// The entry point is [GenerateJSONSchema]. Recursive struct types are
// emitted under $defs and referenced with $ref.
package jsonschema
