// Package configschema validates configuration objects against typed
// schema definitions.
//
// Schemas are YAML documents mapping a type name to its definition. A
// definition either extends another type through "type:" or is one of the
// built-in types (boolean, integer, float, string, mapping, sequence, ignore,
// undefined and a few string aliases). Configuration names are matched
// exactly first and then through wildcard entries such as
// "field.field.*.*.*". Type names may contain tokens ("[id]", "[%key]",
// "[%parent.id]") that are resolved against the data being checked.
//
// The Checker walks raw configuration data and reports every key that is
// missing from the schema or whose scalar type does not match, keyed by
// "<config name>:<dotted.key>".
package configschema
