package configschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// SchemaProvider is what the checker needs from a schema registry.
type SchemaProvider interface {
	HasSchema(name string) bool
	Definition(name string) *TypeDefinition
	BuildDataDefinition(def *TypeDefinition, data any) *DataDefinition
	Create(def *DataDefinition, data any) Element
}

// Status is the outcome class of a schema check.
type Status int

const (
	// NoSchema means no schema is registered for the configuration name.
	NoSchema Status = iota
	// Valid means every key matched its schema.
	Valid
	// Invalid means at least one error was found.
	Invalid
)

func (s Status) String() string {
	switch s {
	case NoSchema:
		return "no_schema"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result of checking one configuration object.
type Result struct {
	Status Status
	// Errors maps "<config name>:<dotted key>" to a message. Empty unless
	// Status is Invalid.
	Errors map[string]string
}

// HasSchema reports whether a schema was found at all.
func (r Result) HasSchema() bool { return r.Status != NoSchema }

// Valid reports whether a schema was found and no errors were reported.
func (r Result) Valid() bool { return r.Status == Valid }

const (
	msgMissingSchema = "Missing schema."
	msgNonScalar     = "Non-scalar value but not defined as an array (such as mapping or sequence)."
)

// Checker validates raw configuration data against registered schemas.
type Checker struct {
	schemas SchemaProvider
}

// NewChecker returns a checker backed by schemas.
func NewChecker(schemas SchemaProvider) *Checker {
	return &Checker{schemas: schemas}
}

// Check walks every key of data and reports all violations in one pass.
func (c *Checker) Check(name string, data map[string]any) Result {
	if !c.schemas.HasSchema(name) {
		return Result{Status: NoSchema}
	}
	def := c.schemas.Definition(name)
	root := c.schemas.Create(c.schemas.BuildDataDefinition(def, data), data)

	errs := make(map[string]string)
	for _, e := range children(data) {
		c.checkValue(name, root, e.key, e.value, errs)
	}
	if len(errs) == 0 {
		return Result{Status: Valid}
	}
	return Result{Status: Invalid, Errors: errs}
}

func (c *Checker) checkValue(name string, root Element, key string, value any, errs map[string]string) {
	errorKey := name + ":" + key
	el := root.Get(key)

	switch el.Kind() {
	case KindUndefined:
		if translationSyncExempt(name, key) {
			return
		}
		errs[errorKey] = msgMissingSchema
		return
	case KindIgnore:
		return
	}

	if typ, scalar := valueType(value); scalar {
		if value == nil || kindAccepts(el.Kind(), typ) {
			return
		}
		errs[errorKey] = fmt.Sprintf("Variable type is %s but applied schema class is %s.", typ, el.Class())
		return
	}

	if !el.Kind().IsArray() {
		errs[errorKey] = msgNonScalar
	}
	// Keep going so nested errors surface in the same pass.
	for _, child := range children(value) {
		c.checkValue(name, root, key+"."+child.key, child.value, errs)
	}
}

// translationSyncExempt covers field configuration that still carries a
// "translation_sync" key without schema. Revisit once field schemas
// declare it.
func translationSyncExempt(name, key string) bool {
	parts := strings.Split(key, ".")
	return parts[len(parts)-1] == "translation_sync" && strings.HasPrefix(name, "field.")
}

func kindAccepts(kind Kind, typ string) bool {
	switch typ {
	case "integer":
		return kind == KindInteger
	case "double":
		return kind == KindFloat
	case "boolean":
		return kind == KindBoolean
	case "string":
		return kind == KindString
	}
	return false
}

// valueType names the runtime type of v the way config diagnostics report
// it and reports whether v is a scalar (nil counts as scalar).
func valueType(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "NULL", true
	case bool:
		return "boolean", true
	case string:
		return "string", true
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return "integer", true
		}
		return "double", true
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer", true
	case reflect.Float32, reflect.Float64:
		return "double", true
	case reflect.Bool:
		return "boolean", true
	case reflect.String:
		return "string", true
	}
	return reflect.TypeOf(v).String(), false
}
