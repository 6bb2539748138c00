package image

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strconv"
)

// Arguments are the named arguments of one toolkit operation.
type Arguments map[string]any

// ArgumentSpec declares one argument of an operation.
type ArgumentSpec struct {
	Description string
	Required    bool
	Default     any
}

// Operation is one manipulation a toolkit knows how to perform.
type Operation interface {
	// Arguments declares the accepted arguments. Arguments are required
	// unless marked otherwise.
	Arguments() map[string]ArgumentSpec
	// Validate checks and normalises prepared arguments.
	Validate(args Arguments) (Arguments, error)
	// Execute performs the operation on the toolkit's current surface.
	Execute(args Arguments) bool
}

// Prepare drops undeclared arguments, fails on missing required ones,
// fills defaults and then runs the operation's own validation.
func Prepare(name string, op Operation, args Arguments) (Arguments, error) {
	specs := op.Arguments()
	prepared := make(Arguments, len(specs))
	for key, spec := range specs {
		v, ok := args[key]
		if !ok {
			if spec.Required {
				return nil, NewArgumentError(name, "Argument '%s' expected by plugin '%s' but not passed", key, name)
			}
			v = spec.Default
		}
		prepared[key] = v
	}
	return op.Validate(prepared)
}

// Run prepares and executes op. Invalid arguments are logged and reported
// as a plain failure.
func Run(logger *slog.Logger, toolkitID, name string, op Operation, args Arguments) bool {
	if logger == nil {
		logger = slog.Default()
	}
	prepared, err := Prepare(name, op, args)
	if err != nil {
		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			logger.Error("Image toolkit operation rejected arguments",
				"toolkit", toolkitID, "operation", name, "error", err)
		} else {
			logger.Error("Image toolkit operation failed",
				"toolkit", toolkitID, "operation", name, "error", err)
		}
		return false
	}
	return op.Execute(prepared)
}

// Float reads a numeric argument. Strings holding numbers are accepted;
// nil and unparsable values report false.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// Empty reports whether an argument is absent or zero.
func Empty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == "" || s == "0"
	}
	if b, ok := v.(bool); ok {
		return !b
	}
	f, ok := Float(v)
	return !ok || f == 0
}

// Round rounds half away from zero to an int.
func Round(f float64) int {
	return int(math.Round(f))
}

// Int reads an argument as a rounded integer.
func Int(v any) int {
	f, _ := Float(v)
	return Round(f)
}

// Bool reads a boolean argument.
func Bool(v any) bool {
	return !Empty(v)
}

// String reads a string argument.
func String(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
