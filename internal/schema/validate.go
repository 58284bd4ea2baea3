package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a JSON field path to its validation failure messages
type FieldErrors map[string][]string

// Error implements error
func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(f[field], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (f FieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

// DecodeError is returned when a payload is not JSON or has the wrong JSON type somewhere.
// Field is set when the decoder could name the offending field.
type DecodeError struct {
	Field string
	// Expected and Received are JSON type names, set with Field
	Expected string
	Received string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrEmpty is returned when there is nothing to decode
var ErrEmpty = errors.New("empty payload")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("runstatus", func(fl validator.FieldLevel) bool {
		return RunStatus(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks v against its validate tags. It returns FieldErrors or nil.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := FieldErrors{}
	for _, fe := range verrs {
		fields.add(fieldPath(fe.Namespace()), message(fe))
	}
	return fields
}

// Decode unmarshals data into v and validates the result
func Decode(data []byte, v interface{}) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return &DecodeError{Err: ErrEmpty}
	}

	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			received, _, _ := strings.Cut(typeErr.Value, " ")
			return &DecodeError{
				Field:    indexedPath(data, typeErr.Field, received),
				Expected: jsonKind(typeErr.Type),
				Received: received,
				Err:      err,
			}
		}
		return &DecodeError{Err: err}
	}

	return Validate(v)
}

// indexedPath rewrites a dotted decoder path such as "outputs.data.images"
// into the indexed form used by Validate ("outputs[0].data.images") by finding
// the first value of the received JSON type along it. The dotted path is
// returned unchanged if no such value is found.
func indexedPath(data []byte, field, received string) string {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return field
	}
	if path, ok := locate(doc, strings.Split(field, "."), received); ok {
		return strings.TrimPrefix(path, ".")
	}
	return field
}

func locate(v interface{}, segments []string, received string) (string, bool) {
	if len(segments) == 0 && valueKind(v) == received {
		return "", true
	}

	switch node := v.(type) {
	case []interface{}:
		for i, elem := range node {
			if rest, ok := locate(elem, segments, received); ok {
				return fmt.Sprintf("[%d]%s", i, rest), true
			}
		}
	case map[string]interface{}:
		if len(segments) == 0 {
			return "", false
		}
		child, ok := node[segments[0]]
		if !ok {
			return "", false
		}
		if rest, ok := locate(child, segments[1:], received); ok {
			return "." + segments[0] + rest, true
		}
	}
	return "", false
}

// valueKind names the JSON type of a generically decoded value the way
// json.UnmarshalTypeError does
func valueKind(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return "null"
	}
}

// jsonKind names the JSON type a Go type decodes from
func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return t.String()
	}
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "runstatus":
		expected := make([]string, len(RunStatuses))
		for i, s := range RunStatuses {
			expected[i] = "'" + string(s) + "'"
		}
		return fmt.Sprintf("Invalid enum value. Expected %s, received '%v'", strings.Join(expected, " | "), fe.Value())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
