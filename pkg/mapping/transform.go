package mapping

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/partsbridge/partsync/pkg/errors"
)

// TransformFunc is a pure value transformer. It may fail; a failure on a
// non-required field is recorded as a field-level validation error and does
// not abort the rest of the record.
type TransformFunc func(value interface{}) (interface{}, error)

// transformers is the static registry of named transformers referenced by
// mapping tables. Mapping data is supplied externally; the functions are not.
var transformers = map[string]TransformFunc{
	"trim":          trimTransform,
	"upper":         upperTransform,
	"lower":         lowerTransform,
	"integer":       integerTransform,
	"decimal":       decimalTransform,
	"bool_yn":       boolYNTransform,
	"date_yyyymmdd": dateYYYYMMDDTransform,
}

// Lookup resolves a transformer by name.
func Lookup(name string) (TransformFunc, bool) {
	fn, ok := transformers[name]
	return fn, ok
}

// TransformerNames returns the registered transformer names, for tooling.
func TransformerNames() []string {
	names := make([]string, 0, len(transformers))
	for name := range transformers {
		names = append(names, name)
	}
	return names
}

func asString(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func trimTransform(value interface{}) (interface{}, error) {
	return strings.TrimSpace(asString(value)), nil
}

func upperTransform(value interface{}) (interface{}, error) {
	return strings.ToUpper(strings.TrimSpace(asString(value))), nil
}

func lowerTransform(value interface{}) (interface{}, error) {
	return strings.ToLower(strings.TrimSpace(asString(value))), nil
}

func integerTransform(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	}
	s := strings.TrimSpace(asString(value))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeValidation, "not an integer: %q", s)
	}
	return n, nil
}

func decimalTransform(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	s := strings.TrimSpace(asString(value))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeValidation, "not a decimal: %q", s)
	}
	return f, nil
}

// boolYNTransform decodes the single-letter flags legacy systems use.
func boolYNTransform(value interface{}) (interface{}, error) {
	s := strings.ToUpper(strings.TrimSpace(asString(value)))
	switch s {
	case "Y", "YES", "1", "T", "TRUE":
		return true, nil
	case "N", "NO", "0", "F", "FALSE", "":
		return false, nil
	}
	return nil, errors.Newf(errors.ErrorTypeValidation, "not a Y/N flag: %q", s)
}

// dateYYYYMMDDTransform parses the compact date format of midrange exports.
func dateYYYYMMDDTransform(value interface{}) (interface{}, error) {
	if t, ok := value.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(asString(value))
	t, err := time.Parse("20060102", s)
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeValidation, "not a YYYYMMDD date: %q", s)
	}
	return t, nil
}

// isBlank reports whether a raw source value carries no information.
func isBlank(value interface{}) bool {
	if value == nil {
		return true
	}
	return strings.TrimSpace(asString(value)) == ""
}
