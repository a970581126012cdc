package router

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Bind populates a struct from a match and a query.
//
// Fields tagged `param:"name"` receive the matched parameter of that name;
// fields tagged `query:"name"` receive the first query value. Missing
// values leave the field unchanged. Supported field kinds are strings,
// integers, floats, bools and string slices (a wildcard tail "a/b" becomes
// ["a", "b"]; a query slice receives every value).
func Bind(m *MatchResult, query url.Values, target any) error {
	if target == nil {
		return nil
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer, got %s", v.Kind())
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct, got pointer to %s", v.Kind())
	}

	var params map[string]string
	if m != nil {
		params = m.Params
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if name := field.Tag.Get("param"); name != "" {
			value, ok := params[name]
			if !ok {
				continue
			}
			if err := setField(fieldValue, []string{value}, true); err != nil {
				return fmt.Errorf("binding param %q: %w", name, err)
			}
			continue
		}

		if name := field.Tag.Get("query"); name != "" {
			values, ok := query[name]
			if !ok || len(values) == 0 {
				continue
			}
			if err := setField(fieldValue, values, false); err != nil {
				return fmt.Errorf("binding query %q: %w", name, err)
			}
		}
	}

	return nil
}

// setField sets a field from one or more string values. splitTail splits a
// single path value on "/" when the field is a string slice.
func setField(field reflect.Value, values []string, splitTail bool) error {
	value := values[0]

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float: %s", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", field.Type().Elem().Kind())
		}
		var parts []string
		switch {
		case !splitTail:
			parts = append(parts, values...)
		case value != "":
			parts = strings.Split(value, "/")
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported type: %s", field.Kind())
	}

	return nil
}
