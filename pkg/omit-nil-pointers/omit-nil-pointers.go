package omitnilpointers

import (
	"reflect"
	"strings"
)

// OmitNilPointers drops nil values and nil pointers and dereferences the rest.
func OmitNilPointers(fields map[string]any) map[string]any {
	omitted := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}

		v := reflect.ValueOf(value)
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				continue
			}
			omitted[key] = v.Elem().Interface()
		} else {
			omitted[key] = value
		}
	}

	return omitted
}

// FromStruct builds a field map keyed by json tag names, skipping nil pointer
// fields. Values of named basic types are converted to their underlying kind so
// the map can be written with HSet.
func FromStruct(value any) map[string]any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return map[string]any{}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return map[string]any{}
	}

	t := v.Type()
	fields := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		fields[name] = v.Field(i).Interface()
	}

	fields = OmitNilPointers(fields)
	for key, value := range fields {
		fields[key] = underlying(value)
	}

	return fields
}

func underlying(value any) any {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	default:
		return value
	}
}
