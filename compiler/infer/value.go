package infer

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"time"
)

// kind is the shape of one observed value.
type kind uint8

const (
	kindNone kind = iota
	kindInt
	kindFloat
	kindDate
	kindString
	kindBoolean
	kindList
	kindObject
)

// dateLayouts are the ISO 8601 forms recognized as dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999Z0700",
}

// IsDate reports whether s is an ISO 8601 date or timestamp.
func IsDate(s string) bool {
	if len(s) < len("2006-01-02") || s[4] != '-' {
		return false
	}
	_, ok := ParseDate(s)
	return ok
}

// ParseDate parses s with the recognized date layouts.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// classify returns the shape of v. Nil values and values without a
// GraphQL shape report kindNone.
func classify(v any) kind {
	switch v := v.(type) {
	case nil:
		return kindNone
	case string:
		if IsDate(v) {
			return kindDate
		}
		return kindString
	case bool:
		return kindBoolean
	case time.Time:
		return kindDate
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return intKind(i)
		}
		return kindFloat
	case int:
		return intKind(int64(v))
	case int64:
		return intKind(v)
	case int8, int16, int32, uint8, uint16:
		return kindInt
	case uint, uint32, uint64:
		if reflect.ValueOf(v).Uint() > math.MaxInt32 {
			return kindFloat
		}
		return kindInt
	case float32:
		return floatKind(float64(v))
	case float64:
		return floatKind(v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return kindList
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return kindObject
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return kindNone
		}
		return classify(rv.Elem().Interface())
	}
	return kindNone
}

func intKind(i int64) kind {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return kindFloat
	}
	return kindInt
}

func floatKind(f float64) kind {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return intKind(int64(f))
	}
	return kindFloat
}

// elems returns the elements of a list value.
func elems(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// entries returns the entries of an object value.
func entries(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	rv := reflect.ValueOf(v)
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

// FieldName converts a record key to a valid GraphQL field name.
func FieldName(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
