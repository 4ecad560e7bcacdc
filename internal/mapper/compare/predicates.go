package compare

import (
	"math"
	"reflect"
	"time"
	"unicode"
	"unicode/utf8"
)

// typePredicates backs the "is" comparator. Names follow the upper-first
// form, so where {"is": "array"} and {"is": "Array"} are the same test.
var typePredicates = map[string]func(any) bool{
	"Array": func(v any) bool {
		if v == nil {
			return false
		}
		k := reflect.TypeOf(v).Kind()
		return (k == reflect.Slice || k == reflect.Array) && reflect.TypeOf(v).Elem().Kind() != reflect.Uint8
	},
	"Object": func(v any) bool {
		if v == nil {
			return false
		}
		switch reflect.TypeOf(v).Kind() {
		case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array, reflect.Func, reflect.Pointer:
			return true
		}
		return false
	},
	"PlainObject": func(v any) bool {
		_, ok := v.(map[string]any)
		return ok
	},
	"Map": func(v any) bool {
		return v != nil && reflect.TypeOf(v).Kind() == reflect.Map
	},
	"String": func(v any) bool {
		_, ok := v.(string)
		return ok
	},
	"Number": func(v any) bool {
		_, ok := number(v)
		return ok
	},
	"Integer": func(v any) bool {
		f, ok := number(v)
		return ok && f == math.Trunc(f) && !math.IsInf(f, 0)
	},
	"Finite": func(v any) bool {
		f, ok := number(v)
		return ok && !math.IsInf(f, 0) && !math.IsNaN(f)
	},
	"NaN": func(v any) bool {
		f, ok := number(v)
		return ok && math.IsNaN(f)
	},
	"Boolean": func(v any) bool {
		_, ok := v.(bool)
		return ok
	},
	"Nil": func(v any) bool {
		return v == nil
	},
	"Null": func(v any) bool {
		return v == nil
	},
	"Empty": isEmpty,
	"Function": func(v any) bool {
		return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
	},
	"Date": func(v any) bool {
		_, ok := v.(time.Time)
		return ok
	},
}

func isType(a, b any) bool {
	name, ok := b.(string)
	if !ok || name == "" {
		return false
	}
	fn, ok := typePredicates[upperFirst(name)]
	if !ok {
		return false
	}
	return fn(a)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() == 0
	}
	return false
}
