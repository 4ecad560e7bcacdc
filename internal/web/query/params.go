// Package query turns request query parameters into cursor operations.
package query

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/conduit-lang/mapper/internal/mapper/compare"
)

// filterPattern matches filter[key] and filter[key][operator].
var filterPattern = regexp.MustCompile(`^filter\[([^\]]+)\](?:\[([^\]]+)\])?$`)

// looseOperator compares query strings against typed document values.
const looseOperator = "=="

// Filter parses filter parameters into a where spec:
//
//	?filter[status]=open            -> {"status": {"==": "open"}}
//	?filter[price][>]=10            -> {"price": {">": 10}}
//	?filter[tag][in]=a,b            -> {"tag": {"in": ["a", "b"]}}
//
// Equality is loose so "2" matches the number 2. Values for ordering
// operators are parsed as numbers when they look like one.
func Filter(r *http.Request) compare.Where {
	return FilterValues(r.URL.Query())
}

// FilterValues is Filter over parsed values.
func FilterValues(values url.Values) compare.Where {
	where := compare.Where{}
	for param, vs := range values {
		m := filterPattern.FindStringSubmatch(param)
		if m == nil || len(vs) == 0 {
			continue
		}
		key, op := m[1], m[2]
		if op == "" {
			op = looseOperator
		}

		cond, ok := where[key].(compare.Where)
		if !ok {
			cond = compare.Where{}
			where[key] = cond
		}
		cond[op] = operand(op, vs[0])
	}
	return where
}

func operand(op, raw string) any {
	switch op {
	case "in", "notIn":
		parts := strings.Split(raw, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = scalar(strings.TrimSpace(p))
		}
		return out
	case ">", "<", ">=", "<=":
		return scalar(raw)
	default:
		return raw
	}
}

func scalar(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

// Take reads take and take_last. take_last wins when both are present.
// It reports false when neither is set.
func Take(r *http.Request) (n int, fromEnd bool, ok bool, err error) {
	q := r.URL.Query()
	for _, p := range []struct {
		name    string
		fromEnd bool
	}{{"take_last", true}, {"take", false}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, false, false, fmt.Errorf("%s must be a non-negative integer, got %q", p.name, raw)
		}
		return n, p.fromEnd, true, nil
	}
	return 0, false, false, nil
}

// Fields parses fields=a,b,c. It returns nil when the parameter is absent.
func Fields(r *http.Request) []string {
	raw := r.URL.Query().Get("fields")
	if raw == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
