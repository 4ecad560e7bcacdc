package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/spf13/cast"
)

// defaultLayouts are tried in order when a date has no source pattern.
var defaultLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// token renders one moment.js token. layout is the equivalent Go layout
// fragment, empty when the token has no parseable Go form.
type token struct {
	layout string
	render func(t time.Time) string
}

func goToken(layout string) token {
	return token{layout: layout, render: func(t time.Time) string { return t.Format(layout) }}
}

var momentTokens = map[string]token{
	"YYYY": goToken("2006"),
	"YY":   goToken("06"),
	"MMMM": goToken("January"),
	"MMM":  goToken("Jan"),
	"MM":   goToken("01"),
	"M":    goToken("1"),
	"DDDD": goToken("002"),
	"DD":   goToken("02"),
	"D":    goToken("2"),
	"Do":   {render: func(t time.Time) string { return ordinal(t.Day()) }},
	"dddd": goToken("Monday"),
	"ddd":  goToken("Mon"),
	"HH":   goToken("15"),
	"H":    {render: func(t time.Time) string { return strconv.Itoa(t.Hour()) }},
	"hh":   goToken("03"),
	"h":    goToken("3"),
	"mm":   goToken("04"),
	"m":    goToken("4"),
	"ss":   goToken("05"),
	"s":    goToken("5"),
	"SSS":  {render: func(t time.Time) string { return fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond)) }},
	"A":    goToken("PM"),
	"a":    goToken("pm"),
	"ZZ":   goToken("-0700"),
	"Z":    goToken("-07:00"),
	"X":    {render: func(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }},
	"x":    {render: func(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }},
}

// momentKeys holds the token names longest first so "YYYY" wins over "YY".
var momentKeys = func() []string {
	keys := make([]string, 0, len(momentTokens))
	for k := range momentTokens {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// segment is either a token or literal text.
type segment struct {
	tok     *token
	literal string
}

func tokenize(pattern string) []segment {
	var segs []segment
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(pattern); {
		if pattern[i] == '[' {
			if end := strings.IndexByte(pattern[i:], ']'); end > 0 {
				lit.WriteString(pattern[i+1 : i+end])
				i += end + 1
				continue
			}
		}

		matched := false
		for _, key := range momentKeys {
			if strings.HasPrefix(pattern[i:], key) {
				flush()
				tok := momentTokens[key]
				segs = append(segs, segment{tok: &tok})
				i += len(key)
				matched = true
				break
			}
		}
		if !matched {
			lit.WriteByte(pattern[i])
			i++
		}
	}
	flush()
	return segs
}

// Date renders t with a moment.js pattern, or a strftime pattern when the
// pattern contains '%'.
func Date(t time.Time, pattern string) string {
	if strings.Contains(pattern, "%") {
		return strftime.Format(pattern, t)
	}

	var b strings.Builder
	for _, seg := range tokenize(pattern) {
		if seg.tok != nil {
			b.WriteString(seg.tok.render(t))
			continue
		}
		b.WriteString(seg.literal)
	}
	return b.String()
}

// Layout converts a moment.js pattern to a Go time layout.
func Layout(pattern string) (string, error) {
	var b strings.Builder
	for _, seg := range tokenize(pattern) {
		if seg.tok == nil {
			b.WriteString(seg.literal)
			continue
		}
		if seg.tok.layout == "" {
			return "", fmt.Errorf("date pattern %q cannot be used for parsing", pattern)
		}
		b.WriteString(seg.tok.layout)
	}
	return b.String(), nil
}

// ParseDate reads value as a time. Strings use the moment.js pattern from
// when given, otherwise a list of ISO-8601 layouts. Numbers are Unix
// milliseconds.
func ParseDate(value any, from string) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("cannot parse nil time")
		}
		return *v, nil
	case string:
		return parseDateString(v, from)
	case nil:
		return time.Time{}, fmt.Errorf("cannot parse an empty date")
	}

	ms, err := cast.ToInt64E(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %T as a date: %w", value, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseDateString(s, from string) (time.Time, error) {
	if from != "" {
		layout, err := Layout(from)
		if err != nil {
			return time.Time{}, err
		}
		t, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("cannot parse %q with pattern %q: %w", s, from, err)
		}
		return t, nil
	}

	for _, layout := range defaultLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", s)
}

// Reformat parses value with from and renders it with to.
func Reformat(value any, from, to string) (string, error) {
	t, err := ParseDate(value, from)
	if err != nil {
		return "", err
	}
	return Date(t, to), nil
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
