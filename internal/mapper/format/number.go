// Package format renders numbers and dates from display patterns.
//
// Number patterns follow the numeral.js conventions ("$0,0.00", "0.[00]",
// "0.00%"). Date patterns follow the moment.js token set ("DD/MM/YYYY",
// "MMM. Do, YYYY"); patterns containing "%" are strftime.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cast"
)

// NumberPattern is a parsed numeric display pattern.
type NumberPattern struct {
	Prefix   string
	Suffix   string
	Grouping bool
	Decimals int
	Optional bool
	Percent  bool
	source   string
}

// ParseNumber parses a numeral style pattern. The numeric core is the run
// starting at the first '0' made of "0,.[]" characters; everything before
// and after it is literal text. Brackets around literal text are dropped.
func ParseNumber(pattern string) (NumberPattern, error) {
	start := strings.IndexByte(pattern, '0')
	if start < 0 {
		return NumberPattern{}, fmt.Errorf("invalid number pattern %q: missing digit placeholder", pattern)
	}

	end := start
	for end < len(pattern) && strings.ContainsRune("0,.[]", rune(pattern[end])) {
		end++
	}
	core := pattern[start:end]

	// A trailing "[" belongs to a bracketed literal such as "[%]".
	if strings.Count(core, "[") > strings.Count(core, "]") && strings.HasSuffix(core, "[") {
		core = core[:len(core)-1]
		end--
	}

	p := NumberPattern{
		Prefix: unbracket(pattern[:start]),
		Suffix: unbracket(pattern[end:]),
		source: pattern,
	}

	intPart, fracPart, hasFrac := strings.Cut(core, ".")
	if strings.HasSuffix(intPart, "[") {
		// "0[.]00": optional decimal point.
		intPart = strings.TrimSuffix(intPart, "[")
		fracPart = strings.TrimPrefix(fracPart, "]")
		p.Optional = true
	}
	p.Grouping = strings.Contains(intPart, ",")
	if hasFrac {
		if strings.HasPrefix(fracPart, "[") {
			p.Optional = true
		}
		p.Decimals = strings.Count(fracPart, "0")
	}

	p.Percent = strings.Contains(p.Prefix, "%") || strings.Contains(p.Suffix, "%")
	return p, nil
}

func unbracket(s string) string {
	return strings.NewReplacer("[", "", "]", "").Replace(s)
}

// String returns the pattern source.
func (p NumberPattern) String() string {
	return p.source
}

// Format renders value. Strings are parsed as numbers first, tolerating
// grouping separators and the pattern's own prefix and suffix.
func (p NumberPattern) Format(value any) (string, error) {
	n, err := ToNumber(value)
	if err != nil {
		return "", err
	}
	if p.Percent {
		n *= 100
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return p.Prefix + strconv.FormatFloat(n, 'f', -1, 64) + p.Suffix, nil
	}

	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	digits := p.digits(n)
	if p.Optional && strings.Contains(digits, ".") {
		digits = strings.TrimRight(strings.TrimRight(digits, "0"), ".")
	}
	return sign + p.Prefix + digits + p.Suffix, nil
}

func (p NumberPattern) digits(n float64) string {
	if !p.Grouping {
		return strconv.FormatFloat(n, 'f', p.Decimals, 64)
	}
	// humanize reads "#,###." + one '#' per decimal as thousands separator
	// ',' and decimal separator '.' with the given precision.
	return humanize.FormatFloat("#,###."+strings.Repeat("#", min(p.Decimals, 9)), n)
}

// Number formats value with pattern.
func Number(value any, pattern string) (string, error) {
	p, err := ParseNumber(pattern)
	if err != nil {
		return "", err
	}
	return p.Format(value)
}

// ToNumber converts value to a float64. Numeric strings may carry grouping
// commas, a currency prefix and surrounding spaces.
func ToNumber(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		cleaned := strings.Map(func(r rune) rune {
			switch {
			case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
				return r
			}
			return -1
		}, v)
		if cleaned == "" {
			return 0, fmt.Errorf("cannot format %q as a number", v)
		}
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot format %q as a number: %w", v, err)
		}
		if strings.HasSuffix(strings.TrimSpace(v), "%") {
			n /= 100
		}
		return n, nil
	case time.Time:
		return float64(v.UnixMilli()), nil
	}

	n, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, fmt.Errorf("cannot format %T as a number: %w", value, err)
	}
	return n, nil
}
