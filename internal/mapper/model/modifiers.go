package model

import (
	"fmt"
	"math"

	"github.com/spf13/cast"

	"github.com/conduit-lang/mapper/internal/mapper/format"
)

// Modifier transforms an attribute after its value is written. The set of
// modifiers is closed: Rename, Default, Copy, Coerce and Format.
type Modifier interface {
	rank() int
}

// Rename moves the value to another path.
type Rename struct {
	To string
}

// Default writes Value when the attribute is absent.
type Default struct {
	Value any
}

// Copy duplicates the value found at From. When From has not been written
// yet the copy waits for it.
type Copy struct {
	From string
}

// Coerce replaces the value with Fn(value).
type Coerce struct {
	Fn CoerceFunc
}

// Format replaces the value with a rendered form.
type Format struct {
	Formatter Formatter
}

// Modifiers apply in this order regardless of declaration order.
func (Rename) rank() int  { return 0 }
func (Default) rank() int { return 1 }
func (Copy) rank() int    { return 2 }
func (Coerce) rank() int  { return 3 }
func (Format) rank() int  { return 4 }

// CoerceFunc converts a value to another type.
type CoerceFunc func(value any) (any, error)

// Built-in coercions backed by spf13/cast. Number yields NaN for input
// that is not numeric; Integer yields nil for it.
var (
	Number CoerceFunc = func(v any) (any, error) {
		var n float64
		var err error
		if s, ok := v.(string); ok {
			n, err = format.ToNumber(s)
		} else {
			n, err = cast.ToFloat64E(v)
		}
		if err != nil {
			return math.NaN(), nil
		}
		return n, nil
	}
	Integer CoerceFunc = func(v any) (any, error) {
		n, err := Number(v)
		if err != nil {
			return nil, err
		}
		f := n.(float64)
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1<<63 {
			return nil, nil
		}
		return int64(f), nil
	}
	String CoerceFunc = func(v any) (any, error) {
		return cast.ToStringE(v)
	}
	Boolean CoerceFunc = func(v any) (any, error) {
		return cast.ToBoolE(v)
	}
)

// Formatter renders a value. record is the output built so far.
type Formatter interface {
	FormatValue(value any, record map[string]any) (any, error)
}

// FormatFunc adapts a function to Formatter.
type FormatFunc func(value any, record map[string]any) (any, error)

// FormatValue calls f.
func (f FormatFunc) FormatValue(value any, record map[string]any) (any, error) {
	return f(value, record)
}

// NumberFormat renders numbers with a numeral style pattern such as "$0,0.00".
type NumberFormat string

// FormatValue implements Formatter.
func (p NumberFormat) FormatValue(value any, _ map[string]any) (any, error) {
	return format.Number(value, string(p))
}

// DateFormat parses dates with From (ISO-8601 when empty) and renders them
// with To.
type DateFormat struct {
	From string
	To   string
}

// FormatValue implements Formatter.
func (d DateFormat) FormatValue(value any, _ map[string]any) (any, error) {
	if d.To == "" {
		return nil, fmt.Errorf("date format needs an output pattern")
	}
	return format.Reformat(value, d.From, d.To)
}
