package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAttribute is matched by a MissingError for a scalar attribute.
	ErrMissingAttribute = errors.New("missing attribute")

	// ErrMissingOneReference is matched by a MissingError for a one reference.
	ErrMissingOneReference = errors.New("missing one reference")

	// ErrMissingManyReference is matched by a MissingError for a many reference.
	ErrMissingManyReference = errors.New("missing many reference")

	// ErrNoActiveAttribute is returned when a modifier has no declared
	// attribute to attach to.
	ErrNoActiveAttribute = errors.New("no active attribute: declare an attribute, one or many reference first")
)

// MissingError reports a required value absent from the input document.
type MissingError struct {
	Kind Kind
	Path string
}

func (e *MissingError) Error() string {
	switch e.Kind {
	case KindOne:
		return fmt.Sprintf("no value found for attribute (one reference) %q", e.Path)
	case KindMany:
		return fmt.Sprintf("no value found for attribute (many reference) %q", e.Path)
	default:
		return fmt.Sprintf("no value found for attribute %q", e.Path)
	}
}

// Is matches the sentinel for the error's kind.
func (e *MissingError) Is(target error) bool {
	switch e.Kind {
	case KindOne:
		return target == ErrMissingOneReference
	case KindMany:
		return target == ErrMissingManyReference
	default:
		return target == ErrMissingAttribute
	}
}

// IsMissing reports whether err is any MissingError.
func IsMissing(err error) bool {
	var missing *MissingError
	return errors.As(err, &missing)
}
