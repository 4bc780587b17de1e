package query

import "errors"

var (
	// ErrInvalidParameter is returned when a numeric parameter such as $skip
	// or $top cannot be converted.
	ErrInvalidParameter = errors.New("invalid query parameter")

	// ErrMalformedFilter is returned when the $filter payload is not a JSON
	// array of filter objects.
	ErrMalformedFilter = errors.New("malformed filter")

	// ErrUnknownField is returned by adapters when a predicate or ordering
	// references a field the record does not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrTypeMismatch is returned by adapters when a bound value cannot be
	// compared with the field it targets.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidExpression is returned by adapters when a raw expression
	// cannot be compiled or does not evaluate to a boolean.
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrIncompatibleSource is returned when two queryables that cannot be
	// combined are unioned.
	ErrIncompatibleSource = errors.New("incompatible queryable source")
)
