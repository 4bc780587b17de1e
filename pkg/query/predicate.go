package query

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Predicate is the compiled form of a FilterSpec: a single-field condition
// with its bound value. Adapters translate it into whatever their backing
// store executes; Expression renders a textual form for logging and for
// expression-based adapters.
type Predicate struct {
	Field     string
	Op        Operation
	Transform Transform
	// Value is bound to placeholder @0. When Transform is set it has already
	// been transformed.
	Value any
}

// Expression renders the predicate using @0 for the bound value, e.g.
// `Name.lowerAscii() == @0` or `Age >= @0`.
func (p Predicate) Expression() string {
	build, ok := expressionBuilders[p.Op]
	if !ok {
		return ""
	}
	return build(p.Field, p.Transform)
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s [@0=%#v]", p.Expression(), p.Value)
}

// Transformable reports whether the operation applies transforms to both the
// field and the value. Relational comparisons do not.
func (o Operation) Transformable() bool {
	switch o {
	case OpEq, OpNe, OpContains, OpStartsWith, OpEndsWith:
		return true
	default:
		return false
	}
}

type expressionBuilder func(field string, t Transform) string

var expressionBuilders = map[Operation]expressionBuilder{
	OpEq:         infix("=="),
	OpNe:         infix("!="),
	OpGt:         relational(">"),
	OpGe:         relational(">="),
	OpLt:         relational("<"),
	OpLe:         relational("<="),
	OpContains:   method("contains"),
	OpStartsWith: method("startsWith"),
	OpEndsWith:   method("endsWith"),
}

func fieldAccess(field string, t Transform) string {
	switch t {
	case TransformLower:
		return field + ".lowerAscii()"
	case TransformUpper:
		return field + ".upperAscii()"
	case TransformTrim:
		return field + ".trim()"
	default:
		return field
	}
}

func infix(op string) expressionBuilder {
	return func(field string, t Transform) string {
		return fmt.Sprintf("%s %s @0", fieldAccess(field, t), op)
	}
}

func relational(op string) expressionBuilder {
	return func(field string, _ Transform) string {
		return fmt.Sprintf("%s %s @0", field, op)
	}
}

func method(name string) expressionBuilder {
	return func(field string, t Transform) string {
		return fmt.Sprintf("%s.%s(@0)", fieldAccess(field, t), name)
	}
}

// PropertyMapper maps a client-supplied property name to the record's field
// naming convention.
type PropertyMapper func(string) string

// UpperFirst upper-cases the first letter of a property name ("status" becomes
// "Status"). It is the default mapper.
func UpperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Verbatim leaves property names untouched.
func Verbatim(s string) string {
	return s
}

// Compiler turns FilterSpecs into Predicates. The zero value is not usable;
// construct one with NewCompiler.
type Compiler struct {
	mapProperty PropertyMapper
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithPropertyMapper replaces the default UpperFirst property mapping.
func WithPropertyMapper(m PropertyMapper) CompilerOption {
	return func(c *Compiler) {
		if m != nil {
			c.mapProperty = m
		}
	}
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{mapProperty: UpperFirst}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCompiler = NewCompiler()

// Compile compiles spec with the default compiler.
func Compile(spec FilterSpec) (Predicate, bool) {
	return defaultCompiler.Compile(spec)
}

// Compile builds the predicate for spec. It returns false for raw operations
// and for operations it does not recognize; such specs produce no predicate.
// Property names are not validated.
func (c *Compiler) Compile(spec FilterSpec) (Predicate, bool) {
	if _, ok := expressionBuilders[spec.Operation]; !ok {
		return Predicate{}, false
	}

	p := Predicate{
		Field: c.mapProperty(spec.Property),
		Op:    spec.Operation,
		Value: spec.Value,
	}
	if spec.Operation.Transformable() && spec.Transform != TransformNone {
		p.Transform = spec.Transform
		p.Value = transformValue(spec.Transform, spec.Value)
	}
	return p, true
}

// CompileExpression returns the expression text and bound value for spec.
// The expression is empty when spec does not compile.
func (c *Compiler) CompileExpression(spec FilterSpec) (string, any) {
	p, ok := c.Compile(spec)
	if !ok {
		return "", nil
	}
	return p.Expression(), p.Value
}

// MapProperty applies the compiler's property mapping to name.
func (c *Compiler) MapProperty(name string) string {
	return c.mapProperty(name)
}

func transformValue(t Transform, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return t.Apply(val)
	default:
		return t.Apply(fmt.Sprint(val))
	}
}
