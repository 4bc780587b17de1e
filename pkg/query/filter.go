package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Operation identifies how a FilterSpec is turned into a predicate.
type Operation int

const (
	// OpUnknown is any operation the compiler does not recognize.
	// Filters carrying it are skipped.
	OpUnknown Operation = iota
	OpEq
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpContains
	OpStartsWith
	OpEndsWith
	// OpSql applies a raw expression conjunctively.
	OpSql
	// OpSqlUnion unions the current set with the raw expression applied to the
	// original source.
	OpSqlUnion
)

var operationNames = map[Operation]string{
	OpEq:         "Eq",
	OpNe:         "Ne",
	OpGt:         "Gt",
	OpGe:         "Ge",
	OpLt:         "Lt",
	OpLe:         "Le",
	OpContains:   "Contains",
	OpStartsWith: "StartsWith",
	OpEndsWith:   "EndsWith",
	OpSql:        "Sql",
	OpSqlUnion:   "SqlUnion",
}

// Operations returns every known operation in declaration order.
func Operations() []Operation {
	return []Operation{
		OpEq, OpNe, OpGt, OpGe, OpLt, OpLe,
		OpContains, OpStartsWith, OpEndsWith,
		OpSql, OpSqlUnion,
	}
}

// ParseOperation converts a name (case-insensitive) to an Operation.
// Returns OpUnknown and false if the name is not recognized.
func ParseOperation(s string) (Operation, bool) {
	for op, name := range operationNames {
		if strings.EqualFold(name, s) {
			return op, true
		}
	}
	return OpUnknown, false
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "Unknown"
}

// IsRaw reports whether the operation carries a raw expression instead of a
// compiled predicate.
func (o Operation) IsRaw() bool {
	return o == OpSql || o == OpSqlUnion
}

// MarshalJSON encodes the operation by name.
func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts either the operation name or its ordinal, where the
// ordinal follows the wire convention (Eq is 0). Unrecognized values decode to
// OpUnknown so that a single bad entry is ignored rather than failing the list.
// null leaves o unchanged.
func (o *Operation) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	raw, isString, err := decodeEnum(data)
	if err != nil {
		return fmt.Errorf("operation: %w", err)
	}
	if isString {
		*o, _ = ParseOperation(raw)
		return nil
	}
	ordinal, err := strconv.Atoi(raw)
	if err != nil || ordinal < 0 || ordinal >= len(operationNames) {
		*o = OpUnknown
		return nil
	}
	*o = Operation(ordinal + 1)
	return nil
}

// Transform normalizes both sides of a comparison before it is evaluated.
type Transform int

const (
	TransformNone Transform = iota
	TransformLower
	TransformUpper
	TransformTrim
)

var transformNames = map[Transform]string{
	TransformLower: "Lower",
	TransformUpper: "Upper",
	TransformTrim:  "Trim",
}

// ParseTransform converts a name (case-insensitive) to a Transform.
func ParseTransform(s string) (Transform, bool) {
	for t, name := range transformNames {
		if strings.EqualFold(name, s) {
			return t, true
		}
	}
	return TransformNone, false
}

func (t Transform) String() string {
	if name, ok := transformNames[t]; ok {
		return name
	}
	return ""
}

// Apply returns s with the transform applied.
func (t Transform) Apply(s string) string {
	switch t {
	case TransformLower:
		return strings.ToLower(s)
	case TransformUpper:
		return strings.ToUpper(s)
	case TransformTrim:
		return strings.TrimSpace(s)
	default:
		return s
	}
}

// MarshalJSON encodes the transform by name, or null when unset.
func (t Transform) MarshalJSON() ([]byte, error) {
	if t == TransformNone {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the transform name, its ordinal (Lower is 0) or null.
func (t *Transform) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = TransformNone
		return nil
	}
	raw, isString, err := decodeEnum(data)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if isString {
		*t, _ = ParseTransform(raw)
		return nil
	}
	ordinal, err := strconv.Atoi(raw)
	if err != nil || ordinal < 0 || ordinal >= len(transformNames) {
		*t = TransformNone
		return nil
	}
	*t = Transform(ordinal + 1)
	return nil
}

func decodeEnum(data []byte) (string, bool, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, true, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", false, err
	}
	return n.String(), false, nil
}

// FilterSpec describes a single filter condition as sent by a client.
type FilterSpec struct {
	Operation Operation `json:"operation"`
	Property  string    `json:"property,omitempty" jsonschema:"description=Target field name"`
	Value     any       `json:"value,omitempty" jsonschema:"description=Comparison operand or raw expression parameters"`
	// Sql is the raw expression used by OpSql and OpSqlUnion. Placeholders are
	// written @0, @1 and so on.
	Sql       string    `json:"sql,omitempty" jsonschema:"description=Raw expression for Sql and SqlUnion operations"`
	Transform Transform `json:"transform,omitempty"`
}

// UnmarshalJSON decodes a client filter. An omitted or null operation means
// Eq, matching ordinal 0. Numbers in value are kept as json.Number.
func (f *FilterSpec) UnmarshalJSON(data []byte) error {
	type wire FilterSpec
	w := wire{Operation: OpEq}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return err
	}
	*f = FilterSpec(w)
	return nil
}

// RawArgs returns the bound parameters of a raw expression. A slice value is
// spread into positional parameters, anything else is a single parameter.
func (f FilterSpec) RawArgs() []any {
	switch v := f.Value.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		args := make([]any, len(v))
		for i, s := range v {
			args[i] = s
		}
		return args
	default:
		return []any{v}
	}
}

func (f FilterSpec) String() string {
	if f.Operation.IsRaw() {
		return fmt.Sprintf("%s(%s)", f.Operation, f.Sql)
	}
	if f.Transform != TransformNone {
		return fmt.Sprintf("%s(%s, %v, %s)", f.Operation, f.Property, f.Value, f.Transform)
	}
	return fmt.Sprintf("%s(%s, %v)", f.Operation, f.Property, f.Value)
}
