package memory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"

	"github.com/coral-mesh/listquery/pkg/query"
)

// Raw expressions are CEL with record fields in scope as top-level variables
// and positional arguments written @0, @1 and so on:
//
//	Age > @0 && Name.startsWith(@1)
//	Status in ["active", "pending"]
//
// Arguments are bound as given. Strings coming from $params are not coerced,
// so numeric comparisons against them need an explicit conversion such as
// int(@0).

var (
	placeholderPattern = regexp.MustCompile(`@(\d+)`)
	identifierPattern  = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)
)

// celReserved cannot be declared as variables.
var celReserved = map[string]bool{
	"true": true, "false": true, "null": true, "in": true, "as": true,
	"break": true, "const": true, "continue": true, "else": true,
	"for": true, "function": true, "if": true, "import": true, "let": true,
	"loop": true, "package": true, "namespace": true, "return": true,
	"var": true, "void": true, "while": true,
}

func argName(i int) string {
	return "_arg" + strconv.Itoa(i)
}

// rewritePlaceholders replaces @N with the CEL variable bound to argument N.
// String and bytes literals are copied unchanged.
func rewritePlaceholders(expr string) string {
	var out strings.Builder
	start := 0
	for i := 0; i < len(expr); {
		if expr[i] != '"' && expr[i] != '\'' {
			i++
			continue
		}
		out.WriteString(placeholderPattern.ReplaceAllString(expr[start:i], "_arg$1"))
		end := literalEnd(expr, i, isRawLiteral(expr, i))
		out.WriteString(expr[i:end])
		i, start = end, end
	}
	out.WriteString(placeholderPattern.ReplaceAllString(expr[start:], "_arg$1"))
	return out.String()
}

// isRawLiteral reports whether the quote at i opens a raw string, i.e. is
// preceded by an r or R prefix (optionally combined with b or B).
func isRawLiteral(expr string, i int) bool {
	raw := false
	j := i - 1
	for n := 0; n < 2 && j >= 0; n, j = n+1, j-1 {
		switch expr[j] {
		case 'r', 'R':
			raw = true
		case 'b', 'B':
		default:
			return raw && !isIdentByte(expr[j])
		}
	}
	return raw && (j < 0 || !isIdentByte(expr[j]))
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// literalEnd returns the index just past the literal opened at i. Triple
// quotes span until the matching triple. Backslash escapes are honoured
// unless raw. An unterminated literal runs to the end of expr.
func literalEnd(expr string, i int, raw bool) int {
	delim := expr[i : i+1]
	if triple := strings.Repeat(delim, 3); strings.HasPrefix(expr[i:], triple) {
		delim = triple
	}
	for j := i + len(delim); j < len(expr); {
		if !raw && expr[j] == '\\' {
			j += 2
			continue
		}
		if strings.HasPrefix(expr[j:], delim) {
			return j + len(delim)
		}
		j++
	}
	return len(expr)
}

// rawProgram is a compiled raw expression ready to be evaluated per record.
type rawProgram struct {
	prg   cel.Program
	names []string
	args  map[string]any
}

func compileRaw(expr string, names []string, args []any) (*rawProgram, error) {
	opts := []cel.EnvOption{
		ext.Strings(),
		cel.CrossTypeNumericComparisons(true),
	}

	declared := make([]string, 0, len(names))
	for _, name := range names {
		if !identifierPattern.MatchString(name) || celReserved[name] {
			continue
		}
		opts = append(opts, cel.Variable(name, cel.DynType))
		declared = append(declared, name)
	}

	bound := make(map[string]any, len(args))
	for i, arg := range args {
		name := argName(i)
		opts = append(opts, cel.Variable(name, cel.DynType))
		bound[name] = normalize(arg)
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrInvalidExpression, err)
	}

	ast, issues := env.Compile(rewritePlaceholders(expr))
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %q: %v", query.ErrInvalidExpression, expr, issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: %q evaluates to %s, not bool", query.ErrInvalidExpression, expr, t)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrInvalidExpression, err)
	}

	return &rawProgram{prg: prg, names: declared, args: bound}, nil
}

func (p *rawProgram) eval(ctx context.Context, fields map[string]any) (bool, error) {
	vars := make(map[string]any, len(p.names)+len(p.args))
	for _, name := range p.names {
		vars[name] = fields[name]
	}
	for name, arg := range p.args {
		vars[name] = arg
	}

	out, _, err := p.prg.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("%w: %v", query.ErrInvalidExpression, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression returned %T, not bool", query.ErrInvalidExpression, out.Value())
	}
	return result, nil
}

// variableNames lists the names raw expressions may reference. Struct records
// expose their Go field names and json names; map records expose every key
// seen across the records.
func variableNames[T any](a *accessor, records []T) []string {
	if !a.isMap {
		names := make([]string, 0, len(a.names))
		for name := range a.names {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}

	seen := make(map[string]bool)
	for _, r := range records {
		for name := range a.fields(r) {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
