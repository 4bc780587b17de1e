package helpers

import (
	"github.com/coral-mesh/listquery/internal/constants"
	"github.com/coral-mesh/listquery/pkg/query"
)

// NewCompiler returns a predicate compiler for the configured property case.
func NewCompiler(propertyCase string) *query.Compiler {
	if propertyCase == constants.PropertyCaseNone {
		return query.NewCompiler(query.WithPropertyMapper(query.Verbatim))
	}
	return query.NewCompiler()
}
