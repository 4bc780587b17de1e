package query

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	lq "github.com/coral-mesh/listquery/pkg/query"
)

// FilterSchema returns the JSON schema of the $filter payload: an array of
// filter objects whose operation and transform are named enums.
func FilterSchema() *jsonschema.Schema {
	operationType := reflect.TypeOf(lq.Operation(0))
	transformType := reflect.TypeOf(lq.Transform(0))

	reflector := jsonschema.Reflector{
		DoNotReference: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t {
			case operationType:
				var names []any
				for _, op := range lq.Operations() {
					names = append(names, op.String())
				}
				return &jsonschema.Schema{Type: "string", Enum: names, Description: "Filter operation"}
			case transformType:
				return &jsonschema.Schema{
					Type:        "string",
					Enum:        []any{lq.TransformLower.String(), lq.TransformUpper.String(), lq.TransformTrim.String()},
					Description: "Applied to the field and value before comparison",
				}
			}
			return nil
		},
	}
	return reflector.Reflect([]lq.FilterSpec{})
}

// NewSchemaCmd creates the schema command.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the $filter parameter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(FilterSchema())
		},
	}
}
