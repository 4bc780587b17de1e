// Package query translates list-endpoint query parameters into operations on
// a Queryable collection.
//
// A request carries filter conditions, a raw where clause, an order-by
// directive and paging parameters:
//
//	$filter=[{"operation":"Eq","property":"status","value":"active","transform":"Lower"}]
//	$orderby=createdAt desc
//	$skip=20
//	$top=10
//
// SettingsFromParams normalizes them into Settings. Apply then compiles each
// FilterSpec into a Predicate, narrows the source, captures the total match
// count, orders the result and finally paginates it:
//
//	settings, err := query.SettingsFromParams(query.NewParams(r.URL.Query()))
//	if err != nil {
//	    http.Error(w, err.Error(), http.StatusBadRequest)
//	    return
//	}
//
//	items, count, err := query.Apply(ctx, pipeline, memory.New(users), settings)
//
// The count always reflects every matching record regardless of $skip and
// $top.
//
// # Operations
//
// Eq, Ne, Contains, StartsWith and EndsWith honour an optional Lower, Upper
// or Trim transform, applied to both the field and the bound value. Gt, Ge,
// Lt and Le compare directly. Sql narrows the current set with a raw,
// adapter-specific expression; SqlUnion adds the matches of a raw expression
// evaluated against the untouched source. Unknown operations are skipped.
//
// # Adapters
//
// Queryable is implemented by the in-memory adapter in package memory and by
// the DuckDB adapter. Compiled predicates are structured values; each adapter
// translates them into its own execution form.
package query
