package query

import "context"

// Queryable is an ordered, lazily evaluated collection of records.
//
// Every method except Count and List returns a new Queryable and leaves the
// receiver untouched. Nothing is executed until Count or List is called, which
// is also where errors such as unknown fields or type mismatches surface.
type Queryable[T any] interface {
	// Where narrows the collection with a compiled predicate.
	Where(p Predicate) Queryable[T]

	// WhereRaw narrows the collection with an adapter-specific expression.
	// Parameters are referenced positionally as @0, @1 and so on.
	WhereRaw(expr string, args ...any) Queryable[T]

	// Union returns the distinct records of the receiver followed by those of
	// other that are not already present.
	Union(other Queryable[T]) Queryable[T]

	// OrderBy sorts by a single property.
	OrderBy(property string, descending bool) Queryable[T]

	Skip(n int) Queryable[T]
	Take(n int) Queryable[T]

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int64, error)

	// List enumerates the collection.
	List(ctx context.Context) ([]T, error)
}
