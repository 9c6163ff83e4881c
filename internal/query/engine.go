package query

import "time"

// Spec is everything a view asks of the engine.
type Spec struct {
	Filters Filters
	Sort    Sort
	Page    Page
}

type Result[T Record] struct {
	// Ordered is the full filtered and sorted list.
	Ordered []T
	// Items is the requested page of Ordered.
	Items []T
	Total int
	Pages int
	Page  int
	Size  int
}

func (r Result[T]) HasNext() bool {
	return r.Page < r.Pages
}

// Run filters, sorts and pages records. records is not modified. The whole
// list is recomputed on every call.
func Run[T Record](records []T, spec Spec, loc *time.Location) Result[T] {
	ordered := Filter(records, spec.Filters, loc)
	SortRecords(ordered, spec.Sort, loc)
	size := spec.Page.size()
	return Result[T]{
		Ordered: ordered,
		Items:   Paginate(ordered, Page{Index: spec.Page.Index, Size: size}),
		Total:   len(ordered),
		Pages:   PageCount(len(ordered), size),
		Page:    spec.Page.Index,
		Size:    size,
	}
}
