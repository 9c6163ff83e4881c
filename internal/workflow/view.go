package workflow

import (
	"errors"
	"fmt"
	"time"

	"healthops/internal/metrics"
	"healthops/internal/models"
	"healthops/internal/query"
)

var ErrUnknownTab = errors.New("unknown tab")

// Source is a keyed collection of current records, such as a
// livecollection.Collection.
type Source[T any] interface {
	Records() []T
	Get(id string) (T, bool)
}

// View lists the records of one context, tab by tab.
type View[T query.Record] struct {
	ctx         Context
	source      Source[T]
	classify    Classifier[T]
	defaultSort query.Sort
	loc         *time.Location
	now         func() time.Time
	threshold   int
	windowSize  int
}

type ViewOption func(*viewOptions)

type viewOptions struct {
	loc        *time.Location
	now        func() time.Time
	threshold  int
	windowSize int
}

// WithLocation sets the zone used for calendar-day comparisons.
func WithLocation(loc *time.Location) ViewOption {
	return func(o *viewOptions) { o.loc = loc }
}

func WithClock(now func() time.Time) ViewOption {
	return func(o *viewOptions) { o.now = now }
}

// WithWindow sets the large-collection threshold and the window size.
func WithWindow(threshold, size int) ViewOption {
	return func(o *viewOptions) {
		o.threshold = threshold
		o.windowSize = size
	}
}

func newView[T query.Record](ctx Context, entity Entity, source Source[T], classify Classifier[T], def query.Sort, opts []ViewOption) (*View[T], error) {
	got, err := EntityOf(ctx)
	if err != nil {
		return nil, err
	}
	if got != entity {
		return nil, fmt.Errorf("context %q lists %s records, not %s", ctx, got, entity)
	}
	o := viewOptions{
		loc:        time.Local,
		now:        time.Now,
		threshold:  models.LargeCollectionThreshold,
		windowSize: models.DefaultWindowSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &View[T]{
		ctx:         ctx,
		source:      source,
		classify:    classify,
		defaultSort: def,
		loc:         o.loc,
		now:         o.now,
		threshold:   o.threshold,
		windowSize:  o.windowSize,
	}, nil
}

// NewCampView lists camps, soonest first unless a sort is given.
func NewCampView(ctx Context, source Source[models.Camp], opts ...ViewOption) (*View[models.Camp], error) {
	return newView(ctx, EntityCamp, source, CampClassifier, query.Sort{Field: models.FieldDate, Direction: query.Asc}, opts)
}

// NewBookingView lists test bookings, newest first unless a sort is given.
func NewBookingView(ctx Context, source Source[models.TestBooking], opts ...ViewOption) (*View[models.TestBooking], error) {
	return newView(ctx, EntityBooking, source, BookingClassifier, query.Sort{Field: models.FieldCreatedAt, Direction: query.Desc}, opts)
}

func (v *View[T]) Context() Context { return v.ctx }

// Listing is one computed page of a tab.
type Listing[T query.Record] struct {
	Context Context
	Tab     Bucket
	query.Result[T]
}

// Query computes tab from the current records. An empty tab means the
// context's default tab.
func (v *View[T]) Query(tab Bucket, spec query.Spec) (Listing[T], error) {
	if tab == "" {
		tab, _ = DefaultTab(v.ctx)
	}
	if !HasTab(v.ctx, tab) {
		return Listing[T]{}, fmt.Errorf("%w: %q in %s", ErrUnknownTab, tab, v.ctx)
	}

	start := time.Now()
	now := v.now().In(v.loc)
	all := v.source.Records()
	records := make([]T, 0, len(all))
	for _, rec := range all {
		if InBucket(rec, tab, v.classify, now) {
			records = append(records, rec)
		}
	}
	// Sources are unordered; fix a base order so ties are deterministic.
	query.SortRecords(records, query.Sort{Field: "id", Direction: query.Asc}, v.loc)
	if spec.Sort.Field == "" {
		spec.Sort = v.defaultSort
	}
	res := query.Run(records, spec, v.loc)
	metrics.ObserveQuery(string(v.ctx)+"/"+string(tab), time.Since(start))

	return Listing[T]{Context: v.ctx, Tab: tab, Result: res}, nil
}

// Windowed returns the rows to render for l. When the ordered result is
// larger than the threshold only the leading window is returned.
func (v *View[T]) Windowed(l Listing[T]) ([]T, bool) {
	return query.Window(l.Ordered, v.threshold, v.windowSize)
}

// Counts returns the number of records per tab of the context.
func (v *View[T]) Counts() map[Bucket]int {
	now := v.now().In(v.loc)
	buckets := Classify(v.source.Records(), v.classify, now)
	tabs, _ := Tabs(v.ctx)
	out := make(map[Bucket]int, len(tabs))
	for _, tab := range tabs {
		out[tab] = len(buckets[tab])
	}
	return out
}

// Group computes tab and groups its ordered records by field.
func (v *View[T]) Group(tab Bucket, spec query.Spec, field string) ([]query.Group[T], error) {
	l, err := v.Query(tab, spec)
	if err != nil {
		return nil, err
	}
	return query.GroupBy(l.Ordered, field), nil
}
