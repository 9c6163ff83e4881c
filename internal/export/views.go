package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthops/internal/models"
	"healthops/internal/query"
	"healthops/internal/workflow"
)

// Sink names.
const (
	SinkXLSX   = "xlsx"
	SinkSheets = "sheets"
)

var ErrUnknownSink = errors.New("export sink is not configured")

// Result describes one finished export.
type Result struct {
	Context  workflow.Context
	Tab      workflow.Bucket
	Rows     int
	Location string
}

// ViewExporter renders a workflow tab into rows and hands them to a sink.
// Every filtered, sorted row is exported; paging does not apply.
type ViewExporter struct {
	camps     workflow.Source[models.Camp]
	bookings  workflow.Source[models.TestBooking]
	formatter *Formatter
	sinks     map[string]Sink
	loc       *time.Location
	now       func() time.Time
}

func NewViewExporter(camps workflow.Source[models.Camp], bookings workflow.Source[models.TestBooking], formatter *Formatter, sinks map[string]Sink, loc *time.Location, now func() time.Time) *ViewExporter {
	if formatter == nil {
		formatter = DefaultFormatter()
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &ViewExporter{camps: camps, bookings: bookings, formatter: formatter, sinks: sinks, loc: loc, now: now}
}

// Sink resolves a sink by name; an empty name means xlsx.
func (e *ViewExporter) Sink(name string) (Sink, error) {
	if name == "" {
		name = SinkXLSX
	}
	sink, ok := e.sinks[name]
	if !ok || sink == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, name)
	}
	return sink, nil
}

func (e *ViewExporter) Export(ctx context.Context, view workflow.Context, tab workflow.Bucket, spec query.Spec, sinkName string) (Result, error) {
	sink, err := e.Sink(sinkName)
	if err != nil {
		return Result{}, err
	}
	entity, err := workflow.EntityOf(view)
	if err != nil {
		return Result{}, err
	}

	opts := []workflow.ViewOption{workflow.WithLocation(e.loc), workflow.WithClock(e.now)}
	var (
		table    Table
		resolved workflow.Bucket
	)
	switch entity {
	case workflow.EntityCamp:
		v, err := workflow.NewCampView(view, e.camps, opts...)
		if err != nil {
			return Result{}, err
		}
		l, err := v.Query(tab, spec)
		if err != nil {
			return Result{}, err
		}
		table, resolved = e.formatter.CampRows(l.Ordered, e.now().In(e.loc)), l.Tab
	case workflow.EntityBooking:
		v, err := workflow.NewBookingView(view, e.bookings, opts...)
		if err != nil {
			return Result{}, err
		}
		l, err := v.Query(tab, spec)
		if err != nil {
			return Result{}, err
		}
		table, resolved = e.formatter.BookingRows(l.Ordered), l.Tab
	}

	location, err := sink.ExportRows(ctx, table, string(view)+"_"+string(resolved))
	if err != nil {
		return Result{}, fmt.Errorf("export %s/%s: %w", view, resolved, err)
	}
	return Result{Context: view, Tab: resolved, Rows: len(table.Rows), Location: location}, nil
}
