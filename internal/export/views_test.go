package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthops/internal/models"
	"healthops/internal/query"
	"healthops/internal/workflow"
)

type sliceSource[T query.Record] []T

func (s sliceSource[T]) Records() []T { return append([]T(nil), s...) }

func (s sliceSource[T]) Get(id string) (T, bool) {
	for _, r := range s {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

type memorySink struct {
	table Table
	hint  string
	err   error
}

func (m *memorySink) ExportRows(_ context.Context, table Table, hint string) (string, error) {
	m.table, m.hint = table, hint
	return "mem://" + hint, m.err
}

func TestViewExporter(t *testing.T) {
	camps := sliceSource[models.Camp]{
		{ID: "a", CampCode: "CMP-A", Date: "2026-01-10", ClientName: "Zeta", Status: models.CampScheduled},
		{ID: "b", CampCode: "CMP-B", Date: "2026-01-12", ClientName: "Acme", Status: models.CampScheduled},
		{ID: "c", CampCode: "CMP-C", Date: "2026-01-08", Status: models.CampCompleted},
	}
	bookings := sliceSource[models.TestBooking]{
		{ID: "b1", MasterBookingID: "MB1", PaymentStatus: models.PaymentCompleted},
	}
	sink := &memorySink{}
	now := func() time.Time { return time.Date(2026, 1, 10, 11, 0, 0, 0, ist) }
	exp := NewViewExporter(camps, bookings, testFormatter(), map[string]Sink{SinkXLSX: sink}, ist, now)
	ctx := context.Background()

	t.Run("all filtered rows ignoring pages", func(t *testing.T) {
		res, err := exp.Export(ctx, workflow.ContextCampSchedule, workflow.BucketAll, query.Spec{
			Filters: query.Filters{"status": "scheduled"},
			Sort:    query.Sort{Field: "clientName"},
			Page:    query.Page{Index: 1, Size: 1},
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Rows)
		assert.Equal(t, "mem://camp_schedule_all", res.Location)
		assert.Equal(t, "camp_schedule_all", sink.hint)
		assert.Equal(t, "Acme", sink.table.Rows[0]["clientName"])
	})

	t.Run("default tab", func(t *testing.T) {
		res, err := exp.Export(ctx, workflow.ContextVendorDesk, "", query.Spec{}, SinkXLSX)
		require.NoError(t, err)
		assert.Equal(t, workflow.BucketPendingVendor, res.Tab)
		assert.Equal(t, 1, res.Rows)
		assert.Equal(t, "MB1", sink.table.Rows[0]["masterBookingId"])
	})

	t.Run("errors", func(t *testing.T) {
		_, err := exp.Export(ctx, workflow.ContextReports, "", query.Spec{}, SinkSheets)
		assert.ErrorIs(t, err, ErrUnknownSink)

		_, err = exp.Export(ctx, "nope", "", query.Spec{}, "")
		assert.ErrorIs(t, err, workflow.ErrUnknownContext)

		_, err = exp.Export(ctx, workflow.ContextCampClosure, workflow.BucketAll, query.Spec{}, "")
		assert.ErrorIs(t, err, workflow.ErrUnknownTab)

		sink.err = errors.New("disk full")
		_, err = exp.Export(ctx, workflow.ContextCampSchedule, "", query.Spec{}, "")
		assert.ErrorContains(t, err, "disk full")
	})
}
