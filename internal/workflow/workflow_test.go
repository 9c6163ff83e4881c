package workflow

import (
	"testing"
	"time"

	"healthops/internal/models"
	"healthops/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

func fixedNow() time.Time {
	return time.Date(2026, 1, 10, 11, 0, 0, 0, ist)
}

type mapSource[T query.Record] map[string]T

func (m mapSource[T]) Records() []T {
	out := make([]T, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	return out
}

func (m mapSource[T]) Get(id string) (T, bool) {
	r, ok := m[id]
	return r, ok
}

func sourceOf[T query.Record](records ...T) mapSource[T] {
	m := mapSource[T]{}
	for _, r := range records {
		m[r.RecordID()] = r
	}
	return m
}

func campFixtures() mapSource[models.Camp] {
	return sourceOf(
		models.Camp{ID: "today", CampCode: "CMP-1", Date: "2026-01-10", Status: models.CampScheduled},
		models.Camp{ID: "later", CampCode: "CMP-2", Date: "2026-01-15", Status: models.CampScheduled},
		models.Camp{ID: "yesterday", CampCode: "CMP-3", Date: "2026-01-09", Status: models.CampScheduled},
		models.Camp{ID: "done-2d", CampCode: "CMP-4", Date: "2026-01-08", Status: models.CampCompleted},
		models.Camp{ID: "done-4d", CampCode: "CMP-5", Date: "2026-01-06", Status: models.CampCompleted},
		models.Camp{ID: "closed", CampCode: "CMP-6", Date: "2026-01-02", Status: models.CampCompleted, ReportStatus: models.CampReportSent},
		models.Camp{ID: "cancelled", CampCode: "CMP-7", Date: "2026-01-12", Status: models.CampCancelled},
		models.Camp{ID: "bad-date", CampCode: "CMP-8", Date: "soon", Status: models.CampScheduled},
	)
}

func bookingFixtures() mapSource[models.TestBooking] {
	return sourceOf(
		models.TestBooking{ID: "b1", CampCode: "cmp-5", PaymentStatus: models.PaymentPending, CreatedAt: "2026-01-09T10:00:00Z"},
		models.TestBooking{ID: "b2", CampCode: "CMP-1", PaymentStatus: models.PaymentFailed, CreatedAt: "2026-01-09T11:00:00Z"},
		models.TestBooking{ID: "b3", PaymentStatus: models.PaymentCompleted, CreatedAt: "2026-01-09T12:00:00Z"},
		models.TestBooking{ID: "b4", PaymentStatus: models.PaymentCompleted, VendorStatus: models.VendorCompleted, CreatedAt: "2026-01-09T13:00:00Z"},
		models.TestBooking{ID: "b5", PaymentStatus: models.PaymentCompleted, VendorStatus: models.VendorCompleted, ReportStatus: models.ReportSubmitted, CreatedAt: "2026-01-09T14:00:00Z"},
		models.TestBooking{ID: "b6", CampCode: "CMP-404", CreatedAt: "bad"},
	)
}

func TestTabs(t *testing.T) {
	for _, ctx := range Contexts() {
		tabs, err := Tabs(ctx)
		require.NoError(t, err)
		def, err := DefaultTab(ctx)
		require.NoError(t, err)
		assert.Contains(t, tabs, def, "default tab of %s", ctx)
	}

	_, err := Tabs("nope")
	assert.ErrorIs(t, err, ErrUnknownContext)
	assert.False(t, HasTab("nope", BucketAll))
}

func TestClassifyCamps(t *testing.T) {
	buckets := Classify(campFixtures().Records(), CampClassifier, fixedNow())

	ids := func(b Bucket) []string {
		var out []string
		for _, c := range buckets[b] {
			out = append(out, c.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"today"}, ids(BucketDueToday))
	assert.ElementsMatch(t, []string{"later", "bad-date"}, ids(BucketUpcoming))
	assert.ElementsMatch(t, []string{"yesterday"}, ids(BucketOverdue))
	assert.ElementsMatch(t, []string{"done-4d"}, ids(BucketClosureOverdue))
	assert.ElementsMatch(t, []string{"done-2d", "done-4d"}, ids(BucketPendingClosure))
	assert.ElementsMatch(t, []string{"closed"}, ids(BucketClosed))
	assert.ElementsMatch(t, []string{"cancelled"}, ids(BucketCancelled))
	assert.Len(t, buckets[BucketAll], 8)
}

func TestClassifyBookings(t *testing.T) {
	buckets := Classify(bookingFixtures().Records(), BookingClassifier, fixedNow())

	assert.Len(t, buckets[BucketPaymentPending], 2)
	assert.Len(t, buckets[BucketPaymentFailed], 1)
	require.Len(t, buckets[BucketPendingVendor], 1)
	assert.Equal(t, "b3", buckets[BucketPendingVendor][0].ID)
	require.Len(t, buckets[BucketPendingReport], 1)
	assert.Equal(t, "b4", buckets[BucketPendingReport][0].ID)
	require.Len(t, buckets[BucketReportSubmitted], 1)
	assert.Equal(t, "b5", buckets[BucketReportSubmitted][0].ID)
}

func TestCampView(t *testing.T) {
	v, err := NewCampView(ContextCampSchedule, campFixtures(), WithLocation(ist), WithClock(fixedNow))
	require.NoError(t, err)

	t.Run("default tab", func(t *testing.T) {
		l, err := v.Query("", query.Spec{Page: query.Page{Index: 1}})
		require.NoError(t, err)
		assert.Equal(t, BucketDueToday, l.Tab)
		require.Len(t, l.Items, 1)
		assert.Equal(t, "today", l.Items[0].ID)
	})

	t.Run("default sort is by date with bad dates first", func(t *testing.T) {
		l, err := v.Query(BucketUpcoming, query.Spec{Page: query.Page{Index: 1}})
		require.NoError(t, err)
		require.Len(t, l.Ordered, 2)
		assert.Equal(t, "bad-date", l.Ordered[0].ID)
		assert.Equal(t, "later", l.Ordered[1].ID)
	})

	t.Run("filters and pages", func(t *testing.T) {
		l, err := v.Query(BucketAll, query.Spec{
			Filters: query.Filters{"status": "scheduled"},
			Sort:    query.Sort{Field: "campCode", Direction: query.Desc},
			Page:    query.Page{Index: 2, Size: 3},
		})
		require.NoError(t, err)
		assert.Equal(t, 4, l.Total)
		assert.Equal(t, 2, l.Pages)
		require.Len(t, l.Items, 1)
		assert.Equal(t, "today", l.Items[0].ID)
	})

	t.Run("unknown tab", func(t *testing.T) {
		_, err := v.Query(BucketPendingVendor, query.Spec{})
		assert.ErrorIs(t, err, ErrUnknownTab)
	})

	t.Run("counts", func(t *testing.T) {
		counts := v.Counts()
		assert.Equal(t, 1, counts[BucketDueToday])
		assert.Equal(t, 1, counts[BucketOverdue])
		assert.Equal(t, 8, counts[BucketAll])
		_, ok := counts[BucketClosed]
		assert.False(t, ok)
	})

	t.Run("wrong entity", func(t *testing.T) {
		_, err := NewCampView(ContextVendorDesk, campFixtures())
		assert.Error(t, err)
	})
}

func TestBookingViewNewestFirst(t *testing.T) {
	v, err := NewBookingView(ContextTestBookings, bookingFixtures(), WithLocation(ist), WithClock(fixedNow))
	require.NoError(t, err)

	l, err := v.Query(BucketAll, query.Spec{Page: query.Page{Index: 1}})
	require.NoError(t, err)
	require.Len(t, l.Ordered, 6)
	assert.Equal(t, "b5", l.Ordered[0].ID)
	assert.Equal(t, "b6", l.Ordered[5].ID)

	groups, err := v.Group(BucketAll, query.Spec{}, "paymentStatus")
	require.NoError(t, err)
	require.Len(t, groups, 4)
	assert.Equal(t, "", groups[0].Key)
}

func TestWindowed(t *testing.T) {
	src := mapSource[models.TestBooking]{}
	for i := 0; i < 30; i++ {
		id := string(rune('a'+i%26)) + string(rune('a'+i/26))
		src[id] = models.TestBooking{ID: id, PaymentStatus: models.PaymentPending}
	}
	v, err := NewBookingView(ContextTestBookings, src, WithWindow(20, 5))
	require.NoError(t, err)

	l, err := v.Query(BucketPaymentPending, query.Spec{Page: query.Page{Index: 1}})
	require.NoError(t, err)
	rows, capped := v.Windowed(l)
	assert.True(t, capped)
	assert.Len(t, rows, 5)
}

func TestNavigator(t *testing.T) {
	var got []Selection
	n := NewNavigator(campFixtures(), bookingFixtures(), fixedNow, func(sel Selection) {
		got = append(got, sel)
	})

	t.Run("select passes the full record", func(t *testing.T) {
		sel, err := n.Select(ContextVendorDesk, "b4")
		require.NoError(t, err)
		assert.Equal(t, BucketPendingReport, sel.Tab)
		require.NotNil(t, sel.Booking)
		assert.Equal(t, models.VendorCompleted, sel.Booking.VendorStatus)
		assert.Nil(t, sel.Camp)

		ctx, tab, id := n.Current()
		assert.Equal(t, ContextVendorDesk, ctx)
		assert.Equal(t, BucketPendingReport, tab)
		assert.Equal(t, "b4", id)
		require.Len(t, got, 1)
	})

	t.Run("record outside the context tabs falls back", func(t *testing.T) {
		sel, err := n.Select(ContextVendorDesk, "b1")
		require.NoError(t, err)
		assert.Equal(t, BucketPendingVendor, sel.Tab)
	})

	t.Run("camp opens the tab it is listed under", func(t *testing.T) {
		sel, err := n.Select(ContextCampClosure, "done-4d")
		require.NoError(t, err)
		assert.Equal(t, BucketClosureOverdue, sel.Tab)

		sel, err = n.Select(ContextCampSchedule, "closed")
		require.NoError(t, err)
		assert.Equal(t, BucketAll, sel.Tab)
	})

	t.Run("follow booking to its camp", func(t *testing.T) {
		sel, err := n.SelectCampOf("b1")
		require.NoError(t, err)
		assert.Equal(t, ContextCampClosure, sel.Context)
		require.NotNil(t, sel.Camp)
		assert.Equal(t, "done-4d", sel.Camp.ID)

		sel, err = n.SelectCampOf("b2")
		require.NoError(t, err)
		assert.Equal(t, ContextCampSchedule, sel.Context)
		assert.Equal(t, BucketDueToday, sel.Tab)

		_, err = n.SelectCampOf("b6")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("missing record does not navigate", func(t *testing.T) {
		before := len(got)
		ctxBefore, _, _ := n.Current()
		_, err := n.Select(ContextCampSchedule, "ghost")
		assert.ErrorIs(t, err, ErrRecordNotFound)
		assert.Len(t, got, before)
		ctxAfter, _, _ := n.Current()
		assert.Equal(t, ctxBefore, ctxAfter)
	})

	t.Run("open and switch tab", func(t *testing.T) {
		require.NoError(t, n.Open(ContextReports))
		ctx, tab, id := n.Current()
		assert.Equal(t, ContextReports, ctx)
		assert.Equal(t, BucketPendingReport, tab)
		assert.Empty(t, id)

		assert.NoError(t, n.SwitchTab(BucketReportSubmitted))
		assert.ErrorIs(t, n.SwitchTab(BucketOverdue), ErrUnknownTab)
	})
}
