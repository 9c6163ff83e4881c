package query

import (
	"testing"
	"time"

	"healthops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

func camps() []models.Camp {
	return []models.Camp{
		{ID: "a", CampCode: "CMP-A", Date: "2026-01-12", ClientName: "acme", Location: &models.Location{City: "Pune"}, Status: models.CampScheduled, Revenue: models.FloatPtr(900)},
		{ID: "b", CampCode: "CMP-B", Date: "2026-01-10", ClientName: "Zenith", Location: &models.Location{City: "Mumbai"}, Status: models.CampCompleted, Revenue: models.FloatPtr(10000), CompletedAt: "2026-01-10T12:00:00+05:30"},
		{ID: "c", CampCode: "CMP-C", Date: "garbage", ClientName: "Beta", Status: models.CampScheduled},
		{ID: "d", CampCode: "CMP-D", Date: "2026-01-10", ClientName: "beta", Location: &models.Location{City: "Pune"}, Status: models.CampCancelled, Revenue: models.FloatPtr(50)},
	}
}

func ids[T Record](records []T) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.RecordID())
	}
	return out
}

func TestIsDateField(t *testing.T) {
	assert.True(t, IsDateField("date"))
	assert.True(t, IsDateField("completedAt"))
	assert.True(t, IsDateField("patient.updatedAt"))
	assert.False(t, IsDateField("status"))
	assert.False(t, IsDateField("location.city"))
}

func TestFilter(t *testing.T) {
	records := camps()

	t.Run("nil values are no constraint", func(t *testing.T) {
		got := Filter(records, Filters{"status": nil}, ist)
		assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
	})

	t.Run("exact match", func(t *testing.T) {
		got := Filter(records, Filters{"status": "scheduled"}, ist)
		assert.Equal(t, []string{"a", "c"}, ids(got))
	})

	t.Run("nested path with missing parent fails", func(t *testing.T) {
		got := Filter(records, Filters{"location.city": "Pune"}, ist)
		assert.Equal(t, []string{"a", "d"}, ids(got))
	})

	t.Run("date fields match by calendar day", func(t *testing.T) {
		got := Filter(records, Filters{"date": time.Date(2026, 1, 10, 23, 15, 0, 0, ist)}, ist)
		assert.Equal(t, []string{"b", "d"}, ids(got))

		got = Filter(records, Filters{"completedAt": "2026-01-10"}, ist)
		assert.Equal(t, []string{"b"}, ids(got))
	})

	t.Run("numbers compare numerically", func(t *testing.T) {
		got := Filter(records, Filters{"revenue": 900}, ist)
		assert.Equal(t, []string{"a"}, ids(got))
	})

	t.Run("conjunction", func(t *testing.T) {
		sets := []struct{ a, b Filters }{
			{Filters{"status": "scheduled"}, Filters{"location.city": "Pune"}},
			{Filters{"date": "2026-01-10"}, Filters{"status": "cancelled"}},
			{Filters{"clientName": "beta"}, Filters{"revenue": 50}},
			{Filters{"status": "completed"}, Filters{"status": "scheduled"}},
		}
		for _, s := range sets {
			both := Filters{}
			for k, v := range s.a {
				both[k] = v
			}
			for k, v := range s.b {
				both[k] = v
			}
			if len(both) < len(s.a)+len(s.b) {
				// Same key twice cannot be expressed as one map; check emptiness instead.
				assert.Empty(t, Filter(Filter(records, s.a, ist), s.b, ist))
				continue
			}
			assert.Equal(t, ids(Filter(records, both, ist)), ids(Filter(Filter(records, s.a, ist), s.b, ist)))
		}
	})

	t.Run("input is not modified", func(t *testing.T) {
		before := ids(records)
		_ = Filter(records, Filters{"status": "completed"}, ist)
		assert.Equal(t, before, ids(records))
	})
}

func TestSortRecords(t *testing.T) {
	t.Run("missing dates sort earliest ascending", func(t *testing.T) {
		records := camps()
		SortRecords(records, Sort{Field: "date", Direction: Asc}, ist)
		assert.Equal(t, []string{"c", "b", "d", "a"}, ids(records))

		SortRecords(records, Sort{Field: "date", Direction: Desc}, ist)
		assert.Equal(t, "c", records[len(records)-1].ID)
		assert.Equal(t, "a", records[0].ID)
	})

	t.Run("numbers compare numerically", func(t *testing.T) {
		records := camps()
		SortRecords(records, Sort{Field: "revenue", Direction: Asc}, ist)
		// "c" has no revenue and compares as "" against the numbers.
		assert.Equal(t, []string{"c", "d", "a", "b"}, ids(records))
	})

	t.Run("strings compare case-insensitively and stably", func(t *testing.T) {
		records := camps()
		SortRecords(records, Sort{Field: "clientName", Direction: Asc}, ist)
		assert.Equal(t, []string{"a", "c", "d", "b"}, ids(records))
	})

	t.Run("empty field leaves order", func(t *testing.T) {
		records := camps()
		SortRecords(records, Sort{}, ist)
		assert.Equal(t, []string{"a", "b", "c", "d"}, ids(records))
	})
}

func TestPagination(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	assert.Equal(t, 0, PageCount(0, 3))
	assert.Equal(t, 1, PageCount(3, 3))
	assert.Equal(t, 3, PageCount(7, 3))
	assert.Equal(t, 1, PageCount(7, 0))

	assert.Equal(t, []int{1, 2, 3}, Paginate(items, Page{Index: 1, Size: 3}))
	assert.Equal(t, []int{7}, Paginate(items, Page{Index: 3, Size: 3}))
	assert.Empty(t, Paginate(items, Page{Index: 4, Size: 3}))
	assert.Empty(t, Paginate(items, Page{Index: 0, Size: 3}))

	assert.Equal(t, 3, ClampPage(9, 3))
	assert.Equal(t, 1, ClampPage(-2, 3))
	assert.Equal(t, 1, ClampPage(1, 0))

	assert.True(t, HasNext(7, Page{Index: 2, Size: 3}))
	assert.False(t, HasNext(7, Page{Index: 3, Size: 3}))
}

func TestWindow(t *testing.T) {
	items := make([]int, 1500)
	for i := range items {
		items[i] = i
	}

	w, capped := Window(items, 1000, 200)
	assert.True(t, capped)
	require.Len(t, w, 200)
	assert.Equal(t, 0, w[0])

	w, capped = Window(items[:900], 1000, 200)
	assert.False(t, capped)
	assert.Len(t, w, 900)
}

func TestGroupBy(t *testing.T) {
	groups := GroupBy(camps(), "location.city")
	require.Len(t, groups, 3)
	assert.Equal(t, "", groups[0].Key)
	assert.Equal(t, "Mumbai", groups[1].Key)
	assert.Equal(t, "Pune", groups[2].Key)
	assert.Equal(t, []string{"a", "d"}, ids(groups[2].Items))

	counts := Count(camps(), "status")
	assert.Equal(t, map[string]int{"scheduled": 2, "completed": 1, "cancelled": 1}, counts)
}

func TestRun(t *testing.T) {
	res := Run(camps(), Spec{
		Filters: Filters{"status": "scheduled"},
		Sort:    Sort{Field: "clientName", Direction: Desc},
		Page:    Page{Index: 1, Size: 1},
	}, ist)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []string{"c", "a"}, ids(res.Ordered))
	assert.Equal(t, []string{"c"}, ids(res.Items))
	assert.True(t, res.HasNext())

	empty := Run(camps(), Spec{Filters: Filters{"status": "nope"}, Page: Page{Index: 1}}, ist)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0, empty.Pages)
	assert.Empty(t, empty.Items)
	assert.Equal(t, models.DefaultPageSize, empty.Size)
}
