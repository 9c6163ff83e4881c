package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCamp(t *testing.T) {
	t.Run("WellFormed", func(t *testing.T) {
		doc := map[string]any{
			"campCode":  "CMP-20250101-AB12",
			"date":      "2025-01-01",
			"status":    "completed",
			"unitsSold": float64(42),
			"revenue":   "1500.50",
			"location":  map[string]any{"city": "Pune"},
			"vendor":    map[string]any{"vendorName": "Acme Labs", "phleboName": "Ravi", "phleboMobile": "9876543210"},
			"version":   float64(3),
		}
		camp, err := DecodeCamp("c1", doc)
		require.NoError(t, err)
		assert.Equal(t, "c1", camp.ID)
		assert.Equal(t, CampCompleted, camp.Status)
		require.NotNil(t, camp.UnitsSold)
		assert.Equal(t, 42, *camp.UnitsSold)
		require.NotNil(t, camp.Revenue)
		assert.InDelta(t, 1500.5, *camp.Revenue, 0.001)
		assert.True(t, camp.Vendor.Complete())
		assert.Equal(t, int64(3), camp.Version)
	})

	t.Run("MalformedFieldsKeepRest", func(t *testing.T) {
		doc := map[string]any{
			"campCode":  "CMP-1",
			"date":      "not a date",
			"status":    "scheduled",
			"unitsSold": "lots",
			"location":  "Pune",
		}
		camp, err := DecodeCamp("c2", doc)
		require.Error(t, err)

		var shapeErr *ShapeError
		require.True(t, errors.As(err, &shapeErr))
		assert.ElementsMatch(t, []string{"date", "unitsSold", "location"}, shapeErr.Fields)

		assert.Equal(t, "CMP-1", camp.CampCode)
		assert.Equal(t, CampScheduled, camp.Status)
		assert.Nil(t, camp.UnitsSold)
		assert.Nil(t, camp.Location)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		_, err := DecodeCamp("c3", map[string]any{"status": "archived"})
		assert.Error(t, err)
	})
}

func TestCampField(t *testing.T) {
	camp := Camp{
		ID:        "c1",
		CampCode:  "CMP-1",
		UnitsSold: IntPtr(7),
		Location:  &Location{City: "Nashik"},
	}

	v, ok := camp.Field("location.city")
	assert.True(t, ok)
	assert.Equal(t, "Nashik", v)

	v, ok = camp.Field("unitsSold")
	assert.True(t, ok)
	assert.Equal(t, float64(7), v)

	_, ok = camp.Field("vendor.vendorName")
	assert.False(t, ok, "missing parent must not resolve")

	_, ok = camp.Field("revenue")
	assert.False(t, ok)
}

func TestDecodeTestBooking(t *testing.T) {
	doc := map[string]any{
		"masterBookingId": "MB250101123456",
		"patient":         map[string]any{"name": "Asha", "age": float64(34)},
		"tests": []any{
			map[string]any{"name": "CBC", "code": "T01", "price": float64(300)},
			map[string]any{"name": "Lipid", "code": "T02", "price": float64(400)},
			"garbage",
		},
		"totalPrice":    float64(700),
		"paymentStatus": "pending",
	}
	b, err := DecodeTestBooking("b1", doc)
	require.Error(t, err)
	assert.Len(t, b.Tests, 2)
	assert.Equal(t, float64(700), SumPrices(b.Tests))
	assert.Equal(t, ReportNotSubmitted, b.EffectiveReportStatus())

	v, ok := b.Field("patient.age")
	assert.True(t, ok)
	assert.Equal(t, float64(34), v)

	v, ok = b.Field("tests.1.code")
	assert.True(t, ok)
	assert.Equal(t, "T02", v)
}

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	tm, ok := ParseTime("2025-03-04", loc)
	require.True(t, ok)
	assert.Equal(t, 4, tm.Day())
	assert.Equal(t, loc, tm.Location())

	_, ok = ParseTime("2025-03-04T10:00:00Z", loc)
	assert.True(t, ok)

	_, ok = ParseTime("", loc)
	assert.False(t, ok)

	_, ok = ParseTime("04/03/2025", loc)
	assert.False(t, ok)

	d, ok := Date("2025-03-04").In(loc)
	require.True(t, ok)
	assert.Equal(t, 0, d.Hour())
}
