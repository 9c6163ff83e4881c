package export

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"healthops/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

func testFormatter() *Formatter {
	return NewFormatter("₹", "02.01.2006", "02.01.2006 15:04", ist, []string{"HUMANA"})
}

func TestFormatter(t *testing.T) {
	f := testFormatter()

	assert.Equal(t, "₹12,000.50", f.Money(12000.5))
	assert.Equal(t, "₹0.00", f.Money(0))
	assert.Equal(t, "", f.MoneyPtr(nil))
	assert.Equal(t, "", f.Int(nil))
	assert.Equal(t, "40", f.Int(models.IntPtr(40)))

	assert.Equal(t, "10.01.2026", f.Date("2026-01-10"))
	assert.Equal(t, "soon", f.Date("soon"))
	assert.Equal(t, "10.01.2026 16:30", f.Timestamp("2026-01-10T11:00:00Z"))
	assert.Equal(t, "", f.Timestamp(""))
}

func TestPartnerAdjustment(t *testing.T) {
	f := testFormatter()
	camp := models.Camp{
		ClientName:           "humana ",
		UnitsSold:            models.IntPtr(40),
		PartnerAdjustedCount: models.IntPtr(5),
	}

	got := f.UnitsSold(camp)
	require.NotNil(t, got)
	assert.Equal(t, 45, *got)
	assert.Equal(t, 40, *camp.UnitsSold, "stored value unchanged")

	camp.ClientName = "Acme"
	assert.Equal(t, 40, *f.UnitsSold(camp))

	camp.UnitsSold = nil
	assert.Nil(t, f.UnitsSold(camp))
}

func TestCampRows(t *testing.T) {
	f := testFormatter()
	now := time.Date(2026, 1, 10, 11, 0, 0, 0, ist)
	camps := []models.Camp{
		{
			CampCode:    "CMP-1",
			Date:        "2026-01-10",
			ClientName:  "HUMANA",
			Location:    &models.Location{City: "Pune", Pincode: "411001"},
			Status:      models.CampScheduled,
			Revenue:     models.FloatPtr(1500),
			CampExpense: models.FloatPtr(100),
			Vendor:      &models.VendorDetails{VendorName: "LabCo", PhleboName: "Ravi", PhleboMobile: "9876543210"},
		},
		{CampCode: "CMP-2", Date: "2026-01-09", Status: models.CampScheduled},
	}

	table := f.CampRows(camps, now)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	assert.Equal(t, "Pune", first["location.city"])
	assert.Equal(t, "LabCo", first["vendor.vendorName"])
	assert.Equal(t, "₹1,500.00", first["revenue"])
	assert.Equal(t, "₹100.00", first["totalExpense"])
	assert.Equal(t, "due_today", first["displayStatus"])
	assert.Equal(t, "10.01.2026", first["date"])

	second := table.Rows[1]
	assert.Equal(t, "", second["location.city"])
	assert.Equal(t, "overdue", second["displayStatus"])

	values := table.Values()
	require.Len(t, values, 3)
	assert.Equal(t, "campCode", values[0][0])
	assert.Equal(t, "CMP-2", values[2][0])
	for _, line := range values {
		assert.Len(t, line, len(table.Columns))
	}
}

func TestBookingRows(t *testing.T) {
	f := testFormatter()
	bookings := []models.TestBooking{{
		MasterBookingID: "MB20260110000001",
		Patient:         &models.Patient{Name: "Asha", Age: models.IntPtr(34)},
		Tests:           []models.Test{{Name: "CBC", Code: "T01", Price: 300}, {Name: "Lipid", Code: "T02", Price: 400}},
		TotalPrice:      700,
		PaymentStatus:   models.PaymentCompleted,
		PaymentMode:     models.PaymentModeCash,
	}}

	table := f.BookingRows(bookings)
	require.Len(t, table.Rows, 1)
	r := table.Rows[0]
	assert.Equal(t, "Asha", r["patient.name"])
	assert.Equal(t, "34", r["patient.age"])
	assert.Equal(t, "CBC, Lipid", r["tests"])
	assert.Equal(t, "T01, T02", r["testCodes"])
	assert.Equal(t, "₹700.00", r["totalPrice"])
	assert.Equal(t, "not_submitted", r["reportStatus"])
	assert.Equal(t, "pending_vendor", r["stage"])
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "camps_pending_closure", SafeName(" camps/pending closure "))
	assert.Equal(t, "export", SafeName("///"))
	assert.Len(t, SafeName(strings.Repeat("a", 50)), 31)
}

func TestXLSXSink(t *testing.T) {
	logger := zerolog.Nop()
	dir := filepath.Join(t.TempDir(), "exports")
	sink := NewXLSXSink(dir, &logger)
	sink.now = func() time.Time { return time.Date(2026, 1, 10, 11, 0, 0, 0, time.UTC) }

	table := Table{
		Columns: []string{"campCode", "location.city"},
		Rows:    []Row{{"campCode": "CMP-1", "location.city": "Pune"}, {"campCode": "CMP-2"}},
	}

	path, err := sink.ExportRows(context.Background(), table, "camps closure")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "camps_closure_2026-01-10_11-00-00.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"camps_closure"}, f.GetSheetList())
	rows, err := f.GetRows("camps_closure")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"campCode", "location.city"}, rows[0])
	assert.Equal(t, []string{"CMP-1", "Pune"}, rows[1])
	assert.Equal(t, "CMP-2", rows[2][0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sink.ExportRows(ctx, table, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
