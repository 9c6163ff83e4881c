package export

import (
	"strings"
	"time"

	"healthops/internal/models"
	"healthops/internal/statusclock"
)

// Row is one flat record. Nested fields use "parent.child" keys.
type Row map[string]string

// Table is an ordered set of columns and the rows to write under them.
type Table struct {
	Columns []string
	Rows    []Row
}

// Values returns the rows as cell values in column order, headers first.
func (t Table) Values() [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	out = append(out, header)
	for _, r := range t.Rows {
		line := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			line[i] = r[c]
		}
		out = append(out, line)
	}
	return out
}

var campColumns = []string{
	"campCode", "date", "clientName",
	"location.address", "location.city", "location.state", "location.pincode",
	"salesPerson", "coordinator", "expectedFootfall",
	"status", "displayStatus",
	"unitsSold", "revenue", "campExpense", "vendorExpense", "staffExpense", "totalExpense",
	"vendor.vendorName", "vendor.phleboName", "vendor.phleboMobile",
	"conversions", "sales",
	"reportStatus", "reportUrl", "reportNotes", "cancelReason",
	"createdAt", "createdBy", "completedAt", "completedBy", "cancelledAt", "cancelledBy",
}

// CampRows renders camps in the given order.
func (f *Formatter) CampRows(camps []models.Camp, now time.Time) Table {
	rows := make([]Row, 0, len(camps))
	for _, c := range camps {
		r := Row{
			"campCode":         c.CampCode,
			"date":             f.Date(c.Date),
			"clientName":       c.ClientName,
			"salesPerson":      c.SalesPerson,
			"coordinator":      c.Coordinator,
			"expectedFootfall": f.Int(c.ExpectedFootfall),
			"status":           string(c.Status),
			"displayStatus":    string(statusclock.CampDisplayStatus(c, now.In(f.loc()))),
			"unitsSold":        f.Int(f.UnitsSold(c)),
			"revenue":          f.MoneyPtr(c.Revenue),
			"campExpense":      f.MoneyPtr(c.CampExpense),
			"vendorExpense":    f.MoneyPtr(c.VendorExpense),
			"staffExpense":     f.MoneyPtr(c.StaffExpense),
			"totalExpense":     f.Money(c.TotalExpense()),
			"conversions":      f.Int(c.Conversions),
			"sales":            f.Int(c.Sales),
			"reportStatus":     string(c.ReportStatus),
			"reportUrl":        c.ReportURL,
			"reportNotes":      c.ReportNotes,
			"cancelReason":     c.CancelReason,
			"createdAt":        f.Timestamp(c.CreatedAt),
			"createdBy":        c.CreatedBy,
			"completedAt":      f.Timestamp(c.CompletedAt),
			"completedBy":      c.CompletedBy,
			"cancelledAt":      f.Timestamp(c.CancelledAt),
			"cancelledBy":      c.CancelledBy,
		}
		if c.Location != nil {
			r["location.address"] = c.Location.Address
			r["location.city"] = c.Location.City
			r["location.state"] = c.Location.State
			r["location.pincode"] = c.Location.Pincode
		}
		if c.Vendor != nil {
			r["vendor.vendorName"] = c.Vendor.VendorName
			r["vendor.phleboName"] = c.Vendor.PhleboName
			r["vendor.phleboMobile"] = c.Vendor.PhleboMobile
		}
		rows = append(rows, r)
	}
	return Table{Columns: campColumns, Rows: rows}
}

var bookingColumns = []string{
	"masterBookingId", "campCode",
	"patient.name", "patient.age", "patient.gender", "patient.mobile", "patient.email", "patient.address",
	"tests", "testCodes", "totalPrice",
	"paymentStatus", "paymentMode", "paymentReference", "paymentUpdatedAt",
	"vendorStatus", "vendorName", "vendorBookingId",
	"reportStatus", "stage",
	"createdAt", "createdBy",
}

// BookingRows renders test bookings in the given order.
func (f *Formatter) BookingRows(bookings []models.TestBooking) Table {
	rows := make([]Row, 0, len(bookings))
	for _, b := range bookings {
		names := make([]string, 0, len(b.Tests))
		codes := make([]string, 0, len(b.Tests))
		for _, t := range b.Tests {
			names = append(names, t.Name)
			codes = append(codes, t.Code)
		}
		r := Row{
			"masterBookingId":  b.MasterBookingID,
			"campCode":         b.CampCode,
			"tests":            strings.Join(names, ", "),
			"testCodes":        strings.Join(codes, ", "),
			"totalPrice":       f.Money(b.TotalPrice),
			"paymentStatus":    string(b.PaymentStatus),
			"paymentMode":      string(b.PaymentMode),
			"paymentReference": b.PaymentReference,
			"paymentUpdatedAt": f.Timestamp(b.PaymentUpdatedAt),
			"vendorStatus":     string(b.VendorStatus),
			"vendorName":       b.VendorName,
			"vendorBookingId":  b.VendorBookingID,
			"reportStatus":     string(b.EffectiveReportStatus()),
			"stage":            string(statusclock.BookingStage(b)),
			"createdAt":        f.Timestamp(b.CreatedAt),
			"createdBy":        b.CreatedBy,
		}
		if p := b.Patient; p != nil {
			r["patient.name"] = p.Name
			r["patient.age"] = f.Int(p.Age)
			r["patient.gender"] = p.Gender
			r["patient.mobile"] = p.Mobile
			r["patient.email"] = p.Email
			r["patient.address"] = p.Address
		}
		rows = append(rows, r)
	}
	return Table{Columns: bookingColumns, Rows: rows}
}
