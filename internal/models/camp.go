package models

import "strings"

// Camp document keys.
const (
	FieldCampCode              = "campCode"
	FieldDate                  = "date"
	FieldClientName            = "clientName"
	FieldLocation              = "location"
	FieldSalesPerson           = "salesPerson"
	FieldCoordinator           = "coordinator"
	FieldExpectedFootfall      = "expectedFootfall"
	FieldUnitsSold             = "unitsSold"
	FieldRevenue               = "revenue"
	FieldCampExpense           = "campExpense"
	FieldVendorExpense         = "vendorExpense"
	FieldStaffExpense          = "staffExpense"
	FieldPartnerAdjustedCount  = "partnerAdjustedCount"
	FieldVendor                = "vendor"
	FieldConversions           = "conversions"
	FieldSales                 = "sales"
	FieldReportURL             = "reportUrl"
	FieldReportNotes           = "reportNotes"
	FieldStatus                = "status"
	FieldReportStatus          = "reportStatus"
	FieldCancelReason          = "cancelReason"
	FieldCreatedAt             = "createdAt"
	FieldCreatedBy             = "createdBy"
	FieldCompletedAt           = "completedAt"
	FieldCompletedBy           = "completedBy"
	FieldCancelledAt           = "cancelledAt"
	FieldCancelledBy           = "cancelledBy"
	FieldFinancialsUpdatedAt   = "financialsUpdatedAt"
	FieldFinancialsUpdatedBy   = "financialsUpdatedBy"
	FieldVendorDetailsSavedAt  = "vendorDetailsSavedAt"
	FieldVendorDetailsSavedBy  = "vendorDetailsSavedBy"
	FieldTestCountsSavedAt     = "testCountsSavedAt"
	FieldTestCountsSavedBy     = "testCountsSavedBy"
	FieldReportStatusUpdatedAt = "reportStatusUpdatedAt"
	FieldReportStatusUpdatedBy = "reportStatusUpdatedBy"
	FieldVersion               = "version"
)

type Location struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode,omitempty"`
}

type VendorDetails struct {
	VendorName   string `json:"vendorName,omitempty"`
	PhleboName   string `json:"phleboName,omitempty"`
	PhleboMobile string `json:"phleboMobile,omitempty"`
}

// Complete reports whether all three vendor fields are filled in.
func (v *VendorDetails) Complete() bool {
	if v == nil {
		return false
	}
	return strings.TrimSpace(v.VendorName) != "" &&
		strings.TrimSpace(v.PhleboName) != "" &&
		strings.TrimSpace(v.PhleboMobile) != ""
}

func (v *VendorDetails) document() map[string]any {
	doc := map[string]any{}
	putString(doc, "vendorName", v.VendorName)
	putString(doc, "phleboName", v.PhleboName)
	putString(doc, "phleboMobile", v.PhleboMobile)
	return doc
}

// Camp is one scheduled on-site health event.
type Camp struct {
	ID               string
	CampCode         string
	Date             Date
	ClientName       string
	Location         *Location
	SalesPerson      string
	Coordinator      string
	ExpectedFootfall *int

	UnitsSold            *int
	Revenue              *float64
	CampExpense          *float64
	VendorExpense        *float64
	StaffExpense         *float64
	PartnerAdjustedCount *int

	Vendor      *VendorDetails
	Conversions *int
	Sales       *int

	ReportURL   string
	ReportNotes string

	Status       CampStatus
	ReportStatus CampReportStatus
	CancelReason string

	CreatedAt             Timestamp
	CreatedBy             string
	CompletedAt           Timestamp
	CompletedBy           string
	CancelledAt           Timestamp
	CancelledBy           string
	FinancialsUpdatedAt   Timestamp
	FinancialsUpdatedBy   string
	VendorDetailsSavedAt  Timestamp
	VendorDetailsSavedBy  string
	TestCountsSavedAt     Timestamp
	TestCountsSavedBy     string
	ReportStatusUpdatedAt Timestamp
	ReportStatusUpdatedBy string

	Version int64
}

// TestCountsSaved reports whether the conversions/sales pair has been recorded.
func (c *Camp) TestCountsSaved() bool {
	return c.Conversions != nil && c.Sales != nil
}

// TotalExpense sums the filled-in expense lines.
func (c *Camp) TotalExpense() float64 {
	var total float64
	for _, v := range []*float64{c.CampExpense, c.VendorExpense, c.StaffExpense} {
		if v != nil {
			total += *v
		}
	}
	return total
}

// RecordID implements query.Record.
func (c Camp) RecordID() string { return c.ID }

// Field resolves a document key or dot-path against the camp.
func (c Camp) Field(path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	if nested {
		switch head {
		case FieldLocation:
			if c.Location == nil {
				return nil, false
			}
			switch rest {
			case "address":
				return stringField(c.Location.Address)
			case "city":
				return stringField(c.Location.City)
			case "state":
				return stringField(c.Location.State)
			case "pincode":
				return stringField(c.Location.Pincode)
			}
		case FieldVendor:
			if c.Vendor == nil {
				return nil, false
			}
			switch rest {
			case "vendorName":
				return stringField(c.Vendor.VendorName)
			case "phleboName":
				return stringField(c.Vendor.PhleboName)
			case "phleboMobile":
				return stringField(c.Vendor.PhleboMobile)
			}
		}
		return nil, false
	}

	switch path {
	case "id":
		return stringField(c.ID)
	case FieldCampCode:
		return stringField(c.CampCode)
	case FieldDate:
		return stringField(string(c.Date))
	case FieldClientName:
		return stringField(c.ClientName)
	case FieldSalesPerson:
		return stringField(c.SalesPerson)
	case FieldCoordinator:
		return stringField(c.Coordinator)
	case FieldExpectedFootfall:
		return intField(c.ExpectedFootfall)
	case FieldUnitsSold:
		return intField(c.UnitsSold)
	case FieldRevenue:
		return floatField(c.Revenue)
	case FieldCampExpense:
		return floatField(c.CampExpense)
	case FieldVendorExpense:
		return floatField(c.VendorExpense)
	case FieldStaffExpense:
		return floatField(c.StaffExpense)
	case FieldPartnerAdjustedCount:
		return intField(c.PartnerAdjustedCount)
	case FieldConversions:
		return intField(c.Conversions)
	case FieldSales:
		return intField(c.Sales)
	case FieldReportURL:
		return stringField(c.ReportURL)
	case FieldReportNotes:
		return stringField(c.ReportNotes)
	case FieldStatus:
		return stringField(string(c.Status))
	case FieldReportStatus:
		return stringField(string(c.ReportStatus))
	case FieldCancelReason:
		return stringField(c.CancelReason)
	case FieldCreatedAt:
		return stringField(string(c.CreatedAt))
	case FieldCreatedBy:
		return stringField(c.CreatedBy)
	case FieldCompletedAt:
		return stringField(string(c.CompletedAt))
	case FieldCompletedBy:
		return stringField(c.CompletedBy)
	case FieldCancelledAt:
		return stringField(string(c.CancelledAt))
	case FieldCancelledBy:
		return stringField(c.CancelledBy)
	case FieldFinancialsUpdatedAt:
		return stringField(string(c.FinancialsUpdatedAt))
	case FieldVendorDetailsSavedAt:
		return stringField(string(c.VendorDetailsSavedAt))
	case FieldTestCountsSavedAt:
		return stringField(string(c.TestCountsSavedAt))
	case FieldReportStatusUpdatedAt:
		return stringField(string(c.ReportStatusUpdatedAt))
	case FieldReportStatusUpdatedBy:
		return stringField(c.ReportStatusUpdatedBy)
	case FieldVersion:
		return float64(c.Version), true
	}
	return nil, false
}

// Document encodes the camp for storage. Empty optional fields are omitted.
func (c Camp) Document() map[string]any {
	doc := map[string]any{}
	putString(doc, FieldCampCode, c.CampCode)
	putString(doc, FieldDate, string(c.Date))
	putString(doc, FieldClientName, c.ClientName)
	if c.Location != nil {
		loc := map[string]any{}
		putString(loc, "address", c.Location.Address)
		putString(loc, "city", c.Location.City)
		putString(loc, "state", c.Location.State)
		putString(loc, "pincode", c.Location.Pincode)
		doc[FieldLocation] = loc
	}
	putString(doc, FieldSalesPerson, c.SalesPerson)
	putString(doc, FieldCoordinator, c.Coordinator)
	putInt(doc, FieldExpectedFootfall, c.ExpectedFootfall)
	putInt(doc, FieldUnitsSold, c.UnitsSold)
	putFloat(doc, FieldRevenue, c.Revenue)
	putFloat(doc, FieldCampExpense, c.CampExpense)
	putFloat(doc, FieldVendorExpense, c.VendorExpense)
	putFloat(doc, FieldStaffExpense, c.StaffExpense)
	putInt(doc, FieldPartnerAdjustedCount, c.PartnerAdjustedCount)
	if c.Vendor != nil {
		doc[FieldVendor] = c.Vendor.document()
	}
	putInt(doc, FieldConversions, c.Conversions)
	putInt(doc, FieldSales, c.Sales)
	putString(doc, FieldReportURL, c.ReportURL)
	putString(doc, FieldReportNotes, c.ReportNotes)
	putString(doc, FieldStatus, string(c.Status))
	putString(doc, FieldReportStatus, string(c.ReportStatus))
	putString(doc, FieldCancelReason, c.CancelReason)
	putString(doc, FieldCreatedAt, string(c.CreatedAt))
	putString(doc, FieldCreatedBy, c.CreatedBy)
	putString(doc, FieldCompletedAt, string(c.CompletedAt))
	putString(doc, FieldCompletedBy, c.CompletedBy)
	putString(doc, FieldCancelledAt, string(c.CancelledAt))
	putString(doc, FieldCancelledBy, c.CancelledBy)
	putString(doc, FieldFinancialsUpdatedAt, string(c.FinancialsUpdatedAt))
	putString(doc, FieldFinancialsUpdatedBy, c.FinancialsUpdatedBy)
	putString(doc, FieldVendorDetailsSavedAt, string(c.VendorDetailsSavedAt))
	putString(doc, FieldVendorDetailsSavedBy, c.VendorDetailsSavedBy)
	putString(doc, FieldTestCountsSavedAt, string(c.TestCountsSavedAt))
	putString(doc, FieldTestCountsSavedBy, c.TestCountsSavedBy)
	putString(doc, FieldReportStatusUpdatedAt, string(c.ReportStatusUpdatedAt))
	putString(doc, FieldReportStatusUpdatedBy, c.ReportStatusUpdatedBy)
	return doc
}

// VendorDocument is the stored shape of vendor details, used in merge patches.
func VendorDocument(v VendorDetails) map[string]any {
	return v.document()
}

// DecodeCamp reads a stored camp. Fields with the wrong shape are reported in a
// *ShapeError but the returned camp is still populated with everything readable.
func DecodeCamp(id string, doc map[string]any) (Camp, error) {
	r := newDocReader(id, doc)
	c := Camp{
		ID:                    id,
		CampCode:              r.str(FieldCampCode),
		Date:                  r.date(FieldDate),
		ClientName:            r.str(FieldClientName),
		SalesPerson:           r.str(FieldSalesPerson),
		Coordinator:           r.str(FieldCoordinator),
		ExpectedFootfall:      r.intPtr(FieldExpectedFootfall),
		UnitsSold:             r.intPtr(FieldUnitsSold),
		Revenue:               r.floatPtr(FieldRevenue),
		CampExpense:           r.floatPtr(FieldCampExpense),
		VendorExpense:         r.floatPtr(FieldVendorExpense),
		StaffExpense:          r.floatPtr(FieldStaffExpense),
		PartnerAdjustedCount:  r.intPtr(FieldPartnerAdjustedCount),
		Conversions:           r.intPtr(FieldConversions),
		Sales:                 r.intPtr(FieldSales),
		ReportURL:             r.str(FieldReportURL),
		ReportNotes:           r.str(FieldReportNotes),
		Status:                CampStatus(r.str(FieldStatus)),
		ReportStatus:          CampReportStatus(r.str(FieldReportStatus)),
		CancelReason:          r.str(FieldCancelReason),
		CreatedAt:             r.timestamp(FieldCreatedAt),
		CreatedBy:             r.str(FieldCreatedBy),
		CompletedAt:           r.timestamp(FieldCompletedAt),
		CompletedBy:           r.str(FieldCompletedBy),
		CancelledAt:           r.timestamp(FieldCancelledAt),
		CancelledBy:           r.str(FieldCancelledBy),
		FinancialsUpdatedAt:   r.timestamp(FieldFinancialsUpdatedAt),
		FinancialsUpdatedBy:   r.str(FieldFinancialsUpdatedBy),
		VendorDetailsSavedAt:  r.timestamp(FieldVendorDetailsSavedAt),
		VendorDetailsSavedBy:  r.str(FieldVendorDetailsSavedBy),
		TestCountsSavedAt:     r.timestamp(FieldTestCountsSavedAt),
		TestCountsSavedBy:     r.str(FieldTestCountsSavedBy),
		ReportStatusUpdatedAt: r.timestamp(FieldReportStatusUpdatedAt),
		ReportStatusUpdatedBy: r.str(FieldReportStatusUpdatedBy),
		Version:               r.int64(FieldVersion),
	}
	if c.Status != "" && !c.Status.Valid() {
		r.flag(FieldStatus)
	}
	if loc := r.object(FieldLocation); loc != nil {
		c.Location = &Location{
			Address: loc.str("address"),
			City:    loc.str("city"),
			State:   loc.str("state"),
			Pincode: loc.str("pincode"),
		}
	}
	if v := r.object(FieldVendor); v != nil {
		c.Vendor = &VendorDetails{
			VendorName:   v.str("vendorName"),
			PhleboName:   v.str("phleboName"),
			PhleboMobile: v.str("phleboMobile"),
		}
	}
	return c, r.err()
}
