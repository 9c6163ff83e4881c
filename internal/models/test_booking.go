package models

import (
	"strconv"
	"strings"
)

// TestBooking document keys.
const (
	FieldMasterBookingID       = "masterBookingId"
	FieldPatient               = "patient"
	FieldTests                 = "tests"
	FieldTestCount             = "testCount"
	FieldTotalPrice            = "totalPrice"
	FieldPaymentStatus         = "paymentStatus"
	FieldPaymentMode           = "paymentMode"
	FieldPaymentReference      = "paymentReference"
	FieldPaymentUpdatedAt      = "paymentUpdatedAt"
	FieldPaymentUpdatedBy      = "paymentUpdatedBy"
	FieldVendorStatus          = "vendorStatus"
	FieldVendorName            = "vendorName"
	FieldVendorBookingID       = "vendorBookingId"
	FieldVendorStatusUpdatedAt = "vendorStatusUpdatedAt"
	FieldVendorStatusUpdatedBy = "vendorStatusUpdatedBy"
	FieldPatientUpdatedAt      = "patientUpdatedAt"
	FieldPatientUpdatedBy      = "patientUpdatedBy"
	FieldTestsUpdatedAt        = "testsUpdatedAt"
	FieldTestsUpdatedBy        = "testsUpdatedBy"
)

type Patient struct {
	Name    string
	Age     *int
	Gender  string
	Mobile  string
	Email   string
	Address string
}

func (p *Patient) document() map[string]any {
	doc := map[string]any{}
	putString(doc, "name", p.Name)
	putInt(doc, "age", p.Age)
	putString(doc, "gender", p.Gender)
	putString(doc, "mobile", p.Mobile)
	putString(doc, "email", p.Email)
	putString(doc, "address", p.Address)
	return doc
}

// PatientDocument is the stored shape of patient demographics.
func PatientDocument(p Patient) map[string]any {
	return p.document()
}

// Test is one ordered diagnostic test. Code is assigned when the test is
// selected and is unique within its booking.
type Test struct {
	Name  string
	Code  string
	Price float64
}

// TestsDocument is the stored shape of a test list.
func TestsDocument(tests []Test) []any {
	out := make([]any, 0, len(tests))
	for _, t := range tests {
		out = append(out, map[string]any{
			"name":  t.Name,
			"code":  t.Code,
			"price": t.Price,
		})
	}
	return out
}

// SumPrices returns the total price of tests.
func SumPrices(tests []Test) float64 {
	var total float64
	for _, t := range tests {
		total += t.Price
	}
	return total
}

// TestBooking is one patient's order for one or more diagnostic tests.
type TestBooking struct {
	ID              string
	MasterBookingID string
	CampCode        string
	Patient         *Patient
	Tests           []Test
	TotalPrice      float64

	PaymentStatus    PaymentStatus
	PaymentMode      PaymentMode
	PaymentReference string
	PaymentUpdatedAt Timestamp
	PaymentUpdatedBy string

	VendorStatus          VendorStatus
	VendorName            string
	VendorBookingID       string
	VendorStatusUpdatedAt Timestamp
	VendorStatusUpdatedBy string

	ReportStatus          ReportStatus
	ReportStatusUpdatedAt Timestamp
	ReportStatusUpdatedBy string

	PatientUpdatedAt Timestamp
	PatientUpdatedBy string
	TestsUpdatedAt   Timestamp
	TestsUpdatedBy   string

	CreatedAt Timestamp
	CreatedBy string
	Version   int64
}

// EffectiveReportStatus treats a missing report status as not submitted.
func (b *TestBooking) EffectiveReportStatus() ReportStatus {
	if b.ReportStatus == "" {
		return ReportNotSubmitted
	}
	return b.ReportStatus
}

// Free reports whether the booking costs nothing.
func (b *TestBooking) Free() bool {
	return SumPrices(b.Tests) == 0
}

func (b TestBooking) RecordID() string { return b.ID }

// Field resolves a document key or dot-path against the booking.
func (b TestBooking) Field(path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	if nested {
		switch head {
		case FieldPatient:
			if b.Patient == nil {
				return nil, false
			}
			switch rest {
			case "name":
				return stringField(b.Patient.Name)
			case "age":
				return intField(b.Patient.Age)
			case "gender":
				return stringField(b.Patient.Gender)
			case "mobile":
				return stringField(b.Patient.Mobile)
			case "email":
				return stringField(b.Patient.Email)
			case "address":
				return stringField(b.Patient.Address)
			}
		case FieldTests:
			idx, field, ok := strings.Cut(rest, ".")
			if !ok {
				return nil, false
			}
			i, err := strconv.Atoi(idx)
			if err != nil || i < 0 || i >= len(b.Tests) {
				return nil, false
			}
			switch field {
			case "name":
				return stringField(b.Tests[i].Name)
			case "code":
				return stringField(b.Tests[i].Code)
			case "price":
				return b.Tests[i].Price, true
			}
		}
		return nil, false
	}

	switch path {
	case "id":
		return stringField(b.ID)
	case FieldMasterBookingID:
		return stringField(b.MasterBookingID)
	case FieldCampCode:
		return stringField(b.CampCode)
	case FieldTests:
		names := make([]string, 0, len(b.Tests))
		for _, t := range b.Tests {
			names = append(names, t.Name)
		}
		return stringField(strings.Join(names, ", "))
	case FieldTestCount:
		return float64(len(b.Tests)), true
	case FieldTotalPrice:
		return b.TotalPrice, true
	case FieldPaymentStatus:
		return stringField(string(b.PaymentStatus))
	case FieldPaymentMode:
		return stringField(string(b.PaymentMode))
	case FieldPaymentReference:
		return stringField(b.PaymentReference)
	case FieldPaymentUpdatedAt:
		return stringField(string(b.PaymentUpdatedAt))
	case FieldVendorStatus:
		return stringField(string(b.VendorStatus))
	case FieldVendorName:
		return stringField(b.VendorName)
	case FieldVendorBookingID:
		return stringField(b.VendorBookingID)
	case FieldVendorStatusUpdatedAt:
		return stringField(string(b.VendorStatusUpdatedAt))
	case FieldReportStatus:
		return string(b.EffectiveReportStatus()), true
	case FieldReportStatusUpdatedAt:
		return stringField(string(b.ReportStatusUpdatedAt))
	case FieldReportStatusUpdatedBy:
		return stringField(b.ReportStatusUpdatedBy)
	case FieldCreatedAt:
		return stringField(string(b.CreatedAt))
	case FieldCreatedBy:
		return stringField(b.CreatedBy)
	case FieldVersion:
		return float64(b.Version), true
	}
	return nil, false
}

// Document encodes the booking for storage.
func (b TestBooking) Document() map[string]any {
	doc := map[string]any{
		FieldTests:      TestsDocument(b.Tests),
		FieldTotalPrice: b.TotalPrice,
	}
	putString(doc, FieldMasterBookingID, b.MasterBookingID)
	putString(doc, FieldCampCode, b.CampCode)
	if b.Patient != nil {
		doc[FieldPatient] = b.Patient.document()
	}
	putString(doc, FieldPaymentStatus, string(b.PaymentStatus))
	putString(doc, FieldPaymentMode, string(b.PaymentMode))
	putString(doc, FieldPaymentReference, b.PaymentReference)
	putString(doc, FieldPaymentUpdatedAt, string(b.PaymentUpdatedAt))
	putString(doc, FieldPaymentUpdatedBy, b.PaymentUpdatedBy)
	putString(doc, FieldVendorStatus, string(b.VendorStatus))
	putString(doc, FieldVendorName, b.VendorName)
	putString(doc, FieldVendorBookingID, b.VendorBookingID)
	putString(doc, FieldVendorStatusUpdatedAt, string(b.VendorStatusUpdatedAt))
	putString(doc, FieldVendorStatusUpdatedBy, b.VendorStatusUpdatedBy)
	putString(doc, FieldReportStatus, string(b.ReportStatus))
	putString(doc, FieldReportStatusUpdatedAt, string(b.ReportStatusUpdatedAt))
	putString(doc, FieldReportStatusUpdatedBy, b.ReportStatusUpdatedBy)
	putString(doc, FieldPatientUpdatedAt, string(b.PatientUpdatedAt))
	putString(doc, FieldPatientUpdatedBy, b.PatientUpdatedBy)
	putString(doc, FieldTestsUpdatedAt, string(b.TestsUpdatedAt))
	putString(doc, FieldTestsUpdatedBy, b.TestsUpdatedBy)
	putString(doc, FieldCreatedAt, string(b.CreatedAt))
	putString(doc, FieldCreatedBy, b.CreatedBy)
	return doc
}

// DecodeTestBooking reads a stored booking; see DecodeCamp for error semantics.
func DecodeTestBooking(id string, doc map[string]any) (TestBooking, error) {
	r := newDocReader(id, doc)
	b := TestBooking{
		ID:                    id,
		MasterBookingID:       r.str(FieldMasterBookingID),
		CampCode:              r.str(FieldCampCode),
		TotalPrice:            r.float(FieldTotalPrice),
		PaymentStatus:         PaymentStatus(r.str(FieldPaymentStatus)),
		PaymentMode:           PaymentMode(r.str(FieldPaymentMode)),
		PaymentReference:      r.str(FieldPaymentReference),
		PaymentUpdatedAt:      r.timestamp(FieldPaymentUpdatedAt),
		PaymentUpdatedBy:      r.str(FieldPaymentUpdatedBy),
		VendorStatus:          VendorStatus(r.str(FieldVendorStatus)),
		VendorName:            r.str(FieldVendorName),
		VendorBookingID:       r.str(FieldVendorBookingID),
		VendorStatusUpdatedAt: r.timestamp(FieldVendorStatusUpdatedAt),
		VendorStatusUpdatedBy: r.str(FieldVendorStatusUpdatedBy),
		ReportStatus:          ReportStatus(r.str(FieldReportStatus)),
		ReportStatusUpdatedAt: r.timestamp(FieldReportStatusUpdatedAt),
		ReportStatusUpdatedBy: r.str(FieldReportStatusUpdatedBy),
		PatientUpdatedAt:      r.timestamp(FieldPatientUpdatedAt),
		PatientUpdatedBy:      r.str(FieldPatientUpdatedBy),
		TestsUpdatedAt:        r.timestamp(FieldTestsUpdatedAt),
		TestsUpdatedBy:        r.str(FieldTestsUpdatedBy),
		CreatedAt:             r.timestamp(FieldCreatedAt),
		CreatedBy:             r.str(FieldCreatedBy),
		Version:               r.int64(FieldVersion),
	}
	if b.PaymentStatus != "" && !b.PaymentStatus.Valid() {
		r.flag(FieldPaymentStatus)
	}
	if p := r.object(FieldPatient); p != nil {
		b.Patient = &Patient{
			Name:    p.str("name"),
			Age:     p.intPtr("age"),
			Gender:  p.str("gender"),
			Mobile:  p.str("mobile"),
			Email:   p.str("email"),
			Address: p.str("address"),
		}
	}
	for _, t := range r.objects(FieldTests) {
		b.Tests = append(b.Tests, Test{
			Name:  t.str("name"),
			Code:  t.str("code"),
			Price: t.float("price"),
		})
	}
	return b, r.err()
}
