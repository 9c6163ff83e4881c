package lifecycle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"healthops/internal/models"
	"healthops/internal/store"
)

// TestSelection is a test picked from the catalogue; its code is assigned
// when it is added to a booking.
type TestSelection struct {
	Name  string
	Price float64
}

type PaymentInput struct {
	Status    models.PaymentStatus
	Mode      models.PaymentMode
	Reference string
}

type CreateBookingInput struct {
	CampCode string
	Patient  models.Patient
	Tests    []TestSelection
	Payment  PaymentInput
}

type VendorStatusInput struct {
	VendorName      string
	VendorBookingID string
}

// CreateBooking builds the document for a new booking. A booking whose tests
// are all free is recorded as paid with mode "free"; any other booking needs
// its payment mode up front.
func CreateBooking(in CreateBookingInput, masterBookingID string, actor string, now time.Time) (store.Patch, error) {
	if err := requireActor(BookingCreate, actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(masterBookingID) == "" {
		return nil, guard(BookingCreate, "master booking id is required")
	}
	if err := validatePatient(BookingCreate, in.Patient); err != nil {
		return nil, err
	}
	if len(in.Tests) == 0 {
		return nil, guard(BookingCreate, "select at least one test")
	}
	if err := validateSelections(BookingCreate, in.Tests); err != nil {
		return nil, err
	}

	tests := assignCodes(nil, in.Tests)
	patient := in.Patient
	ts := models.NewTimestamp(now)
	b := models.TestBooking{
		MasterBookingID: masterBookingID,
		CampCode:        strings.TrimSpace(in.CampCode),
		Patient:         &patient,
		Tests:           tests,
		TotalPrice:      models.SumPrices(tests),
		ReportStatus:    models.ReportNotSubmitted,
		CreatedAt:       ts,
		CreatedBy:       actor,
	}

	if b.Free() {
		b.PaymentStatus = models.PaymentCompleted
		b.PaymentMode = models.PaymentModeFree
		b.PaymentUpdatedAt = ts
		b.PaymentUpdatedBy = actor
		return store.Patch(b.Document()), nil
	}

	pay := in.Payment
	if pay.Status == "" {
		pay.Status = models.PaymentPending
	}
	if pay.Mode == "" {
		return nil, guard(BookingCreate, "payment mode is required for a paid booking")
	}
	if err := validatePayment(BookingCreate, pay, b.TotalPrice); err != nil {
		return nil, err
	}
	b.PaymentStatus = pay.Status
	b.PaymentMode = pay.Mode
	b.PaymentReference = strings.TrimSpace(pay.Reference)
	b.PaymentUpdatedAt = ts
	b.PaymentUpdatedBy = actor
	return store.Patch(b.Document()), nil
}

func UpdatePayment(current models.TestBooking, in PaymentInput, actor string, now time.Time) (store.Patch, error) {
	if err := checkPayment(BookingUpdatePayment, current, actor); err != nil {
		return nil, err
	}
	if in.Status == "" {
		return nil, guard(BookingUpdatePayment, "payment status is required")
	}
	if in.Mode == "" {
		in.Mode = current.PaymentMode
	}
	if strings.TrimSpace(in.Reference) == "" {
		in.Reference = current.PaymentReference
	}
	if err := validatePayment(BookingUpdatePayment, in, current.TotalPrice); err != nil {
		return nil, err
	}

	patch := store.Patch{
		models.FieldPaymentStatus:    string(in.Status),
		models.FieldPaymentUpdatedAt: string(models.NewTimestamp(now)),
		models.FieldPaymentUpdatedBy: actor,
	}
	if in.Mode != "" {
		patch[models.FieldPaymentMode] = string(in.Mode)
	}
	if ref := strings.TrimSpace(in.Reference); ref != "" {
		patch[models.FieldPaymentReference] = ref
	}
	return patch, nil
}

func SetVendorStatus(current models.TestBooking, in VendorStatusInput, actor string, now time.Time) (store.Patch, error) {
	if current.VendorStatus == models.VendorCompleted {
		return nil, guard(BookingSetVendorStatus, "vendor check already completed")
	}
	if err := requireActor(BookingSetVendorStatus, actor); err != nil {
		return nil, err
	}
	if !ValidBookingTransition(BookingSetVendorStatus, current.PaymentStatus) {
		return nil, guard(BookingSetVendorStatus, "payment must be completed before the vendor check")
	}

	patch := store.Patch{
		models.FieldVendorStatus:          string(models.VendorCompleted),
		models.FieldVendorStatusUpdatedAt: string(models.NewTimestamp(now)),
		models.FieldVendorStatusUpdatedBy: actor,
	}
	if name := strings.TrimSpace(in.VendorName); name != "" {
		patch[models.FieldVendorName] = name
	}
	if id := strings.TrimSpace(in.VendorBookingID); id != "" {
		patch[models.FieldVendorBookingID] = id
	}
	return patch, nil
}

// SubmitReport is terminal: a submitted report cannot be submitted again.
func SubmitReport(current models.TestBooking, actor string, now time.Time) (store.Patch, error) {
	if current.EffectiveReportStatus() == models.ReportSubmitted {
		return nil, guard(BookingSubmitReport, "report already submitted")
	}
	if err := requireActor(BookingSubmitReport, actor); err != nil {
		return nil, err
	}
	if !ValidBookingTransition(BookingSubmitReport, current.PaymentStatus) {
		return nil, guard(BookingSubmitReport, "payment must be completed before the report update")
	}
	if current.VendorStatus != models.VendorCompleted {
		return nil, guard(BookingSubmitReport, "vendor check must be completed before the report update")
	}

	return store.Patch{
		models.FieldReportStatus:          string(models.ReportSubmitted),
		models.FieldReportStatusUpdatedAt: string(models.NewTimestamp(now)),
		models.FieldReportStatusUpdatedBy: actor,
	}, nil
}

// UpdatePatient replaces the demographics. Not allowed once payment is completed.
func UpdatePatient(current models.TestBooking, p models.Patient, actor string, now time.Time) (store.Patch, error) {
	if err := checkPayment(BookingUpdatePatient, current, actor); err != nil {
		return nil, err
	}
	if err := validatePatient(BookingUpdatePatient, p); err != nil {
		return nil, err
	}
	return store.Patch{
		models.FieldPatient:          models.PatientDocument(p),
		models.FieldPatientUpdatedAt: string(models.NewTimestamp(now)),
		models.FieldPatientUpdatedBy: actor,
	}, nil
}

// SelectTests adds tests to the booking and recomputes the total.
func SelectTests(current models.TestBooking, sel []TestSelection, actor string, now time.Time) (store.Patch, error) {
	if err := checkPayment(BookingSelectTests, current, actor); err != nil {
		return nil, err
	}
	if len(sel) == 0 {
		return nil, guard(BookingSelectTests, "select at least one test")
	}
	if err := validateSelections(BookingSelectTests, sel); err != nil {
		return nil, err
	}

	tests := make([]models.Test, 0, len(current.Tests)+len(sel))
	tests = append(tests, current.Tests...)
	tests = append(tests, assignCodes(current.Tests, sel)...)
	return testsPatch(tests, actor, now), nil
}

// RemoveTest drops the test with the given code and recomputes the total.
func RemoveTest(current models.TestBooking, code string, actor string, now time.Time) (store.Patch, error) {
	if err := checkPayment(BookingRemoveTest, current, actor); err != nil {
		return nil, err
	}
	idx := -1
	for i, t := range current.Tests {
		if t.Code == code {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, notFound(BookingRemoveTest, "test %s is not on this booking", code)
	}
	if len(current.Tests) == 1 {
		return nil, guard(BookingRemoveTest, "a booking needs at least one test")
	}

	tests := make([]models.Test, 0, len(current.Tests)-1)
	tests = append(tests, current.Tests[:idx]...)
	tests = append(tests, current.Tests[idx+1:]...)
	return testsPatch(tests, actor, now), nil
}

// testsPatch always writes the test list together with its total.
func testsPatch(tests []models.Test, actor string, now time.Time) store.Patch {
	return store.Patch{
		models.FieldTests:          models.TestsDocument(tests),
		models.FieldTotalPrice:     models.SumPrices(tests),
		models.FieldTestsUpdatedAt: string(models.NewTimestamp(now)),
		models.FieldTestsUpdatedBy: actor,
	}
}

func checkPayment(op Transition, current models.TestBooking, actor string) error {
	if err := requireActor(op, actor); err != nil {
		return err
	}
	if ValidBookingTransition(op, current.PaymentStatus) {
		return nil
	}
	if current.PaymentStatus == models.PaymentCompleted {
		return guard(op, "not allowed once payment is completed")
	}
	return guard(op, "not allowed while payment is %s", current.PaymentStatus)
}

func validatePatient(op Transition, p models.Patient) error {
	if strings.TrimSpace(p.Name) == "" {
		return guard(op, "patient name is required")
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 150) {
		return guard(op, "patient age is out of range")
	}
	return nil
}

func validateSelections(op Transition, sel []TestSelection) error {
	for _, s := range sel {
		if strings.TrimSpace(s.Name) == "" {
			return guard(op, "every test needs a name")
		}
		if s.Price < 0 {
			return guard(op, "test %s has a negative price", s.Name)
		}
	}
	return nil
}

func validatePayment(op Transition, in PaymentInput, total float64) error {
	if !in.Status.Valid() {
		return guard(op, "unknown payment status %q", in.Status)
	}
	if in.Mode != "" && !in.Mode.Valid() {
		return guard(op, "unknown payment mode %q", in.Mode)
	}
	if in.Mode == models.PaymentModeFree && total > 0 {
		return guard(op, "payment mode free is only for bookings with no charge")
	}
	if in.Status == models.PaymentCompleted {
		if in.Mode == "" {
			return guard(op, "payment mode is required to complete a payment")
		}
		if in.Mode.NeedsReference() && strings.TrimSpace(in.Reference) == "" {
			return guard(op, "payment reference is required for %s payments", in.Mode)
		}
	}
	return nil
}

// assignCodes gives each selection the next free code T01, T02, ... after
// the highest code already on the booking.
func assignCodes(existing []models.Test, sel []TestSelection) []models.Test {
	next := 1
	for _, t := range existing {
		if n, ok := testCodeNumber(t.Code); ok && n >= next {
			next = n + 1
		}
	}
	out := make([]models.Test, 0, len(sel))
	for _, s := range sel {
		out = append(out, models.Test{
			Name:  strings.TrimSpace(s.Name),
			Code:  fmt.Sprintf("T%02d", next),
			Price: s.Price,
		})
		next++
	}
	return out
}

func testCodeNumber(code string) (int, bool) {
	if !strings.HasPrefix(code, "T") {
		return 0, false
	}
	n, err := strconv.Atoi(code[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
