package lifecycle

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"healthops/internal/models"
	"healthops/internal/store"
)

var phleboMobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

type ScheduleInput struct {
	CampCode         string
	Date             models.Date
	ClientName       string
	Location         models.Location
	SalesPerson      string
	Coordinator      string
	ExpectedFootfall *int
}

// Financials is a partial set of camp figures; nil fields are left untouched.
type Financials struct {
	UnitsSold            *int
	Revenue              *float64
	CampExpense          *float64
	VendorExpense        *float64
	StaffExpense         *float64
	PartnerAdjustedCount *int
}

type TestCounts struct {
	Conversions *int
	Sales       *int
}

type ReportInput struct {
	ReportURL   string
	ReportNotes string
}

// Schedule builds the document for a new camp. codeTaken is the result of the
// caller's uniqueness lookup for in.CampCode.
func Schedule(in ScheduleInput, codeTaken bool, actor string, now time.Time) (store.Patch, error) {
	if err := requireActor(CampSchedule, actor); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(in.CampCode)
	switch {
	case code == "":
		return nil, guard(CampSchedule, "camp code is required")
	case codeTaken:
		return nil, guard(CampSchedule, "camp code %s is already in use", code)
	}
	if _, ok := in.Date.In(now.Location()); !ok {
		return nil, guard(CampSchedule, "camp date is missing or invalid")
	}
	if strings.TrimSpace(in.ClientName) == "" {
		return nil, guard(CampSchedule, "client name is required")
	}
	if strings.TrimSpace(in.Location.City) == "" {
		return nil, guard(CampSchedule, "camp city is required")
	}
	if in.ExpectedFootfall != nil && *in.ExpectedFootfall < 0 {
		return nil, guard(CampSchedule, "expected footfall cannot be negative")
	}

	loc := in.Location
	camp := models.Camp{
		CampCode:         code,
		Date:             in.Date,
		ClientName:       strings.TrimSpace(in.ClientName),
		Location:         &loc,
		SalesPerson:      in.SalesPerson,
		Coordinator:      in.Coordinator,
		ExpectedFootfall: in.ExpectedFootfall,
		Status:           models.CampScheduled,
		CreatedAt:        models.NewTimestamp(now),
		CreatedBy:        actor,
	}
	return store.Patch(camp.Document()), nil
}

// Complete closes a scheduled camp and locks its financials. The figures in
// in are merged over what was saved earlier and all of them must end up set.
func Complete(current models.Camp, in Financials, actor string, now time.Time) (store.Patch, error) {
	if err := checkCamp(CampComplete, current, actor); err != nil {
		return nil, err
	}
	merged := in.over(current)
	if missing := merged.missing(); len(missing) > 0 {
		return nil, guard(CampComplete, "financials incomplete, missing %s", strings.Join(missing, ", "))
	}
	if err := merged.validate(CampComplete); err != nil {
		return nil, err
	}

	patch := store.Patch{}
	in.apply(patch)
	patch[models.FieldStatus] = string(models.CampCompleted)
	patch[models.FieldCompletedAt] = string(models.NewTimestamp(now))
	patch[models.FieldCompletedBy] = actor
	return patch, nil
}

func Cancel(current models.Camp, reason string, actor string, now time.Time) (store.Patch, error) {
	if err := checkCamp(CampCancel, current, actor); err != nil {
		return nil, err
	}
	patch := store.Patch{
		models.FieldStatus:      string(models.CampCancelled),
		models.FieldCancelledAt: string(models.NewTimestamp(now)),
		models.FieldCancelledBy: actor,
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		patch[models.FieldCancelReason] = reason
	}
	return patch, nil
}

// CloseReport marks a completed camp's report as sent. The vendor details must
// already be saved and a report link must be present, either in in or on the camp.
func CloseReport(current models.Camp, in ReportInput, actor string, now time.Time) (store.Patch, error) {
	if current.ReportStatus == models.CampReportSent {
		return nil, guard(CampCloseReport, "camp report already sent")
	}
	if err := checkCamp(CampCloseReport, current, actor); err != nil {
		return nil, err
	}
	if !current.Vendor.Complete() {
		return nil, guard(CampCloseReport, "vendor details must be saved before the report is closed")
	}
	link := strings.TrimSpace(in.ReportURL)
	if link == "" {
		link = current.ReportURL
	}
	if !validReportURL(link) {
		return nil, guard(CampCloseReport, "a valid report link is required")
	}

	patch := store.Patch{
		models.FieldReportStatus:          string(models.CampReportSent),
		models.FieldReportURL:             link,
		models.FieldReportStatusUpdatedAt: string(models.NewTimestamp(now)),
		models.FieldReportStatusUpdatedBy: actor,
	}
	if notes := strings.TrimSpace(in.ReportNotes); notes != "" {
		patch[models.FieldReportNotes] = notes
	}
	return patch, nil
}

// SaveVendorDetails is a one-shot lock: once all three vendor fields are
// stored, later calls fail with ErrAlreadyLocked and write nothing.
func SaveVendorDetails(current models.Camp, in models.VendorDetails, actor string, now time.Time) (store.Patch, error) {
	if current.Vendor.Complete() {
		return nil, locked(CampSaveVendorDetails, "vendor details already saved, no new changes to save")
	}
	if err := checkCamp(CampSaveVendorDetails, current, actor); err != nil {
		return nil, err
	}
	in = models.VendorDetails{
		VendorName:   strings.TrimSpace(in.VendorName),
		PhleboName:   strings.TrimSpace(in.PhleboName),
		PhleboMobile: strings.ReplaceAll(strings.TrimSpace(in.PhleboMobile), " ", ""),
	}
	if !in.Complete() {
		return nil, guard(CampSaveVendorDetails, "vendor name, phlebotomist name and phlebotomist mobile are all required")
	}
	if !phleboMobilePattern.MatchString(in.PhleboMobile) {
		return nil, guard(CampSaveVendorDetails, "phlebotomist mobile must be 10 digits")
	}

	return store.Patch{
		models.FieldVendor:               models.VendorDocument(in),
		models.FieldVendorDetailsSavedAt: string(models.NewTimestamp(now)),
		models.FieldVendorDetailsSavedBy: actor,
	}, nil
}

// SaveTestCounts is a one-shot lock like SaveVendorDetails.
func SaveTestCounts(current models.Camp, in TestCounts, actor string, now time.Time) (store.Patch, error) {
	if current.TestCountsSaved() {
		return nil, locked(CampSaveTestCounts, "test counts already saved, no new changes to save")
	}
	if err := checkCamp(CampSaveTestCounts, current, actor); err != nil {
		return nil, err
	}
	if in.Conversions == nil || in.Sales == nil {
		return nil, guard(CampSaveTestCounts, "conversions and sales are both required")
	}
	if *in.Conversions < 0 || *in.Sales < 0 {
		return nil, guard(CampSaveTestCounts, "test counts cannot be negative")
	}

	return store.Patch{
		models.FieldConversions:       *in.Conversions,
		models.FieldSales:             *in.Sales,
		models.FieldTestCountsSavedAt: string(models.NewTimestamp(now)),
		models.FieldTestCountsSavedBy: actor,
	}, nil
}

// SaveFinancials stores draft figures on a scheduled camp.
func SaveFinancials(current models.Camp, in Financials, actor string, now time.Time) (store.Patch, error) {
	if err := checkCamp(CampSaveFinancials, current, actor); err != nil {
		return nil, err
	}
	if in.empty() {
		return nil, guard(CampSaveFinancials, "no financial fields supplied")
	}
	if err := in.validate(CampSaveFinancials); err != nil {
		return nil, err
	}

	patch := store.Patch{}
	in.apply(patch)
	patch[models.FieldFinancialsUpdatedAt] = string(models.NewTimestamp(now))
	patch[models.FieldFinancialsUpdatedBy] = actor
	return patch, nil
}

func checkCamp(op Transition, current models.Camp, actor string) error {
	if err := requireActor(op, actor); err != nil {
		return err
	}
	if ValidCampTransition(op, current.Status) {
		return nil
	}
	if !current.Status.Valid() {
		return guard(op, "camp %s has no readable status", current.ID)
	}
	return guard(op, "not allowed while the camp is %s", current.Status)
}

func requireActor(op Transition, actor string) error {
	if strings.TrimSpace(actor) == "" {
		return guard(op, "actor is required")
	}
	return nil
}

func validReportURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (f Financials) over(c models.Camp) Financials {
	out := Financials{
		UnitsSold:            c.UnitsSold,
		Revenue:              c.Revenue,
		CampExpense:          c.CampExpense,
		VendorExpense:        c.VendorExpense,
		StaffExpense:         c.StaffExpense,
		PartnerAdjustedCount: c.PartnerAdjustedCount,
	}
	if f.UnitsSold != nil {
		out.UnitsSold = f.UnitsSold
	}
	if f.Revenue != nil {
		out.Revenue = f.Revenue
	}
	if f.CampExpense != nil {
		out.CampExpense = f.CampExpense
	}
	if f.VendorExpense != nil {
		out.VendorExpense = f.VendorExpense
	}
	if f.StaffExpense != nil {
		out.StaffExpense = f.StaffExpense
	}
	if f.PartnerAdjustedCount != nil {
		out.PartnerAdjustedCount = f.PartnerAdjustedCount
	}
	return out
}

// missing lists the required figures that are not set. Partner adjustment is optional.
func (f Financials) missing() []string {
	var out []string
	if f.UnitsSold == nil {
		out = append(out, models.FieldUnitsSold)
	}
	if f.Revenue == nil {
		out = append(out, models.FieldRevenue)
	}
	if f.CampExpense == nil {
		out = append(out, models.FieldCampExpense)
	}
	if f.VendorExpense == nil {
		out = append(out, models.FieldVendorExpense)
	}
	if f.StaffExpense == nil {
		out = append(out, models.FieldStaffExpense)
	}
	return out
}

func (f Financials) empty() bool {
	return f.UnitsSold == nil && f.Revenue == nil && f.CampExpense == nil &&
		f.VendorExpense == nil && f.StaffExpense == nil && f.PartnerAdjustedCount == nil
}

func (f Financials) validate(op Transition) error {
	for _, n := range []*int{f.UnitsSold, f.PartnerAdjustedCount} {
		if n != nil && *n < 0 {
			return guard(op, "counts cannot be negative")
		}
	}
	for _, v := range []*float64{f.Revenue, f.CampExpense, f.VendorExpense, f.StaffExpense} {
		if v != nil && *v < 0 {
			return guard(op, "amounts cannot be negative")
		}
	}
	return nil
}

func (f Financials) apply(p store.Patch) {
	if f.UnitsSold != nil {
		p[models.FieldUnitsSold] = *f.UnitsSold
	}
	if f.Revenue != nil {
		p[models.FieldRevenue] = *f.Revenue
	}
	if f.CampExpense != nil {
		p[models.FieldCampExpense] = *f.CampExpense
	}
	if f.VendorExpense != nil {
		p[models.FieldVendorExpense] = *f.VendorExpense
	}
	if f.StaffExpense != nil {
		p[models.FieldStaffExpense] = *f.StaffExpense
	}
	if f.PartnerAdjustedCount != nil {
		p[models.FieldPartnerAdjustedCount] = *f.PartnerAdjustedCount
	}
}
