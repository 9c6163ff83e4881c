// Package lifecycle holds the camp and test-booking state machines. Each
// transition is a pure function of the current record, the operator input,
// the actor and the current time, returning the complete patch to merge or a
// *TransitionError. Service performs the reads and the single merge-write.
package lifecycle

import "healthops/internal/models"

type Transition string

const (
	CampSchedule          Transition = "schedule"
	CampComplete          Transition = "complete"
	CampCancel            Transition = "cancel"
	CampCloseReport       Transition = "close_report"
	CampSaveVendorDetails Transition = "save_vendor_details"
	CampSaveTestCounts    Transition = "save_test_counts"
	CampSaveFinancials    Transition = "save_financials"

	BookingCreate          Transition = "create"
	BookingUpdatePayment   Transition = "update_payment"
	BookingSetVendorStatus Transition = "set_vendor_status"
	BookingSubmitReport    Transition = "submit_report"
	BookingUpdatePatient   Transition = "update_patient"
	BookingSelectTests     Transition = "select_tests"
	BookingRemoveTest      Transition = "remove_test"
)

// campTransitions lists the statuses each camp transition may start from.
// Vendor details and test counts stay open after completion until first
// saved, since closing the report needs the vendor triad.
var campTransitions = map[Transition][]models.CampStatus{
	CampComplete:          {models.CampScheduled},
	CampCancel:            {models.CampScheduled},
	CampCloseReport:       {models.CampCompleted},
	CampSaveVendorDetails: {models.CampScheduled, models.CampCompleted},
	CampSaveTestCounts:    {models.CampScheduled, models.CampCompleted},
	CampSaveFinancials:    {models.CampScheduled},
}

// paymentTransitions lists the payment statuses each booking transition may
// start from.
var paymentTransitions = map[Transition][]models.PaymentStatus{
	BookingUpdatePayment:   {models.PaymentPending, models.PaymentFailed},
	BookingUpdatePatient:   {models.PaymentPending, models.PaymentFailed},
	BookingSelectTests:     {models.PaymentPending, models.PaymentFailed},
	BookingRemoveTest:      {models.PaymentPending, models.PaymentFailed},
	BookingSetVendorStatus: {models.PaymentCompleted},
	BookingSubmitReport:    {models.PaymentCompleted},
}

func ValidCampTransition(t Transition, from models.CampStatus) bool {
	allowed, ok := campTransitions[t]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}

func ValidBookingTransition(t Transition, from models.PaymentStatus) bool {
	allowed, ok := paymentTransitions[t]
	if !ok {
		return false
	}
	if from == "" {
		from = models.PaymentPending
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}
