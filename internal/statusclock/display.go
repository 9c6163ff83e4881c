package statusclock

import (
	"time"

	"healthops/internal/models"
)

// CampDisplay is the status shown for a camp.
type CampDisplay string

const (
	CampUpcoming       CampDisplay = "upcoming"
	CampDueToday       CampDisplay = "due_today"
	CampOverdue        CampDisplay = "overdue"
	CampPendingClosure CampDisplay = "pending_closure"
	CampClosureOverdue CampDisplay = "closure_overdue"
	CampClosed         CampDisplay = "closed"
	CampCancelled      CampDisplay = "cancelled"
)

// CampDisplayStatus combines the stored status with the overdue clock.
func CampDisplayStatus(c models.Camp, now time.Time) CampDisplay {
	switch c.Status {
	case models.CampCancelled:
		return CampCancelled
	case models.CampCompleted:
		if c.ReportStatus == models.CampReportSent {
			return CampClosed
		}
		if IsOverdue(c, now) {
			return CampClosureOverdue
		}
		return CampPendingClosure
	case models.CampScheduled:
		return openDisplay(c, now)
	default:
		return openDisplay(c, now)
	}
}

func openDisplay(c models.Camp, now time.Time) CampDisplay {
	if IsOverdue(c, now) {
		return CampOverdue
	}
	day, ok := campDay(c, now)
	if ok && IsSameCalendarDay(day, now) {
		return CampDueToday
	}
	return CampUpcoming
}

// Stage is where a test booking sits in its payment/vendor/report pipeline.
type Stage string

const (
	StagePaymentPending  Stage = "payment_pending"
	StagePaymentFailed   Stage = "payment_failed"
	StagePendingVendor   Stage = "pending_vendor"
	StagePendingReport   Stage = "pending_report"
	StageReportSubmitted Stage = "report_submitted"
)

// BookingStage classifies a booking. It does not depend on time.
func BookingStage(b models.TestBooking) Stage {
	switch b.PaymentStatus {
	case models.PaymentFailed:
		return StagePaymentFailed
	case models.PaymentCompleted:
		if b.VendorStatus != models.VendorCompleted {
			return StagePendingVendor
		}
		if b.EffectiveReportStatus() == models.ReportSubmitted {
			return StageReportSubmitted
		}
		return StagePendingReport
	case models.PaymentPending:
		return StagePaymentPending
	default:
		return StagePaymentPending
	}
}
