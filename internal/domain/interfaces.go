package domain

import (
	"context"

	"healthops/internal/lifecycle"
	"healthops/internal/models"
)

// CampService is the camp side of the lifecycle engine.
type CampService interface {
	GetCamp(ctx context.Context, id string) (models.Camp, error)
	FindCampByCode(ctx context.Context, code string) (models.Camp, error)
	ScheduleCamp(ctx context.Context, in lifecycle.ScheduleInput, actor string) (models.Camp, error)
	CompleteCamp(ctx context.Context, id string, in lifecycle.Financials, actor string) (models.Camp, error)
	CancelCamp(ctx context.Context, id, reason, actor string) (models.Camp, error)
	CloseCampReport(ctx context.Context, id string, in lifecycle.ReportInput, actor string) (models.Camp, error)
	SaveCampVendorDetails(ctx context.Context, id string, in models.VendorDetails, actor string) (models.Camp, error)
	SaveCampTestCounts(ctx context.Context, id string, in lifecycle.TestCounts, actor string) (models.Camp, error)
	SaveCampFinancials(ctx context.Context, id string, in lifecycle.Financials, actor string) (models.Camp, error)
}

// BookingService is the test booking side of the lifecycle engine.
type BookingService interface {
	GetBooking(ctx context.Context, id string) (models.TestBooking, error)
	FindBookingByMasterID(ctx context.Context, masterID string) (models.TestBooking, error)
	CreateBooking(ctx context.Context, in lifecycle.CreateBookingInput, actor string) (models.TestBooking, error)
	UpdatePayment(ctx context.Context, id string, in lifecycle.PaymentInput, actor string) (models.TestBooking, error)
	SetVendorStatus(ctx context.Context, id string, in lifecycle.VendorStatusInput, actor string) (models.TestBooking, error)
	SubmitReport(ctx context.Context, id, actor string) (models.TestBooking, error)
	UpdatePatient(ctx context.Context, id string, p models.Patient, actor string) (models.TestBooking, error)
	SelectTests(ctx context.Context, id string, sel []lifecycle.TestSelection, actor string) (models.TestBooking, error)
	RemoveTest(ctx context.Context, id, code, actor string) (models.TestBooking, error)
}

// Lifecycle is implemented by *lifecycle.Service.
type Lifecycle interface {
	CampService
	BookingService
}

var _ Lifecycle = (*lifecycle.Service)(nil)
