package lifecycle

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"healthops/internal/events"
	"healthops/internal/models"
	"healthops/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvents struct {
	mu    sync.Mutex
	types []string
	last  []byte
}

func newTestService(t *testing.T, st store.Store) (*Service, *recordedEvents) {
	t.Helper()
	logger := zerolog.Nop()
	bus := events.NewEventBus()
	rec := &recordedEvents{}
	bus.Subscribe(events.AllEvents, func(e *events.Event) error {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.types = append(rec.types, e.Type)
		rec.last = e.Payload
		return nil
	})
	return NewService(st, bus, &logger, WithClock(fixedNow)), rec
}

func scheduleInput() ScheduleInput {
	return ScheduleInput{
		Date:       "2026-01-10",
		ClientName: "Acme Corp",
		Location:   models.Location{City: "Pune"},
	}
}

func TestService_CampLifecycle(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	svc, rec := newTestService(t, st)
	ctx := context.Background()

	camp, err := svc.ScheduleCamp(ctx, scheduleInput(), "asha")
	require.NoError(t, err)
	assert.Regexp(t, `^CMP-20260110-[0-9A-F]{6}$`, camp.CampCode)
	assert.Equal(t, models.CampScheduled, camp.Status)
	assert.Equal(t, int64(1), camp.Version)

	found, err := svc.FindCampByCode(ctx, camp.CampCode)
	require.NoError(t, err)
	assert.Equal(t, camp.ID, found.ID)

	_, err = svc.SaveCampVendorDetails(ctx, camp.ID, models.VendorDetails{VendorName: "LabCo", PhleboName: "Ravi", PhleboMobile: "9876543210"}, "asha")
	require.NoError(t, err)

	completed, err := svc.CompleteCamp(ctx, camp.ID, fullFinancials(), "asha")
	require.NoError(t, err)
	assert.Equal(t, models.CampCompleted, completed.Status)
	assert.Equal(t, int64(3), completed.Version)

	stored, err := svc.GetCamp(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, completed.Status, stored.Status)
	assert.Equal(t, completed.Version, stored.Version)
	assert.Equal(t, 40, *stored.UnitsSold)

	closed, err := svc.CloseCampReport(ctx, camp.ID, ReportInput{ReportURL: "https://reports.example/c1"}, "asha")
	require.NoError(t, err)
	assert.Equal(t, models.CampReportSent, closed.ReportStatus)

	_, err = svc.CancelCamp(ctx, camp.ID, "", "asha")
	assert.ErrorIs(t, err, ErrGuardViolation)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{
		events.EventCampScheduled,
		events.EventCampVendorSaved,
		events.EventCampCompleted,
		events.EventCampReportClosed,
	}, rec.types)

	var payload events.CampEventPayload
	require.NoError(t, json.Unmarshal(rec.last, &payload))
	assert.Equal(t, camp.CampCode, payload.CampCode)
	assert.Equal(t, "sent", payload.ReportStatus)
	assert.Equal(t, "asha", payload.ChangedBy)
}

func TestService_DuplicateCampCode(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	svc, _ := newTestService(t, st)
	ctx := context.Background()

	in := scheduleInput()
	in.CampCode = "CMP-FIXED"
	_, err := svc.ScheduleCamp(ctx, in, "asha")
	require.NoError(t, err)

	in.CampCode = "cmp-fixed"
	_, err = svc.ScheduleCamp(ctx, in, "asha")
	assert.ErrorIs(t, err, ErrGuardViolation)

	snap, err := st.List(ctx, models.CollectionCamps)
	require.NoError(t, err)
	assert.Len(t, snap, 1)
}

func TestService_TestCountsLockWritesNothing(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	svc, _ := newTestService(t, st)
	ctx := context.Background()

	camp, err := svc.ScheduleCamp(ctx, scheduleInput(), "asha")
	require.NoError(t, err)

	_, err = svc.SaveCampTestCounts(ctx, camp.ID, TestCounts{Conversions: models.IntPtr(5), Sales: models.IntPtr(3)}, "asha")
	require.NoError(t, err)
	before, err := st.Get(ctx, store.Path(models.CollectionCamps, camp.ID))
	require.NoError(t, err)

	_, err = svc.SaveCampTestCounts(ctx, camp.ID, TestCounts{Conversions: models.IntPtr(8), Sales: models.IntPtr(8)}, "asha")
	assert.ErrorIs(t, err, ErrAlreadyLocked)

	after, err := st.Get(ctx, store.Path(models.CollectionCamps, camp.ID))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, float64(5), after[models.FieldConversions])
	assert.Equal(t, float64(3), after[models.FieldSales])
}

func TestService_BookingFlow(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	svc, rec := newTestService(t, st)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, CreateBookingInput{
		CampCode: "CMP-1",
		Patient:  models.Patient{Name: "Meera"},
		Tests:    []TestSelection{{Name: "Lipid", Price: 300}, {Name: "HbA1c", Price: 400}},
		Payment:  PaymentInput{Mode: models.PaymentModeCash},
	}, "asha")
	require.NoError(t, err)
	assert.Equal(t, float64(700), b.TotalPrice)
	assert.Regexp(t, `^MB20260110\d{6}$`, b.MasterBookingID)

	found, err := svc.FindBookingByMasterID(ctx, b.MasterBookingID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)

	_, err = svc.SubmitReport(ctx, b.ID, "asha")
	assert.ErrorIs(t, err, ErrGuardViolation)
	unchanged, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportNotSubmitted, unchanged.EffectiveReportStatus())
	assert.Equal(t, int64(1), unchanged.Version)

	b, err = svc.RemoveTest(ctx, b.ID, "T02", "asha")
	require.NoError(t, err)
	assert.Equal(t, float64(300), b.TotalPrice)

	_, err = svc.UpdatePayment(ctx, b.ID, PaymentInput{Status: models.PaymentCompleted}, "asha")
	require.NoError(t, err)
	_, err = svc.SetVendorStatus(ctx, b.ID, VendorStatusInput{VendorName: "LabCo"}, "ravi")
	require.NoError(t, err)
	b, err = svc.SubmitReport(ctx, b.ID, "ravi")
	require.NoError(t, err)
	assert.Equal(t, models.ReportSubmitted, b.ReportStatus)

	stored, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(300), stored.TotalPrice)
	assert.Equal(t, models.ReportSubmitted, stored.ReportStatus)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{
		events.EventBookingCreated,
		events.EventBookingTestsUpdated,
		events.EventBookingPaymentUpdated,
		events.EventBookingVendorUpdated,
		events.EventBookingReportSubmitted,
	}, rec.types)
}

func TestService_NotFound(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	svc, _ := newTestService(t, st)
	ctx := context.Background()

	_, err := svc.GetCamp(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.CompleteCamp(ctx, "missing", fullFinancials(), "asha")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.FindCampByCode(ctx, "CMP-NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.FindBookingByMasterID(ctx, "MB0")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetBooking(ctx, "a/b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_StoreUnavailable(t *testing.T) {
	st := store.NewMemoryStore()
	svc, _ := newTestService(t, st)
	require.NoError(t, st.Close())

	_, err := svc.ScheduleCamp(context.Background(), scheduleInput(), "asha")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

// racingStore lets another writer slip in between the read and the write.
type racingStore struct {
	store.Store
	once sync.Once
}

func (r *racingStore) Get(ctx context.Context, path string) (store.Document, error) {
	doc, err := r.Store.Get(ctx, path)
	r.once.Do(func() {
		_ = r.Store.Merge(ctx, path, store.Patch{models.FieldCoordinator: "someone else"})
	})
	return doc, err
}

func TestService_ConcurrentModification(t *testing.T) {
	mem := store.NewMemoryStore()
	defer mem.Close()
	ctx := context.Background()

	setup, _ := newTestService(t, mem)
	camp, err := setup.ScheduleCamp(ctx, scheduleInput(), "asha")
	require.NoError(t, err)

	svc, rec := newTestService(t, &racingStore{Store: mem})
	_, err = svc.CancelCamp(ctx, camp.ID, "rain", "asha")
	assert.ErrorIs(t, err, ErrConcurrentModification)

	stored, err := setup.GetCamp(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampScheduled, stored.Status)
	assert.Equal(t, "someone else", stored.Coordinator)
	assert.Empty(t, rec.types)

	// a fresh attempt reads the new version and succeeds
	cancelled, err := svc.CancelCamp(ctx, camp.ID, "rain", "asha")
	require.NoError(t, err)
	assert.Equal(t, models.CampCancelled, cancelled.Status)
}

func TestService_CreateBookingGivesUpOnTakenMasterIDs(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	svc, _ := newTestService(t, st)
	ctx := context.Background()

	var generated int
	svc.newMasterID = func(prefix string, now time.Time) string {
		generated++
		return prefix + now.Format("20060102") + "000042"
	}
	in := CreateBookingInput{
		Patient: models.Patient{Name: "Meera"},
		Tests:   []TestSelection{{Name: "Lipid", Price: 300}},
		Payment: PaymentInput{Mode: models.PaymentModeCash},
	}

	first, err := svc.CreateBooking(ctx, in, "asha")
	require.NoError(t, err)
	assert.Equal(t, "MB20260110000042", first.MasterBookingID)
	assert.Equal(t, 1, generated)

	generated = 0
	_, err = svc.CreateBooking(ctx, in, "asha")
	assert.ErrorIs(t, err, ErrGuardViolation)
	assert.Equal(t, maxCodeAttempts, generated)

	snap, err := st.List(ctx, models.CollectionTestBookings)
	require.NoError(t, err)
	assert.Len(t, snap, 1)
}
