package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"healthops/internal/config"
	"healthops/internal/lifecycle"
	"healthops/internal/models"
	"healthops/internal/query"
)

type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) camp(args mock.Arguments) (models.Camp, error) {
	c, _ := args.Get(0).(models.Camp)
	return c, args.Error(1)
}

func (m *MockLifecycle) booking(args mock.Arguments) (models.TestBooking, error) {
	b, _ := args.Get(0).(models.TestBooking)
	return b, args.Error(1)
}

func (m *MockLifecycle) GetCamp(ctx context.Context, id string) (models.Camp, error) {
	return m.camp(m.Called(ctx, id))
}

func (m *MockLifecycle) FindCampByCode(ctx context.Context, code string) (models.Camp, error) {
	return m.camp(m.Called(ctx, code))
}

func (m *MockLifecycle) ScheduleCamp(ctx context.Context, in lifecycle.ScheduleInput, actor string) (models.Camp, error) {
	return m.camp(m.Called(ctx, in, actor))
}

func (m *MockLifecycle) CompleteCamp(ctx context.Context, id string, in lifecycle.Financials, actor string) (models.Camp, error) {
	return m.camp(m.Called(ctx, id, in, actor))
}

func (m *MockLifecycle) CancelCamp(ctx context.Context, id, reason, actor string) (models.Camp, error) {
	return m.camp(m.Called(ctx, id, reason, actor))
}

func (m *MockLifecycle) CloseCampReport(ctx context.Context, id string, in lifecycle.ReportInput, actor string) (models.Camp, error) {
	return m.camp(m.Called(ctx, id, in, actor))
}

func (m *MockLifecycle) SaveCampVendorDetails(ctx context.Context, id string, in models.VendorDetails, actor string) (models.Camp, error) {
	return m.camp(m.Called(ctx, id, in, actor))
}

func (m *MockLifecycle) SaveCampTestCounts(ctx context.Context, id string, in lifecycle.TestCounts, actor string) (models.Camp, error) {
	return m.camp(m.Called(ctx, id, in, actor))
}

func (m *MockLifecycle) SaveCampFinancials(ctx context.Context, id string, in lifecycle.Financials, actor string) (models.Camp, error) {
	return m.camp(m.Called(ctx, id, in, actor))
}

func (m *MockLifecycle) GetBooking(ctx context.Context, id string) (models.TestBooking, error) {
	return m.booking(m.Called(ctx, id))
}

func (m *MockLifecycle) FindBookingByMasterID(ctx context.Context, masterID string) (models.TestBooking, error) {
	return m.booking(m.Called(ctx, masterID))
}

func (m *MockLifecycle) CreateBooking(ctx context.Context, in lifecycle.CreateBookingInput, actor string) (models.TestBooking, error) {
	return m.booking(m.Called(ctx, in, actor))
}

func (m *MockLifecycle) UpdatePayment(ctx context.Context, id string, in lifecycle.PaymentInput, actor string) (models.TestBooking, error) {
	return m.booking(m.Called(ctx, id, in, actor))
}

func (m *MockLifecycle) SetVendorStatus(ctx context.Context, id string, in lifecycle.VendorStatusInput, actor string) (models.TestBooking, error) {
	return m.booking(m.Called(ctx, id, in, actor))
}

func (m *MockLifecycle) SubmitReport(ctx context.Context, id, actor string) (models.TestBooking, error) {
	return m.booking(m.Called(ctx, id, actor))
}

func (m *MockLifecycle) UpdatePatient(ctx context.Context, id string, p models.Patient, actor string) (models.TestBooking, error) {
	return m.booking(m.Called(ctx, id, p, actor))
}

func (m *MockLifecycle) SelectTests(ctx context.Context, id string, sel []lifecycle.TestSelection, actor string) (models.TestBooking, error) {
	return m.booking(m.Called(ctx, id, sel, actor))
}

func (m *MockLifecycle) RemoveTest(ctx context.Context, id, code, actor string) (models.TestBooking, error) {
	return m.booking(m.Called(ctx, id, code, actor))
}

func newMockEnv(t *testing.T, lc *MockLifecycle) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	srv := NewHTTPServer(&config.APIConfig{Enabled: true}, Deps{
		Lifecycle: lc,
		Camps:     mapSource[models.Camp]{},
		Bookings:  mapSource[models.TestBooking]{},
		Location:  ist,
		Now:       fixedNow,
	}, &logger)
	return &testEnv{handler: srv.Handler()}
}

type mapSource[T query.Record] map[string]T

func (m mapSource[T]) Records() []T {
	out := make([]T, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	return out
}

func (m mapSource[T]) Get(id string) (T, bool) {
	r, ok := m[id]
	return r, ok
}

func TestErrorMapping(t *testing.T) {
	lc := &MockLifecycle{}
	env := newMockEnv(t, lc)

	storeDown := &lifecycle.TransitionError{Op: "update_payment", Reason: "store down", Kind: lifecycle.ErrStoreUnavailable}
	lc.On("UpdatePayment", mock.Anything, "b1", lifecycle.PaymentInput{Status: models.PaymentCompleted, Mode: models.PaymentModeCash}, "asha").
		Return(models.TestBooking{}, storeDown).Once()
	lc.On("SubmitReport", mock.Anything, "b1", "asha").
		Return(models.TestBooking{}, lifecycle.ErrConcurrentModification).Once()
	lc.On("CancelCamp", mock.Anything, "c1", "rain", "asha").
		Return(models.Camp{ID: "c1", Status: models.CampCancelled}, nil).Once()
	lc.On("GetCamp", mock.Anything, "c2").
		Return(models.Camp{}, errors.New("disk on fire")).Once()

	code, body := env.do(t, http.MethodPost, "/api/v1/bookings/b1/payment", map[string]any{"status": "completed", "mode": "cash"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "store down", body["error"])

	code, body = env.do(t, http.MethodPost, "/api/v1/bookings/b1/report", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body["error"], "changed by someone else")

	code, body = env.do(t, http.MethodPost, "/api/v1/camps/c1/cancel", map[string]any{"reason": "rain"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cancelled", record(t, body)["displayStatus"])

	code, _ = env.do(t, http.MethodGet, "/api/v1/camps/c2", nil)
	assert.Equal(t, http.StatusInternalServerError, code)

	lc.AssertExpectations(t)
}
