package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"healthops/internal/events"
	"healthops/internal/metrics"
	"healthops/internal/models"
	"healthops/internal/store"
)

const (
	entityCamp    = "camp"
	entityBooking = "booking"

	maxCodeAttempts = 5
)

type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

var campEvents = map[Transition]string{
	CampSchedule:          events.EventCampScheduled,
	CampComplete:          events.EventCampCompleted,
	CampCancel:            events.EventCampCancelled,
	CampCloseReport:       events.EventCampReportClosed,
	CampSaveVendorDetails: events.EventCampVendorSaved,
	CampSaveTestCounts:    events.EventCampTestCountsSaved,
	CampSaveFinancials:    events.EventCampFinancialsSaved,
}

var bookingEvents = map[Transition]string{
	BookingCreate:          events.EventBookingCreated,
	BookingUpdatePayment:   events.EventBookingPaymentUpdated,
	BookingSetVendorStatus: events.EventBookingVendorUpdated,
	BookingSubmitReport:    events.EventBookingReportSubmitted,
	BookingUpdatePatient:   events.EventBookingPatientUpdated,
	BookingSelectTests:     events.EventBookingTestsUpdated,
	BookingRemoveTest:      events.EventBookingTestsUpdated,
}

// Service applies transitions against the store. Each transition is one
// read followed by one merge guarded by the version that was read; the
// service never retries.
type Service struct {
	store           store.Store
	events          EventPublisher
	logger          *zerolog.Logger
	now             func() time.Time
	campCodePrefix  string
	bookingIDPrefix string
	newMasterID     func(prefix string, now time.Time) string
}

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCodePrefixes(campCode, bookingID string) Option {
	return func(s *Service) {
		if campCode != "" {
			s.campCodePrefix = campCode
		}
		if bookingID != "" {
			s.bookingIDPrefix = bookingID
		}
	}
}

func NewService(st store.Store, bus EventPublisher, logger *zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:           st,
		events:          bus,
		logger:          logger,
		now:             time.Now,
		campCodePrefix:  models.DefaultCampCodePrefix,
		bookingIDPrefix: models.DefaultBookingIDPrefix,
		newMasterID:     NewMasterBookingID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GetCamp(ctx context.Context, id string) (models.Camp, error) {
	doc, err := s.store.Get(ctx, store.Path(models.CollectionCamps, id))
	if err != nil {
		return models.Camp{}, storeError("get_camp", err)
	}
	if doc == nil {
		return models.Camp{}, notFound("get_camp", "camp %s not found", id)
	}
	camp, err := models.DecodeCamp(id, doc)
	s.logShape(models.CollectionCamps, err)
	return camp, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (models.TestBooking, error) {
	doc, err := s.store.Get(ctx, store.Path(models.CollectionTestBookings, id))
	if err != nil {
		return models.TestBooking{}, storeError("get_booking", err)
	}
	if doc == nil {
		return models.TestBooking{}, notFound("get_booking", "booking %s not found", id)
	}
	b, err := models.DecodeTestBooking(id, doc)
	s.logShape(models.CollectionTestBookings, err)
	return b, nil
}

// FindCampByCode looks a camp up by its human-readable code, ignoring case.
func (s *Service) FindCampByCode(ctx context.Context, code string) (models.Camp, error) {
	snap, err := s.store.List(ctx, models.CollectionCamps)
	if err != nil {
		return models.Camp{}, storeError("find_camp", err)
	}
	code = strings.TrimSpace(code)
	for id, doc := range snap {
		camp, _ := models.DecodeCamp(id, doc)
		if code != "" && strings.EqualFold(camp.CampCode, code) {
			return camp, nil
		}
	}
	return models.Camp{}, notFound("find_camp", "no camp with code %s", code)
}

// FindBookingByMasterID looks a booking up by its master booking id, ignoring case.
func (s *Service) FindBookingByMasterID(ctx context.Context, masterID string) (models.TestBooking, error) {
	snap, err := s.store.List(ctx, models.CollectionTestBookings)
	if err != nil {
		return models.TestBooking{}, storeError("find_booking", err)
	}
	masterID = strings.TrimSpace(masterID)
	for id, doc := range snap {
		b, _ := models.DecodeTestBooking(id, doc)
		if masterID != "" && strings.EqualFold(b.MasterBookingID, masterID) {
			return b, nil
		}
	}
	return models.TestBooking{}, notFound("find_booking", "no booking with id %s", masterID)
}

// ScheduleCamp creates a camp. An empty in.CampCode gets a generated one.
func (s *Service) ScheduleCamp(ctx context.Context, in ScheduleInput, actor string) (models.Camp, error) {
	now := s.now()
	generated := strings.TrimSpace(in.CampCode) == ""

	var patch store.Patch
	for attempt := 0; ; attempt++ {
		if generated {
			in.CampCode = NewCampCode(s.campCodePrefix, in.Date)
		}
		_, err := s.FindCampByCode(ctx, in.CampCode)
		taken := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			return models.Camp{}, s.finish(entityCamp, CampSchedule, in.CampCode, actor, err)
		}
		if taken && generated && attempt < maxCodeAttempts {
			continue
		}
		patch, err = Schedule(in, taken, actor, now)
		if err != nil {
			return models.Camp{}, s.finish(entityCamp, CampSchedule, in.CampCode, actor, err)
		}
		break
	}

	id, err := s.store.Push(ctx, models.CollectionCamps, store.Document(patch))
	if err != nil {
		return models.Camp{}, s.finish(entityCamp, CampSchedule, in.CampCode, actor, storeError(string(CampSchedule), err))
	}
	camp, _ := models.DecodeCamp(id, withVersion(patch, 1))
	s.finish(entityCamp, CampSchedule, id, actor, nil)
	s.publishCamp(CampSchedule, camp, actor, now)
	return camp, nil
}

func (s *Service) CompleteCamp(ctx context.Context, id string, in Financials, actor string) (models.Camp, error) {
	return s.applyCamp(ctx, id, CampComplete, actor, func(c models.Camp, now time.Time) (store.Patch, error) {
		return Complete(c, in, actor, now)
	})
}

func (s *Service) CancelCamp(ctx context.Context, id, reason, actor string) (models.Camp, error) {
	return s.applyCamp(ctx, id, CampCancel, actor, func(c models.Camp, now time.Time) (store.Patch, error) {
		return Cancel(c, reason, actor, now)
	})
}

func (s *Service) CloseCampReport(ctx context.Context, id string, in ReportInput, actor string) (models.Camp, error) {
	return s.applyCamp(ctx, id, CampCloseReport, actor, func(c models.Camp, now time.Time) (store.Patch, error) {
		return CloseReport(c, in, actor, now)
	})
}

func (s *Service) SaveCampVendorDetails(ctx context.Context, id string, in models.VendorDetails, actor string) (models.Camp, error) {
	return s.applyCamp(ctx, id, CampSaveVendorDetails, actor, func(c models.Camp, now time.Time) (store.Patch, error) {
		return SaveVendorDetails(c, in, actor, now)
	})
}

func (s *Service) SaveCampTestCounts(ctx context.Context, id string, in TestCounts, actor string) (models.Camp, error) {
	return s.applyCamp(ctx, id, CampSaveTestCounts, actor, func(c models.Camp, now time.Time) (store.Patch, error) {
		return SaveTestCounts(c, in, actor, now)
	})
}

func (s *Service) SaveCampFinancials(ctx context.Context, id string, in Financials, actor string) (models.Camp, error) {
	return s.applyCamp(ctx, id, CampSaveFinancials, actor, func(c models.Camp, now time.Time) (store.Patch, error) {
		return SaveFinancials(c, in, actor, now)
	})
}

func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput, actor string) (models.TestBooking, error) {
	now := s.now()
	var masterID string
	for attempt := 1; ; attempt++ {
		masterID = s.newMasterID(s.bookingIDPrefix, now)
		_, err := s.FindBookingByMasterID(ctx, masterID)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return models.TestBooking{}, s.finish(entityBooking, BookingCreate, masterID, actor, err)
		}
		if attempt >= maxCodeAttempts {
			return models.TestBooking{}, s.finish(entityBooking, BookingCreate, masterID, actor,
				guard(BookingCreate, "could not allocate a unique master booking id, try again"))
		}
	}

	patch, err := CreateBooking(in, masterID, actor, now)
	if err != nil {
		return models.TestBooking{}, s.finish(entityBooking, BookingCreate, masterID, actor, err)
	}
	id, err := s.store.Push(ctx, models.CollectionTestBookings, store.Document(patch))
	if err != nil {
		return models.TestBooking{}, s.finish(entityBooking, BookingCreate, masterID, actor, storeError(string(BookingCreate), err))
	}
	b, _ := models.DecodeTestBooking(id, withVersion(patch, 1))
	s.finish(entityBooking, BookingCreate, id, actor, nil)
	s.publishBooking(BookingCreate, b, actor, now)
	return b, nil
}

func (s *Service) UpdatePayment(ctx context.Context, id string, in PaymentInput, actor string) (models.TestBooking, error) {
	return s.applyBooking(ctx, id, BookingUpdatePayment, actor, func(b models.TestBooking, now time.Time) (store.Patch, error) {
		return UpdatePayment(b, in, actor, now)
	})
}

func (s *Service) SetVendorStatus(ctx context.Context, id string, in VendorStatusInput, actor string) (models.TestBooking, error) {
	return s.applyBooking(ctx, id, BookingSetVendorStatus, actor, func(b models.TestBooking, now time.Time) (store.Patch, error) {
		return SetVendorStatus(b, in, actor, now)
	})
}

func (s *Service) SubmitReport(ctx context.Context, id, actor string) (models.TestBooking, error) {
	return s.applyBooking(ctx, id, BookingSubmitReport, actor, func(b models.TestBooking, now time.Time) (store.Patch, error) {
		return SubmitReport(b, actor, now)
	})
}

func (s *Service) UpdatePatient(ctx context.Context, id string, p models.Patient, actor string) (models.TestBooking, error) {
	return s.applyBooking(ctx, id, BookingUpdatePatient, actor, func(b models.TestBooking, now time.Time) (store.Patch, error) {
		return UpdatePatient(b, p, actor, now)
	})
}

func (s *Service) SelectTests(ctx context.Context, id string, sel []TestSelection, actor string) (models.TestBooking, error) {
	return s.applyBooking(ctx, id, BookingSelectTests, actor, func(b models.TestBooking, now time.Time) (store.Patch, error) {
		return SelectTests(b, sel, actor, now)
	})
}

func (s *Service) RemoveTest(ctx context.Context, id, code, actor string) (models.TestBooking, error) {
	return s.applyBooking(ctx, id, BookingRemoveTest, actor, func(b models.TestBooking, now time.Time) (store.Patch, error) {
		return RemoveTest(b, code, actor, now)
	})
}

func (s *Service) applyCamp(ctx context.Context, id string, op Transition, actor string, fn func(models.Camp, time.Time) (store.Patch, error)) (models.Camp, error) {
	current, err := s.GetCamp(ctx, id)
	if err != nil {
		return models.Camp{}, s.finish(entityCamp, op, id, actor, err)
	}
	now := s.now()
	patch, err := fn(current, now)
	if err != nil {
		return current, s.finish(entityCamp, op, id, actor, err)
	}

	path := store.Path(models.CollectionCamps, id)
	if err := s.store.Merge(ctx, path, patch, store.IfVersion(current.Version)); err != nil {
		return current, s.finish(entityCamp, op, id, actor, storeError(string(op), err))
	}

	updated, _ := models.DecodeCamp(id, withVersion(applyPatch(current.Document(), patch), current.Version+1))
	s.finish(entityCamp, op, id, actor, nil)
	s.publishCamp(op, updated, actor, now)
	return updated, nil
}

func (s *Service) applyBooking(ctx context.Context, id string, op Transition, actor string, fn func(models.TestBooking, time.Time) (store.Patch, error)) (models.TestBooking, error) {
	current, err := s.GetBooking(ctx, id)
	if err != nil {
		return models.TestBooking{}, s.finish(entityBooking, op, id, actor, err)
	}
	now := s.now()
	patch, err := fn(current, now)
	if err != nil {
		return current, s.finish(entityBooking, op, id, actor, err)
	}

	path := store.Path(models.CollectionTestBookings, id)
	if err := s.store.Merge(ctx, path, patch, store.IfVersion(current.Version)); err != nil {
		return current, s.finish(entityBooking, op, id, actor, storeError(string(op), err))
	}

	updated, _ := models.DecodeTestBooking(id, withVersion(applyPatch(current.Document(), patch), current.Version+1))
	s.finish(entityBooking, op, id, actor, nil)
	s.publishBooking(op, updated, actor, now)
	return updated, nil
}

// finish records the outcome of a transition and returns err unchanged.
func (s *Service) finish(entity string, op Transition, id, actor string, err error) error {
	result := resultLabel(err)
	metrics.IncTransition(entity, string(op), result)

	var ev *zerolog.Event
	switch result {
	case metrics.ResultOK:
		ev = s.logger.Info()
	case metrics.ResultLocked:
		ev = s.logger.Debug()
	case metrics.ResultConflict:
		ev = s.logger.Warn()
	case metrics.ResultUnavailable:
		ev = s.logger.Error()
	default:
		ev = s.logger.Info()
	}
	ev = ev.Str("entity", entity).Str("transition", string(op)).Str("id", id).Str("actor", actor)
	if err != nil {
		ev.Err(err).Msg("Transition rejected")
	} else {
		ev.Msg("Transition applied")
	}
	return err
}

func (s *Service) logShape(collection string, err error) {
	var shape *models.ShapeError
	if errors.As(err, &shape) {
		metrics.AddShapeAnomalies(collection, 1)
		s.logger.Warn().Str("collection", collection).Str("id", shape.ID).Strs("fields", shape.Fields).Msg("Malformed record fields")
	}
}

func (s *Service) publishCamp(op Transition, c models.Camp, actor string, now time.Time) {
	if s.events == nil {
		return
	}
	payload := events.CampEventPayload{
		CampID:       c.ID,
		CampCode:     c.CampCode,
		ClientName:   c.ClientName,
		Date:         string(c.Date),
		Status:       string(c.Status),
		ReportStatus: string(c.ReportStatus),
		Transition:   string(op),
		ChangedBy:    actor,
		ChangedAt:    now,
	}
	if err := s.events.PublishJSON(campEvents[op], payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", campEvents[op]).Str("camp_id", c.ID).Msg("event handler failed")
	}
}

func (s *Service) publishBooking(op Transition, b models.TestBooking, actor string, now time.Time) {
	if s.events == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:       b.ID,
		MasterBookingID: b.MasterBookingID,
		CampCode:        b.CampCode,
		TestCount:       len(b.Tests),
		TotalPrice:      b.TotalPrice,
		PaymentStatus:   string(b.PaymentStatus),
		VendorStatus:    string(b.VendorStatus),
		ReportStatus:    string(b.EffectiveReportStatus()),
		Transition:      string(op),
		ChangedBy:       actor,
		ChangedAt:       now,
	}
	if b.Patient != nil {
		payload.PatientName = b.Patient.Name
	}
	if err := s.events.PublishJSON(bookingEvents[op], payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", bookingEvents[op]).Str("booking_id", b.ID).Msg("event handler failed")
	}
}

// storeError maps store failures onto the transition taxonomy.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrVersionMismatch):
		return &TransitionError{Op: op, Reason: "the record was changed by someone else, reload and try again", Kind: ErrConcurrentModification}
	case errors.Is(err, store.ErrNotFound):
		return &TransitionError{Op: op, Reason: "record not found", Kind: ErrNotFound}
	case errors.Is(err, store.ErrInvalidPath):
		return &TransitionError{Op: op, Reason: "invalid record id", Kind: ErrNotFound}
	default:
		return &storeFailure{op: op, err: err}
	}
}

// storeFailure keeps the underlying cause for logs while matching ErrStoreUnavailable.
type storeFailure struct {
	op  string
	err error
}

func (e *storeFailure) Error() string { return e.op + ": store unavailable: " + e.err.Error() }

func (e *storeFailure) Unwrap() []error { return []error{ErrStoreUnavailable, e.err} }

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrAlreadyLocked):
		return metrics.ResultLocked
	case errors.Is(err, ErrConcurrentModification):
		return metrics.ResultConflict
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return metrics.ResultUnavailable
	default:
		return metrics.ResultGuard
	}
}

func applyPatch(doc map[string]any, patch store.Patch) map[string]any {
	for k, v := range patch {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	return doc
}

func withVersion(doc map[string]any, version int64) map[string]any {
	out := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[models.FieldVersion] = version
	return out
}
