package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Lifecycle event types, published after a transition has been written.
const (
	EventCampScheduled       = "camp_scheduled"
	EventCampCompleted       = "camp_completed"
	EventCampCancelled       = "camp_cancelled"
	EventCampReportClosed    = "camp_report_closed"
	EventCampVendorSaved     = "camp_vendor_saved"
	EventCampTestCountsSaved = "camp_test_counts_saved"
	EventCampFinancialsSaved = "camp_financials_saved"

	EventBookingCreated         = "booking_created"
	EventBookingPaymentUpdated  = "booking_payment_updated"
	EventBookingVendorUpdated   = "booking_vendor_updated"
	EventBookingReportSubmitted = "booking_report_submitted"
	EventBookingPatientUpdated  = "booking_patient_updated"
	EventBookingTestsUpdated    = "booking_tests_updated"
)

// AllEvents subscribes a handler to every event type.
const AllEvents = "*"

// CampEventPayload is the camp state after the transition.
type CampEventPayload struct {
	CampID       string    `json:"camp_id"`
	CampCode     string    `json:"camp_code"`
	ClientName   string    `json:"client_name,omitempty"`
	Date         string    `json:"date,omitempty"`
	Status       string    `json:"status"`
	ReportStatus string    `json:"report_status,omitempty"`
	Transition   string    `json:"transition"`
	ChangedBy    string    `json:"changed_by"`
	ChangedAt    time.Time `json:"changed_at"`
}

// BookingEventPayload is the booking state after the transition.
type BookingEventPayload struct {
	BookingID       string    `json:"booking_id"`
	MasterBookingID string    `json:"master_booking_id"`
	CampCode        string    `json:"camp_code,omitempty"`
	PatientName     string    `json:"patient_name,omitempty"`
	TestCount       int       `json:"test_count"`
	TotalPrice      float64   `json:"total_price"`
	PaymentStatus   string    `json:"payment_status"`
	VendorStatus    string    `json:"vendor_status,omitempty"`
	ReportStatus    string    `json:"report_status"`
	Transition      string    `json:"transition"`
	ChangedBy       string    `json:"changed_by"`
	ChangedAt       time.Time `json:"changed_at"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	seq         atomic.Int64
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type, or AllEvents.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type and returns the handler
// errors in registration order. Every handler runs.
func (b *EventBus) Publish(event *Event) []error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[AllEvents]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.ID == 0 {
		event.ID = b.seq.Add(1)
	}

	var errs []error
	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// PublishJSON serializes the payload and publishes an event. Handler
// failures are joined into the returned error after every handler ran.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	if errs := b.Publish(&event); len(errs) > 0 {
		return fmt.Errorf("%s: %w", eventType, errors.Join(errs...))
	}
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
