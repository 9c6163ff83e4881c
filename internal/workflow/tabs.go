// Package workflow binds screens to lifecycle-derived record buckets and
// moves between screens by record id.
package workflow

import (
	"errors"
	"fmt"
)

var ErrUnknownContext = errors.New("unknown context")

// Context names a screen.
type Context string

const (
	ContextCampSchedule Context = "camp_schedule"
	ContextCampClosure  Context = "camp_closure"
	ContextTestBookings Context = "test_bookings"
	ContextVendorDesk   Context = "vendor_desk"
	ContextReports      Context = "reports"
)

// Bucket names a partition of records.
type Bucket string

const (
	BucketAll Bucket = "all"

	BucketUpcoming       Bucket = "upcoming"
	BucketDueToday       Bucket = "dueToday"
	BucketOverdue        Bucket = "overdue"
	BucketPendingClosure Bucket = "pendingClosure"
	BucketClosureOverdue Bucket = "closureOverdue"
	BucketClosed         Bucket = "closed"
	BucketCancelled      Bucket = "cancelled"

	BucketPaymentPending  Bucket = "paymentPending"
	BucketPaymentFailed   Bucket = "paymentFailed"
	BucketPendingVendor   Bucket = "pendingVendor"
	BucketPendingReport   Bucket = "pendingReport"
	BucketReportSubmitted Bucket = "reportSubmitted"
)

// Entity is the record kind a context lists.
type Entity string

const (
	EntityCamp    Entity = "camp"
	EntityBooking Entity = "booking"
)

type contextDef struct {
	entity     Entity
	tabs       []Bucket
	defaultTab Bucket
}

var contexts = map[Context]contextDef{
	ContextCampSchedule: {
		entity:     EntityCamp,
		tabs:       []Bucket{BucketUpcoming, BucketDueToday, BucketOverdue, BucketCancelled, BucketAll},
		defaultTab: BucketDueToday,
	},
	ContextCampClosure: {
		entity:     EntityCamp,
		tabs:       []Bucket{BucketPendingClosure, BucketClosureOverdue, BucketClosed},
		defaultTab: BucketPendingClosure,
	},
	ContextTestBookings: {
		entity:     EntityBooking,
		tabs:       []Bucket{BucketPaymentPending, BucketPaymentFailed, BucketPendingVendor, BucketPendingReport, BucketReportSubmitted, BucketAll},
		defaultTab: BucketPaymentPending,
	},
	ContextVendorDesk: {
		entity:     EntityBooking,
		tabs:       []Bucket{BucketPendingVendor, BucketPendingReport},
		defaultTab: BucketPendingVendor,
	},
	ContextReports: {
		entity:     EntityBooking,
		tabs:       []Bucket{BucketPendingReport, BucketReportSubmitted},
		defaultTab: BucketPendingReport,
	},
}

// Contexts lists every known context.
func Contexts() []Context {
	return []Context{ContextCampSchedule, ContextCampClosure, ContextTestBookings, ContextVendorDesk, ContextReports}
}

func lookup(ctx Context) (contextDef, error) {
	def, ok := contexts[ctx]
	if !ok {
		return contextDef{}, fmt.Errorf("%w: %q", ErrUnknownContext, ctx)
	}
	return def, nil
}

// Tabs returns the ordered tabs of ctx.
func Tabs(ctx Context) ([]Bucket, error) {
	def, err := lookup(ctx)
	if err != nil {
		return nil, err
	}
	return append([]Bucket(nil), def.tabs...), nil
}

func DefaultTab(ctx Context) (Bucket, error) {
	def, err := lookup(ctx)
	if err != nil {
		return "", err
	}
	return def.defaultTab, nil
}

// EntityOf returns the record kind ctx lists.
func EntityOf(ctx Context) (Entity, error) {
	def, err := lookup(ctx)
	if err != nil {
		return "", err
	}
	return def.entity, nil
}

// HasTab reports whether tab belongs to ctx.
func HasTab(ctx Context, tab Bucket) bool {
	def, ok := contexts[ctx]
	if !ok {
		return false
	}
	for _, b := range def.tabs {
		if b == tab {
			return true
		}
	}
	return false
}
