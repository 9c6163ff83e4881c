package workflow

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"healthops/internal/models"
)

var ErrRecordNotFound = errors.New("record not found")

// Selection is what a detail surface receives when a record is chosen.
// Exactly one of Camp and Booking is set.
type Selection struct {
	Context Context
	Tab     Bucket
	ID      string
	Camp    *models.Camp
	Booking *models.TestBooking
}

type SelectFunc func(sel Selection)

// Navigator tracks the current screen and switches screens by record id.
type Navigator struct {
	camps    Source[models.Camp]
	bookings Source[models.TestBooking]
	now      func() time.Time
	onSelect SelectFunc

	mu       sync.Mutex
	ctx      Context
	tab      Bucket
	selected string
}

func NewNavigator(camps Source[models.Camp], bookings Source[models.TestBooking], now func() time.Time, onSelect SelectFunc) *Navigator {
	if now == nil {
		now = time.Now
	}
	return &Navigator{
		camps:    camps,
		bookings: bookings,
		now:      now,
		onSelect: onSelect,
		ctx:      ContextCampSchedule,
		tab:      contexts[ContextCampSchedule].defaultTab,
	}
}

// Current returns the active context, tab and selected record id.
func (n *Navigator) Current() (Context, Bucket, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ctx, n.tab, n.selected
}

// Open switches to ctx on its default tab and clears the selection.
func (n *Navigator) Open(ctx Context) error {
	tab, err := DefaultTab(ctx)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.ctx, n.tab, n.selected = ctx, tab, ""
	n.mu.Unlock()
	return nil
}

// SwitchTab changes the tab within the current context.
func (n *Navigator) SwitchTab(tab Bucket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !HasTab(n.ctx, tab) {
		return fmt.Errorf("%w: %q in %s", ErrUnknownTab, tab, n.ctx)
	}
	n.tab = tab
	return nil
}

// Select switches to ctx, picks the tab the record is listed under and hands
// the full record to the select callback.
func (n *Navigator) Select(ctx Context, id string) (Selection, error) {
	entity, err := EntityOf(ctx)
	if err != nil {
		return Selection{}, err
	}

	now := n.now()
	sel := Selection{Context: ctx, ID: id}
	var bucket Bucket
	switch entity {
	case EntityCamp:
		c, ok := n.camps.Get(id)
		if !ok {
			return Selection{}, fmt.Errorf("%w: camp %s", ErrRecordNotFound, id)
		}
		sel.Camp = &c
		bucket = CampBucket(c, now)
	case EntityBooking:
		b, ok := n.bookings.Get(id)
		if !ok {
			return Selection{}, fmt.Errorf("%w: booking %s", ErrRecordNotFound, id)
		}
		sel.Booking = &b
		bucket = BookingBucket(b)
	}
	sel.Tab = tabFor(ctx, bucket)

	n.mu.Lock()
	n.ctx, n.tab, n.selected = ctx, sel.Tab, id
	n.mu.Unlock()

	if n.onSelect != nil {
		n.onSelect(sel)
	}
	return sel, nil
}

// tabFor picks the tab listing a record of bucket, falling back to "all" and
// then to the default tab.
func tabFor(ctx Context, bucket Bucket) Bucket {
	switch {
	case HasTab(ctx, bucket):
		return bucket
	case bucket == BucketClosureOverdue && HasTab(ctx, BucketPendingClosure):
		return BucketPendingClosure
	case HasTab(ctx, BucketAll):
		return BucketAll
	}
	return contexts[ctx].defaultTab
}

// SelectCampOf follows a booking to the camp it was taken at. The camp opens
// in the closure screen once completed and in the schedule screen otherwise.
func (n *Navigator) SelectCampOf(bookingID string) (Selection, error) {
	b, ok := n.bookings.Get(bookingID)
	if !ok {
		return Selection{}, fmt.Errorf("%w: booking %s", ErrRecordNotFound, bookingID)
	}
	for _, c := range n.camps.Records() {
		if b.CampCode == "" || !strings.EqualFold(c.CampCode, b.CampCode) {
			continue
		}
		ctx := ContextCampSchedule
		if c.Status == models.CampCompleted {
			ctx = ContextCampClosure
		}
		return n.Select(ctx, c.ID)
	}
	return Selection{}, fmt.Errorf("%w: camp %q", ErrRecordNotFound, b.CampCode)
}
