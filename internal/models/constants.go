package models

// Collection names in the document store.
const (
	CollectionCamps        = "camps"
	CollectionTestBookings = "testBookings"
)

type CampStatus string

const (
	CampScheduled CampStatus = "scheduled"
	CampCompleted CampStatus = "completed"
	CampCancelled CampStatus = "cancelled"
)

// Valid reports whether s is one of the known camp statuses.
func (s CampStatus) Valid() bool {
	switch s {
	case CampScheduled, CampCompleted, CampCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status can no longer change.
func (s CampStatus) Terminal() bool {
	switch s {
	case CampCompleted, CampCancelled:
		return true
	case CampScheduled:
		return false
	default:
		return false
	}
}

type CampReportStatus string

const (
	CampReportAbsent CampReportStatus = ""
	CampReportSent   CampReportStatus = "sent"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	default:
		return false
	}
}

type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "cash"
	PaymentModeUPI    PaymentMode = "upi"
	PaymentModeCard   PaymentMode = "card"
	PaymentModeOnline PaymentMode = "online"
	PaymentModeFree   PaymentMode = "free"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeUPI, PaymentModeCard, PaymentModeOnline, PaymentModeFree:
		return true
	default:
		return false
	}
}

// NeedsReference reports whether a payment made with this mode must carry a transaction reference.
func (m PaymentMode) NeedsReference() bool {
	switch m {
	case PaymentModeUPI, PaymentModeCard, PaymentModeOnline:
		return true
	case PaymentModeCash, PaymentModeFree:
		return false
	default:
		return false
	}
}

type VendorStatus string

const (
	VendorAbsent    VendorStatus = ""
	VendorCompleted VendorStatus = "completed"
)

type ReportStatus string

const (
	ReportNotSubmitted ReportStatus = "not_submitted"
	ReportSubmitted    ReportStatus = "submitted"
)

// Role is advisory: it is recorded and logged, never enforced.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleOperations Role = "operations"
	RoleSales      Role = "sales"
)

const (
	// DefaultPageSize is the page size used when a query does not specify one.
	DefaultPageSize = 25

	// LargeCollectionThreshold is the result size above which views render a capped window.
	LargeCollectionThreshold = 1000

	// DefaultWindowSize is the number of rows materialised for large results.
	DefaultWindowSize = 200

	// CampOverdueGraceDays is how long after the camp date a completed camp may wait for report closure.
	CampOverdueGraceDays = 3

	DefaultCampCodePrefix  = "CMP"
	DefaultBookingIDPrefix = "MB"
)
