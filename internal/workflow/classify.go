package workflow

import (
	"time"

	"healthops/internal/models"
	"healthops/internal/statusclock"
)

// CampBucket is the single status bucket of c at now. Every camp also
// belongs to BucketAll.
func CampBucket(c models.Camp, now time.Time) Bucket {
	switch statusclock.CampDisplayStatus(c, now) {
	case statusclock.CampDueToday:
		return BucketDueToday
	case statusclock.CampOverdue:
		return BucketOverdue
	case statusclock.CampPendingClosure:
		return BucketPendingClosure
	case statusclock.CampClosureOverdue:
		return BucketClosureOverdue
	case statusclock.CampClosed:
		return BucketClosed
	case statusclock.CampCancelled:
		return BucketCancelled
	case statusclock.CampUpcoming:
		return BucketUpcoming
	default:
		return BucketUpcoming
	}
}

// BookingBucket is the single pipeline bucket of b.
func BookingBucket(b models.TestBooking) Bucket {
	switch statusclock.BookingStage(b) {
	case statusclock.StagePaymentFailed:
		return BucketPaymentFailed
	case statusclock.StagePendingVendor:
		return BucketPendingVendor
	case statusclock.StagePendingReport:
		return BucketPendingReport
	case statusclock.StageReportSubmitted:
		return BucketReportSubmitted
	case statusclock.StagePaymentPending:
		return BucketPaymentPending
	default:
		return BucketPaymentPending
	}
}

// Classifier assigns a record to its bucket.
type Classifier[T any] func(rec T, now time.Time) Bucket

func CampClassifier(c models.Camp, now time.Time) Bucket { return CampBucket(c, now) }

func BookingClassifier(b models.TestBooking, _ time.Time) Bucket { return BookingBucket(b) }

// Classify partitions records into buckets. Input order is kept within each
// bucket and every record is also placed in BucketAll. A closure-overdue
// camp is still pending closure, so it is listed under both.
func Classify[T any](records []T, classify Classifier[T], now time.Time) map[Bucket][]T {
	out := map[Bucket][]T{BucketAll: make([]T, 0, len(records))}
	for _, rec := range records {
		b := classify(rec, now)
		out[b] = append(out[b], rec)
		if b == BucketClosureOverdue {
			out[BucketPendingClosure] = append(out[BucketPendingClosure], rec)
		}
		out[BucketAll] = append(out[BucketAll], rec)
	}
	return out
}

// InBucket reports whether rec is listed under bucket.
func InBucket[T any](rec T, bucket Bucket, classify Classifier[T], now time.Time) bool {
	if bucket == BucketAll {
		return true
	}
	b := classify(rec, now)
	return b == bucket || (bucket == BucketPendingClosure && b == BucketClosureOverdue)
}
