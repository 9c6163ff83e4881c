package lifecycle

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"healthops/internal/models"
)

// NewCampCode returns "<prefix>-<yyyymmdd>-<6 hex>" for a camp on date.
func NewCampCode(prefix string, date models.Date) string {
	day := "00000000"
	if t, ok := date.In(time.UTC); ok {
		day = t.Format("20060102")
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, day, suffix)
}

// NewMasterBookingID returns "<prefix><yyyymmdd><6 digits>".
func NewMasterBookingID(prefix string, now time.Time) string {
	id := uuid.New()
	n := binary.BigEndian.Uint32(id[:4]) % 1_000_000
	return fmt.Sprintf("%s%s%06d", prefix, now.Format("20060102"), n)
}
