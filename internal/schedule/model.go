package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// WorkingWindow is a contiguous availability range within one local day,
// in minutes from local midnight. End is exclusive: a service ending
// exactly at EndMin fits.
type WorkingWindow struct {
	StartMin int
	EndMin   int
}

// TimeOff is an absolute exclusion interval. Start == End marks the whole
// local day containing Start as blocked.
type TimeOff struct {
	Start time.Time
	End   time.Time
}

// StaffSchedule is everything the planner needs to know about one staff
// member's availability. Overrides maps a YYYY-MM-DD date to the windows
// replacing the weekly rule on that date; a present-but-empty list means
// the staff member is off that day.
type StaffSchedule struct {
	StaffID   uuid.UUID
	Active    bool
	Weekly    map[time.Weekday][]WorkingWindow
	Overrides map[string][]WorkingWindow
	TimeOff   []TimeOff
}

// ServiceVariant is one bookable configuration of a service. Services are
// single-specialist: each variant names exactly one assigned staff member.
type ServiceVariant struct {
	ServiceID       uuid.UUID
	VariantName     string
	StaffID         uuid.UUID
	DurationMin     int
	BufferBeforeMin int
	BufferAfterMin  int
}

// BookedInterval is an existing appointment read for exclusion purposes.
type BookedInterval struct {
	Start  time.Time
	End    time.Time
	Status string
}

// Slot is a computed bookable window, never stored.
type Slot struct {
	StaffID uuid.UUID
	Start   time.Time
	End     time.Time
}

// ParseClock converts "HH:mm" to minutes from midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes from midnight to "HH:mm".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}
