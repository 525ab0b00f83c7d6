package schedule

import (
	"fmt"
	"time"
)

// Fixed text formats for the temporal columns. Values are stored zero padded
// so that lexicographic order matches chronological order.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// EndsAt combines a class date and end time into a single local instant.
// The schedule has always been kept in local campus time. Parsing here is
// deliberately lenient: the sweeper still wants to expire an old row whose
// time was written as "9:00".
func EndsAt(date, endTime string) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+endTime, time.Local)
}

// parseClock parses an HH:MM value. time.Parse alone accepts "9:00", which
// would break the lexicographic ordering of the stored text, so the value
// must round-trip unchanged.
func parseClock(value string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	if t.Format(TimeLayout) != value {
		return time.Time{}, fmt.Errorf("not zero padded: %q", value)
	}
	return t, nil
}

// ValidateSpan checks a (date, start, end) triple before it is written:
// each part must use its fixed zero-padded format and the start must
// precede the end.
func ValidateSpan(date, start, end string) error {
	if _, err := time.ParseInLocation(DateLayout, date, time.Local); err != nil {
		return fmt.Errorf("%w: date must use the YYYY-MM-DD format", ErrInvalidInput)
	}
	startT, err := parseClock(start)
	if err != nil {
		return fmt.Errorf("%w: start time must use the HH:MM format", ErrInvalidInput)
	}
	endT, err := parseClock(end)
	if err != nil {
		return fmt.Errorf("%w: end time must use the HH:MM format", ErrInvalidInput)
	}
	if !startT.Before(endT) {
		return fmt.Errorf("%w: start time must be before end time", ErrInvalidInput)
	}
	return nil
}
