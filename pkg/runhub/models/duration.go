package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Duration is an elapsed race time in whole seconds. It accepts the
// flexible input grammar "HH", "HH:mm" or "HH:mm:ss". Hours are
// unbounded: this is elapsed time, not wall-clock time, so a 30-hour
// ultramarathon finish is legal. Minutes and seconds must be 0-59.
type Duration int64

const durationFormats = "HH:mm:ss, HH:mm or HH"

// ParseDuration parses the flexible time grammar into a Duration.
func ParseDuration(input string) (Duration, error) {
	if strings.TrimSpace(input) == "" {
		return 0, fmt.Errorf("time must not be empty, expected %s", durationFormats)
	}

	parts := strings.Split(input, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q, expected %s", input, durationFormats)
	}

	var fields [3]int64 // hours, minutes, seconds
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q, expected %s (example: 01:23:45)", input, durationFormats)
		}
		// minutes and seconds are capped, hours are not
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("invalid time %q: %s out of range, expected %s", input, []string{"hours", "minutes", "seconds"}[i], durationFormats)
		}
		fields[i] = n
	}

	return Duration(fields[0]*3600 + fields[1]*60 + fields[2]), nil
}

// Hours returns the whole-hour component.
func (d Duration) Hours() int64 { return int64(d) / 3600 }

// String renders the duration as HH:MM:SS, with hours growing past two
// digits when needed.
func (d Duration) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int64(d)/3600, int64(d)%3600/60, int64(d)%60)
}

// MarshalJSON renders the duration in the canonical HH:MM:SS form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON accepts the same flexible grammar as ParseDuration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("duration must be a string, expected %s", durationFormats)
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the duration as integer seconds.
func (d Duration) Value() (driver.Value, error) {
	return int64(d), nil
}

// Scan reads the duration back from integer seconds.
func (d *Duration) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*d = Duration(v)
		return nil
	case nil:
		*d = 0
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Duration", src)
	}
}
