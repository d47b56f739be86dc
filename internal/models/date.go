package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"gorm.io/datatypes"
)

// Date is a calendar day without time or zone. Range checks on events and
// activities compare Dates, never instants.
type Date struct {
	civil.Date
}

// NewDate builds a Date from its calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{civil.Date{Year: year, Month: month, Day: day}}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return Date{}, err
	}
	return Date{d}, nil
}

// IsZero reports whether the date was never set.
func (d Date) IsZero() bool {
	return d.Date == civil.Date{}
}

// Before reports whether d falls on an earlier day than other.
func (d Date) Before(other Date) bool {
	return d.Date.Before(other.Date)
}

// After reports whether d falls on a later day than other.
func (d Date) After(other Date) bool {
	return d.Date.After(other.Date)
}

// Within reports whether start <= d <= end.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

// GormDataType stores dates in a native date column.
func (Date) GormDataType() string {
	return "date"
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner. Drivers return either text or a time.Time at
// midnight; only the calendar fields of the latter are kept.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = Date{civil.DateOf(v)}
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("models: cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(value string) error {
	if len(value) > 10 {
		value = value[:10]
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseClock parses a wall-clock time in HH:MM or HH:MM:SS form. Seconds are
// dropped so that comparisons happen at minute resolution.
func ParseClock(value string) (datatypes.Time, error) {
	value = strings.TrimSpace(value)
	layout := "15:04"
	if strings.Count(value, ":") == 2 {
		layout = "15:04:05"
	}
	parsed, err := time.Parse(layout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}
	return datatypes.NewTime(parsed.Hour(), parsed.Minute(), 0, 0), nil
}

// FormatClock renders a time of day as HH:MM.
func FormatClock(t datatypes.Time) string {
	d := time.Duration(t)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
