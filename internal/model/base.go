package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Date is a calendar day with no time zone attached. The zero value is not a
// valid date.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) String() string { return d.t.Format(dateLayout) }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool { return d.t.After(o.t) }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) Time() time.Time { return d.t }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// At combines the date with a time of day in loc.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	y, m, day := d.t.Date()
	h, mi, sec := c.Parts()
	return time.Date(y, m, day, h, mi, sec, 0, loc)
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.parseInto(string(v))
	case string:
		return d.parseInto(v)
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) parseInto(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clock is a time of day with second precision, stored as seconds since
// midnight.
type Clock int

func NewClock(hour, minute int) Clock {
	return Clock(hour*3600 + minute*60)
}

// ClockOf returns the time of day of t, truncated to the second.
func ClockOf(t time.Time) Clock {
	h, m, s := t.Clock()
	return Clock(h*3600 + m*60 + s)
}

// ParseClock accepts HH:MM and HH:MM:SS. Fractional seconds are dropped.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	for _, layout := range []string{"15:04:05", clockLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", s)
}

func (c Clock) Parts() (hour, minute, second int) {
	n := int(c)
	return n / 3600, (n % 3600) / 60, n % 60
}

// String renders HH:MM, which is how times are shown to patients.
func (c Clock) String() string {
	h, m, _ := c.Parts()
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (c Clock) Long() string {
	h, m, s := c.Parts()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*c = ClockOf(v)
		return nil
	case []byte:
		return c.parseInto(string(v))
	case string:
		return c.parseInto(v)
	}
	return fmt.Errorf("cannot scan %T into Clock", src)
}

func (c *Clock) parseInto(s string) error {
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) Value() (driver.Value, error) {
	return c.Long(), nil
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Long())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
