package barcodes

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date. It travels as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, in which case only
// the date part in the timestamp's own offset is kept.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dateLayout, value); err == nil {
		return NewDate(t.Date()), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return NewDate(t.Date()), nil
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Time.AddDate(0, 0, n).Date())
}

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		*d = Date{}
		return nil
	}
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, raw)
	}
	parsed, err := ParseDate(raw[1 : len(raw)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Record is one row of the barcodes table. JSON keys follow the column names.
type Record struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	EntryDate      *Date    `json:"entry_date"`
	ExpiryDate     *Date    `json:"expiry_date"`
	WithdrawalDate *Date    `json:"withdrawal_date"`
	Weight         *float64 `json:"weight"`
	Quantity       *int64   `json:"quantity"`
	Batch          *string  `json:"batch"`
}
