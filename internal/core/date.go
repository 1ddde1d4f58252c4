package core

import "time"

// NormalizeISODate clips a date value to its YYYY-MM-DD prefix. Values
// that do not start with an ISO calendar date are parsed as RFC 3339 as a
// fallback; anything else normalizes to the empty string. The function is
// idempotent: an already-normalized date comes back unchanged.
func NormalizeISODate(val string) string {
	if val == "" {
		return ""
	}
	if len(val) >= 10 && isISODatePrefix(val[:10]) {
		return val[:10]
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	return ""
}

func isISODatePrefix(s string) bool {
	// Shape check first (dddd-dd-dd), then a real calendar parse so that
	// 2025-13-40 does not slip through.
	for i, r := range s {
		switch i {
		case 4, 7:
			if r != '-' {
				return false
			}
		default:
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// MonthKey returns the YYYY-MM prefix of a normalized date, or "" when
// the date cannot be normalized. Rows with an empty month key are
// excluded from month-keyed aggregation.
func MonthKey(date string) string {
	d := NormalizeISODate(date)
	if d == "" {
		return ""
	}
	return d[:7]
}

// CurrentMonthKey formats a point in time as a YYYY-MM key.
func CurrentMonthKey(now time.Time) string {
	return now.Format("2006-01")
}

// IsMonthKey reports whether s is a well-formed YYYY-MM key.
func IsMonthKey(s string) bool {
	if len(s) != 7 {
		return false
	}
	_, err := time.Parse("2006-01", s)
	return err == nil
}
