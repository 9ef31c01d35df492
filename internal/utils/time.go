package utils

import (
	"strings"
	"time"
)

const (
	layoutDate   = "2006-01-02"
	layoutBRDate = "02/01/2006"
)

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ParseDate parses YYYY-MM-DD in local timezone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), time.Local)
}

// FormatBRDate turns YYYY-MM-DD into DD/MM/YYYY, returning the input when it does not parse.
func FormatBRDate(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return s
	}
	return t.Format(layoutBRDate)
}

// TimeHM trims "HH:MM:SS" to "HH:MM".
func TimeHM(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 5 && s[2] == ':' {
		return s[:5]
	}
	return s
}
