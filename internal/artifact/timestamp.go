// Package artifact provides the timestamped artifact store used to persist and
// cache pipeline stage outputs as append-only files.
package artifact

import (
	"strings"
	"sync"
	"time"
)

// TimestampFormat is the sortable timestamp layout embedded in artifact filenames.
// Lexicographic order on formatted values matches chronological order.
const TimestampFormat = "20060102_150405"

// Clock generates strictly increasing timestamps. Two calls within the same
// wall-clock second still produce distinct, ordered values.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewClock creates a clock backed by the system time.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt creates a clock with a custom time source, for testing.
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Timestamp returns the next sortable timestamp string.
func (c *Clock) Timestamp() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Second)
	if !t.After(c.last) {
		t = c.last.Add(time.Second)
	}
	c.last = t
	return t.Format(TimestampFormat)
}

// ParseTimestamp parses a timestamp string in TimestampFormat.
// Returns false if the value does not parse.
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(TimestampFormat, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// timestampFromName extracts the timestamp portion from a filename of the form
// {prefix}_{timestamp}.{ext}. The empty string is returned for the bare form
// {prefix}.{ext} and for names whose timestamp portion does not parse; such
// files sort below all timestamped artifacts.
func timestampFromName(name, prefix, ext string) (ts string, matched bool) {
	suffix := "." + ext
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}
	stem := strings.TrimSuffix(name, suffix)
	if stem == prefix {
		return "", true
	}
	if !strings.HasPrefix(stem, prefix+"_") {
		return "", false
	}
	candidate := strings.TrimPrefix(stem, prefix+"_")
	if _, ok := ParseTimestamp(candidate); !ok {
		return "", true
	}
	return candidate, true
}
