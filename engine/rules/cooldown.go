package rules

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// parseDuration accepts the compact unit-suffixed forms rule authors write
// in schedule.cooldown ("30m", "1h", "2h30m") — a strict subset of Go's
// own time.ParseDuration restricted to hours/minutes/seconds components in
// descending order, matching what the YAML schema documents.
func parseDuration(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

// ParseCooldown parses a schedule.cooldown string into a duration, for
// callers driving a Tracker directly from a rule's Schedule.
func ParseCooldown(s string) (time.Duration, bool) {
	return parseDuration(s)
}

// Tracker suppresses repeat rule firings for the same entity within a
// rule's configured cooldown window.
type Tracker struct {
	mu       sync.Mutex
	lastFire map[string]time.Time // "ruleID\x00entityKey" -> last match time
}

// NewTracker builds an empty cooldown tracker.
func NewTracker() *Tracker {
	return &Tracker{lastFire: make(map[string]time.Time)}
}

func cooldownKey(ruleID, entityKey string) string {
	return ruleID + "\x00" + entityKey
}

// Allow reports whether a match for (ruleID, entityKey) may fire now,
// given cooldown, and records the firing if so. A zero cooldown never
// suppresses.
func (t *Tracker) Allow(ruleID, entityKey string, cooldown time.Duration, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := cooldownKey(ruleID, entityKey)
	if cooldown > 0 {
		if last, ok := t.lastFire[key]; ok && now.Sub(last) < cooldown {
			return false
		}
	}
	t.lastFire[key] = now
	return true
}

// cronFieldRanges are the valid value bounds for each of the 5 cron
// fields, in order: minute, hour, day-of-month, month, day-of-week.
var cronFieldRanges = [5]struct {
	name     string
	min, max int
}{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 7},
}

// ValidateCron checks that expr is a well-formed 5-field cron expression,
// each field matching *, N, N-M, */N, N-M/N, or a comma-separated list of
// those, within its field's valid range.
func ValidateCron(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return fmt.Errorf("rules: cron must have exactly 5 fields (minute hour dom month dow), got %d", len(fields))
	}
	for i, field := range fields {
		r := cronFieldRanges[i]
		if !validCronField(field, r.min, r.max) {
			return fmt.Errorf("rules: invalid cron %s field %q", r.name, field)
		}
	}
	return nil
}

func validCronField(field string, min, max int) bool {
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return false
		}

		rangePart, step, hasStep := part, 0, false
		if idx := strings.IndexByte(part, '/'); idx >= 0 {
			rangePart = part[:idx]
			n, err := strconv.Atoi(part[idx+1:])
			if err != nil || n <= 0 {
				return false
			}
			step, hasStep = n, true
		}

		if rangePart == "*" {
			if hasStep && step > max {
				return false
			}
			continue
		}

		if idx := strings.IndexByte(rangePart, '-'); idx >= 0 {
			start, err1 := strconv.Atoi(rangePart[:idx])
			end, err2 := strconv.Atoi(rangePart[idx+1:])
			if err1 != nil || err2 != nil || start < min || end > max || start > end {
				return false
			}
			continue
		}

		v, err := strconv.Atoi(rangePart)
		if err != nil || v < min || v > max {
			return false
		}
	}
	return true
}

// ValidateSchedule checks cron validity and, if present, cooldown's
// duration format.
func ValidateSchedule(s Schedule) error {
	if err := ValidateCron(s.Cron); err != nil {
		return err
	}
	if s.Cooldown != "" {
		if _, ok := parseDuration(s.Cooldown); !ok {
			return fmt.Errorf("rules: invalid cooldown duration %q, expected e.g. '30m', '1h', '2h30m'", s.Cooldown)
		}
	}
	return nil
}
