package service

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"reminder-bot/internal/model"
)

var (
	relativeRe = regexp.MustCompile(`(?i)^in\s+(\S+?)\s*([a-z]+)$`)
	namedDayRe = regexp.MustCompile(`(?i)^(today|tomorrow)\s+(\d{1,2}):(\d{2})$`)
)

var relativeUnits = map[string]time.Duration{
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// TimeResolver turns user-entered time expressions into UTC instants.
type TimeResolver struct{}

func NewTimeResolver() *TimeResolver {
	return &TimeResolver{}
}

// Resolve parses expr in the given IANA zone. Supported forms, tried in order:
//
//	in <N><m|h|d>          relative to now
//	today|tomorrow HH:MM   local wall time on the named day
//	anything else          free-form date/time; naive values are local to tz
func (r *TimeResolver) Resolve(expr, tz string, now time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	loc, err := LoadZone(tz)
	if err != nil {
		return time.Time{}, parseError(expr, err)
	}
	if expr == "" {
		return time.Time{}, parseError(expr, errors.New("empty expression"))
	}

	if m := relativeRe.FindStringSubmatch(expr); m != nil {
		return resolveRelative(expr, m[1], m[2], now)
	}

	if m := namedDayRe.FindStringSubmatch(expr); m != nil {
		return resolveNamedDay(expr, m[1], m[2], m[3], loc, now)
	}

	parsed, err := dateparse.ParseIn(expr, loc)
	if err != nil {
		return time.Time{}, parseError(expr, err)
	}
	if name, ok := unknownZoneAbbrev(parsed, loc); ok {
		return time.Time{}, parseError(expr, fmt.Errorf("unknown zone abbreviation %q", name))
	}
	return parsed.UTC(), nil
}

// unknownZoneAbbrev reports an abbreviation that loc does not define. The time package
// parses those into a fabricated zone with a zero offset.
func unknownZoneAbbrev(t time.Time, loc *time.Location) (string, bool) {
	if t.Location() == loc || t.Location() == time.UTC {
		return "", false
	}
	name, offset := t.Zone()
	switch {
	case offset != 0, name == "", name == "UTC", name == "GMT", name == "Z":
		return "", false
	}
	return name, true
}

// ToLocal converts a stored instant into the wall-clock time of tz.
func (r *TimeResolver) ToLocal(instant time.Time, tz string) (time.Time, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return time.Time{}, err
	}
	return instant.In(loc), nil
}

func resolveRelative(expr, qty, unit string, now time.Time) (time.Time, error) {
	step, ok := relativeUnits[strings.ToLower(unit)]
	if !ok {
		return time.Time{}, parseError(expr, fmt.Errorf("unknown unit %q", unit))
	}
	n, err := strconv.ParseUint(qty, 10, 63)
	if err != nil {
		return time.Time{}, parseError(expr, fmt.Errorf("invalid amount %q", qty))
	}
	if n > uint64(math.MaxInt64/int64(step)) {
		return time.Time{}, parseError(expr, fmt.Errorf("amount %d too large", n))
	}
	return now.UTC().Add(time.Duration(n) * step), nil
}

func resolveNamedDay(expr, day, hh, mm string, loc *time.Location, now time.Time) (time.Time, error) {
	hour, _ := strconv.Atoi(hh)
	minute, _ := strconv.Atoi(mm)
	if hour > 23 || minute > 59 {
		return time.Time{}, parseError(expr, fmt.Errorf("invalid time %s:%s", hh, mm))
	}
	y, mo, d := now.In(loc).Date()
	if strings.EqualFold(day, "tomorrow") {
		d++
	}
	return time.Date(y, mo, d, hour, minute, 0, 0, loc).UTC(), nil
}

// LoadZone validates an IANA zone name and returns its location.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidTimezone, name)
	}
	return loc, nil
}

func parseError(expr string, err error) error {
	return &model.TimeParseError{Input: expr, Hint: model.TimeFormatHint, Err: err}
}
