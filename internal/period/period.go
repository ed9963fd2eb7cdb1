// Package period parses human-phrased relative periods such as "3 days" or
// "2 months" into durations.
//
// Months and years are fixed approximations (30 and 365 days). They are not
// calendar aware, so a "1 month" window drifts against real calendar months.
package period

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPeriod is matched by every error returned from Parse.
var ErrInvalidPeriod = errors.New("invalid period")

// InvalidPeriodError carries the text that failed to parse.
type InvalidPeriodError struct {
	Text   string
	Reason string
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period %q: %s (examples: '4 days', '3 months')", e.Text, e.Reason)
}

func (e *InvalidPeriodError) Is(target error) bool {
	return target == ErrInvalidPeriod
}

// Unit is one accepted period unit.
type Unit struct {
	Keyword string
	Length  time.Duration
}

const (
	Minute = time.Minute
	Hour   = time.Hour
	Day    = 24 * time.Hour
	Week   = 7 * Day
	Month  = 30 * Day  // approximation
	Year   = 365 * Day // approximation
)

// units is checked in order; the first entry whose keyword (or its plural)
// equals the unit token wins.
var units = []Unit{
	{Keyword: "minute", Length: Minute},
	{Keyword: "hour", Length: Hour},
	{Keyword: "day", Length: Day},
	{Keyword: "week", Length: Week},
	{Keyword: "month", Length: Month},
	{Keyword: "year", Length: Year},
}

var periodRe = regexp.MustCompile(`^(\d+)\s*([a-z]+)$`)

// Units returns the accepted units in matching order.
func Units() []Unit {
	out := make([]Unit, len(units))
	copy(out, units)
	return out
}

// Parse converts text like "5 minutes" or "1 year" into a duration.
func Parse(text string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(text))

	m := periodRe.FindStringSubmatch(s)
	if m == nil {
		return 0, &InvalidPeriodError{Text: text, Reason: "expected <number> <unit>"}
	}

	unit, ok := lookupUnit(m[2])
	if !ok {
		return 0, &InvalidPeriodError{Text: text, Reason: fmt.Sprintf("unsupported unit %q", m[2])}
	}

	count, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || count > math.MaxInt64/int64(unit.Length) {
		return 0, &InvalidPeriodError{Text: text, Reason: "amount out of range"}
	}

	return time.Duration(count) * unit.Length, nil
}

func lookupUnit(token string) (Unit, bool) {
	for _, u := range units {
		if token == u.Keyword || token == u.Keyword+"s" {
			return u, true
		}
	}
	return Unit{}, false
}
