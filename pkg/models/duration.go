package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDuration is returned when an authored duration string cannot be parsed.
var ErrInvalidDuration = errors.New("invalid duration")

// ParseDuration parses the restricted ISO-8601 "PnDTnHnMnS" duration family
// used by authored plans (PT0S, PT10M, PT24H, P2DT3H, ...) into a
// time.Duration with millisecond-exact semantics.
//
// Only non-negative integer components are accepted, in declaration order
// (days, then hours/minutes/seconds after 'T'). Malformed input is an error,
// never a silent zero.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) < 3 || s[0] != 'P' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var (
		total      time.Duration
		components int
		inTime     bool
	)

	i := 1

	for i < len(s) {
		if s[i] == 'T' {
			if inTime {
				return 0, fmt.Errorf("%w: %q has repeated time designator", ErrInvalidDuration, s)
			}

			inTime = true
			i++

			continue
		}

		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}

		if start == i || i == len(s) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}

		var value int64
		for _, c := range s[start:i] {
			value = value*10 + int64(c-'0')
		}

		unit, err := durationUnit(s[i], inTime)
		if err != nil {
			return 0, fmt.Errorf("%w: %q has unexpected designator %q", ErrInvalidDuration, s, string(s[i]))
		}

		total += time.Duration(value) * unit
		components++
		i++
	}

	if components == 0 {
		return 0, fmt.Errorf("%w: %q has no components", ErrInvalidDuration, s)
	}

	return total, nil
}

func durationUnit(designator byte, inTime bool) (time.Duration, error) {
	if inTime {
		switch designator {
		case 'H':
			return time.Hour, nil
		case 'M':
			return time.Minute, nil
		case 'S':
			return time.Second, nil
		}
	} else if designator == 'D' {
		return 24 * time.Hour, nil
	}

	return 0, ErrInvalidDuration
}
