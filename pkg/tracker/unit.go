package tracker

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Unit tags the time basis of a tracker's timestamps and windows.
// It does not change any tracker semantics; it only records how the
// numbers should be read and converted at the API boundary.
type Unit int

const (
	Unitless Unit = iota
	Second
	Millisecond
)

func (u Unit) String() string {
	switch u {
	case Unitless:
		return "unitless"
	case Second:
		return "s"
	case Millisecond:
		return "ms"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// ParseUnit accepts the names produced by String plus a few common spellings.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unitless", "none":
		return Unitless, nil
	case "s", "sec", "second", "seconds":
		return Second, nil
	case "ms", "millisecond", "milliseconds":
		return Millisecond, nil
	default:
		return Unitless, fmt.Errorf("tracker: unknown time unit %q", s)
	}
}

// FromDuration expresses d in u. Unitless values are taken as seconds.
func (u Unit) FromDuration(d time.Duration) float64 {
	if u == Millisecond {
		return float64(d) / float64(time.Millisecond)
	}
	return d.Seconds()
}

// ToDuration is the inverse of FromDuration.
func (u Unit) ToDuration(v float64) time.Duration {
	if u == Millisecond {
		return time.Duration(v * float64(time.Millisecond))
	}
	return time.Duration(v * float64(time.Second))
}

// FromTime expresses an absolute time as a tracker timestamp in u.
func (u Unit) FromTime(t time.Time) float64 {
	if u == Millisecond {
		return float64(t.UnixMilli()) + float64(t.Nanosecond()%int(time.Millisecond))/float64(time.Millisecond)
	}
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// ToTime is the inverse of FromTime. Whole units are converted exactly so
// that integral millisecond timestamps round-trip.
func (u Unit) ToTime(v float64) time.Time {
	whole := math.Floor(v)
	frac := u.ToDuration(v - whole)
	if u == Millisecond {
		return time.UnixMilli(int64(whole)).Add(frac)
	}
	return time.Unix(int64(whole), 0).Add(frac)
}

// basis holds the unit tag shared by every tracker.
type basis struct {
	unit Unit
}

// Unit returns the time basis the tracker's numbers are expressed in.
func (b *basis) Unit() Unit { return b.unit }

// SetUnit retags the tracker. Existing windows and timestamps are not rescaled.
func (b *basis) SetUnit(u Unit) { b.unit = u }
