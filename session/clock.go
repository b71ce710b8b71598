// Package session maps wall-clock time to the day's trading phase.
//
// The mapping is a pure function of the timestamp: nothing here stores a
// "current phase". Idempotency across repeated ticks inside one window is
// the trading loop's job, not the clock's.
package session

import (
	"fmt"
	"time"
)

// Phase is one of the day's trading windows.
type Phase int

const (
	// PreOpen is before the market opens. Nothing to do yet.
	PreOpen Phase = iota
	// MorningLiquidation is the window for the one-time sale of any
	// residual holdings before the trading window opens.
	MorningLiquidation
	// Trading is the window in which breakout buys are evaluated.
	Trading
	// Closeout is the window for the one-time end-of-day liquidation.
	Closeout
	// Closed is at or after the exit boundary. Terminal.
	Closed
	// Weekend overrides every time-of-day window on Saturday and Sunday.
	// Terminal.
	Weekend
)

func (p Phase) String() string {
	switch p {
	case PreOpen:
		return "pre_open"
	case MorningLiquidation:
		return "morning_liquidation"
	case Trading:
		return "trading"
	case Closeout:
		return "closeout"
	case Closed:
		return "closed"
	case Weekend:
		return "weekend"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether the phase ends the session.
func (p Phase) Terminal() bool {
	return p == Closed || p == Weekend
}

// Schedule holds the day's phase boundaries in a fixed location.
// Boundaries are seconds since local midnight; each window is closed on
// the left and open on the right, so the phases partition the day.
type Schedule struct {
	Location *time.Location

	open          int
	tradingStart  int
	closeoutStart int
	exit          int
}

// New builds a Schedule from "HH:MM:SS" (or "HH:MM") boundary strings.
// Boundaries must be strictly increasing.
func New(loc *time.Location, open, tradingStart, closeoutStart, exit string) (Schedule, error) {
	if loc == nil {
		loc = time.Local
	}

	s := Schedule{Location: loc}
	var err error
	if s.open, err = parseClock(open); err != nil {
		return Schedule{}, fmt.Errorf("open: %w", err)
	}
	if s.tradingStart, err = parseClock(tradingStart); err != nil {
		return Schedule{}, fmt.Errorf("trading start: %w", err)
	}
	if s.closeoutStart, err = parseClock(closeoutStart); err != nil {
		return Schedule{}, fmt.Errorf("closeout start: %w", err)
	}
	if s.exit, err = parseClock(exit); err != nil {
		return Schedule{}, fmt.Errorf("exit: %w", err)
	}

	if !(s.open < s.tradingStart && s.tradingStart < s.closeoutStart && s.closeoutStart < s.exit) {
		return Schedule{}, fmt.Errorf("boundaries must be increasing: %s < %s < %s < %s",
			open, tradingStart, closeoutStart, exit)
	}
	return s, nil
}

// PhaseAt maps t to a phase. Saturday and Sunday are Weekend regardless
// of the time of day.
func (s Schedule) PhaseAt(t time.Time) Phase {
	t = t.In(s.Location)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return Weekend
	}

	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	switch {
	case sec < s.open:
		return PreOpen
	case sec < s.tradingStart:
		return MorningLiquidation
	case sec < s.closeoutStart:
		return Trading
	case sec < s.exit:
		return Closeout
	default:
		return Closed
	}
}

func parseClock(v string) (int, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(v, "%d:%d:%d", &h, &m, &sec); err != nil {
		sec = 0
		if _, err := fmt.Sscanf(v, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("parse clock %q: want HH:MM[:SS]", v)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("clock %q out of range", v)
	}
	return h*3600 + m*60 + sec, nil
}
