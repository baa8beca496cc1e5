// Package alarm contains pure threshold-alarm logic for sensor readings.
// This package has NO external dependencies (no network, OS, or time.Sleep);
// all inputs are passed in by the caller.
package alarm

// Kind classifies a limit violation.
type Kind string

const (
	KindNone Kind = ""
	KindLow  Kind = "LOW_LIMIT"
	KindHigh Kind = "HIGH_LIMIT"
)

// Limits holds the configured low/high thresholds for one sensor.
type Limits struct {
	Low  float64
	High float64
}

// Record is one latched alarm occurrence. Immutable once created.
type Record struct {
	ID     string
	TS     string
	Sensor string
	Value  float64
	Kind   Kind
}

// Evaluate classifies a single reading against its limits. A reading with no
// value, or whose status is not OK, never alarms: a faulty sensor's numbers
// are untrusted.
func Evaluate(value float64, hasValue bool, lim Limits, statusOK bool) Kind {
	if !hasValue || !statusOK {
		return KindNone
	}
	if value < lim.Low {
		return KindLow
	}
	if value > lim.High {
		return KindHigh
	}
	return KindNone
}

// Latch tracks the in-alarm state of one sensor. An alarm record should be
// created only on the false→true edge reported by Observe; while the
// condition persists across samples no further records are produced, and any
// in-range or non-OK sample re-arms the latch.
type Latch struct {
	inAlarm bool
}

// Observe feeds the evaluator result for the latest sample into the latch
// and reports whether a new alarm record should be created.
func (l *Latch) Observe(k Kind) bool {
	if k == KindNone {
		l.inAlarm = false
		return false
	}
	if l.inAlarm {
		return false
	}
	l.inAlarm = true
	return true
}

// InAlarm reports the current latch state.
func (l *Latch) InAlarm() bool {
	return l.inAlarm
}

// Reset clears the latch to its initial state.
func (l *Latch) Reset() {
	l.inAlarm = false
}
