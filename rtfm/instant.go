package rtfm

// MaxDuration is the exclusive bound on how far apart two live Instants may
// be: Add and Sub reject a Duration of MaxDuration or more, since reaching it
// makes wrap-safe ordering ambiguous (§4.5).
const MaxDuration Duration = 1 << 31

// CycleCounter is the runtime's time base. On real hardware it reads the
// DWT cycle counter; tests supply their own.
type CycleCounter interface {
	CycleCount() uint32
}

// Instant is a point on the monotonic, wrap-around cycle counter. It is
// opaque outside this package except for ordering and Duration arithmetic.
type Instant struct {
	cycles int32
}

// Duration is an unsigned span of cycles. The span must stay below
// MaxDuration: that bound is what makes wrap-safe Instant arithmetic sound.
type Duration struct {
	cycles uint32
}

// Cycles builds a Duration out of a raw cycle count.
func Cycles(n uint32) Duration {
	return Duration{cycles: n}
}

// Now samples the counter and returns the corresponding Instant.
func Now(c CycleCounter) Instant {
	return Instant{cycles: int32(c.CycleCount())}
}

// Artificial builds an Instant from a raw value. Exposed only for tests;
// production code should always go through Now.
func Artificial(raw int32) Instant {
	return Instant{cycles: raw}
}

// Add returns i advanced by d, wrapping on overflow.
func (i Instant) Add(d Duration) Instant {
	if d.cycles >= uint32(MaxDuration.cycles) {
		panic("rtfm: duration exceeds half the counter range")
	}
	return Instant{cycles: i.cycles + int32(d.cycles)}
}

// Sub returns i moved back by d, wrapping on underflow.
func (i Instant) Sub(d Duration) Instant {
	if d.cycles >= uint32(MaxDuration.cycles) {
		panic("rtfm: duration exceeds half the counter range")
	}
	return Instant{cycles: i.cycles - int32(d.cycles)}
}

// DurationSince returns the span from earlier to i. It panics if earlier is
// ordered after i under wrap-safe comparison, mirroring the original's
// "second instant is later than self" assertion.
func (i Instant) DurationSince(earlier Instant) Duration {
	diff := i.cycles - earlier.cycles
	if diff < 0 {
		panic("rtfm: second instant is later than self")
	}
	return Duration{cycles: uint32(diff)}
}

// Elapsed returns the time elapsed between i and now, as read from c.
func (i Instant) Elapsed(c CycleCounter) Duration {
	return Now(c).DurationSince(i)
}

// Compare orders two instants using wrap-safe signed subtraction:
// sign((a-b) as i32). It returns -1, 0, or 1.
func (i Instant) Compare(other Instant) int {
	diff := i.cycles - other.cycles
	switch {
	case diff < 0:
		return -1
	case diff > 0:
		return 1
	default:
		return 0
	}
}

// Before reports whether i orders strictly before other.
func (i Instant) Before(other Instant) bool { return i.Compare(other) < 0 }

// After reports whether i orders strictly after other.
func (i Instant) After(other Instant) bool { return i.Compare(other) > 0 }

// Raw exposes the underlying cycle value, for diagnostics and tests.
func (i Instant) Raw() int32 { return i.cycles }

// Raw exposes the underlying cycle span; the generated SysTick reload logic
// reads it.
func (d Duration) Raw() uint32 { return d.cycles }

// Plus adds two durations.
func (d Duration) Plus(other Duration) Duration {
	return Duration{cycles: d.cycles + other.cycles}
}

// Minus subtracts other from d.
func (d Duration) Minus(other Duration) Duration {
	return Duration{cycles: d.cycles - other.cycles}
}

// Less reports whether d is shorter than other.
func (d Duration) Less(other Duration) bool { return d.cycles < other.cycles }
