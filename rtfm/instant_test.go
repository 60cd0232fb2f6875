package rtfm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCounter struct{ v uint32 }

func (f *fakeCounter) CycleCount() uint32 { return f.v }

func TestNowReadsCounter(t *testing.T) {
	c := &fakeCounter{v: 1234}
	i := Now(c)
	require.Equal(t, int32(1234), i.Raw())
}

func TestAddThenSubIsIdentity(t *testing.T) {
	cases := []struct {
		start int32
		d     uint32
	}{
		{0, 1_000_000},
		{1<<31 - 1, 10},          // wraps past the signed boundary
		{-1, 1},                  // wraps past zero
		{2000000000, 2000000000}, // large duration near the half-range bound
	}
	for _, tc := range cases {
		a := Artificial(tc.start)
		got := a.Add(Cycles(tc.d)).DurationSince(a)
		require.Equal(t, tc.d, got.Raw(), "start=%d d=%d", tc.start, tc.d)
	}
}

func TestAddRejectsOverlongDuration(t *testing.T) {
	a := Artificial(0)
	require.Panics(t, func() {
		a.Add(Cycles(uint32(MaxDuration.Raw())))
	})
}

func TestDurationSincePanicsWhenEarlierIsLater(t *testing.T) {
	earlier := Artificial(100)
	later := Artificial(50)
	require.Panics(t, func() {
		later.DurationSince(earlier)
	})
}

func TestCompareAgreesWithWrapSafeSubtraction(t *testing.T) {
	a := Artificial(10)
	b := Artificial(20)
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))
	require.Equal(t, 0, a.Compare(a))
	require.True(t, a.Before(b))
	require.True(t, b.After(a))

	// Wrap-around: a value just past the signed boundary still orders
	// correctly relative to one just before it.
	justBefore := Artificial(1<<31 - 1)
	justAfter := justBefore.Add(Cycles(10))
	require.True(t, justBefore.Before(justAfter))
}

func TestMonotonicElapsed(t *testing.T) {
	c := &fakeCounter{v: 100}
	start := Now(c)
	c.v += 5000
	require.Equal(t, uint32(5000), start.Elapsed(c).Raw())
}
