package rtfm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeController simulates BASEPRI/PRIMASK in software: it holds the last
// BASEPRI value written, sets global while a Free region runs, and counts
// Wfi calls.
type fakeController struct {
	basePri  uint8
	global   bool
	wfiCount int
}

func (f *fakeController) BasePri() uint8     { return f.basePri }
func (f *fakeController) SetBasePri(v uint8) { f.basePri = v }
func (f *fakeController) Free(fn func()) {
	prev := f.global
	f.global = true
	fn()
	f.global = prev
}
func (f *fakeController) Wfi() { f.wfiCount++ }

func TestLockRestoresCellAndBasePri(t *testing.T) {
	ctl := &fakeController{}
	cell := NewPriorityCell(1)
	data := 0

	Lock(ctl, ProfileBASEPRI, cell, 3, 4, &data, func(d *int) {
		*d = 42
		require.Equal(t, uint8(3), cell.Get())
		require.NotZero(t, ctl.BasePri())
	})

	require.Equal(t, 42, data)
	require.Equal(t, uint8(1), cell.Get())
	require.Equal(t, uint8(0), ctl.BasePri())
}

func TestLockIsNoOpWhenAlreadyAtCeiling(t *testing.T) {
	ctl := &fakeController{}
	cell := NewPriorityCell(3)
	ran := false

	Lock(ctl, ProfileBASEPRI, cell, 3, 4, &ran, func(r *bool) {
		*r = true
		// no hardware mask should have been touched
		require.Equal(t, uint8(0), ctl.BasePri())
	})

	require.True(t, ran)
	require.Equal(t, uint8(3), cell.Get())
}

func TestLockAtMaxCeilingGoesGlobal(t *testing.T) {
	ctl := &fakeController{}
	cell := NewPriorityCell(1)

	Lock(ctl, ProfileBASEPRI, cell, 1<<4, 4, new(int), func(*int) {
		require.True(t, ctl.global)
		require.Equal(t, MaxPriority, cell.Get())
	})

	require.Equal(t, uint8(1), cell.Get())
	require.False(t, ctl.global)
}

func TestLockGlobalOnlyProfileNeverRaisesBasePri(t *testing.T) {
	ctl := &fakeController{}
	cell := NewPriorityCell(0)

	Lock(ctl, ProfileGlobalOnly, cell, 2, 2, new(int), func(*int) {
		require.True(t, ctl.global)
		require.Equal(t, uint8(0), ctl.BasePri())
	})
}

func TestPriorityCellEnterRestoresPreviousValue(t *testing.T) {
	cell := NewPriorityCell(0)
	ran := false

	cell.Enter(2, func() {
		ran = true
		require.Equal(t, uint8(2), cell.Get())
	})

	require.True(t, ran)
	require.Equal(t, uint8(0), cell.Get())
}

func TestPriorityCellEnterNests(t *testing.T) {
	cell := NewPriorityCell(0)

	cell.Enter(1, func() {
		require.Equal(t, uint8(1), cell.Get())
		cell.Enter(3, func() {
			require.Equal(t, uint8(3), cell.Get())
		})
		require.Equal(t, uint8(1), cell.Get())
	})
}

func TestControllerWfiIsCallable(t *testing.T) {
	ctl := &fakeController{}
	ctl.Wfi()
	ctl.Wfi()
	require.Equal(t, 2, ctl.wfiCount)
}

func TestLogical2HW(t *testing.T) {
	// 4 priority bits, ceiling 1 (lowest real priority) -> highest BASEPRI value
	require.Equal(t, uint8((1<<4-1)<<(8-4)), Logical2HW(1, 4))
	// ceiling == levels -> BASEPRI value 0, which the max-ceiling branch
	// in Lock avoids relying on (0 means "masks nothing" on real hardware).
	require.Equal(t, uint8(0), Logical2HW(1<<4, 4))
}
